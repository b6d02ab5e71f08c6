package store

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// Cursor marks a keyset position in a (created_at, id) ordered scan. Encoded
// cursors are opaque to callers and stay usable for "load more" continuation
// while concurrent writes land; rows inserted or removed mid-pagination may be
// skipped or repeated, which callers tolerate.
type Cursor struct {
	CreatedAt time.Time `json:"t"`
	ID        string    `json:"id"`
}

func EncodeCursor(createdAt time.Time, id string) string {
	raw, _ := json.Marshal(Cursor{CreatedAt: createdAt, ID: id})
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor parses an encoded cursor. An empty token yields a nil cursor,
// meaning "start from the beginning".
func DecodeCursor(token string) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	var cursor Cursor
	if err := json.Unmarshal(raw, &cursor); err != nil {
		return nil, fmt.Errorf("parse cursor: %w", err)
	}
	if cursor.ID == "" {
		return nil, fmt.Errorf("parse cursor: missing id")
	}
	return &cursor, nil
}
