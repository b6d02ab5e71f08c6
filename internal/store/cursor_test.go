package store

import (
	"testing"
	"time"
)

func TestCursorRoundTrip(t *testing.T) {
	createdAt := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)
	token := EncodeCursor(createdAt, "msg_abc")
	if token == "" {
		t.Fatal("expected a token")
	}

	cursor, err := DecodeCursor(token)
	if err != nil {
		t.Fatalf("DecodeCursor() error = %v", err)
	}
	if cursor == nil {
		t.Fatal("expected a cursor")
	}
	if cursor.ID != "msg_abc" {
		t.Fatalf("expected id msg_abc, got %s", cursor.ID)
	}
	if !cursor.CreatedAt.Equal(createdAt) {
		t.Fatalf("expected %v, got %v", createdAt, cursor.CreatedAt)
	}
}

func TestDecodeCursorEmptyMeansFirstPage(t *testing.T) {
	cursor, err := DecodeCursor("")
	if err != nil {
		t.Fatalf("DecodeCursor() error = %v", err)
	}
	if cursor != nil {
		t.Fatalf("expected nil cursor for an empty token, got %+v", cursor)
	}
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	if _, err := DecodeCursor("not-base64!!"); err == nil {
		t.Fatal("expected an error for a malformed token")
	}
	if _, err := DecodeCursor("aGVsbG8="); err == nil {
		t.Fatal("expected an error for non-JSON token contents")
	}
}
