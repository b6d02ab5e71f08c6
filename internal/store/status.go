package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

func (s *PostgresStore) UpsertStatus(ctx context.Context, item UserStatus) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_statuses (user_id, current_status, custom_emoji, custom_note, custom_expires_at, forced_offline, last_seen, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			current_status=EXCLUDED.current_status,
			custom_emoji=EXCLUDED.custom_emoji,
			custom_note=EXCLUDED.custom_note,
			custom_expires_at=EXCLUDED.custom_expires_at,
			forced_offline=EXCLUDED.forced_offline,
			last_seen=EXCLUDED.last_seen,
			updated_at=NOW()
	`, item.UserID, item.CurrentStatus, item.CustomEmoji, item.CustomNote, item.CustomExpiresAt, item.ForcedOffline, item.LastSeen)
	if err != nil {
		return fmt.Errorf("upsert status: %w", err)
	}
	return nil
}

// GetStatus returns nil when the user has never set a status.
func (s *PostgresStore) GetStatus(ctx context.Context, userID string) (*UserStatus, error) {
	var item UserStatus
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, current_status, custom_emoji, custom_note, custom_expires_at, forced_offline, last_seen, updated_at
		FROM user_statuses
		WHERE user_id=$1
	`, userID).Scan(&item.UserID, &item.CurrentStatus, &item.CustomEmoji, &item.CustomNote, &item.CustomExpiresAt, &item.ForcedOffline, &item.LastSeen, &item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup status: %w", err)
	}
	return &item, nil
}

func (s *PostgresStore) TouchLastSeen(ctx context.Context, userID string, seenAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_statuses (user_id, current_status, last_seen, updated_at)
		VALUES ($1, 'online', $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET last_seen=EXCLUDED.last_seen, updated_at=NOW()
	`, userID, seenAt)
	if err != nil {
		return fmt.Errorf("touch last seen: %w", err)
	}
	return nil
}
