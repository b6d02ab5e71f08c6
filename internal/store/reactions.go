package store

import (
	"context"
	"fmt"
)

func (s *PostgresStore) ListReactionsByMessage(ctx context.Context, messageID string) ([]Reaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workspace_id, message_id, member_id, value, created_at
		FROM reactions
		WHERE message_id=$1
		ORDER BY created_at ASC
	`, messageID)
	if err != nil {
		return nil, fmt.Errorf("list reactions: %w", err)
	}
	defer rows.Close()

	items := make([]Reaction, 0)
	for rows.Next() {
		var item Reaction
		if err := rows.Scan(&item.ID, &item.WorkspaceID, &item.MessageID, &item.MemberID, &item.Value, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reaction: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reactions: %w", err)
	}
	return items, nil
}

// ToggleReaction removes the member's identical reaction when present,
// otherwise inserts it. Write-time dedup keeps at most one row per
// (message, member, value); the read path still dedups defensively.
func (s *PostgresStore) ToggleReaction(ctx context.Context, item Reaction) (added bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin toggle reaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		DELETE FROM reactions
		WHERE message_id=$1 AND member_id=$2 AND value=$3
	`, item.MessageID, item.MemberID, item.Value)
	if err != nil {
		return false, fmt.Errorf("delete reaction: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("toggle reaction rows: %w", err)
	}
	if removed == 0 {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO reactions (id, workspace_id, message_id, member_id, value)
			VALUES ($1, $2, $3, $4, $5)
		`, item.ID, item.WorkspaceID, item.MessageID, item.MemberID, item.Value); err != nil {
			return false, fmt.Errorf("insert reaction: %w", err)
		}
		added = true
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit toggle reaction: %w", err)
	}
	return added, nil
}
