package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

func (s *PostgresStore) InsertMember(ctx context.Context, item Member) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO members (id, workspace_id, user_id, role)
		VALUES ($1, $2, $3, $4)
	`, item.ID, item.WorkspaceID, item.UserID, item.Role)
	if err != nil {
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetMember(ctx context.Context, memberID string) (Member, error) {
	var item Member
	err := s.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, user_id, role, created_at
		FROM members
		WHERE id=$1
	`, memberID).Scan(&item.ID, &item.WorkspaceID, &item.UserID, &item.Role, &item.CreatedAt)
	if err != nil {
		return Member{}, err
	}
	return item, nil
}

// GetMemberByWorkspaceUser resolves the unique (workspace, user) membership.
// Absence is nil, not an error; mutation callers decide whether nil means
// unauthorized.
func (s *PostgresStore) GetMemberByWorkspaceUser(ctx context.Context, workspaceID, userID string) (*Member, error) {
	var item Member
	err := s.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, user_id, role, created_at
		FROM members
		WHERE workspace_id=$1 AND user_id=$2
	`, workspaceID, userID).Scan(&item.ID, &item.WorkspaceID, &item.UserID, &item.Role, &item.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup member: %w", err)
	}
	return &item, nil
}

func (s *PostgresStore) ListMembers(ctx context.Context, workspaceID string) ([]Member, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workspace_id, user_id, role, created_at
		FROM members
		WHERE workspace_id=$1
		ORDER BY created_at ASC
	`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	items := make([]Member, 0)
	for rows.Next() {
		var item Member
		if err := rows.Scan(&item.ID, &item.WorkspaceID, &item.UserID, &item.Role, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return items, nil
}

// RemoveMemberCascade deletes the member together with every message and
// reaction they authored and every conversation they are a party to, in one
// transaction. No reader ever observes a message whose author member is gone.
func (s *PostgresStore) RemoveMemberCascade(ctx context.Context, memberID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin remove member: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM reactions
		WHERE member_id=$1
		   OR message_id IN (SELECT id FROM messages WHERE member_id=$1)
	`, memberID); err != nil {
		return fmt.Errorf("delete member reactions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE member_id=$1`, memberID); err != nil {
		return fmt.Errorf("delete member messages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM conversations
		WHERE member_one_id=$1 OR member_two_id=$1
	`, memberID); err != nil {
		return fmt.Errorf("delete member conversations: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM thread_members WHERE member_id=$1`, memberID); err != nil {
		return fmt.Errorf("delete member thread roster rows: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM members WHERE id=$1`, memberID); err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit remove member: %w", err)
	}
	return nil
}
