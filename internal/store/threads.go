package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// InsertThreadWithMembers writes the thread row and its seed roster in one
// transaction, so a thread is never visible without its initial members.
func (s *PostgresStore) InsertThreadWithMembers(ctx context.Context, thread Thread, roster []ThreadMember) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert thread: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO threads (id, workspace_id, parent_message_id, title, type, last_activity_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, thread.ID, thread.WorkspaceID, thread.ParentMessageID, thread.Title, thread.Type, thread.LastActivityAt); err != nil {
		return fmt.Errorf("insert thread: %w", err)
	}
	for _, member := range roster {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO thread_members (id, thread_id, member_id, role)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (thread_id, member_id) DO NOTHING
		`, member.ID, member.ThreadID, member.MemberID, member.Role); err != nil {
			return fmt.Errorf("insert thread member: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert thread: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetThread(ctx context.Context, threadID string) (Thread, error) {
	var item Thread
	err := s.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, parent_message_id, title, type, last_activity_at, created_at
		FROM threads
		WHERE id=$1
	`, threadID).Scan(&item.ID, &item.WorkspaceID, &item.ParentMessageID, &item.Title, &item.Type, &item.LastActivityAt, &item.CreatedAt)
	if err != nil {
		return Thread{}, err
	}
	return item, nil
}

func (s *PostgresStore) GetThreadByParent(ctx context.Context, workspaceID, parentMessageID string) (*Thread, error) {
	var item Thread
	err := s.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, parent_message_id, title, type, last_activity_at, created_at
		FROM threads
		WHERE workspace_id=$1 AND parent_message_id=$2
	`, workspaceID, parentMessageID).Scan(&item.ID, &item.WorkspaceID, &item.ParentMessageID, &item.Title, &item.Type, &item.LastActivityAt, &item.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup thread by parent: %w", err)
	}
	return &item, nil
}

// UpdateThread patches last activity and, when title is non-nil, the title.
func (s *PostgresStore) UpdateThread(ctx context.Context, threadID string, title *string, lastActivityAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE threads
		SET last_activity_at=$2, title=COALESCE($3, title)
		WHERE id=$1
	`, threadID, lastActivityAt, title)
	if err != nil {
		return fmt.Errorf("update thread: %w", err)
	}
	return nil
}

// DeleteThreadCascade removes the roster before the thread row, atomically.
func (s *PostgresStore) DeleteThreadCascade(ctx context.Context, threadID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete thread: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM thread_members WHERE thread_id=$1`, threadID); err != nil {
		return fmt.Errorf("delete thread members: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM threads WHERE id=$1`, threadID); err != nil {
		return fmt.Errorf("delete thread: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete thread: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListThreadMembers(ctx context.Context, threadID string) ([]ThreadMember, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, thread_id, member_id, role, created_at
		FROM thread_members
		WHERE thread_id=$1
		ORDER BY created_at ASC
	`, threadID)
	if err != nil {
		return nil, fmt.Errorf("list thread members: %w", err)
	}
	defer rows.Close()

	items := make([]ThreadMember, 0)
	for rows.Next() {
		var item ThreadMember
		if err := rows.Scan(&item.ID, &item.ThreadID, &item.MemberID, &item.Role, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan thread member: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate thread members: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetThreadMember(ctx context.Context, threadID, memberID string) (*ThreadMember, error) {
	var item ThreadMember
	err := s.db.QueryRowContext(ctx, `
		SELECT id, thread_id, member_id, role, created_at
		FROM thread_members
		WHERE thread_id=$1 AND member_id=$2
	`, threadID, memberID).Scan(&item.ID, &item.ThreadID, &item.MemberID, &item.Role, &item.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup thread member: %w", err)
	}
	return &item, nil
}
