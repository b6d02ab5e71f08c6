package store

import (
	"context"
	"database/sql"
	"fmt"
)

const messageColumns = `id, workspace_id, member_id, body, attachment_key, channel_id, conversation_id, parent_message_id, has_replies, created_at, updated_at`

type messageScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row messageScanner) (Message, error) {
	var item Message
	err := row.Scan(
		&item.ID,
		&item.WorkspaceID,
		&item.MemberID,
		&item.Body,
		&item.AttachmentKey,
		&item.ChannelID,
		&item.ConversationID,
		&item.ParentMessageID,
		&item.HasReplies,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	return item, err
}

// InsertMessage writes the message and, for replies, marks the parent as
// having replies in the same transaction. Setting has_replies when it is
// already true is a no-op in effect.
func (s *PostgresStore) InsertMessage(ctx context.Context, item Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert message: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO messages (id, workspace_id, member_id, body, attachment_key, channel_id, conversation_id, parent_message_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, item.ID, item.WorkspaceID, item.MemberID, item.Body, item.AttachmentKey, item.ChannelID, item.ConversationID, item.ParentMessageID); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	if item.ParentMessageID != nil {
		if _, err := tx.ExecContext(ctx, `UPDATE messages SET has_replies=TRUE WHERE id=$1`, *item.ParentMessageID); err != nil {
			return fmt.Errorf("mark parent has replies: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert message: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetMessage(ctx context.Context, messageID string) (Message, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, messageID)
	return scanMessage(row)
}

// ListMessages pages the exact destination triple, newest first. Nil filter
// fields match NULL columns so a channel page never bleeds thread replies and
// vice versa.
func (s *PostgresStore) ListMessages(ctx context.Context, filter MessageFilter, cursor *Cursor, limit int) ([]Message, error) {
	const query = `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE channel_id IS NOT DISTINCT FROM $1
		  AND parent_message_id IS NOT DISTINCT FROM $2
		  AND conversation_id IS NOT DISTINCT FROM $3
		  AND ($4::timestamptz IS NULL OR (created_at, id) < ($4, $5))
		ORDER BY created_at DESC, id DESC
		LIMIT $6
	`
	cursorAt, cursorID := cursorArgs(cursor)
	rows, err := s.db.QueryContext(ctx, query, filter.ChannelID, filter.ParentMessageID, filter.ConversationID, cursorAt, cursorID, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return collectMessages(rows)
}

// ListReplies pages the replies to one parent, oldest first.
func (s *PostgresStore) ListReplies(ctx context.Context, parentMessageID string, cursor *Cursor, limit int) ([]Message, error) {
	const query = `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE parent_message_id=$1
		  AND ($2::timestamptz IS NULL OR (created_at, id) > ($2, $3))
		ORDER BY created_at ASC, id ASC
		LIMIT $4
	`
	cursorAt, cursorID := cursorArgs(cursor)
	rows, err := s.db.QueryContext(ctx, query, parentMessageID, cursorAt, cursorID, limit)
	if err != nil {
		return nil, fmt.Errorf("list replies: %w", err)
	}
	return collectMessages(rows)
}

// ListAllReplies fetches every reply to a parent in creation order, for
// rollup computation.
func (s *PostgresStore) ListAllReplies(ctx context.Context, parentMessageID string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE parent_message_id=$1
		ORDER BY created_at ASC, id ASC
	`, parentMessageID)
	if err != nil {
		return nil, fmt.Errorf("list all replies: %w", err)
	}
	return collectMessages(rows)
}

// ListTopLevelMessages pages a workspace's parent-less messages, newest first.
func (s *PostgresStore) ListTopLevelMessages(ctx context.Context, workspaceID string, cursor *Cursor, limit int) ([]Message, error) {
	const query = `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE workspace_id=$1
		  AND parent_message_id IS NULL
		  AND ($2::timestamptz IS NULL OR (created_at, id) < ($2, $3))
		ORDER BY created_at DESC, id DESC
		LIMIT $4
	`
	cursorAt, cursorID := cursorArgs(cursor)
	rows, err := s.db.QueryContext(ctx, query, workspaceID, cursorAt, cursorID, limit)
	if err != nil {
		return nil, fmt.Errorf("list top-level messages: %w", err)
	}
	return collectMessages(rows)
}

func (s *PostgresStore) UpdateMessageBody(ctx context.Context, messageID, body string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE messages SET body=$2, updated_at=NOW() WHERE id=$1
	`, messageID, body)
	if err != nil {
		return fmt.Errorf("update message body: %w", err)
	}
	return nil
}

// DeleteMessageCascade removes the message and its reactions, then, when the
// message was a reply, recounts the parent's remaining replies and clears
// has_replies iff none remain. All within one transaction.
func (s *PostgresStore) DeleteMessageCascade(ctx context.Context, messageID string, parentMessageID *string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete message: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM reactions WHERE message_id=$1`, messageID); err != nil {
		return fmt.Errorf("delete message reactions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE id=$1`, messageID); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	if parentMessageID != nil {
		var remaining int
		if err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM messages WHERE parent_message_id=$1
		`, *parentMessageID).Scan(&remaining); err != nil {
			return fmt.Errorf("count remaining replies: %w", err)
		}
		if remaining == 0 {
			if _, err := tx.ExecContext(ctx, `UPDATE messages SET has_replies=FALSE WHERE id=$1`, *parentMessageID); err != nil {
				return fmt.Errorf("clear parent has replies: %w", err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete message: %w", err)
	}
	return nil
}

func cursorArgs(cursor *Cursor) (any, any) {
	if cursor == nil {
		return nil, nil
	}
	return cursor.CreatedAt, cursor.ID
}

func collectMessages(rows *sql.Rows) ([]Message, error) {
	defer rows.Close()

	items := make([]Message, 0)
	for rows.Next() {
		item, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return items, nil
}
