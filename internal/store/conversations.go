package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

func (s *PostgresStore) InsertConversation(ctx context.Context, item Conversation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, workspace_id, member_one_id, member_two_id)
		VALUES ($1, $2, $3, $4)
	`, item.ID, item.WorkspaceID, item.MemberOneID, item.MemberTwoID)
	if err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetConversation(ctx context.Context, conversationID string) (Conversation, error) {
	var item Conversation
	err := s.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, member_one_id, member_two_id, created_at
		FROM conversations
		WHERE id=$1
	`, conversationID).Scan(&item.ID, &item.WorkspaceID, &item.MemberOneID, &item.MemberTwoID, &item.CreatedAt)
	if err != nil {
		return Conversation{}, err
	}
	return item, nil
}

// GetConversationByPair finds the 1:1 conversation for an unordered member
// pair within a workspace. nil means none exists yet.
func (s *PostgresStore) GetConversationByPair(ctx context.Context, workspaceID, memberA, memberB string) (*Conversation, error) {
	var item Conversation
	err := s.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, member_one_id, member_two_id, created_at
		FROM conversations
		WHERE workspace_id=$1
		  AND ((member_one_id=$2 AND member_two_id=$3) OR (member_one_id=$3 AND member_two_id=$2))
	`, workspaceID, memberA, memberB).Scan(&item.ID, &item.WorkspaceID, &item.MemberOneID, &item.MemberTwoID, &item.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup conversation pair: %w", err)
	}
	return &item, nil
}
