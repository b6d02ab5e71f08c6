package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresStore is the entity store substrate. Methods stay single-entity:
// point lookups, indexed scans and single-row patches. Multi-entity joins are
// assembled by callers; the only multi-statement methods are the bounded
// cascades, which run inside one transaction.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) EnsureUserByName(ctx context.Context, name string) (User, error) {
	const findUser = `SELECT id, display_name, email, image, created_at FROM users WHERE display_name = $1`
	var user User
	err := s.db.QueryRowContext(ctx, findUser, name).Scan(&user.ID, &user.DisplayName, &user.Email, &user.Image, &user.CreatedAt)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("lookup user: %w", err)
	}

	const insertUser = `
		INSERT INTO users (display_name, email)
		VALUES ($1, CONCAT(LOWER(REPLACE($1, ' ', '.')), '@local.huddle.dev'))
		RETURNING id, display_name, email, image, created_at
	`
	if err := s.db.QueryRowContext(ctx, insertUser, name).Scan(&user.ID, &user.DisplayName, &user.Email, &user.Image, &user.CreatedAt); err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) GetUser(ctx context.Context, userID string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, email, image, created_at
		FROM users
		WHERE id=$1
	`, userID).Scan(&user.ID, &user.DisplayName, &user.Email, &user.Image, &user.CreatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// CreateWorkspaceWithAdmin inserts the workspace and its owning admin member
// atomically: a workspace is never observable without its first member.
func (s *PostgresStore) CreateWorkspaceWithAdmin(ctx context.Context, workspace Workspace, member Member) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create workspace: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO workspaces (id, name, owner_user_id, join_code, image)
		VALUES ($1, $2, $3, $4, $5)
	`, workspace.ID, workspace.Name, workspace.OwnerUserID, workspace.JoinCode, workspace.Image); err != nil {
		return fmt.Errorf("insert workspace: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO members (id, workspace_id, user_id, role)
		VALUES ($1, $2, $3, $4)
	`, member.ID, member.WorkspaceID, member.UserID, member.Role); err != nil {
		return fmt.Errorf("insert owner member: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create workspace: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetWorkspace(ctx context.Context, workspaceID string) (Workspace, error) {
	var item Workspace
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, owner_user_id, join_code, image, created_at
		FROM workspaces
		WHERE id=$1
	`, workspaceID).Scan(&item.ID, &item.Name, &item.OwnerUserID, &item.JoinCode, &item.Image, &item.CreatedAt)
	if err != nil {
		return Workspace{}, err
	}
	return item, nil
}

func (s *PostgresStore) GetWorkspaceByJoinCode(ctx context.Context, joinCode string) (*Workspace, error) {
	var item Workspace
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, owner_user_id, join_code, image, created_at
		FROM workspaces
		WHERE join_code=$1
	`, joinCode).Scan(&item.ID, &item.Name, &item.OwnerUserID, &item.JoinCode, &item.Image, &item.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup workspace by join code: %w", err)
	}
	return &item, nil
}

func (s *PostgresStore) UpdateJoinCode(ctx context.Context, workspaceID, joinCode string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE workspaces SET join_code=$2 WHERE id=$1`, workspaceID, joinCode)
	if err != nil {
		return fmt.Errorf("update join code: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertChannel(ctx context.Context, item Channel) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO channels (id, workspace_id, name)
		VALUES ($1, $2, $3)
	`, item.ID, item.WorkspaceID, item.Name)
	if err != nil {
		return fmt.Errorf("insert channel: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetChannel(ctx context.Context, channelID string) (Channel, error) {
	var item Channel
	err := s.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, name, created_at
		FROM channels
		WHERE id=$1
	`, channelID).Scan(&item.ID, &item.WorkspaceID, &item.Name, &item.CreatedAt)
	if err != nil {
		return Channel{}, err
	}
	return item, nil
}

func (s *PostgresStore) ListChannels(ctx context.Context, workspaceID string) ([]Channel, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workspace_id, name, created_at
		FROM channels
		WHERE workspace_id=$1
		ORDER BY created_at ASC
	`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	items := make([]Channel, 0)
	for rows.Next() {
		var item Channel
		if err := rows.Scan(&item.ID, &item.WorkspaceID, &item.Name, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate channels: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpdateChannelName(ctx context.Context, channelID, name string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE channels SET name=$2 WHERE id=$1`, channelID, name)
	if err != nil {
		return fmt.Errorf("update channel name: %w", err)
	}
	return nil
}

// DeleteChannelCascade removes the channel and every message (and reaction on
// those messages) inside it, atomically.
func (s *PostgresStore) DeleteChannelCascade(ctx context.Context, channelID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete channel: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM reactions
		WHERE message_id IN (SELECT id FROM messages WHERE channel_id=$1)
	`, channelID); err != nil {
		return fmt.Errorf("delete channel reactions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE channel_id=$1`, channelID); err != nil {
		return fmt.Errorf("delete channel messages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM channels WHERE id=$1`, channelID); err != nil {
		return fmt.Errorf("delete channel: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete channel: %w", err)
	}
	return nil
}
