package store

import (
	"context"
	"encoding/json"
	"fmt"
)

const notificationColumns = `id, user_id, type, source, title, message, metadata, is_read, created_at`

func scanNotification(row messageScanner) (Notification, error) {
	var item Notification
	var metadata []byte
	err := row.Scan(
		&item.ID,
		&item.UserID,
		&item.Type,
		&item.Source,
		&item.Title,
		&item.Message,
		&metadata,
		&item.IsRead,
		&item.CreatedAt,
	)
	if err != nil {
		return Notification{}, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &item.Metadata); err != nil {
			return Notification{}, fmt.Errorf("parse notification metadata: %w", err)
		}
	}
	return item, nil
}

func (s *PostgresStore) InsertNotification(ctx context.Context, item Notification) error {
	metadata, err := json.Marshal(item.Metadata)
	if err != nil {
		return fmt.Errorf("marshal notification metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, type, source, title, message, metadata, is_read)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE)
	`, item.ID, item.UserID, item.Type, item.Source, item.Title, item.Message, metadata)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetNotification(ctx context.Context, notificationID string) (Notification, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id=$1`, notificationID)
	return scanNotification(row)
}

// MarkNotificationRead flips is_read only when currently unread; reports
// whether a row changed.
func (s *PostgresStore) MarkNotificationRead(ctx context.Context, notificationID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET is_read=TRUE WHERE id=$1 AND is_read=FALSE
	`, notificationID)
	if err != nil {
		return false, fmt.Errorf("mark notification read: %w", err)
	}
	changed, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark notification rows: %w", err)
	}
	return changed > 0, nil
}

func (s *PostgresStore) MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET is_read=TRUE WHERE user_id=$1 AND is_read=FALSE
	`, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	changed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark all notifications rows: %w", err)
	}
	return changed, nil
}

func (s *PostgresStore) DeleteNotification(ctx context.Context, notificationID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM notifications WHERE id=$1`, notificationID)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteAllNotifications(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM notifications WHERE user_id=$1`, userID)
	if err != nil {
		return fmt.Errorf("delete all notifications: %w", err)
	}
	return nil
}

// CountUnreadByWorkspace counts the user's unread notifications whose
// metadata names exactly this workspace. Notifications without a workspace in
// metadata are excluded; the workspace badge stays workspace-specific.
func (s *PostgresStore) CountUnreadByWorkspace(ctx context.Context, userID, workspaceID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM notifications
		WHERE user_id=$1 AND is_read=FALSE AND metadata->>'workspaceId' = $2
	`, userID, workspaceID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

// ListNotifications returns the user's notifications whose metadata workspace
// matches the filter's workspace or is absent. This is broader than the
// unread-count rule so workspace views still surface workspace-agnostic
// system notifications.
func (s *PostgresStore) ListNotifications(ctx context.Context, userID string, filter NotificationFilter) ([]Notification, error) {
	const query = `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE user_id=$1
		  AND (metadata->>'workspaceId' = $2 OR metadata->>'workspaceId' IS NULL)
		  AND ($3 = '' OR type = $3)
		  AND ($4 = '' OR source = $4)
		  AND ($5::timestamptz IS NULL OR created_at >= $5)
		  AND ($6::timestamptz IS NULL OR created_at <= $6)
		  AND ($7 = FALSE OR is_read = FALSE)
		ORDER BY created_at DESC
		LIMIT $8
	`
	rows, err := s.db.QueryContext(ctx, query,
		userID,
		filter.WorkspaceID,
		filter.Type,
		filter.Source,
		filter.StartDate,
		filter.EndDate,
		filter.UnreadOnly,
		filter.Limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	items := make([]Notification, 0)
	for rows.Next() {
		item, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return items, nil
}
