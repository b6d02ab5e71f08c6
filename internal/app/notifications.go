package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"huddle/api/internal/store"
	"huddle/api/internal/util"
)

const defaultNotificationLimit = 50

type CreateMentionInput struct {
	WorkspaceID       string  `json:"workspaceId"`
	ChannelID         *string `json:"channelId"`
	MessageID         string  `json:"messageId"`
	MentionedMemberID string  `json:"mentionedMemberId"`
}

func (s *Service) CreateNotification(ctx context.Context, input CreateNotificationInput) (string, error) {
	if input.UserID == "" {
		return "", validationError("userId is required")
	}
	if _, ok := allowedNotificationTypes[input.Type]; !ok {
		return "", validationError("invalid notification type")
	}
	if _, ok := allowedNotificationSources[input.Source]; !ok {
		return "", validationError("invalid notification source")
	}

	notification := store.Notification{
		ID:       util.NewID("ntf"),
		UserID:   input.UserID,
		Type:     input.Type,
		Source:   input.Source,
		Title:    input.Title,
		Message:  input.Message,
		Metadata: input.Metadata,
	}
	if err := s.store.InsertNotification(ctx, notification); err != nil {
		return "", err
	}
	return notification.ID, nil
}

func (s *Service) CreateMentionNotification(ctx context.Context, caller Caller, input CreateMentionInput) (string, error) {
	member, err := s.memberOf(ctx, caller, input.WorkspaceID)
	if err != nil {
		return "", err
	}
	actingUser, err := s.store.GetUser(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", unauthorized("Unauthorized")
		}
		return "", err
	}

	mentioned, err := s.store.GetMember(ctx, input.MentionedMemberID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", notFound("mentioned member not found")
		}
		return "", err
	}
	if mentioned.WorkspaceID != input.WorkspaceID {
		return "", notFound("mentioned member not found")
	}
	if _, err := s.store.GetUser(ctx, mentioned.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", notFound("mentioned user not found")
		}
		return "", err
	}

	message, err := s.store.GetMessage(ctx, input.MessageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", notFound("message not found")
		}
		return "", err
	}

	location := "a direct message"
	url := fmt.Sprintf("/workspace/%s/member/%s#message-%s", input.WorkspaceID, member.ID, message.ID)
	channelID := ""
	if input.ChannelID != nil {
		channel, err := s.store.GetChannel(ctx, *input.ChannelID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return "", notFound("channel not found")
			}
			return "", err
		}
		location = "#" + channel.Name
		url = fmt.Sprintf("/workspace/%s/channel/%s#message-%s", input.WorkspaceID, channel.ID, message.ID)
		channelID = channel.ID
	}

	notification := store.Notification{
		ID:      util.NewID("ntf"),
		UserID:  mentioned.UserID,
		Type:    "info",
		Source:  "mention",
		Title:   actingUser.DisplayName + " mentioned you",
		Message: fmt.Sprintf("%s mentioned you in %s", actingUser.DisplayName, location),
		Metadata: store.NotificationMetadata{
			WorkspaceID: input.WorkspaceID,
			ChannelID:   channelID,
			MessageID:   message.ID,
			MentionedBy: member.ID,
			URL:         url,
		},
	}
	if err := s.store.InsertNotification(ctx, notification); err != nil {
		return "", err
	}
	return notification.ID, nil
}

// CreateSubscriptionNotification is called by the billing collaborator, not by
// workspace members; it is keyed by user id directly.
func (s *Service) CreateSubscriptionNotification(ctx context.Context, userID string, success bool, subscriptionID, message string) (string, error) {
	if userID == "" {
		return "", validationError("userId is required")
	}

	notificationType := "success"
	title := "Subscription activated"
	body := strings.TrimSpace(message)
	if body == "" {
		body = "Your subscription is now active."
	}
	if !success {
		notificationType = "error"
		title = "Subscription payment failed"
		if strings.TrimSpace(message) == "" {
			body = "We could not process your subscription payment."
		}
	}

	notification := store.Notification{
		ID:      util.NewID("ntf"),
		UserID:  userID,
		Type:    notificationType,
		Source:  "subscription",
		Title:   title,
		Message: body,
		Metadata: store.NotificationMetadata{
			SubscriptionID: subscriptionID,
		},
	}
	if err := s.store.InsertNotification(ctx, notification); err != nil {
		return "", err
	}
	return notification.ID, nil
}

func (s *Service) MarkAllNotificationsRead(ctx context.Context, caller Caller) (int64, error) {
	if caller.UserID == "" {
		return 0, unauthorized("Unauthorized")
	}
	return s.store.MarkAllNotificationsRead(ctx, caller.UserID)
}

// MarkNotificationReadOnView is idempotent: an already-read notification is a
// silent no-op, only an owner mismatch is an error.
func (s *Service) MarkNotificationReadOnView(ctx context.Context, caller Caller, notificationID string) error {
	notification, err := s.store.GetNotification(ctx, notificationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("notification not found")
		}
		return err
	}
	if notification.UserID != caller.UserID {
		return unauthorized("Unauthorized")
	}
	if notification.IsRead {
		return nil
	}
	_, err = s.store.MarkNotificationRead(ctx, notificationID)
	return err
}

func (s *Service) DeleteNotification(ctx context.Context, caller Caller, notificationID string) error {
	notification, err := s.store.GetNotification(ctx, notificationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("notification not found")
		}
		return err
	}
	if notification.UserID != caller.UserID {
		return unauthorized("Unauthorized")
	}
	return s.store.DeleteNotification(ctx, notificationID)
}

func (s *Service) DeleteAllNotifications(ctx context.Context, caller Caller) error {
	if caller.UserID == "" {
		return unauthorized("Unauthorized")
	}
	return s.store.DeleteAllNotifications(ctx, caller.UserID)
}

// UnreadCount feeds the workspace badge. Unlike ListWorkspaceNotifications it
// counts only notifications whose metadata names this workspace; workspace-
// agnostic system notifications stay out of the badge.
func (s *Service) UnreadCount(ctx context.Context, caller Caller, workspaceID string) (int, error) {
	if caller.UserID == "" {
		return 0, unauthorized("Unauthorized")
	}
	return s.store.CountUnreadByWorkspace(ctx, caller.UserID, workspaceID)
}

func (s *Service) ListWorkspaceNotifications(ctx context.Context, caller Caller, workspaceID string, query NotificationQuery) ([]map[string]any, error) {
	if caller.UserID == "" {
		return nil, unauthorized("Unauthorized")
	}

	limit := query.Limit
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	rows, err := s.store.ListNotifications(ctx, caller.UserID, store.NotificationFilter{
		WorkspaceID: workspaceID,
		Type:        query.Type,
		Source:      query.Source,
		StartDate:   query.StartDate,
		EndDate:     query.EndDate,
		UnreadOnly:  query.UnreadOnly,
		Limit:       limit,
	})
	if err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		items = append(items, notificationView(row))
	}
	return items, nil
}

func notificationView(notification store.Notification) map[string]any {
	return map[string]any{
		"id":        notification.ID,
		"type":      notification.Type,
		"source":    notification.Source,
		"title":     notification.Title,
		"message":   notification.Message,
		"metadata":  notification.Metadata,
		"isRead":    notification.IsRead,
		"createdAt": notification.CreatedAt.Format(time.RFC3339),
	}
}
