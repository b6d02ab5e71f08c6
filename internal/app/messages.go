package app

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"time"

	"huddle/api/internal/store"
	"huddle/api/internal/util"
)

const defaultPageSize = 20

func (s *Service) CreateMessage(ctx context.Context, caller Caller, input CreateMessageInput) (string, error) {
	body := strings.TrimSpace(input.Body)
	if body == "" && input.AttachmentKey == "" {
		return "", validationError("message body is required")
	}

	member, err := s.memberOf(ctx, caller, input.WorkspaceID)
	if err != nil {
		return "", err
	}

	conversationID := input.ConversationID
	if input.ParentMessageID != nil && input.ChannelID == nil && conversationID == nil {
		parent, err := s.store.GetMessage(ctx, *input.ParentMessageID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return "", notFound("parent message not found")
			}
			return "", err
		}
		conversationID = parent.ConversationID
	}

	message := store.Message{
		ID:              util.NewID("msg"),
		WorkspaceID:     input.WorkspaceID,
		MemberID:        member.ID,
		Body:            body,
		AttachmentKey:   input.AttachmentKey,
		ChannelID:       input.ChannelID,
		ConversationID:  conversationID,
		ParentMessageID: input.ParentMessageID,
	}
	if err := s.store.InsertMessage(ctx, message); err != nil {
		return "", err
	}
	return message.ID, nil
}

func (s *Service) ListMessages(ctx context.Context, caller Caller, input ListMessagesInput) (map[string]any, error) {
	filter := store.MessageFilter{
		ChannelID:       input.ChannelID,
		ConversationID:  input.ConversationID,
		ParentMessageID: input.ParentMessageID,
	}
	workspaceID := ""
	switch {
	case filter.ChannelID != nil:
		channel, err := s.store.GetChannel(ctx, *filter.ChannelID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, notFound("channel not found")
			}
			return nil, err
		}
		workspaceID = channel.WorkspaceID
	case filter.ConversationID != nil:
		conversation, err := s.store.GetConversation(ctx, *filter.ConversationID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, notFound("conversation not found")
			}
			return nil, err
		}
		workspaceID = conversation.WorkspaceID
	case filter.ParentMessageID != nil:
		parent, err := s.store.GetMessage(ctx, *filter.ParentMessageID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, notFound("parent message not found")
			}
			return nil, err
		}
		workspaceID = parent.WorkspaceID
		filter.ConversationID = parent.ConversationID
	default:
		return nil, validationError("a channel, conversation or parent message is required")
	}
	if _, err := s.memberOf(ctx, caller, workspaceID); err != nil {
		return nil, err
	}

	cursor, err := store.DecodeCursor(input.Cursor)
	if err != nil {
		return nil, validationError("invalid cursor")
	}
	limit := input.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}

	rows, err := s.store.ListMessages(ctx, filter, cursor, limit)
	if err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		item, ok, err := s.populateMessage(ctx, row)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		items = append(items, item)
	}

	var nextCursor any
	if len(rows) == limit {
		last := rows[len(rows)-1]
		nextCursor = store.EncodeCursor(last.CreatedAt, last.ID)
	}
	return map[string]any{"items": items, "nextCursor": nextCursor}, nil
}

func (s *Service) GetMessage(ctx context.Context, caller Caller, messageID string) (map[string]any, error) {
	message, err := s.store.GetMessage(ctx, messageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if _, err := s.memberOf(ctx, caller, message.WorkspaceID); err != nil {
		return nil, err
	}
	item, ok, err := s.populateMessage(ctx, message)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return item, nil
}

func (s *Service) UpdateMessage(ctx context.Context, caller Caller, messageID, body string) error {
	newBody := strings.TrimSpace(body)
	if newBody == "" {
		return validationError("message body is required")
	}

	message, err := s.store.GetMessage(ctx, messageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("message not found")
		}
		return err
	}
	if err := s.requireAuthor(ctx, caller, message); err != nil {
		return err
	}
	return s.store.UpdateMessageBody(ctx, messageID, newBody)
}

func (s *Service) DeleteMessage(ctx context.Context, caller Caller, messageID string) error {
	message, err := s.store.GetMessage(ctx, messageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("message not found")
		}
		return err
	}
	if err := s.requireAuthor(ctx, caller, message); err != nil {
		return err
	}
	return s.store.DeleteMessageCascade(ctx, message.ID, message.ParentMessageID)
}

func (s *Service) ToggleReaction(ctx context.Context, caller Caller, messageID, value string) (bool, error) {
	if strings.TrimSpace(value) == "" {
		return false, validationError("reaction value is required")
	}

	message, err := s.store.GetMessage(ctx, messageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, notFound("message not found")
		}
		return false, err
	}
	member, err := s.memberOf(ctx, caller, message.WorkspaceID)
	if err != nil {
		return false, err
	}

	return s.store.ToggleReaction(ctx, store.Reaction{
		ID:          util.NewID("rct"),
		WorkspaceID: message.WorkspaceID,
		MessageID:   message.ID,
		MemberID:    member.ID,
		Value:       value,
	})
}

func (s *Service) requireAuthor(ctx context.Context, caller Caller, message store.Message) error {
	member, err := s.store.GetMemberByWorkspaceUser(ctx, message.WorkspaceID, caller.UserID)
	if err != nil {
		return err
	}
	if member == nil || member.ID != message.MemberID {
		return unauthorized("Unauthorized")
	}
	return nil
}

// populateMessage joins author, reaction groups, thread rollup, and the
// attachment URL onto a raw message row. ok=false means the author member or
// user no longer exists and the row should be dropped, never errored.
func (s *Service) populateMessage(ctx context.Context, message store.Message) (map[string]any, bool, error) {
	member, err := s.store.GetMember(ctx, message.MemberID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	user, err := s.store.GetUser(ctx, member.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	reactions, err := s.store.ListReactionsByMessage(ctx, message.ID)
	if err != nil {
		return nil, false, err
	}

	rollup, err := s.threadRollup(ctx, message.ID)
	if err != nil {
		return nil, false, err
	}

	attachmentURL := ""
	if message.AttachmentKey != "" && s.blobs != nil {
		attachmentURL, err = s.blobs.ResolveURL(ctx, message.AttachmentKey)
		if err != nil {
			return nil, false, err
		}
	}

	item := map[string]any{
		"id":              message.ID,
		"workspaceId":     message.WorkspaceID,
		"memberId":        message.MemberID,
		"body":            message.Body,
		"image":           attachmentURL,
		"channelId":       message.ChannelID,
		"conversationId":  message.ConversationID,
		"parentMessageId": message.ParentMessageID,
		"createdAt":       message.CreatedAt.Format(time.RFC3339),
		"user": map[string]any{
			"id":    user.ID,
			"name":  user.DisplayName,
			"image": user.Image,
		},
		"member": map[string]any{
			"id":   member.ID,
			"role": member.Role,
		},
		"reactions":   groupReactions(reactions),
		"threadCount": rollup.Count,
		"threadImage": rollup.Image,
		"threadName":  rollup.Name,
	}
	if message.UpdatedAt != nil {
		item["updatedAt"] = message.UpdatedAt.Format(time.RFC3339)
	} else {
		item["updatedAt"] = nil
	}
	if rollup.Timestamp.IsZero() {
		item["threadTimestamp"] = nil
	} else {
		item["threadTimestamp"] = rollup.Timestamp.Format(time.RFC3339)
	}
	return item, true, nil
}

// groupReactions folds raw reaction rows into one group per distinct value
// with a deduplicated member set. The per-row memberId never reaches the
// output shape. Group order follows first appearance in fetch order.
func groupReactions(reactions []store.Reaction) []map[string]any {
	order := make([]string, 0)
	members := make(map[string][]string)
	seen := make(map[string]map[string]struct{})

	for _, reaction := range reactions {
		if _, ok := seen[reaction.Value]; !ok {
			order = append(order, reaction.Value)
			seen[reaction.Value] = make(map[string]struct{})
		}
		if _, dup := seen[reaction.Value][reaction.MemberID]; dup {
			continue
		}
		seen[reaction.Value][reaction.MemberID] = struct{}{}
		members[reaction.Value] = append(members[reaction.Value], reaction.MemberID)
	}

	groups := make([]map[string]any, 0, len(order))
	for _, value := range order {
		ids := members[value]
		sort.Strings(ids)
		groups = append(groups, map[string]any{
			"value":     value,
			"count":     len(ids),
			"memberIds": ids,
		})
	}
	return groups
}
