package app

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"huddle/api/internal/rbac"
	"huddle/api/internal/store"
	"huddle/api/internal/util"
)

type threadRollup struct {
	Count     int
	Image     string
	Name      string
	Timestamp time.Time
}

// threadRollup summarizes the replies under a parent message: reply count plus
// the latest reply's author image/name and timestamp. No replies means a zero
// rollup; an unresolvable latest author degrades to count-only.
func (s *Service) threadRollup(ctx context.Context, parentMessageID string) (threadRollup, error) {
	replies, err := s.store.ListAllReplies(ctx, parentMessageID)
	if err != nil {
		return threadRollup{}, err
	}
	if len(replies) == 0 {
		return threadRollup{}, nil
	}

	rollup := threadRollup{Count: len(replies)}
	latest := replies[len(replies)-1]

	member, err := s.store.GetMember(ctx, latest.MemberID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rollup, nil
		}
		return threadRollup{}, err
	}
	user, err := s.store.GetUser(ctx, member.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rollup, nil
		}
		return threadRollup{}, err
	}

	rollup.Image = user.Image
	rollup.Name = user.DisplayName
	rollup.Timestamp = latest.CreatedAt
	return rollup, nil
}

func (s *Service) CreateThread(ctx context.Context, caller Caller, input CreateThreadInput) (string, error) {
	if _, ok := allowedThreadTypes[input.Type]; !ok {
		return "", validationError("invalid thread type")
	}

	member, err := s.memberOf(ctx, caller, input.WorkspaceID)
	if err != nil {
		return "", err
	}

	parent, err := s.store.GetMessage(ctx, input.ParentMessageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", notFound("parent message not found")
		}
		return "", err
	}
	if parent.WorkspaceID != input.WorkspaceID {
		return "", notFound("parent message not found")
	}

	existing, err := s.store.GetThreadByParent(ctx, input.WorkspaceID, parent.ID)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return existing.ID, nil
	}

	thread := store.Thread{
		ID:              util.NewID("thr"),
		WorkspaceID:     input.WorkspaceID,
		ParentMessageID: parent.ID,
		Title:           strings.TrimSpace(input.Title),
		Type:            input.Type,
		LastActivityAt:  time.Now(),
	}

	var roster []store.ThreadMember
	switch input.Type {
	case "dm":
		// A DM thread rides on the 1:1 conversation between the creating
		// member and the parent message's author; both sit on the roster as
		// messageOwner.
		if _, err := s.ensureConversation(ctx, input.WorkspaceID, member.ID, parent.MemberID); err != nil {
			return "", err
		}
		roster = append(roster,
			store.ThreadMember{ID: util.NewID("thm"), ThreadID: thread.ID, MemberID: member.ID, Role: string(rbac.ThreadMessageOwner)},
			store.ThreadMember{ID: util.NewID("thm"), ThreadID: thread.ID, MemberID: parent.MemberID, Role: string(rbac.ThreadMessageOwner)},
		)
	default:
		roster = append(roster,
			store.ThreadMember{ID: util.NewID("thm"), ThreadID: thread.ID, MemberID: member.ID, Role: string(rbac.ThreadInitiator)},
		)
		if parent.MemberID != member.ID {
			roster = append(roster,
				store.ThreadMember{ID: util.NewID("thm"), ThreadID: thread.ID, MemberID: parent.MemberID, Role: string(rbac.ThreadMessageOwner)},
			)
		}
	}

	if err := s.store.InsertThreadWithMembers(ctx, thread, roster); err != nil {
		return "", err
	}
	return thread.ID, nil
}

func (s *Service) UpdateThread(ctx context.Context, caller Caller, threadID string, title *string) error {
	thread, err := s.store.GetThread(ctx, threadID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("thread not found")
		}
		return err
	}
	if _, err := s.memberOf(ctx, caller, thread.WorkspaceID); err != nil {
		return err
	}
	return s.store.UpdateThread(ctx, threadID, title, time.Now())
}

func (s *Service) DeleteThread(ctx context.Context, caller Caller, threadID string) error {
	thread, err := s.store.GetThread(ctx, threadID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("thread not found")
		}
		return err
	}
	member, err := s.memberOf(ctx, caller, thread.WorkspaceID)
	if err != nil {
		return err
	}

	var threadRole rbac.ThreadRole
	onRoster, err := s.store.GetThreadMember(ctx, thread.ID, member.ID)
	if err != nil {
		return err
	}
	if onRoster != nil {
		threadRole = rbac.ThreadRole(onRoster.Role)
	}
	if !rbac.CanRemoveThread(rbac.NormalizeWorkspaceRole(member.Role), threadRole) {
		return unauthorized("Unauthorized")
	}
	return s.store.DeleteThreadCascade(ctx, thread.ID)
}

func (s *Service) ListWorkspaceThreads(ctx context.Context, caller Caller, workspaceID, cursorToken string, limit int) (map[string]any, error) {
	if _, err := s.memberOf(ctx, caller, workspaceID); err != nil {
		return nil, err
	}

	cursor, err := store.DecodeCursor(cursorToken)
	if err != nil {
		return nil, validationError("invalid cursor")
	}
	if limit <= 0 {
		limit = defaultPageSize
	}

	rows, err := s.store.ListTopLevelMessages(ctx, workspaceID, cursor, limit)
	if err != nil {
		return nil, err
	}

	userByMember := make(map[string]*store.User)
	items := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		replies, err := s.store.ListAllReplies(ctx, row.ID)
		if err != nil {
			return nil, err
		}
		if len(replies) == 0 {
			continue
		}

		author, err := s.userForMember(ctx, userByMember, row.MemberID)
		if err != nil {
			return nil, err
		}
		if author == nil {
			continue
		}

		participantIDs := []string{author.ID}
		seenUsers := map[string]struct{}{author.ID: {}}
		for _, reply := range replies {
			replyAuthor, err := s.userForMember(ctx, userByMember, reply.MemberID)
			if err != nil {
				return nil, err
			}
			if replyAuthor == nil {
				continue
			}
			if _, dup := seenUsers[replyAuthor.ID]; dup {
				continue
			}
			seenUsers[replyAuthor.ID] = struct{}{}
			participantIDs = append(participantIDs, replyAuthor.ID)
		}

		latest := replies[len(replies)-1]
		lastReply := map[string]any{
			"name":      "",
			"image":     "",
			"createdAt": latest.CreatedAt.Format(time.RFC3339),
		}
		if latestAuthor, err := s.userForMember(ctx, userByMember, latest.MemberID); err != nil {
			return nil, err
		} else if latestAuthor != nil {
			lastReply["name"] = latestAuthor.DisplayName
			lastReply["image"] = latestAuthor.Image
		}

		contextLabel, err := s.messageContext(ctx, row)
		if err != nil {
			return nil, err
		}

		items = append(items, map[string]any{
			"messageId": row.ID,
			"body":      row.Body,
			"author": map[string]any{
				"memberId": row.MemberID,
				"userId":   author.ID,
				"name":     author.DisplayName,
				"image":    author.Image,
			},
			"replyCount":       len(replies),
			"participantIds":   participantIDs,
			"participantCount": len(participantIDs),
			"lastReply":        lastReply,
			"context":          contextLabel,
			"timestamp":        row.CreatedAt.Format(time.RFC3339),
		})
	}

	var nextCursor any
	if len(rows) == limit {
		last := rows[len(rows)-1]
		nextCursor = store.EncodeCursor(last.CreatedAt, last.ID)
	}
	return map[string]any{"items": items, "nextCursor": nextCursor}, nil
}

func (s *Service) GetThreadSummary(ctx context.Context, caller Caller, messageID string) (map[string]any, error) {
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

	userByMember := make(map[string]*store.User)
	author, err := s.userForMember(ctx, userByMember, message.MemberID)
	if err != nil {
		return nil, err
	}
	if author == nil {
		return nil, nil
	}

	replies, err := s.store.ListAllReplies(ctx, message.ID)
	if err != nil {
		return nil, err
	}

	seenUsers := map[string]struct{}{author.ID: {}}
	lastReplyAt := message.CreatedAt
	for _, reply := range replies {
		if reply.CreatedAt.After(lastReplyAt) {
			lastReplyAt = reply.CreatedAt
		}
		replyAuthor, err := s.userForMember(ctx, userByMember, reply.MemberID)
		if err != nil {
			return nil, err
		}
		if replyAuthor != nil {
			seenUsers[replyAuthor.ID] = struct{}{}
		}
	}

	contextLabel, err := s.messageContext(ctx, message)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"messageId": message.ID,
		"body":      message.Body,
		"author": map[string]any{
			"memberId": message.MemberID,
			"userId":   author.ID,
			"name":     author.DisplayName,
			"image":    author.Image,
		},
		"createdAt":        message.CreatedAt.Format(time.RFC3339),
		"replyCount":       len(replies),
		"participantCount": len(seenUsers),
		"context":          contextLabel,
		"lastReplyAt":      lastReplyAt.Format(time.RFC3339),
	}, nil
}

func (s *Service) ListThreadMessages(ctx context.Context, caller Caller, parentMessageID, cursorToken string, limit int) (map[string]any, error) {
	parent, err := s.store.GetMessage(ctx, parentMessageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("parent message not found")
		}
		return nil, err
	}
	if _, err := s.memberOf(ctx, caller, parent.WorkspaceID); err != nil {
		return nil, err
	}

	cursor, err := store.DecodeCursor(cursorToken)
	if err != nil {
		return nil, validationError("invalid cursor")
	}
	if limit <= 0 {
		limit = defaultPageSize
	}

	rows, err := s.store.ListReplies(ctx, parentMessageID, cursor, limit)
	if err != nil {
		return nil, err
	}

	userByMember := make(map[string]*store.User)
	items := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		author, err := s.userForMember(ctx, userByMember, row.MemberID)
		if err != nil {
			return nil, err
		}
		if author == nil {
			continue
		}
		items = append(items, map[string]any{
			"id":       row.ID,
			"body":     row.Body,
			"memberId": row.MemberID,
			"author": map[string]any{
				"userId": author.ID,
				"name":   author.DisplayName,
				"image":  author.Image,
			},
			"createdAt": row.CreatedAt.Format(time.RFC3339),
		})
	}

	var nextCursor any
	if len(rows) == limit {
		last := rows[len(rows)-1]
		nextCursor = store.EncodeCursor(last.CreatedAt, last.ID)
	}
	return map[string]any{"items": items, "nextCursor": nextCursor}, nil
}

// userForMember resolves member -> user with a per-request cache. A nil entry
// records that the chain is broken so repeated misses stay cheap.
func (s *Service) userForMember(ctx context.Context, cache map[string]*store.User, memberID string) (*store.User, error) {
	if user, ok := cache[memberID]; ok {
		return user, nil
	}

	member, err := s.store.GetMember(ctx, memberID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			cache[memberID] = nil
			return nil, nil
		}
		return nil, err
	}
	user, err := s.store.GetUser(ctx, member.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			cache[memberID] = nil
			return nil, nil
		}
		return nil, err
	}

	cache[memberID] = &user
	return &user, nil
}

func (s *Service) messageContext(ctx context.Context, message store.Message) (string, error) {
	if message.ChannelID != nil {
		channel, err := s.store.GetChannel(ctx, *message.ChannelID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return "", nil
			}
			return "", err
		}
		return "#" + channel.Name, nil
	}
	if message.ConversationID != nil {
		return "Direct Message", nil
	}
	return "", nil
}
