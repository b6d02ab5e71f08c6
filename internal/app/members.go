package app

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"huddle/api/internal/rbac"
	"huddle/api/internal/store"
)

// CurrentMember resolves the caller inside a workspace. Absent membership is a
// nil result here; mutation paths go through memberOf and get Unauthorized.
func (s *Service) CurrentMember(ctx context.Context, caller Caller, workspaceID string) (map[string]any, error) {
	if caller.UserID == "" {
		return nil, nil
	}
	member, err := s.store.GetMemberByWorkspaceUser(ctx, workspaceID, caller.UserID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, nil
	}
	return s.memberView(ctx, *member)
}

func (s *Service) GetMemberInfo(ctx context.Context, caller Caller, memberID string) (map[string]any, error) {
	member, err := s.store.GetMember(ctx, memberID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if _, err := s.memberOf(ctx, caller, member.WorkspaceID); err != nil {
		return nil, err
	}
	return s.memberView(ctx, member)
}

func (s *Service) ListWorkspaceMembers(ctx context.Context, caller Caller, workspaceID string) ([]map[string]any, error) {
	if _, err := s.memberOf(ctx, caller, workspaceID); err != nil {
		return nil, err
	}

	members, err := s.store.ListMembers(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(members))
	for _, member := range members {
		item, err := s.memberView(ctx, member)
		if err != nil {
			return nil, err
		}
		if item == nil {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// RemoveMember deletes a member and everything they authored: messages,
// reactions, and both-sided conversations go in the same transaction as the
// member row, so no reader sees a message whose author is already gone.
func (s *Service) RemoveMember(ctx context.Context, caller Caller, memberID string) error {
	target, err := s.store.GetMember(ctx, memberID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("member not found")
		}
		return err
	}

	callerMember, err := s.memberOf(ctx, caller, target.WorkspaceID)
	if err != nil {
		return err
	}

	ok, reason := rbac.CanRemoveMember(
		rbac.NormalizeWorkspaceRole(callerMember.Role),
		rbac.NormalizeWorkspaceRole(target.Role),
		callerMember.ID == target.ID,
	)
	if !ok {
		return invalidState(reason)
	}

	return s.store.RemoveMemberCascade(ctx, target.ID)
}

func (s *Service) memberView(ctx context.Context, member store.Member) (map[string]any, error) {
	user, err := s.store.GetUser(ctx, member.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return map[string]any{
		"id":          member.ID,
		"workspaceId": member.WorkspaceID,
		"role":        member.Role,
		"createdAt":   member.CreatedAt.Format(time.RFC3339),
		"user": map[string]any{
			"id":    user.ID,
			"name":  user.DisplayName,
			"image": user.Image,
		},
	}, nil
}
