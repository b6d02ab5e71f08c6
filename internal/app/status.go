package app

import (
	"context"
	"time"

	"huddle/api/internal/store"
)

var allowedStatuses = map[string]struct{}{
	"online":  {},
	"offline": {},
}

// presenceWindow is how recent a heartbeat must be for a user to still count
// as online.
const presenceWindow = 5 * time.Minute

func (s *Service) SetStatus(ctx context.Context, caller Caller, input SetStatusInput) error {
	if caller.UserID == "" {
		return unauthorized("Unauthorized")
	}
	if _, ok := allowedStatuses[input.Status]; !ok {
		return validationError("invalid status")
	}

	existing, err := s.store.GetStatus(ctx, caller.UserID)
	if err != nil {
		return err
	}
	var lastSeen *time.Time
	if existing != nil {
		lastSeen = existing.LastSeen
	}

	return s.store.UpsertStatus(ctx, store.UserStatus{
		UserID:          caller.UserID,
		CurrentStatus:   input.Status,
		CustomEmoji:     input.CustomEmoji,
		CustomNote:      input.CustomNote,
		CustomExpiresAt: input.CustomExpiresAt,
		ForcedOffline:   input.ForcedOffline,
		LastSeen:        lastSeen,
	})
}

func (s *Service) Heartbeat(ctx context.Context, caller Caller) error {
	if caller.UserID == "" {
		return unauthorized("Unauthorized")
	}
	return s.store.TouchLastSeen(ctx, caller.UserID, time.Now())
}

// GetUserStatus reports effective presence: forced offline wins over any
// recent heartbeat, a stale heartbeat downgrades online to offline, and an
// expired custom status is reported as cleared.
func (s *Service) GetUserStatus(ctx context.Context, userID string) (map[string]any, error) {
	status, err := s.store.GetStatus(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := time.Now()

	if status == nil {
		return map[string]any{
			"userId":      userID,
			"status":      "offline",
			"customEmoji": "",
			"customNote":  "",
			"lastSeen":    nil,
		}, nil
	}

	effective := status.CurrentStatus
	switch {
	case status.ForcedOffline:
		effective = "offline"
	case effective == "online" && (status.LastSeen == nil || now.Sub(*status.LastSeen) > presenceWindow):
		effective = "offline"
	}

	emoji, note := status.CustomEmoji, status.CustomNote
	if status.CustomExpiresAt != nil && !status.CustomExpiresAt.After(now) {
		emoji, note = "", ""
	}

	item := map[string]any{
		"userId":      userID,
		"status":      effective,
		"customEmoji": emoji,
		"customNote":  note,
	}
	if status.LastSeen != nil {
		item["lastSeen"] = status.LastSeen.Format(time.RFC3339)
	} else {
		item["lastSeen"] = nil
	}
	return item, nil
}
