package app

import (
	"context"
	"testing"
	"time"

	"huddle/api/internal/store"
)

func TestSetStatusPreservesLastSeen(t *testing.T) {
	seen := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	var upserted store.UserStatus
	fs := &fakeStore{
		getStatusFn: func(context.Context, string) (*store.UserStatus, error) {
			return &store.UserStatus{UserID: "usr_1", CurrentStatus: "online", LastSeen: &seen}, nil
		},
		upsertStatusFn: func(_ context.Context, item store.UserStatus) error {
			upserted = item
			return nil
		},
	}
	svc := newTestService(fs)

	err := svc.SetStatus(context.Background(), testCaller(), SetStatusInput{Status: "online", CustomEmoji: "🌴", CustomNote: "On leave"})
	if err != nil {
		t.Fatalf("SetStatus() error = %v", err)
	}
	if upserted.CurrentStatus != "online" || upserted.CustomEmoji != "🌴" {
		t.Fatalf("unexpected upsert: %+v", upserted)
	}
	if upserted.LastSeen == nil || !upserted.LastSeen.Equal(seen) {
		t.Fatal("SetStatus must not clobber the heartbeat timestamp")
	}
}

func TestSetStatusRejectsUnknownStatus(t *testing.T) {
	svc := newTestService(&fakeStore{})

	for _, status := range []string{"lurking", "away", ""} {
		err := svc.SetStatus(context.Background(), testCaller(), SetStatusInput{Status: status})
		wantDomainError(t, err, "VALIDATION_ERROR")
	}
}

func TestGetUserStatusForcedOfflineWins(t *testing.T) {
	recent := time.Now().Add(-time.Minute)
	fs := &fakeStore{
		getStatusFn: func(context.Context, string) (*store.UserStatus, error) {
			return &store.UserStatus{UserID: "usr_1", CurrentStatus: "online", ForcedOffline: true, LastSeen: &recent}, nil
		},
	}
	svc := newTestService(fs)

	item, err := svc.GetUserStatus(context.Background(), "usr_1")
	if err != nil {
		t.Fatalf("GetUserStatus() error = %v", err)
	}
	if item["status"] != "offline" {
		t.Fatalf("forced offline must win over a fresh heartbeat, got %v", item["status"])
	}
}

func TestGetUserStatusStaleHeartbeatReportsOffline(t *testing.T) {
	stale := time.Now().Add(-time.Hour)
	fs := &fakeStore{
		getStatusFn: func(context.Context, string) (*store.UserStatus, error) {
			return &store.UserStatus{UserID: "usr_1", CurrentStatus: "online", LastSeen: &stale}, nil
		},
	}
	svc := newTestService(fs)

	item, err := svc.GetUserStatus(context.Background(), "usr_1")
	if err != nil {
		t.Fatalf("GetUserStatus() error = %v", err)
	}
	if item["status"] != "offline" {
		t.Fatalf("stale heartbeat should downgrade to offline, got %v", item["status"])
	}
}

func TestGetUserStatusClearsExpiredCustomStatus(t *testing.T) {
	recent := time.Now().Add(-time.Minute)
	expired := time.Now().Add(-time.Hour)
	fs := &fakeStore{
		getStatusFn: func(context.Context, string) (*store.UserStatus, error) {
			return &store.UserStatus{
				UserID:          "usr_1",
				CurrentStatus:   "online",
				CustomEmoji:     "🎯",
				CustomNote:      "Heads down",
				CustomExpiresAt: &expired,
				LastSeen:        &recent,
			}, nil
		},
	}
	svc := newTestService(fs)

	item, err := svc.GetUserStatus(context.Background(), "usr_1")
	if err != nil {
		t.Fatalf("GetUserStatus() error = %v", err)
	}
	if item["status"] != "online" {
		t.Fatalf("expected online, got %v", item["status"])
	}
	if item["customEmoji"] != "" || item["customNote"] != "" {
		t.Fatalf("expired custom status must be reported cleared, got %v / %v", item["customEmoji"], item["customNote"])
	}
}

func TestGetUserStatusDefaultsToOffline(t *testing.T) {
	svc := newTestService(&fakeStore{})

	item, err := svc.GetUserStatus(context.Background(), "usr_unknown")
	if err != nil {
		t.Fatalf("GetUserStatus() error = %v", err)
	}
	if item["status"] != "offline" || item["lastSeen"] != nil {
		t.Fatalf("expected offline with nil lastSeen, got %v", item)
	}
}
