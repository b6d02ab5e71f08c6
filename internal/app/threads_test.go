package app

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"huddle/api/internal/store"
)

func TestThreadRollupZeroWhenNoReplies(t *testing.T) {
	svc := newTestService(&fakeStore{})

	rollup, err := svc.threadRollup(context.Background(), "msg_1")
	if err != nil {
		t.Fatalf("threadRollup() error = %v", err)
	}
	if rollup.Count != 0 || rollup.Name != "" || !rollup.Timestamp.IsZero() {
		t.Fatalf("expected zero rollup, got %+v", rollup)
	}
}

func TestThreadRollupDegradesToCountOnly(t *testing.T) {
	replyAt := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	fs := &fakeStore{
		listAllRepliesFn: func(context.Context, string) ([]store.Message, error) {
			return []store.Message{
				{ID: "msg_r1", MemberID: "mbr_gone", CreatedAt: replyAt},
			}, nil
		},
		getMemberFn: func(context.Context, string) (store.Member, error) {
			return store.Member{}, sql.ErrNoRows
		},
	}
	svc := newTestService(fs)

	rollup, err := svc.threadRollup(context.Background(), "msg_1")
	if err != nil {
		t.Fatalf("threadRollup() error = %v", err)
	}
	if rollup.Count != 1 {
		t.Fatalf("expected count 1, got %d", rollup.Count)
	}
	if rollup.Name != "" || rollup.Image != "" || !rollup.Timestamp.IsZero() {
		t.Fatalf("expected count-only degradation, got %+v", rollup)
	}
}

func TestCreateThreadChannelRoster(t *testing.T) {
	var roster []store.ThreadMember
	fs := &fakeStore{
		getMessageFn: func(_ context.Context, messageID string) (store.Message, error) {
			return store.Message{ID: messageID, WorkspaceID: "wks_1", MemberID: "mbr_author"}, nil
		},
		insertThreadFn: func(_ context.Context, _ store.Thread, members []store.ThreadMember) error {
			roster = members
			return nil
		},
	}
	svc := newTestService(fs)

	id, err := svc.CreateThread(context.Background(), testCaller(), CreateThreadInput{
		WorkspaceID:     "wks_1",
		ParentMessageID: "msg_parent",
		Title:           "Launch checklist",
		Type:            "channel",
	})
	if err != nil {
		t.Fatalf("CreateThread() error = %v", err)
	}
	if id == "" {
		t.Fatal("expected a thread id")
	}
	if len(roster) != 2 {
		t.Fatalf("expected 2 roster rows, got %d", len(roster))
	}
	if roster[0].MemberID != "mbr_caller" || roster[0].Role != "initiator" {
		t.Fatalf("unexpected initiator row: %+v", roster[0])
	}
	if roster[1].MemberID != "mbr_author" || roster[1].Role != "messageOwner" {
		t.Fatalf("unexpected owner row: %+v", roster[1])
	}
}

func TestCreateThreadDMSeedsConversationAndOwners(t *testing.T) {
	var conversation store.Conversation
	var roster []store.ThreadMember
	fs := &fakeStore{
		getMessageFn: func(_ context.Context, messageID string) (store.Message, error) {
			return store.Message{ID: messageID, WorkspaceID: "wks_1", MemberID: "mbr_author"}, nil
		},
		insertConversationFn: func(_ context.Context, item store.Conversation) error {
			conversation = item
			return nil
		},
		insertThreadFn: func(_ context.Context, _ store.Thread, members []store.ThreadMember) error {
			roster = members
			return nil
		},
	}
	svc := newTestService(fs)

	_, err := svc.CreateThread(context.Background(), testCaller(), CreateThreadInput{
		WorkspaceID:     "wks_1",
		ParentMessageID: "msg_parent",
		Type:            "dm",
	})
	if err != nil {
		t.Fatalf("CreateThread() error = %v", err)
	}
	if conversation.MemberOneID != "mbr_caller" || conversation.MemberTwoID != "mbr_author" {
		t.Fatalf("expected conversation between caller and author, got %+v", conversation)
	}
	if len(roster) != 2 {
		t.Fatalf("expected 2 roster rows, got %d", len(roster))
	}
	for _, row := range roster {
		if row.Role != "messageOwner" {
			t.Fatalf("DM roster must be all messageOwner, got %+v", row)
		}
	}
}

func TestCreateThreadReturnsExistingForParent(t *testing.T) {
	fs := &fakeStore{
		getMessageFn: func(_ context.Context, messageID string) (store.Message, error) {
			return store.Message{ID: messageID, WorkspaceID: "wks_1", MemberID: "mbr_author"}, nil
		},
		getThreadByParentFn: func(context.Context, string, string) (*store.Thread, error) {
			return &store.Thread{ID: "thr_existing"}, nil
		},
		insertThreadFn: func(context.Context, store.Thread, []store.ThreadMember) error {
			t.Fatal("must not insert a second thread for the same parent")
			return nil
		},
	}
	svc := newTestService(fs)

	id, err := svc.CreateThread(context.Background(), testCaller(), CreateThreadInput{
		WorkspaceID:     "wks_1",
		ParentMessageID: "msg_parent",
		Type:            "channel",
	})
	if err != nil {
		t.Fatalf("CreateThread() error = %v", err)
	}
	if id != "thr_existing" {
		t.Fatalf("expected existing thread id, got %s", id)
	}
}

func TestDeleteThreadRejectsPlainMember(t *testing.T) {
	fs := &fakeStore{
		getThreadFn: func(_ context.Context, threadID string) (store.Thread, error) {
			return store.Thread{ID: threadID, WorkspaceID: "wks_1"}, nil
		},
		getThreadMemberFn: func(_ context.Context, threadID, memberID string) (*store.ThreadMember, error) {
			return &store.ThreadMember{ThreadID: threadID, MemberID: memberID, Role: "member"}, nil
		},
	}
	svc := newTestService(fs)

	err := svc.DeleteThread(context.Background(), testCaller(), "thr_1")
	wantDomainError(t, err, "UNAUTHORIZED")
}

func TestDeleteThreadAllowsWorkspaceAdmin(t *testing.T) {
	cascaded := false
	fs := &fakeStore{
		getThreadFn: func(_ context.Context, threadID string) (store.Thread, error) {
			return store.Thread{ID: threadID, WorkspaceID: "wks_1"}, nil
		},
		getMemberByWorkspaceUserFn: func(_ context.Context, workspaceID, userID string) (*store.Member, error) {
			return &store.Member{ID: "mbr_caller", WorkspaceID: workspaceID, UserID: userID, Role: "admin"}, nil
		},
		deleteThreadCascadeFn: func(context.Context, string) error {
			cascaded = true
			return nil
		},
	}
	svc := newTestService(fs)

	if err := svc.DeleteThread(context.Background(), testCaller(), "thr_1"); err != nil {
		t.Fatalf("DeleteThread() error = %v", err)
	}
	if !cascaded {
		t.Fatal("expected the cascade to run")
	}
}

func TestListWorkspaceThreadsSkipsZeroReplyParents(t *testing.T) {
	base := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	fs := &fakeStore{
		listTopLevelMessagesFn: func(context.Context, string, *store.Cursor, int) ([]store.Message, error) {
			return []store.Message{
				{ID: "msg_busy", WorkspaceID: "wks_1", MemberID: "mbr_a", Body: "threaded", CreatedAt: base, ChannelID: strPtr("chn_1")},
				{ID: "msg_quiet", WorkspaceID: "wks_1", MemberID: "mbr_a", Body: "no replies", CreatedAt: base.Add(-time.Hour)},
			}, nil
		},
		listAllRepliesFn: func(_ context.Context, parentMessageID string) ([]store.Message, error) {
			if parentMessageID != "msg_busy" {
				return nil, nil
			}
			return []store.Message{
				{ID: "msg_r1", MemberID: "mbr_b", CreatedAt: base.Add(time.Minute)},
				{ID: "msg_r2", MemberID: "mbr_a", CreatedAt: base.Add(2 * time.Minute)},
				{ID: "msg_r3", MemberID: "mbr_b", CreatedAt: base.Add(3 * time.Minute)},
			}, nil
		},
	}
	svc := newTestService(fs)

	payload, err := svc.ListWorkspaceThreads(context.Background(), testCaller(), "wks_1", "", 20)
	if err != nil {
		t.Fatalf("ListWorkspaceThreads() error = %v", err)
	}
	items := payload["items"].([]map[string]any)
	if len(items) != 1 {
		t.Fatalf("expected only the replied-to parent, got %d items", len(items))
	}

	item := items[0]
	if item["messageId"] != "msg_busy" {
		t.Fatalf("expected msg_busy, got %v", item["messageId"])
	}
	if item["replyCount"] != 3 {
		t.Fatalf("expected replyCount 3, got %v", item["replyCount"])
	}
	// mbr_a and mbr_b map to distinct users, deduplicated across replies.
	if item["participantCount"] != 2 {
		t.Fatalf("expected 2 participants, got %v", item["participantCount"])
	}
	if item["context"] != "#general" {
		t.Fatalf("expected #general context, got %v", item["context"])
	}
}

func TestGetThreadSummaryLastReplyFallsBackToParent(t *testing.T) {
	createdAt := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	fs := &fakeStore{
		getMessageFn: func(_ context.Context, messageID string) (store.Message, error) {
			return store.Message{ID: messageID, WorkspaceID: "wks_1", MemberID: "mbr_a", Body: "lonely", CreatedAt: createdAt, ConversationID: strPtr("cnv_1")}, nil
		},
	}
	svc := newTestService(fs)

	summary, err := svc.GetThreadSummary(context.Background(), testCaller(), "msg_1")
	if err != nil {
		t.Fatalf("GetThreadSummary() error = %v", err)
	}
	if summary["replyCount"] != 0 {
		t.Fatalf("expected 0 replies, got %v", summary["replyCount"])
	}
	if summary["lastReplyAt"] != createdAt.Format(time.RFC3339) {
		t.Fatalf("expected lastReplyAt to fall back to the parent, got %v", summary["lastReplyAt"])
	}
	if summary["participantCount"] != 1 {
		t.Fatalf("expected the author alone, got %v", summary["participantCount"])
	}
	if summary["context"] != "Direct Message" {
		t.Fatalf("expected Direct Message context, got %v", summary["context"])
	}
}

func TestGetThreadSummaryRequiresMembership(t *testing.T) {
	fs := &fakeStore{
		getMessageFn: func(_ context.Context, messageID string) (store.Message, error) {
			return store.Message{ID: messageID, WorkspaceID: "wks_other", MemberID: "mbr_1"}, nil
		},
		getMemberByWorkspaceUserFn: func(context.Context, string, string) (*store.Member, error) {
			return nil, nil
		},
	}
	svc := newTestService(fs)

	_, err := svc.GetThreadSummary(context.Background(), testCaller(), "msg_1")
	wantDomainError(t, err, "UNAUTHORIZED")
}

func TestListThreadMessagesRequiresMembership(t *testing.T) {
	fs := &fakeStore{
		getMessageFn: func(_ context.Context, messageID string) (store.Message, error) {
			return store.Message{ID: messageID, WorkspaceID: "wks_other", MemberID: "mbr_1"}, nil
		},
		getMemberByWorkspaceUserFn: func(context.Context, string, string) (*store.Member, error) {
			return nil, nil
		},
	}
	svc := newTestService(fs)

	_, err := svc.ListThreadMessages(context.Background(), testCaller(), "msg_1", "", 20)
	wantDomainError(t, err, "UNAUTHORIZED")
}

func TestListThreadMessagesDropsOrphanedAuthors(t *testing.T) {
	fs := &fakeStore{
		getMessageFn: func(_ context.Context, messageID string) (store.Message, error) {
			return store.Message{ID: messageID, WorkspaceID: "wks_1", MemberID: "mbr_live"}, nil
		},
		listRepliesFn: func(context.Context, string, *store.Cursor, int) ([]store.Message, error) {
			return []store.Message{
				{ID: "msg_r1", MemberID: "mbr_live"},
				{ID: "msg_r2", MemberID: "mbr_gone"},
			}, nil
		},
		getMemberFn: func(_ context.Context, memberID string) (store.Member, error) {
			if memberID == "mbr_gone" {
				return store.Member{}, sql.ErrNoRows
			}
			return store.Member{ID: memberID, WorkspaceID: "wks_1", UserID: "usr_2", Role: "member"}, nil
		},
	}
	svc := newTestService(fs)

	payload, err := svc.ListThreadMessages(context.Background(), testCaller(), "msg_parent", "", 20)
	if err != nil {
		t.Fatalf("ListThreadMessages() error = %v", err)
	}
	items := payload["items"].([]map[string]any)
	if len(items) != 1 || items[0]["id"] != "msg_r1" {
		t.Fatalf("expected only msg_r1 to survive, got %v", items)
	}
}
