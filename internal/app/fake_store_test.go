package app

import (
	"context"
	"database/sql"
	"time"

	"huddle/api/internal/store"
)

// fakeStore defaults to a one-workspace world: every caller resolves to
// member "mbr_caller" of "wks_1" with role "member", and member -> user
// resolution echoes ids. Tests override the function fields they care about.
type fakeStore struct {
	ensureUserByNameFn         func(context.Context, string) (store.User, error)
	getUserFn                  func(context.Context, string) (store.User, error)
	createWorkspaceFn          func(context.Context, store.Workspace, store.Member) error
	getWorkspaceFn             func(context.Context, string) (store.Workspace, error)
	getWorkspaceByJoinCodeFn   func(context.Context, string) (*store.Workspace, error)
	insertChannelFn            func(context.Context, store.Channel) error
	getChannelFn               func(context.Context, string) (store.Channel, error)
	insertConversationFn       func(context.Context, store.Conversation) error
	getConversationByPairFn    func(context.Context, string, string, string) (*store.Conversation, error)
	insertMemberFn             func(context.Context, store.Member) error
	getMemberFn                func(context.Context, string) (store.Member, error)
	getMemberByWorkspaceUserFn func(context.Context, string, string) (*store.Member, error)
	listMembersFn              func(context.Context, string) ([]store.Member, error)
	removeMemberCascadeFn      func(context.Context, string) error
	insertMessageFn            func(context.Context, store.Message) error
	getMessageFn               func(context.Context, string) (store.Message, error)
	listMessagesFn             func(context.Context, store.MessageFilter, *store.Cursor, int) ([]store.Message, error)
	listRepliesFn              func(context.Context, string, *store.Cursor, int) ([]store.Message, error)
	listAllRepliesFn           func(context.Context, string) ([]store.Message, error)
	listTopLevelMessagesFn     func(context.Context, string, *store.Cursor, int) ([]store.Message, error)
	updateMessageBodyFn        func(context.Context, string, string) error
	deleteMessageCascadeFn     func(context.Context, string, *string) error
	listReactionsByMessageFn   func(context.Context, string) ([]store.Reaction, error)
	toggleReactionFn           func(context.Context, store.Reaction) (bool, error)
	insertThreadFn             func(context.Context, store.Thread, []store.ThreadMember) error
	getThreadFn                func(context.Context, string) (store.Thread, error)
	getThreadByParentFn        func(context.Context, string, string) (*store.Thread, error)
	updateThreadFn             func(context.Context, string, *string, time.Time) error
	deleteThreadCascadeFn      func(context.Context, string) error
	getThreadMemberFn          func(context.Context, string, string) (*store.ThreadMember, error)
	insertNotificationFn       func(context.Context, store.Notification) error
	getNotificationFn          func(context.Context, string) (store.Notification, error)
	markNotificationReadFn     func(context.Context, string) (bool, error)
	markAllReadFn              func(context.Context, string) (int64, error)
	deleteNotificationFn       func(context.Context, string) error
	deleteAllNotificationsFn   func(context.Context, string) error
	countUnreadFn              func(context.Context, string, string) (int, error)
	listNotificationsFn        func(context.Context, string, store.NotificationFilter) ([]store.Notification, error)
	upsertStatusFn             func(context.Context, store.UserStatus) error
	getStatusFn                func(context.Context, string) (*store.UserStatus, error)
	touchLastSeenFn            func(context.Context, string, time.Time) error
}

func (f *fakeStore) EnsureUserByName(ctx context.Context, name string) (store.User, error) {
	if f.ensureUserByNameFn != nil {
		return f.ensureUserByNameFn(ctx, name)
	}
	return store.User{ID: "usr_1", DisplayName: name}, nil
}

func (f *fakeStore) GetUser(ctx context.Context, userID string) (store.User, error) {
	if f.getUserFn != nil {
		return f.getUserFn(ctx, userID)
	}
	return store.User{ID: userID, DisplayName: "User " + userID}, nil
}

func (f *fakeStore) CreateWorkspaceWithAdmin(ctx context.Context, workspace store.Workspace, member store.Member) error {
	if f.createWorkspaceFn != nil {
		return f.createWorkspaceFn(ctx, workspace, member)
	}
	return nil
}

func (f *fakeStore) GetWorkspace(ctx context.Context, workspaceID string) (store.Workspace, error) {
	if f.getWorkspaceFn != nil {
		return f.getWorkspaceFn(ctx, workspaceID)
	}
	return store.Workspace{ID: workspaceID, Name: "Workspace"}, nil
}

func (f *fakeStore) GetWorkspaceByJoinCode(ctx context.Context, joinCode string) (*store.Workspace, error) {
	if f.getWorkspaceByJoinCodeFn != nil {
		return f.getWorkspaceByJoinCodeFn(ctx, joinCode)
	}
	return nil, nil
}

func (f *fakeStore) UpdateJoinCode(context.Context, string, string) error { return nil }

func (f *fakeStore) InsertChannel(ctx context.Context, item store.Channel) error {
	if f.insertChannelFn != nil {
		return f.insertChannelFn(ctx, item)
	}
	return nil
}

func (f *fakeStore) GetChannel(ctx context.Context, channelID string) (store.Channel, error) {
	if f.getChannelFn != nil {
		return f.getChannelFn(ctx, channelID)
	}
	return store.Channel{ID: channelID, WorkspaceID: "wks_1", Name: "general"}, nil
}

func (f *fakeStore) ListChannels(context.Context, string) ([]store.Channel, error) { return nil, nil }
func (f *fakeStore) UpdateChannelName(context.Context, string, string) error       { return nil }
func (f *fakeStore) DeleteChannelCascade(context.Context, string) error            { return nil }

func (f *fakeStore) InsertConversation(ctx context.Context, item store.Conversation) error {
	if f.insertConversationFn != nil {
		return f.insertConversationFn(ctx, item)
	}
	return nil
}

func (f *fakeStore) GetConversation(ctx context.Context, conversationID string) (store.Conversation, error) {
	return store.Conversation{ID: conversationID, WorkspaceID: "wks_1"}, nil
}

func (f *fakeStore) GetConversationByPair(ctx context.Context, workspaceID, memberA, memberB string) (*store.Conversation, error) {
	if f.getConversationByPairFn != nil {
		return f.getConversationByPairFn(ctx, workspaceID, memberA, memberB)
	}
	return nil, nil
}

func (f *fakeStore) InsertMember(ctx context.Context, item store.Member) error {
	if f.insertMemberFn != nil {
		return f.insertMemberFn(ctx, item)
	}
	return nil
}

func (f *fakeStore) GetMember(ctx context.Context, memberID string) (store.Member, error) {
	if f.getMemberFn != nil {
		return f.getMemberFn(ctx, memberID)
	}
	return store.Member{ID: memberID, WorkspaceID: "wks_1", UserID: "u-" + memberID, Role: "member"}, nil
}

func (f *fakeStore) GetMemberByWorkspaceUser(ctx context.Context, workspaceID, userID string) (*store.Member, error) {
	if f.getMemberByWorkspaceUserFn != nil {
		return f.getMemberByWorkspaceUserFn(ctx, workspaceID, userID)
	}
	return &store.Member{ID: "mbr_caller", WorkspaceID: workspaceID, UserID: userID, Role: "member"}, nil
}

func (f *fakeStore) ListMembers(ctx context.Context, workspaceID string) ([]store.Member, error) {
	if f.listMembersFn != nil {
		return f.listMembersFn(ctx, workspaceID)
	}
	return nil, nil
}

func (f *fakeStore) RemoveMemberCascade(ctx context.Context, memberID string) error {
	if f.removeMemberCascadeFn != nil {
		return f.removeMemberCascadeFn(ctx, memberID)
	}
	return nil
}

func (f *fakeStore) InsertMessage(ctx context.Context, item store.Message) error {
	if f.insertMessageFn != nil {
		return f.insertMessageFn(ctx, item)
	}
	return nil
}

func (f *fakeStore) GetMessage(ctx context.Context, messageID string) (store.Message, error) {
	if f.getMessageFn != nil {
		return f.getMessageFn(ctx, messageID)
	}
	return store.Message{}, sql.ErrNoRows
}

func (f *fakeStore) ListMessages(ctx context.Context, filter store.MessageFilter, cursor *store.Cursor, limit int) ([]store.Message, error) {
	if f.listMessagesFn != nil {
		return f.listMessagesFn(ctx, filter, cursor, limit)
	}
	return nil, nil
}

func (f *fakeStore) ListReplies(ctx context.Context, parentMessageID string, cursor *store.Cursor, limit int) ([]store.Message, error) {
	if f.listRepliesFn != nil {
		return f.listRepliesFn(ctx, parentMessageID, cursor, limit)
	}
	return nil, nil
}

func (f *fakeStore) ListAllReplies(ctx context.Context, parentMessageID string) ([]store.Message, error) {
	if f.listAllRepliesFn != nil {
		return f.listAllRepliesFn(ctx, parentMessageID)
	}
	return nil, nil
}

func (f *fakeStore) ListTopLevelMessages(ctx context.Context, workspaceID string, cursor *store.Cursor, limit int) ([]store.Message, error) {
	if f.listTopLevelMessagesFn != nil {
		return f.listTopLevelMessagesFn(ctx, workspaceID, cursor, limit)
	}
	return nil, nil
}

func (f *fakeStore) UpdateMessageBody(ctx context.Context, messageID, body string) error {
	if f.updateMessageBodyFn != nil {
		return f.updateMessageBodyFn(ctx, messageID, body)
	}
	return nil
}

func (f *fakeStore) DeleteMessageCascade(ctx context.Context, messageID string, parentMessageID *string) error {
	if f.deleteMessageCascadeFn != nil {
		return f.deleteMessageCascadeFn(ctx, messageID, parentMessageID)
	}
	return nil
}

func (f *fakeStore) ListReactionsByMessage(ctx context.Context, messageID string) ([]store.Reaction, error) {
	if f.listReactionsByMessageFn != nil {
		return f.listReactionsByMessageFn(ctx, messageID)
	}
	return nil, nil
}

func (f *fakeStore) ToggleReaction(ctx context.Context, item store.Reaction) (bool, error) {
	if f.toggleReactionFn != nil {
		return f.toggleReactionFn(ctx, item)
	}
	return true, nil
}

func (f *fakeStore) InsertThreadWithMembers(ctx context.Context, thread store.Thread, roster []store.ThreadMember) error {
	if f.insertThreadFn != nil {
		return f.insertThreadFn(ctx, thread, roster)
	}
	return nil
}

func (f *fakeStore) GetThread(ctx context.Context, threadID string) (store.Thread, error) {
	if f.getThreadFn != nil {
		return f.getThreadFn(ctx, threadID)
	}
	return store.Thread{}, sql.ErrNoRows
}

func (f *fakeStore) GetThreadByParent(ctx context.Context, workspaceID, parentMessageID string) (*store.Thread, error) {
	if f.getThreadByParentFn != nil {
		return f.getThreadByParentFn(ctx, workspaceID, parentMessageID)
	}
	return nil, nil
}

func (f *fakeStore) UpdateThread(ctx context.Context, threadID string, title *string, lastActivityAt time.Time) error {
	if f.updateThreadFn != nil {
		return f.updateThreadFn(ctx, threadID, title, lastActivityAt)
	}
	return nil
}

func (f *fakeStore) DeleteThreadCascade(ctx context.Context, threadID string) error {
	if f.deleteThreadCascadeFn != nil {
		return f.deleteThreadCascadeFn(ctx, threadID)
	}
	return nil
}

func (f *fakeStore) ListThreadMembers(context.Context, string) ([]store.ThreadMember, error) {
	return nil, nil
}

func (f *fakeStore) GetThreadMember(ctx context.Context, threadID, memberID string) (*store.ThreadMember, error) {
	if f.getThreadMemberFn != nil {
		return f.getThreadMemberFn(ctx, threadID, memberID)
	}
	return nil, nil
}

func (f *fakeStore) InsertNotification(ctx context.Context, item store.Notification) error {
	if f.insertNotificationFn != nil {
		return f.insertNotificationFn(ctx, item)
	}
	return nil
}

func (f *fakeStore) GetNotification(ctx context.Context, notificationID string) (store.Notification, error) {
	if f.getNotificationFn != nil {
		return f.getNotificationFn(ctx, notificationID)
	}
	return store.Notification{}, sql.ErrNoRows
}

func (f *fakeStore) MarkNotificationRead(ctx context.Context, notificationID string) (bool, error) {
	if f.markNotificationReadFn != nil {
		return f.markNotificationReadFn(ctx, notificationID)
	}
	return true, nil
}

func (f *fakeStore) MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error) {
	if f.markAllReadFn != nil {
		return f.markAllReadFn(ctx, userID)
	}
	return 0, nil
}

func (f *fakeStore) DeleteNotification(ctx context.Context, notificationID string) error {
	if f.deleteNotificationFn != nil {
		return f.deleteNotificationFn(ctx, notificationID)
	}
	return nil
}

func (f *fakeStore) DeleteAllNotifications(ctx context.Context, userID string) error {
	if f.deleteAllNotificationsFn != nil {
		return f.deleteAllNotificationsFn(ctx, userID)
	}
	return nil
}

func (f *fakeStore) CountUnreadByWorkspace(ctx context.Context, userID, workspaceID string) (int, error) {
	if f.countUnreadFn != nil {
		return f.countUnreadFn(ctx, userID, workspaceID)
	}
	return 0, nil
}

func (f *fakeStore) ListNotifications(ctx context.Context, userID string, filter store.NotificationFilter) ([]store.Notification, error) {
	if f.listNotificationsFn != nil {
		return f.listNotificationsFn(ctx, userID, filter)
	}
	return nil, nil
}

func (f *fakeStore) UpsertStatus(ctx context.Context, item store.UserStatus) error {
	if f.upsertStatusFn != nil {
		return f.upsertStatusFn(ctx, item)
	}
	return nil
}

func (f *fakeStore) GetStatus(ctx context.Context, userID string) (*store.UserStatus, error) {
	if f.getStatusFn != nil {
		return f.getStatusFn(ctx, userID)
	}
	return nil, nil
}

func (f *fakeStore) TouchLastSeen(ctx context.Context, userID string, seenAt time.Time) error {
	if f.touchLastSeenFn != nil {
		return f.touchLastSeenFn(ctx, userID, seenAt)
	}
	return nil
}

func (f *fakeStore) Ping(context.Context) error { return nil }
