package app

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"huddle/api/internal/auth"
	"huddle/api/internal/blob"
	"huddle/api/internal/config"
	"huddle/api/internal/rbac"
	"huddle/api/internal/session"
	"huddle/api/internal/store"
	"huddle/api/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	JTI          string
	ExpiresAt    time.Time
}

// Caller is the resolved request identity. Every operation takes one
// explicitly; nothing reads ambient auth state.
type Caller struct {
	UserID string
	Name   string
}

func (s Session) Caller() Caller {
	return Caller{UserID: s.UserID, Name: s.UserName}
}

type CreateMessageInput struct {
	WorkspaceID     string  `json:"workspaceId"`
	Body            string  `json:"body"`
	ChannelID       *string `json:"channelId"`
	ConversationID  *string `json:"conversationId"`
	ParentMessageID *string `json:"parentMessageId"`
	AttachmentKey   string  `json:"attachmentKey"`
}

type ListMessagesInput struct {
	ChannelID       *string
	ConversationID  *string
	ParentMessageID *string
	Cursor          string
	Limit           int
}

type CreateThreadInput struct {
	WorkspaceID     string `json:"workspaceId"`
	ParentMessageID string `json:"parentMessageId"`
	Title           string `json:"title"`
	Type            string `json:"type"`
}

type CreateNotificationInput struct {
	UserID   string                     `json:"userId"`
	Type     string                     `json:"type"`
	Source   string                     `json:"source"`
	Title    string                     `json:"title"`
	Message  string                     `json:"message"`
	Metadata store.NotificationMetadata `json:"metadata"`
}

type NotificationQuery struct {
	Type       string
	Source     string
	StartDate  *time.Time
	EndDate    *time.Time
	UnreadOnly bool
	Limit      int
}

type SetStatusInput struct {
	Status          string     `json:"status"`
	CustomEmoji     string     `json:"customEmoji"`
	CustomNote      string     `json:"customNote"`
	CustomExpiresAt *time.Time `json:"customExpiresAt"`
	ForcedOffline   bool       `json:"forcedOffline"`
}

var allowedThreadTypes = map[string]struct{}{
	"channel": {},
	"dm":      {},
}

var allowedNotificationTypes = map[string]struct{}{
	"info":    {},
	"success": {},
	"warning": {},
	"error":   {},
	"system":  {},
}

var allowedNotificationSources = map[string]struct{}{
	"mention":        {},
	"subscription":   {},
	"system":         {},
	"workspace":      {},
	"channel":        {},
	"direct_message": {},
}

type dataStore interface {
	EnsureUserByName(context.Context, string) (store.User, error)
	GetUser(context.Context, string) (store.User, error)
	CreateWorkspaceWithAdmin(context.Context, store.Workspace, store.Member) error
	GetWorkspace(context.Context, string) (store.Workspace, error)
	GetWorkspaceByJoinCode(context.Context, string) (*store.Workspace, error)
	UpdateJoinCode(context.Context, string, string) error
	InsertChannel(context.Context, store.Channel) error
	GetChannel(context.Context, string) (store.Channel, error)
	ListChannels(context.Context, string) ([]store.Channel, error)
	UpdateChannelName(context.Context, string, string) error
	DeleteChannelCascade(context.Context, string) error
	InsertConversation(context.Context, store.Conversation) error
	GetConversation(context.Context, string) (store.Conversation, error)
	GetConversationByPair(context.Context, string, string, string) (*store.Conversation, error)
	InsertMember(context.Context, store.Member) error
	GetMember(context.Context, string) (store.Member, error)
	GetMemberByWorkspaceUser(context.Context, string, string) (*store.Member, error)
	ListMembers(context.Context, string) ([]store.Member, error)
	RemoveMemberCascade(context.Context, string) error
	InsertMessage(context.Context, store.Message) error
	GetMessage(context.Context, string) (store.Message, error)
	ListMessages(context.Context, store.MessageFilter, *store.Cursor, int) ([]store.Message, error)
	ListReplies(context.Context, string, *store.Cursor, int) ([]store.Message, error)
	ListAllReplies(context.Context, string) ([]store.Message, error)
	ListTopLevelMessages(context.Context, string, *store.Cursor, int) ([]store.Message, error)
	UpdateMessageBody(context.Context, string, string) error
	DeleteMessageCascade(context.Context, string, *string) error
	ListReactionsByMessage(context.Context, string) ([]store.Reaction, error)
	ToggleReaction(context.Context, store.Reaction) (bool, error)
	InsertThreadWithMembers(context.Context, store.Thread, []store.ThreadMember) error
	GetThread(context.Context, string) (store.Thread, error)
	GetThreadByParent(context.Context, string, string) (*store.Thread, error)
	UpdateThread(context.Context, string, *string, time.Time) error
	DeleteThreadCascade(context.Context, string) error
	ListThreadMembers(context.Context, string) ([]store.ThreadMember, error)
	GetThreadMember(context.Context, string, string) (*store.ThreadMember, error)
	InsertNotification(context.Context, store.Notification) error
	GetNotification(context.Context, string) (store.Notification, error)
	MarkNotificationRead(context.Context, string) (bool, error)
	MarkAllNotificationsRead(context.Context, string) (int64, error)
	DeleteNotification(context.Context, string) error
	DeleteAllNotifications(context.Context, string) error
	CountUnreadByWorkspace(context.Context, string, string) (int, error)
	ListNotifications(context.Context, string, store.NotificationFilter) ([]store.Notification, error)
	UpsertStatus(context.Context, store.UserStatus) error
	GetStatus(context.Context, string) (*store.UserStatus, error)
	TouchLastSeen(context.Context, string, time.Time) error
	Ping(ctx context.Context) error
}

type sessionStore interface {
	Save(ctx context.Context, tokenHash, userID, displayName string, expiresAt time.Time) error
	Lookup(ctx context.Context, tokenHash string) (string, string, error)
	Revoke(ctx context.Context, tokenHash string) error
	Ping(ctx context.Context) error
}

type blobResolver interface {
	ResolveURL(ctx context.Context, key string) (string, error)
}

type Service struct {
	cfg      config.Config
	store    dataStore
	sessions sessionStore
	blobs    blobResolver
}

func New(cfg config.Config, dataStore *store.PostgresStore, sessions *session.RedisStore, blobs *blob.Resolver) *Service {
	return &Service{
		cfg:      cfg,
		store:    dataStore,
		sessions: sessions,
		blobs:    blobs,
	}
}

func (s *Service) Login(ctx context.Context, name string) (Session, error) {
	userName := strings.TrimSpace(name)
	if userName == "" {
		userName = "User"
	}

	user, err := s.store.EnsureUserByName(ctx, userName)
	if err != nil {
		return Session{}, err
	}

	return s.issueSession(ctx, user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	userID, _, err := s.sessions.Lookup(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return Session{}, auth.ErrInvalidToken
		}
		return Session{}, err
	}
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.Revoke(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), user.ID, user.DisplayName, jti, expiresAt)
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.Save(ctx, auth.HashToken(refresh), user.ID, user.DisplayName, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.DisplayName,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}

	user, err := s.store.GetUser(ctx, claims.Subject)
	if err != nil {
		return Session{}, err
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.DisplayName,
		JTI:       claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken != "" {
		_ = s.sessions.Revoke(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

func (s *Service) Ping(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return err
	}
	if s.sessions != nil {
		return s.sessions.Ping(ctx)
	}
	return nil
}

// memberOf resolves the caller to a member of the workspace. Mutations treat
// an absent membership as Unauthorized; query contexts use
// s.store.GetMemberByWorkspaceUser directly and keep the nil.
func (s *Service) memberOf(ctx context.Context, caller Caller, workspaceID string) (store.Member, error) {
	if caller.UserID == "" {
		return store.Member{}, unauthorized("Unauthorized")
	}
	member, err := s.store.GetMemberByWorkspaceUser(ctx, workspaceID, caller.UserID)
	if err != nil {
		return store.Member{}, err
	}
	if member == nil {
		return store.Member{}, unauthorized("Unauthorized")
	}
	return *member, nil
}

func (s *Service) CreateWorkspace(ctx context.Context, caller Caller, name string) (map[string]any, error) {
	workspaceName := strings.TrimSpace(name)
	if workspaceName == "" {
		return nil, validationError("workspace name is required")
	}
	if caller.UserID == "" {
		return nil, unauthorized("Unauthorized")
	}

	workspace := store.Workspace{
		ID:          util.NewID("wks"),
		Name:        workspaceName,
		OwnerUserID: caller.UserID,
		JoinCode:    util.NewJoinCode(),
	}
	admin := store.Member{
		ID:          util.NewID("mbr"),
		WorkspaceID: workspace.ID,
		UserID:      caller.UserID,
		Role:        string(rbac.WorkspaceAdmin),
	}
	if err := s.store.CreateWorkspaceWithAdmin(ctx, workspace, admin); err != nil {
		return nil, err
	}

	return map[string]any{
		"id":       workspace.ID,
		"name":     workspace.Name,
		"joinCode": workspace.JoinCode,
		"memberId": admin.ID,
	}, nil
}

func (s *Service) GetWorkspaceInfo(ctx context.Context, caller Caller, workspaceID string) (map[string]any, error) {
	workspace, err := s.store.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	var member *store.Member
	if caller.UserID != "" {
		member, err = s.store.GetMemberByWorkspaceUser(ctx, workspaceID, caller.UserID)
		if err != nil {
			return nil, err
		}
	}
	if member == nil {
		return map[string]any{
			"id":       workspace.ID,
			"name":     workspace.Name,
			"isMember": false,
		}, nil
	}

	item := map[string]any{
		"id":       workspace.ID,
		"name":     workspace.Name,
		"isMember": true,
		"memberId": member.ID,
		"role":     member.Role,
	}
	if rbac.NormalizeWorkspaceRole(member.Role) == rbac.WorkspaceAdmin {
		item["joinCode"] = workspace.JoinCode
	}
	return item, nil
}

func (s *Service) JoinWorkspace(ctx context.Context, caller Caller, joinCode string) (map[string]any, error) {
	if caller.UserID == "" {
		return nil, unauthorized("Unauthorized")
	}
	workspace, err := s.store.GetWorkspaceByJoinCode(ctx, strings.ToLower(strings.TrimSpace(joinCode)))
	if err != nil {
		return nil, err
	}
	if workspace == nil {
		return nil, notFound("workspace not found")
	}

	existing, err := s.store.GetMemberByWorkspaceUser(ctx, workspace.ID, caller.UserID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return map[string]any{"workspaceId": workspace.ID, "memberId": existing.ID}, nil
	}

	member := store.Member{
		ID:          util.NewID("mbr"),
		WorkspaceID: workspace.ID,
		UserID:      caller.UserID,
		Role:        string(rbac.WorkspaceMember),
	}
	if err := s.store.InsertMember(ctx, member); err != nil {
		return nil, err
	}
	return map[string]any{"workspaceId": workspace.ID, "memberId": member.ID}, nil
}

func (s *Service) NewJoinCode(ctx context.Context, caller Caller, workspaceID string) (string, error) {
	member, err := s.memberOf(ctx, caller, workspaceID)
	if err != nil {
		return "", err
	}
	if rbac.NormalizeWorkspaceRole(member.Role) != rbac.WorkspaceAdmin {
		return "", unauthorized("Unauthorized")
	}

	code := util.NewJoinCode()
	if err := s.store.UpdateJoinCode(ctx, workspaceID, code); err != nil {
		return "", err
	}
	return code, nil
}

func (s *Service) CreateChannel(ctx context.Context, caller Caller, workspaceID, name string) (string, error) {
	member, err := s.memberOf(ctx, caller, workspaceID)
	if err != nil {
		return "", err
	}
	if rbac.NormalizeWorkspaceRole(member.Role) != rbac.WorkspaceAdmin {
		return "", unauthorized("Unauthorized")
	}

	channelName := slugify(name)
	if channelName == "" {
		return "", validationError("channel name is required")
	}

	channel := store.Channel{
		ID:          util.NewID("chn"),
		WorkspaceID: workspaceID,
		Name:        channelName,
	}
	if err := s.store.InsertChannel(ctx, channel); err != nil {
		return "", err
	}
	return channel.ID, nil
}

func (s *Service) ListChannels(ctx context.Context, caller Caller, workspaceID string) ([]map[string]any, error) {
	if _, err := s.memberOf(ctx, caller, workspaceID); err != nil {
		return nil, err
	}

	channels, err := s.store.ListChannels(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(channels))
	for _, channel := range channels {
		items = append(items, map[string]any{
			"id":        channel.ID,
			"name":      channel.Name,
			"createdAt": channel.CreatedAt.Format(time.RFC3339),
		})
	}
	return items, nil
}

func (s *Service) GetChannelInfo(ctx context.Context, caller Caller, channelID string) (map[string]any, error) {
	channel, err := s.store.GetChannel(ctx, channelID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if _, err := s.memberOf(ctx, caller, channel.WorkspaceID); err != nil {
		return nil, err
	}
	return map[string]any{
		"id":          channel.ID,
		"workspaceId": channel.WorkspaceID,
		"name":        channel.Name,
		"createdAt":   channel.CreatedAt.Format(time.RFC3339),
	}, nil
}

func (s *Service) RenameChannel(ctx context.Context, caller Caller, channelID, name string) error {
	channel, err := s.store.GetChannel(ctx, channelID)
	if err != nil {
		return err
	}
	member, err := s.memberOf(ctx, caller, channel.WorkspaceID)
	if err != nil {
		return err
	}
	if rbac.NormalizeWorkspaceRole(member.Role) != rbac.WorkspaceAdmin {
		return unauthorized("Unauthorized")
	}

	channelName := slugify(name)
	if channelName == "" {
		return validationError("channel name is required")
	}
	return s.store.UpdateChannelName(ctx, channelID, channelName)
}

func (s *Service) DeleteChannel(ctx context.Context, caller Caller, channelID string) error {
	channel, err := s.store.GetChannel(ctx, channelID)
	if err != nil {
		return err
	}
	member, err := s.memberOf(ctx, caller, channel.WorkspaceID)
	if err != nil {
		return err
	}
	if rbac.NormalizeWorkspaceRole(member.Role) != rbac.WorkspaceAdmin {
		return unauthorized("Unauthorized")
	}
	return s.store.DeleteChannelCascade(ctx, channelID)
}

// GetOrCreateConversation returns the 1:1 conversation between the caller's
// member and otherMemberID, creating it lazily. The pair is unordered; at most
// one conversation exists per pair per workspace.
func (s *Service) GetOrCreateConversation(ctx context.Context, caller Caller, workspaceID, otherMemberID string) (map[string]any, error) {
	member, err := s.memberOf(ctx, caller, workspaceID)
	if err != nil {
		return nil, err
	}
	other, err := s.store.GetMember(ctx, otherMemberID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("member not found")
		}
		return nil, err
	}
	if other.WorkspaceID != workspaceID {
		return nil, notFound("member not found")
	}

	conversation, err := s.ensureConversation(ctx, workspaceID, member.ID, other.ID)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"id":          conversation.ID,
		"workspaceId": conversation.WorkspaceID,
		"memberOneId": conversation.MemberOneID,
		"memberTwoId": conversation.MemberTwoID,
	}, nil
}

func (s *Service) ensureConversation(ctx context.Context, workspaceID, memberA, memberB string) (store.Conversation, error) {
	existing, err := s.store.GetConversationByPair(ctx, workspaceID, memberA, memberB)
	if err != nil {
		return store.Conversation{}, err
	}
	if existing != nil {
		return *existing, nil
	}

	conversation := store.Conversation{
		ID:          util.NewID("cnv"),
		WorkspaceID: workspaceID,
		MemberOneID: memberA,
		MemberTwoID: memberB,
	}
	if err := s.store.InsertConversation(ctx, conversation); err != nil {
		return store.Conversation{}, err
	}
	return conversation, nil
}

func slugify(name string) string {
	lowered := strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	lastDash := true
	for _, r := range lowered {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
