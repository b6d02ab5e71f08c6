package store

import "time"

type User struct {
	ID          string
	DisplayName string
	Email       string
	Image       string
	CreatedAt   time.Time
}

type Workspace struct {
	ID          string
	Name        string
	OwnerUserID string
	JoinCode    string
	Image       string
	CreatedAt   time.Time
}

type Member struct {
	ID          string
	WorkspaceID string
	UserID      string
	Role        string
	CreatedAt   time.Time
}

type Channel struct {
	ID          string
	WorkspaceID string
	Name        string
	CreatedAt   time.Time
}

// Conversation is a 1:1 DM pairing. At most one exists per unordered member
// pair per workspace; it is created lazily on first message or thread.
type Conversation struct {
	ID          string
	WorkspaceID string
	MemberOneID string
	MemberTwoID string
	CreatedAt   time.Time
}

// Message belongs to exactly one destination context: a channel, a
// conversation, or (for replies that set neither) the context inherited from
// its parent.
type Message struct {
	ID              string
	WorkspaceID     string
	MemberID        string
	Body            string
	AttachmentKey   string
	ChannelID       *string
	ConversationID  *string
	ParentMessageID *string
	HasReplies      bool
	CreatedAt       time.Time
	UpdatedAt       *time.Time
}

type Reaction struct {
	ID          string
	WorkspaceID string
	MessageID   string
	MemberID    string
	Value       string
	CreatedAt   time.Time
}

// Thread is the explicit thread entity with its own membership roster,
// distinct from the implicit "message with replies" rollup.
type Thread struct {
	ID              string
	WorkspaceID     string
	ParentMessageID string
	Title           string
	Type            string
	LastActivityAt  time.Time
	CreatedAt       time.Time
}

type ThreadMember struct {
	ID        string
	ThreadID  string
	MemberID  string
	Role      string
	CreatedAt time.Time
}

type NotificationMetadata struct {
	WorkspaceID    string `json:"workspaceId,omitempty"`
	ChannelID      string `json:"channelId,omitempty"`
	MessageID      string `json:"messageId,omitempty"`
	MentionedBy    string `json:"mentionedBy,omitempty"`
	SubscriptionID string `json:"subscriptionId,omitempty"`
	URL            string `json:"url,omitempty"`
}

type Notification struct {
	ID        string
	UserID    string
	Type      string
	Source    string
	Title     string
	Message   string
	Metadata  NotificationMetadata
	IsRead    bool
	CreatedAt time.Time
}

type UserStatus struct {
	UserID          string
	CurrentStatus   string
	CustomEmoji     string
	CustomNote      string
	CustomExpiresAt *time.Time
	ForcedOffline   bool
	LastSeen        *time.Time
	UpdatedAt       time.Time
}

// MessageFilter selects the exact (channel, parent, conversation) destination
// triple for a message page. Nil fields match NULL columns, not "any".
type MessageFilter struct {
	ChannelID       *string
	ConversationID  *string
	ParentMessageID *string
}

type NotificationFilter struct {
	WorkspaceID string
	Type        string
	Source      string
	StartDate   *time.Time
	EndDate     *time.Time
	UnreadOnly  bool
	Limit       int
}
