package domain

import "context"

// TokenValidator resolves a bearer credential to a user identity.
type TokenValidator interface {
	Validate(token string) (int64, error)
}

// ConversationRepository defines the read surface the realtime core needs.
type ConversationRepository interface {
	GetByID(ctx context.Context, id int64) (*Conversation, error)
}

// MemberRepository defines operations around conversation members. The
// realtime core only reads; the Set* mutations exist for the HTTP surface
// that records setting changes before publishing the matching event.
type MemberRepository interface {
	ListMemberIDs(ctx context.Context, conversationID int64) ([]int64, error)
	Get(ctx context.Context, conversationID, userID int64) (*ConversationMember, error)
	SetPinned(ctx context.Context, conversationID, userID int64, value bool) error
	SetArchived(ctx context.Context, conversationID, userID int64, value bool) error
	SetDnd(ctx context.Context, conversationID, userID int64, value bool) error
	SetBlockCutoff(ctx context.Context, conversationID, userID int64, cutoff *int64) error
}

// GroupRepository exposes authoritative group membership.
type GroupRepository interface {
	ListMemberIDs(ctx context.Context, groupID int64) ([]int64, error)
	RemoveMember(ctx context.Context, groupID, userID int64) error
}

// MessageRepository defines persistence operations for messages.
type MessageRepository interface {
	Create(ctx context.Context, m *Message) error
	LatestID(ctx context.Context, conversationID int64) (int64, error)
}
