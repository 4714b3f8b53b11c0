package domain

import "time"

// ConversationType distinguishes one-to-one chats from group-backed ones.
type ConversationType string

const (
	ConversationPrivate ConversationType = "PRIVATE"
	ConversationGroup   ConversationType = "GROUP"
)

// Conversation is read-only inside the realtime core; ownership of the rows
// lies with the surrounding CRUD services.
type Conversation struct {
	ID             int64            `db:"id"`
	Type           ConversationType `db:"type"`
	RelatedGroupID *int64           `db:"related_group_id"` // set iff Type == GROUP
	CreatedAt      time.Time        `db:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at"`
}

// ConversationMember carries the per-user conversation settings consulted
// during fan-out. LastAcceptableMessageID is the block cutoff: when non-nil,
// messages with a greater id are withheld from real-time delivery for this
// member until the block is lifted.
type ConversationMember struct {
	ConversationID          int64  `db:"conversation_id"`
	UserID                  int64  `db:"user_id"`
	IsPinned                bool   `db:"is_pinned"`
	IsArchived              bool   `db:"is_archived"`
	IsDnd                   bool   `db:"is_dnd"`
	LastReadMessageID       int64  `db:"last_read_message_id"`
	LastAcceptableMessageID *int64 `db:"last_acceptable_message_id"`
}

// GroupMember is the authoritative group membership row. Conversation
// membership can lag behind it, which is why fan-out reconciles the two.
type GroupMember struct {
	GroupID  int64     `db:"group_id"`
	UserID   int64     `db:"user_id"`
	JoinedAt time.Time `db:"joined_at"`
}

// MessageType tags the content kind of a chat message.
type MessageType string

const (
	MessageText  MessageType = "TEXT"
	MessageImage MessageType = "IMAGE"
	MessageFile  MessageType = "FILE"
)

// Message is a persisted chat message.
type Message struct {
	ID             int64       `db:"id"`
	ConversationID int64       `db:"conversation_id"`
	SenderID       int64       `db:"sender_id"`
	Content        string      `db:"content"`
	Type           MessageType `db:"message_type"`
	MediaFileID    *int64      `db:"media_file_id"`
	CreatedAt      time.Time   `db:"created_at"`
}
