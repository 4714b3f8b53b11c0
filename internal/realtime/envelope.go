package realtime

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Envelope is the wire frame exchanged with clients: a tag plus a payload.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Outbound envelope tags.
const (
	EventConnectAck          = "CONNECT_ACK"
	EventMessage             = "MESSAGE"
	EventMessageConfirmation = "MESSAGE_CONFIRMATION"
	EventTyping              = "TYPING"
	EventTypingConfirmation  = "TYPING_CONFIRMATION"
	EventConversationUpdate  = "CONVERSATION_UPDATE"
	EventConversationPin     = "CONVERSATION_PIN"
	EventConversationArchive = "CONVERSATION_ARCHIVE"
	EventConversationDnd     = "CONVERSATION_DND"
	EventGroupUpdate         = "GROUP_UPDATE"
	EventError               = "ERROR"
	EventPong                = "PONG"
	EventTestResponse        = "TEST_RESPONSE"
)

// ConnectAckPayload acknowledges a successful handshake.
type ConnectAckPayload struct {
	UserID    int64     `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
}

// MessagePayload is the broadcast form of a persisted message.
type MessagePayload struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversationId"`
	SenderID       int64     `json:"senderId"`
	Content        string    `json:"content"`
	MessageType    string    `json:"messageType"`
	MediaFileID    *int64    `json:"mediaFileId,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// MessageConfirmationPayload is the optimistic send-ack returned to a sender.
// It confirms receipt of the frame, not persistence.
type MessageConfirmationPayload struct {
	TempID    string    `json:"tempId,omitempty"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// TypingPayload carries a typing indicator to the rest of a conversation.
type TypingPayload struct {
	ConversationID int64 `json:"conversationId"`
	UserID         int64 `json:"userId"`
	IsTyping       bool  `json:"isTyping"`
}

// TypingConfirmationPayload acknowledges a typing frame to its sender.
type TypingConfirmationPayload struct {
	ConversationID int64     `json:"conversationId"`
	IsTyping       bool      `json:"isTyping"`
	Timestamp      time.Time `json:"timestamp"`
}

// ConversationUpdatePayload wraps a conversation-level change.
type ConversationUpdatePayload struct {
	ConversationID int64  `json:"conversationId"`
	UpdateType     string `json:"updateType"`
	Data           any    `json:"data,omitempty"`
}

// SettingPayload announces a per-member conversation setting change. UserID
// is stamped per recipient so a client can tell "my setting changed" from
// "someone else's setting changed".
type SettingPayload struct {
	ConversationID int64 `json:"conversationId"`
	UserID         int64 `json:"userId"`
	Value          bool  `json:"value"`
}

// GroupUpdatePayload announces a group membership change.
type GroupUpdatePayload struct {
	GroupID    int64  `json:"groupId"`
	UserID     int64  `json:"userId,omitempty"`
	UpdateType string `json:"updateType"`
}

// ErrorPayload is sent to a sender whose message handling failed.
type ErrorPayload struct {
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// PongPayload answers an application-level ping.
type PongPayload struct {
	Timestamp time.Time `json:"timestamp"`
}

// inboundEnvelope defers payload decoding until the kind is known.
type inboundEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// inboundKind is the closed set of client frame kinds.
type inboundKind int

const (
	kindUnknown inboundKind = iota
	kindPing
	kindTest
	kindMessage
	kindTyping
)

// kindOf matches an envelope type tag case-insensitively.
func kindOf(t string) inboundKind {
	switch strings.ToUpper(t) {
	case "PING":
		return kindPing
	case "TEST":
		return kindTest
	case "MESSAGE":
		return kindMessage
	case "TYPING":
		return kindTyping
	default:
		return kindUnknown
	}
}

// wireID is an int64 that also tolerates the quoted form some older clients
// send. Anything else is a parse failure for the frame it appears in.
type wireID int64

func (w *wireID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("numeric id %q: %w", s, err)
		}
		*w = wireID(n)
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*w = wireID(n)
	return nil
}
