package service

import (
	"context"
	"fmt"

	"chatcore/internal/domain"
)

// SubmitInput is a validated inbound chat message ready for persistence.
type SubmitInput struct {
	ConversationID int64
	SenderID       int64
	Content        string
	MessageType    domain.MessageType
	MediaFileID    *int64
	TempID         string
}

// MessageService persists inbound messages and publishes the domain event
// that drives real-time fan-out.
type MessageService struct {
	conversations domain.ConversationRepository
	members       domain.MemberRepository
	messages      domain.MessageRepository
	events        domain.EventPublisher

	MaxContentChars int
}

func NewMessageService(
	conversations domain.ConversationRepository,
	members domain.MemberRepository,
	messages domain.MessageRepository,
	events domain.EventPublisher,
	maxContentChars int,
) *MessageService {
	return &MessageService{
		conversations:   conversations,
		members:         members,
		messages:        messages,
		events:          events,
		MaxContentChars: maxContentChars,
	}
}

// Submit stores a message from senderID and publishes MESSAGE_SENT. The
// sender must be a member of the conversation.
func (s *MessageService) Submit(ctx context.Context, in SubmitInput) (*domain.Message, error) {
	if in.Content == "" {
		return nil, fmt.Errorf("%w: message content cannot be empty", domain.ErrInvalidInput)
	}
	if s.MaxContentChars > 0 && len([]rune(in.Content)) > s.MaxContentChars {
		return nil, fmt.Errorf("%w: message content exceeds %d characters", domain.ErrInvalidInput, s.MaxContentChars)
	}

	conv, err := s.conversations.GetByID(ctx, in.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	if conv == nil {
		return nil, fmt.Errorf("conversation %d: %w", in.ConversationID, domain.ErrNotFound)
	}

	member, err := s.members.Get(ctx, in.ConversationID, in.SenderID)
	if err != nil {
		return nil, fmt.Errorf("check membership: %w", err)
	}
	if member == nil {
		return nil, fmt.Errorf("user %d is not a member of conversation %d: %w",
			in.SenderID, in.ConversationID, domain.ErrForbidden)
	}

	messageType := in.MessageType
	if messageType == "" {
		messageType = domain.MessageText
	}

	msg := &domain.Message{
		ConversationID: in.ConversationID,
		SenderID:       in.SenderID,
		Content:        in.Content,
		Type:           messageType,
		MediaFileID:    in.MediaFileID,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}

	s.events.Publish(domain.Event{
		ConversationID: conv.ID,
		Type:           domain.UpdateMessageSent,
		ExcludeUserID:  in.SenderID,
		Data:           msg,
	})

	return msg, nil
}
