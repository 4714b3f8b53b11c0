package service

import (
	"context"
	"fmt"

	"chatcore/internal/domain"
)

// ConversationService records per-member setting changes and group
// membership changes, then publishes the matching domain event so connected
// clients hear about them.
type ConversationService struct {
	conversations domain.ConversationRepository
	members       domain.MemberRepository
	groups        domain.GroupRepository
	messages      domain.MessageRepository
	events        domain.EventPublisher
}

func NewConversationService(
	conversations domain.ConversationRepository,
	members domain.MemberRepository,
	groups domain.GroupRepository,
	messages domain.MessageRepository,
	events domain.EventPublisher,
) *ConversationService {
	return &ConversationService{
		conversations: conversations,
		members:       members,
		groups:        groups,
		messages:      messages,
		events:        events,
	}
}

func (s *ConversationService) SetPinned(ctx context.Context, conversationID, userID int64, value bool) error {
	if err := s.requireMember(ctx, conversationID, userID); err != nil {
		return err
	}
	if err := s.members.SetPinned(ctx, conversationID, userID, value); err != nil {
		return fmt.Errorf("set pinned: %w", err)
	}
	s.events.Publish(domain.Event{ConversationID: conversationID, Type: domain.UpdatePin, Data: value})
	return nil
}

func (s *ConversationService) SetArchived(ctx context.Context, conversationID, userID int64, value bool) error {
	if err := s.requireMember(ctx, conversationID, userID); err != nil {
		return err
	}
	if err := s.members.SetArchived(ctx, conversationID, userID, value); err != nil {
		return fmt.Errorf("set archived: %w", err)
	}
	s.events.Publish(domain.Event{ConversationID: conversationID, Type: domain.UpdateArchive, Data: value})
	return nil
}

func (s *ConversationService) SetDnd(ctx context.Context, conversationID, userID int64, value bool) error {
	if err := s.requireMember(ctx, conversationID, userID); err != nil {
		return err
	}
	if err := s.members.SetDnd(ctx, conversationID, userID, value); err != nil {
		return fmt.Errorf("set dnd: %w", err)
	}
	s.events.Publish(domain.Event{ConversationID: conversationID, Type: domain.UpdateDnd, Data: value})
	return nil
}

// Block freezes userID's cutoff at the conversation's latest message id.
// Messages with a greater id are withheld from real-time delivery until
// Unblock clears the cutoff. Blocking is a private setting; no event is
// published for it.
func (s *ConversationService) Block(ctx context.Context, conversationID, userID int64) error {
	if err := s.requireMember(ctx, conversationID, userID); err != nil {
		return err
	}
	latest, err := s.messages.LatestID(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("latest message id: %w", err)
	}
	if err := s.members.SetBlockCutoff(ctx, conversationID, userID, &latest); err != nil {
		return fmt.Errorf("set block cutoff: %w", err)
	}
	return nil
}

// Unblock clears userID's cutoff, restoring full delivery.
func (s *ConversationService) Unblock(ctx context.Context, conversationID, userID int64) error {
	if err := s.requireMember(ctx, conversationID, userID); err != nil {
		return err
	}
	if err := s.members.SetBlockCutoff(ctx, conversationID, userID, nil); err != nil {
		return fmt.Errorf("clear block cutoff: %w", err)
	}
	return nil
}

// LeaveGroup drops userID from the group and announces it. The announcement
// reaches the leaving user too, even though they are no longer a member.
func (s *ConversationService) LeaveGroup(ctx context.Context, groupID, userID int64) error {
	if err := s.groups.RemoveMember(ctx, groupID, userID); err != nil {
		return fmt.Errorf("remove group member: %w", err)
	}
	s.events.Publish(domain.Event{
		GroupID:      groupID,
		Type:         domain.UpdateMemberLeave,
		TargetUserID: userID,
	})
	return nil
}

// RemoveGroupMember drops targetID from the group on actorID's behalf.
func (s *ConversationService) RemoveGroupMember(ctx context.Context, groupID, actorID, targetID int64) error {
	if err := s.groups.RemoveMember(ctx, groupID, targetID); err != nil {
		return fmt.Errorf("remove group member: %w", err)
	}
	s.events.Publish(domain.Event{
		GroupID:      groupID,
		Type:         domain.UpdateMemberRemoved,
		TargetUserID: targetID,
	})
	return nil
}

func (s *ConversationService) requireMember(ctx context.Context, conversationID, userID int64) error {
	member, err := s.members.Get(ctx, conversationID, userID)
	if err != nil {
		return fmt.Errorf("check membership: %w", err)
	}
	if member == nil {
		return fmt.Errorf("user %d is not a member of conversation %d: %w",
			userID, conversationID, domain.ErrForbidden)
	}
	return nil
}
