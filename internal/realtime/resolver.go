package realtime

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"chatcore/internal/domain"
)

// Resolver computes the current recipient set for a conversation. It runs
// fresh on every fan-out: group membership is mutable and must never lag by
// more than one fan-out cycle, so nothing here is cached.
type Resolver struct {
	conversations domain.ConversationRepository
	members       domain.MemberRepository
	groups        domain.GroupRepository
}

func NewResolver(
	conversations domain.ConversationRepository,
	members domain.MemberRepository,
	groups domain.GroupRepository,
) *Resolver {
	return &Resolver{
		conversations: conversations,
		members:       members,
		groups:        groups,
	}
}

// Resolve returns the conversation and its current recipient user IDs,
// order-preserving and deduplicated. For group conversations the stored
// member list is intersected with authoritative group membership, dropping
// users whose conversation-member row outlived their group membership.
func (rs *Resolver) Resolve(ctx context.Context, conversationID int64) (*domain.Conversation, []int64, error) {
	conv, err := rs.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, nil, fmt.Errorf("get conversation %d: %w", conversationID, err)
	}
	if conv == nil {
		return nil, nil, fmt.Errorf("conversation %d: %w", conversationID, domain.ErrNotFound)
	}

	ids, err := rs.members.ListMemberIDs(ctx, conversationID)
	if err != nil {
		return nil, nil, fmt.Errorf("list conversation members: %w", err)
	}
	ids = lo.Uniq(ids)

	if conv.Type == domain.ConversationGroup && conv.RelatedGroupID != nil {
		live, err := rs.groups.ListMemberIDs(ctx, *conv.RelatedGroupID)
		if err != nil {
			return nil, nil, fmt.Errorf("list group members: %w", err)
		}
		// Filter the stored list against the live set rather than
		// intersecting: the stored member order is the fan-out order.
		liveSet := lo.SliceToMap(live, func(id int64) (int64, struct{}) {
			return id, struct{}{}
		})
		ids = lo.Filter(ids, func(id int64, _ int) bool {
			_, ok := liveSet[id]
			return ok
		})
	}

	return conv, ids, nil
}
