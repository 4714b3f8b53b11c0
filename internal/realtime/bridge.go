package realtime

import (
	"context"
	"slices"

	"github.com/rs/zerolog/log"

	"chatcore/internal/domain"
)

// Bridge turns published domain events into outbound broadcasts. Collaborator
// failures degrade to skipping the event; nothing propagates back to the
// publisher.
type Bridge struct {
	resolver *Resolver
	engine   *Broadcaster
	groups   domain.GroupRepository
}

func NewBridge(resolver *Resolver, engine *Broadcaster, groups domain.GroupRepository) *Bridge {
	return &Bridge{resolver: resolver, engine: engine, groups: groups}
}

var _ EventHandler = (*Bridge)(nil)

// HandleEvent dispatches one domain event by its update type.
func (br *Bridge) HandleEvent(ctx context.Context, ev domain.Event) {
	switch ev.Type {
	case domain.UpdateMessageSent:
		br.onMessage(ctx, ev)
	case domain.UpdateNew, domain.UpdateUpdate, domain.UpdateDelete:
		br.onConversationChange(ctx, ev)
	case domain.UpdatePin, domain.UpdateArchive, domain.UpdateDnd:
		br.onMemberSetting(ctx, ev)
	case domain.UpdateMemberLeave, domain.UpdateMemberRemoved:
		br.onGroupMembership(ctx, ev)
	default:
		log.Warn().Str("module", "realtime.bridge").
			Str("update_type", string(ev.Type)).
			Msg("unhandled domain event type")
	}
}

func (br *Bridge) onMessage(ctx context.Context, ev domain.Event) {
	msg, ok := ev.Data.(*domain.Message)
	if !ok {
		log.Error().Str("module", "realtime.bridge").
			Int64("conversation_id", ev.ConversationID).
			Msg("message event without message payload")
		return
	}

	conv, recipients, err := br.resolver.Resolve(ctx, ev.ConversationID)
	if err != nil {
		log.Error().Str("module", "realtime.bridge").Err(err).
			Int64("conversation_id", ev.ConversationID).
			Msg("recipient resolution failed, skipping fan-out")
		return
	}

	env := Envelope{Type: EventMessage, Data: MessagePayload{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		Content:        msg.Content,
		MessageType:    string(msg.Type),
		MediaFileID:    msg.MediaFileID,
		Timestamp:      msg.CreatedAt,
	}}

	opts := DeliverOptions{ExcludeUserID: ev.ExcludeUserID}
	if conv.Type == domain.ConversationPrivate {
		opts.FilterConversationID = conv.ID
		opts.MessageID = msg.ID
	}

	n := br.engine.Deliver(ctx, recipients, env, opts)
	log.Debug().Str("module", "realtime.bridge").
		Int64("conversation_id", conv.ID).
		Int64("message_id", msg.ID).
		Int("delivered", n).
		Msg("message fanned out")
}

func (br *Bridge) onConversationChange(ctx context.Context, ev domain.Event) {
	_, recipients, err := br.resolver.Resolve(ctx, ev.ConversationID)
	if err != nil {
		log.Error().Str("module", "realtime.bridge").Err(err).
			Int64("conversation_id", ev.ConversationID).
			Msg("recipient resolution failed, skipping fan-out")
		return
	}

	env := Envelope{Type: EventConversationUpdate, Data: ConversationUpdatePayload{
		ConversationID: ev.ConversationID,
		UpdateType:     string(ev.Type),
		Data:           ev.Data,
	}}
	br.engine.Deliver(ctx, recipients, env, DeliverOptions{ExcludeUserID: ev.ExcludeUserID})
}

// onMemberSetting fans out pin/archive/dnd changes, one envelope per
// recipient stamped with that recipient's own user ID. The boolean flag is
// taken from the triggering event and is not looked up per recipient.
func (br *Bridge) onMemberSetting(ctx context.Context, ev domain.Event) {
	_, recipients, err := br.resolver.Resolve(ctx, ev.ConversationID)
	if err != nil {
		log.Error().Str("module", "realtime.bridge").Err(err).
			Int64("conversation_id", ev.ConversationID).
			Msg("recipient resolution failed, skipping fan-out")
		return
	}

	var tag string
	switch ev.Type {
	case domain.UpdatePin:
		tag = EventConversationPin
	case domain.UpdateArchive:
		tag = EventConversationArchive
	case domain.UpdateDnd:
		tag = EventConversationDnd
	}
	value, _ := ev.Data.(bool)

	for _, uid := range recipients {
		if ev.ExcludeUserID != 0 && uid == ev.ExcludeUserID {
			continue
		}
		env := Envelope{Type: tag, Data: SettingPayload{
			ConversationID: ev.ConversationID,
			UserID:         uid,
			Value:          value,
		}}
		br.engine.Deliver(ctx, []int64{uid}, env, DeliverOptions{})
	}
}

// onGroupMembership resolves recipients from current group membership. The
// affected user has just been dropped from that membership, so they are
// re-added: their client still has to learn about the removal.
func (br *Bridge) onGroupMembership(ctx context.Context, ev domain.Event) {
	recipients, err := br.groups.ListMemberIDs(ctx, ev.GroupID)
	if err != nil {
		log.Error().Str("module", "realtime.bridge").Err(err).
			Int64("group_id", ev.GroupID).
			Msg("group membership lookup failed, skipping fan-out")
		return
	}
	if ev.TargetUserID != 0 && !slices.Contains(recipients, ev.TargetUserID) {
		recipients = append(recipients, ev.TargetUserID)
	}

	env := Envelope{Type: EventGroupUpdate, Data: GroupUpdatePayload{
		GroupID:    ev.GroupID,
		UserID:     ev.TargetUserID,
		UpdateType: string(ev.Type),
	}}
	br.engine.Deliver(ctx, recipients, env, DeliverOptions{ExcludeUserID: ev.ExcludeUserID})
}
