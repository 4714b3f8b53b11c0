package realtime

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"chatcore/internal/domain"
)

// Broadcaster delivers serialized envelopes to the live sessions of a
// recipient set. It only reads member state, never mutates it, and every
// per-recipient failure is isolated from the rest of the fan-out.
type Broadcaster struct {
	registry *Registry
	members  domain.MemberRepository
}

func NewBroadcaster(registry *Registry, members domain.MemberRepository) *Broadcaster {
	return &Broadcaster{registry: registry, members: members}
}

// DeliverOptions narrows a fan-out. ExcludeUserID (0 = nobody) skips the
// acting sender. When FilterConversationID is non-zero, each recipient's
// block cutoff in that conversation is checked against MessageID and later
// messages are silently withheld.
type DeliverOptions struct {
	ExcludeUserID        int64
	FilterConversationID int64
	MessageID            int64
}

// Deliver writes env to every recipient with an open session and returns the
// number of successful writes. Offline recipients are skipped outright: no
// queuing, no retry. A failed write is logged and counted as a miss without
// affecting the remaining recipients.
func (b *Broadcaster) Deliver(ctx context.Context, recipients []int64, env Envelope, opts DeliverOptions) int {
	data, err := json.Marshal(env)
	if err != nil {
		log.Error().Str("module", "realtime.broadcast").Err(err).
			Str("event", env.Type).Msg("envelope serialization failed")
		return 0
	}

	delivered := 0
	for _, uid := range recipients {
		if opts.ExcludeUserID != 0 && uid == opts.ExcludeUserID {
			continue
		}
		if opts.FilterConversationID != 0 && opts.MessageID != 0 && b.blocked(ctx, opts, uid) {
			continue
		}
		sess, ok := b.registry.Lookup(uid)
		if !ok || !sess.Open() {
			continue
		}
		if err := sess.write(data); err != nil {
			log.Warn().Str("module", "realtime.broadcast").Err(err).
				Int64("user_id", uid).Str("event", env.Type).Msg("delivery failed")
			continue
		}
		delivered++
	}
	return delivered
}

// blocked reports whether uid's block cutoff withholds the message: a cutoff
// of k withholds every message with id strictly greater than k. A failed
// cutoff lookup withholds as well; delivering past an unreadable block row
// would leak messages the recipient chose not to receive.
func (b *Broadcaster) blocked(ctx context.Context, opts DeliverOptions, uid int64) bool {
	m, err := b.members.Get(ctx, opts.FilterConversationID, uid)
	if err != nil {
		log.Warn().Str("module", "realtime.broadcast").Err(err).
			Int64("user_id", uid).
			Int64("conversation_id", opts.FilterConversationID).
			Msg("block cutoff lookup failed, withholding")
		return true
	}
	return m != nil && m.LastAcceptableMessageID != nil && opts.MessageID > *m.LastAcceptableMessageID
}

// BroadcastToAll delivers env to every registered session unconditionally,
// for global announcements. Same per-recipient failure isolation as Deliver.
func (b *Broadcaster) BroadcastToAll(env Envelope) int {
	data, err := json.Marshal(env)
	if err != nil {
		log.Error().Str("module", "realtime.broadcast").Err(err).
			Str("event", env.Type).Msg("envelope serialization failed")
		return 0
	}

	delivered := 0
	for _, sess := range b.registry.Snapshot() {
		if !sess.Open() {
			continue
		}
		if err := sess.write(data); err != nil {
			log.Warn().Str("module", "realtime.broadcast").Err(err).
				Int64("user_id", sess.UserID).Str("event", env.Type).Msg("delivery failed")
			continue
		}
		delivered++
	}
	return delivered
}
