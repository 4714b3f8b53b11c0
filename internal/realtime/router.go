package realtime

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"chatcore/internal/domain"
	"chatcore/internal/service"
)

// MessageSubmitter hands an inbound chat message to the business layer,
// which persists it and returns the canonical stored form.
type MessageSubmitter interface {
	Submit(ctx context.Context, in service.SubmitInput) (*domain.Message, error)
}

// Router dispatches inbound client frames by kind. Malformed frames are
// logged and dropped; no inbound frame ever tears the connection down.
type Router struct {
	resolver *Resolver
	engine   *Broadcaster
	messages MessageSubmitter
	validate *validator.Validate
	now      func() time.Time
}

func NewRouter(resolver *Resolver, engine *Broadcaster, messages MessageSubmitter) *Router {
	return &Router{
		resolver: resolver,
		engine:   engine,
		messages: messages,
		validate: validator.New(),
		now:      time.Now,
	}
}

// Route handles one raw frame from sess's connection.
func (rt *Router) Route(ctx context.Context, sess *Session, raw []byte) {
	var env inboundEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Debug().Str("module", "realtime.router").Err(err).
			Int64("user_id", sess.UserID).
			Msg("unparseable envelope dropped")
		return
	}

	switch kindOf(env.Type) {
	case kindPing:
		rt.handlePing(sess)
	case kindTest:
		rt.handleTest(sess, env.Data)
	case kindMessage:
		rt.handleMessage(ctx, sess, env.Data)
	case kindTyping:
		rt.handleTyping(ctx, sess, env.Data)
	default:
		log.Debug().Str("module", "realtime.router").
			Str("type", env.Type).
			Int64("user_id", sess.UserID).
			Msg("unrecognized envelope type dropped")
	}
}

func (rt *Router) handlePing(sess *Session) {
	env := Envelope{Type: EventPong, Data: PongPayload{Timestamp: rt.now()}}
	if err := sess.Send(env); err != nil {
		log.Debug().Str("module", "realtime.router").Err(err).
			Int64("user_id", sess.UserID).Msg("pong send failed")
	}
}

func (rt *Router) handleTest(sess *Session, data json.RawMessage) {
	if len(data) == 0 {
		data = json.RawMessage("null")
	}
	env := Envelope{Type: EventTestResponse, Data: data}
	if err := sess.Send(env); err != nil {
		log.Debug().Str("module", "realtime.router").Err(err).
			Int64("user_id", sess.UserID).Msg("test echo send failed")
	}
}

type messagePayload struct {
	ConversationID wireID  `json:"conversationId" validate:"required"`
	Content        string  `json:"content" validate:"required"`
	MessageType    string  `json:"messageType"`
	MediaFileID    *wireID `json:"mediaFileId"`
	TempID         string  `json:"tempId"`
}

func (rt *Router) handleMessage(ctx context.Context, sess *Session, data json.RawMessage) {
	var p messagePayload
	if err := json.Unmarshal(data, &p); err != nil {
		// Deliberate tolerance: a malformed message frame is dropped
		// without raising a client-visible error.
		log.Debug().Str("module", "realtime.router").Err(err).
			Int64("user_id", sess.UserID).
			Msg("malformed message payload dropped")
		return
	}
	if err := rt.validate.Struct(p); err != nil {
		log.Debug().Str("module", "realtime.router").Err(err).
			Int64("user_id", sess.UserID).
			Msg("incomplete message payload dropped")
		return
	}

	messageType := domain.MessageType(strings.ToUpper(p.MessageType))
	if messageType == "" {
		messageType = domain.MessageText
	}

	// Optimistic send-ack: the frame was received, persistence is still
	// in flight.
	conf := Envelope{Type: EventMessageConfirmation, Data: MessageConfirmationPayload{
		TempID:    p.TempID,
		Status:    "RECEIVED",
		Timestamp: rt.now(),
	}}
	if err := sess.Send(conf); err != nil {
		log.Debug().Str("module", "realtime.router").Err(err).
			Int64("user_id", sess.UserID).Msg("confirmation send failed")
	}

	in := service.SubmitInput{
		ConversationID: int64(p.ConversationID),
		SenderID:       sess.UserID,
		Content:        p.Content,
		MessageType:    messageType,
		TempID:         p.TempID,
	}
	if p.MediaFileID != nil {
		id := int64(*p.MediaFileID)
		in.MediaFileID = &id
	}

	if _, err := rt.messages.Submit(ctx, in); err != nil {
		log.Error().Str("module", "realtime.router").Err(err).
			Int64("user_id", sess.UserID).
			Int64("conversation_id", in.ConversationID).
			Msg("message submission failed")
		errEnv := Envelope{Type: EventError, Data: ErrorPayload{
			Message: "failed to process message",
			Detail:  err.Error(),
		}}
		_ = sess.Send(errEnv)
	}
}

type typingPayload struct {
	ConversationID wireID `json:"conversationId"`
	IsTyping       bool   `json:"isTyping"`
}

func (rt *Router) handleTyping(ctx context.Context, sess *Session, data json.RawMessage) {
	var p typingPayload
	if err := json.Unmarshal(data, &p); err != nil || p.ConversationID == 0 {
		log.Debug().Str("module", "realtime.router").
			Int64("user_id", sess.UserID).
			Msg("typing frame without conversation id dropped")
		return
	}

	_, recipients, err := rt.resolver.Resolve(ctx, int64(p.ConversationID))
	if err != nil {
		log.Warn().Str("module", "realtime.router").Err(err).
			Int64("conversation_id", int64(p.ConversationID)).
			Msg("typing recipient resolution failed")
		return
	}

	env := Envelope{Type: EventTyping, Data: TypingPayload{
		ConversationID: int64(p.ConversationID),
		UserID:         sess.UserID,
		IsTyping:       p.IsTyping,
	}}
	rt.engine.Deliver(ctx, recipients, env, DeliverOptions{ExcludeUserID: sess.UserID})

	ack := Envelope{Type: EventTypingConfirmation, Data: TypingConfirmationPayload{
		ConversationID: int64(p.ConversationID),
		IsTyping:       p.IsTyping,
		Timestamp:      rt.now(),
	}}
	if err := sess.Send(ack); err != nil {
		log.Debug().Str("module", "realtime.router").Err(err).
			Int64("user_id", sess.UserID).Msg("typing confirmation send failed")
	}
}
