package relay

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/inteltrace/inteltrace/internal/accounts"
	"github.com/inteltrace/inteltrace/internal/analysis"
	"github.com/inteltrace/inteltrace/internal/attachment"
	"github.com/inteltrace/inteltrace/internal/conversation"
	"github.com/inteltrace/inteltrace/internal/message"
)

// ConversationResolver resolves or lazily creates the target conversation.
type ConversationResolver interface {
	Resolve(ctx context.Context, input conversation.ResolveInput) (conversation.Conversation, bool, error)
}

// MessageAppender appends to the per-conversation message log.
type MessageAppender interface {
	Append(ctx context.Context, input message.AppendInput) (message.Message, error)
}

// AttachmentSaver materializes an inlined image payload into the byte store.
type AttachmentSaver interface {
	Save(ctx context.Context, payload string) (attachment.Stored, error)
}

// Deliverer pushes a payload to all live connections of an identity.
type Deliverer interface {
	DeliverToIdentity(userID string, payload []byte) int
}

// Pipeline orchestrates one inbound send end-to-end: conversation resolution,
// attachment materialization, persistence, echo to the sender, and the
// asynchronous analysis stage.
type Pipeline struct {
	conversations ConversationResolver
	messages      MessageAppender
	attachments   AttachmentSaver
	analyzer      analysis.Analyzer
	deliver       Deliverer
	validate      *validator.Validate
	logger        *slog.Logger

	// schedule runs the deferred analysis stage; overridable in tests.
	schedule func(fn func())
}

// NewPipeline creates the ingestion pipeline.
func NewPipeline(
	log *slog.Logger,
	conversations ConversationResolver,
	messages MessageAppender,
	attachments AttachmentSaver,
	analyzer analysis.Analyzer,
	deliver Deliverer,
) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		conversations: conversations,
		messages:      messages,
		attachments:   attachments,
		analyzer:      analyzer,
		deliver:       deliver,
		validate:      validator.New(),
		logger:        log.With(slog.String("service", "relay")),
		schedule:      func(fn func()) { go fn() },
	}
}

// HandleSend processes one sendMessage event from the given sender. Every
// failure surfaces as exactly one messageError on the sender's channel; no
// partial message is ever persisted. The synchronous portion returns once the
// user's message is acked and analysis is scheduled.
func (p *Pipeline) HandleSend(ctx context.Context, sender accounts.Account, req SendMessageRequest) {
	if err := p.validate.Struct(req); err != nil {
		p.emitError(sender.ID, "message content or image is required")
		return
	}

	conv, created, err := p.conversations.Resolve(ctx, conversation.ResolveInput{
		ConversationID: req.ConversationID,
		OwnerID:        sender.ID,
		SeedContent:    req.Content,
	})
	if err != nil {
		if errors.Is(err, conversation.ErrNotFound) {
			p.emitError(sender.ID, "conversation not found")
		} else {
			p.logger.Error("resolve conversation failed", slog.Any("error", err))
			p.emitError(sender.ID, "failed to resolve conversation")
		}
		return
	}
	if created {
		// Announce the new thread before any message event so sidebars on
		// the sender's other connections can sync first.
		p.emit(sender.ID, EventNewConversation, conv)
	}

	var imageRef string
	if req.Image != "" {
		stored, err := p.attachments.Save(ctx, req.Image)
		if err != nil {
			p.emitAttachmentError(sender.ID, err)
			return
		}
		imageRef = stored.Ref
	}

	userMsg, err := p.messages.Append(ctx, message.AppendInput{
		ConversationID: conv.ID,
		Role:           message.RoleUser,
		Content:        req.Content,
		Image:          imageRef,
	})
	if err != nil {
		p.logger.Error("persist message failed", slog.Any("error", err))
		p.emitError(sender.ID, "failed to send message")
		return
	}

	p.emit(sender.ID, EventMessageReceived, userMsg)

	// The deferred stage outlives this request; detach it from the
	// connection's context so a disconnect does not cancel it.
	analysisCtx := context.WithoutCancel(ctx)
	p.schedule(func() {
		p.runAnalysis(analysisCtx, sender.ID, conv.ID, userMsg)
	})
}

// runAnalysis executes the analysis backend for one persisted user message
// and delivers the derived assistant message. On failure nothing is persisted
// and the owner receives a single messageError.
func (p *Pipeline) runAnalysis(ctx context.Context, userID, conversationID string, userMsg message.Message) {
	result, err := p.analyzer.Analyze(ctx, analysis.Request{
		ConversationID: conversationID,
		Content:        userMsg.Content,
		AttachmentRef:  userMsg.Image,
	})
	if err != nil {
		p.logger.Warn("analysis failed",
			slog.String("conversation_id", conversationID),
			slog.Any("error", err),
		)
		p.emitError(userID, "analysis failed")
		return
	}

	assistantMsg, err := p.messages.Append(ctx, message.AppendInput{
		ConversationID:   conversationID,
		Role:             message.RoleAssistant,
		Content:          result.Content,
		SegmentationMask: result.AnnotationRef,
	})
	if err != nil {
		p.logger.Error("persist assistant message failed", slog.Any("error", err))
		p.emitError(userID, "failed to deliver analysis result")
		return
	}

	p.emit(userID, EventMessageReceived, assistantMsg)
}

func (p *Pipeline) emitAttachmentError(userID string, err error) {
	switch {
	case errors.Is(err, attachment.ErrMalformedPayload),
		errors.Is(err, attachment.ErrTooLarge),
		errors.Is(err, attachment.ErrUnsupportedType):
		p.emitError(userID, err.Error())
	default:
		p.logger.Error("store attachment failed", slog.Any("error", err))
		p.emitError(userID, "failed to store attachment")
	}
}

func (p *Pipeline) emit(userID, event string, data any) {
	payload, err := json.Marshal(OutboundFrame{Event: event, Data: data})
	if err != nil {
		p.logger.Warn("marshal event failed", slog.String("event", event), slog.Any("error", err))
		return
	}
	// Best effort: zero live connections means the event is dropped, not an
	// error. The message log remains the durable record.
	p.deliver.DeliverToIdentity(userID, payload)
}

func (p *Pipeline) emitError(userID, msg string) {
	p.emit(userID, EventMessageError, ErrorPayload{Message: msg})
}
