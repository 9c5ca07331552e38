// Package hooks wraps every model call with memory: Before injects what the
// user said in earlier sessions into the outgoing request, After persists the
// completed exchange.
//
// Neither hook ever fails the exchange. Retrieval failures degrade to an
// empty memory block; persistence failures are returned for logging and are
// never retried.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/papercomputeco/recall/pkg/eventstream"
	"github.com/papercomputeco/recall/pkg/llm"
	"github.com/papercomputeco/recall/pkg/logger"
	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/metrics"
)

// Injection modes.
const (
	// ModeLocal rewrites the last user message with the memory prompt.
	ModeLocal = "local"

	// ModeRemote prefixes the system instruction with search results.
	ModeRemote = "remote"
)

// Context identifies the exchange. It is a plain value, so hooks never
// reach into runtime state.
type Context struct {
	UserID    string
	SessionID string

	// Query is the raw user text. Empty falls back to the request's last
	// user message.
	Query string
}

// Config holds the pipeline's collaborators.
type Config struct {
	// Memory recalls and stores exchanges. Required.
	Memory memory.Driver

	// Mode is ModeLocal or ModeRemote. Empty means ModeLocal.
	Mode string

	// Names are the third parties the user may ask about.
	Names *memory.NameRegistry

	// Publisher receives a turn-persisted event per stored exchange.
	// Optional.
	Publisher eventstream.Publisher

	// Source is stamped on published events.
	Source eventstream.EventSource

	// ModelTimeout bounds the model call in Exchange.
	ModelTimeout time.Duration

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Pipeline is the before/after pair around one model invocation.
type Pipeline struct {
	memory       memory.Driver
	mode         string
	names        *memory.NameRegistry
	publisher    eventstream.Publisher
	source       eventstream.EventSource
	modelTimeout time.Duration
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

// New builds a pipeline.
func New(c Config) (*Pipeline, error) {
	if c.Memory == nil {
		return nil, fmt.Errorf("%w: hooks need a memory driver", memory.ErrNotConfigured)
	}

	mode := c.Mode
	switch mode {
	case "":
		mode = ModeLocal
	case ModeLocal, ModeRemote:
	default:
		return nil, fmt.Errorf("unknown memory mode %q (expected %s or %s)", mode, ModeLocal, ModeRemote)
	}

	return &Pipeline{
		memory:       c.Memory,
		mode:         mode,
		names:        c.Names,
		publisher:    c.Publisher,
		source:       c.Source,
		modelTimeout: c.ModelTimeout,
		logger:       logger.OrNop(c.Logger),
		metrics:      metrics.OrNop(c.Metrics),
	}, nil
}

// Before returns a copy of req with memory injected. It never fails: when
// recall fails the memory block is explicitly empty.
func (p *Pipeline) Before(ctx context.Context, req *llm.ChatRequest, hc Context) *llm.ChatRequest {
	out := req.Clone()

	query := hc.Query
	if query == "" {
		query = out.LastUserText()
	}

	rec, err := p.memory.Recall(ctx, memory.Query{
		UserID:    hc.UserID,
		SessionID: hc.SessionID,
		Text:      query,
	})
	if err != nil {
		p.logger.Warn("memory recall failed, continuing without memory",
			"user_id", hc.UserID,
			"session_id", hc.SessionID,
			"error", err,
		)
		p.metrics.Retrieval(p.mode, metrics.OutcomeDegraded)
		rec = memory.Recollection{}
	}

	parties := p.names.Mentioned(query)
	switch p.mode {
	case ModeRemote:
		out.System = memory.BuildInstruction(rec.Text, out.System, parties...)
		out.SetLastUserText(query)
	default:
		out.SetLastUserText(memory.BuildPrompt(memory.PromptInput{
			Memory:  rec.Text,
			Query:   query,
			Parties: parties,
		}))
	}

	p.logger.Debug("injected memory",
		"user_id", hc.UserID,
		"mode", p.mode,
		"items", rec.Items,
		"dated", rec.Dated,
	)
	return out
}

// After persists the exchange when reply carries text. Empty and errored
// replies store nothing and return nil.
func (p *Pipeline) After(ctx context.Context, reply llm.Reply, hc Context) error {
	return p.after(ctx, reply, hc, eventstream.TurnRequestMeta{})
}

func (p *Pipeline) after(ctx context.Context, reply llm.Reply, hc Context, meta eventstream.TurnRequestMeta) error {
	if reply.Kind != llm.ReplyText {
		p.logger.Debug("nothing to persist", "reply", reply.Kind.String(), "error", reply.Err)
		return nil
	}

	ex := memory.Exchange{
		UserID:    hc.UserID,
		SessionID: hc.SessionID,
		UserText:  hc.Query,
		AgentText: reply.Text,
	}
	if err := p.memory.Store(ctx, ex); err != nil {
		return err
	}

	p.publish(ctx, ex, meta)
	return nil
}

func (p *Pipeline) publish(ctx context.Context, ex memory.Exchange, meta eventstream.TurnRequestMeta) {
	if p.publisher == nil {
		return
	}

	event := eventstream.NewTurnPersistedEvent(
		p.source,
		eventstream.EventSession{UserID: ex.UserID, SessionID: ex.SessionID, Mode: p.mode},
		meta,
		eventstream.EventTurn{Role: "user", Text: ex.UserText},
		eventstream.EventTurn{Role: "agent", Text: ex.AgentText},
	)
	if err := p.publisher.PublishTurn(ctx, event); err != nil {
		p.logger.Warn("publishing turn event failed",
			"user_id", ex.UserID,
			"error", err,
		)
	}
}

// Exchange runs Before, the model and After once, in that order, and
// returns the reply for display. Persistence errors are logged only.
func (p *Pipeline) Exchange(ctx context.Context, model llm.Model, req *llm.ChatRequest, hc Context) llm.Reply {
	if hc.Query == "" {
		hc.Query = req.LastUserText()
	}

	mutated := p.Before(ctx, req, hc)

	started := time.Now()
	reply := p.invoke(ctx, model, mutated)
	completed := time.Now()

	if reply.Kind == llm.ReplyError {
		p.logger.Warn("model call failed",
			"user_id", hc.UserID,
			"session_id", hc.SessionID,
			"error", reply.Err,
		)
	}

	meta := eventstream.TurnRequestMeta{
		StartedAt:   started,
		CompletedAt: completed,
		DurationMs:  completed.Sub(started).Milliseconds(),
	}
	if err := p.after(ctx, reply, hc, meta); err != nil {
		p.logger.Warn("persisting exchange failed",
			"user_id", hc.UserID,
			"session_id", hc.SessionID,
			"error", err,
		)
	}

	return reply
}

func (p *Pipeline) invoke(ctx context.Context, model llm.Model, req *llm.ChatRequest) llm.Reply {
	if p.modelTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.modelTimeout)
		defer cancel()
	}

	resp, err := model.Chat(ctx, req)
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("model call timed out after %s: %w", p.modelTimeout, err)
	}
	return llm.ReplyFromResponse(resp, err)
}

// Mode reports how memory is injected.
func (p *Pipeline) Mode() string {
	return p.mode
}
