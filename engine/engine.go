// Package engine runs one conversational turn: it drives the active agent's
// model, executes requested tools, performs agent handoffs and streams
// engine-native events to the caller while building the updated history.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/zentist/clinicdesk/agent"
	"github.com/zentist/clinicdesk/auth"
	"github.com/zentist/clinicdesk/core"
	"github.com/zentist/clinicdesk/logging"
	"github.com/zentist/clinicdesk/model"
)

// ErrMaxModelCalls indicates a turn exceeded its model call budget without
// producing a final answer. Guards against tool call loops.
var ErrMaxModelCalls = errors.New("engine: model call limit exceeded")

// Options tune turn execution.
type Options struct {
	// MaxModelCalls bounds model invocations per turn, handoffs included.
	MaxModelCalls int
	// Stream requests token-level deltas from backends that support them.
	Stream bool
}

// Engine executes turns against a validated agent registry.
type Engine struct {
	registry *agent.Registry
	logger   logging.Logger
	opts     Options
}

// New creates an Engine. The registry is expected to be Validate()d already.
func New(registry *agent.Registry, logger logging.Logger, optFns ...func(o *Options)) *Engine {
	opts := Options{MaxModelCalls: 10, Stream: true}
	for _, fn := range optFns {
		fn(&opts)
	}
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Engine{registry: registry, logger: logger, opts: opts}
}

// TurnRequest carries one user message plus the conversation state it applies to.
type TurnRequest struct {
	ConversationID string
	User           auth.User
	Message        string
	State          core.ConversationState
}

// TurnResult is the terminal outcome of a turn. History holds the full
// updated transcript (user message, assistant output and tool traffic
// included) and FinalAgent names the agent that should receive the next
// message. On error, History reflects progress up to the failure.
type TurnResult struct {
	History    []core.Content
	FinalAgent string
	Err        error
}

// Run executes the turn asynchronously. The event channel streams progress
// and is closed when the turn ends; the result channel then delivers exactly
// one TurnResult.
func (e *Engine) Run(ctx context.Context, req TurnRequest) (<-chan core.Event, <-chan TurnResult) {
	events := make(chan core.Event, 64)
	results := make(chan TurnResult, 1)

	go func() {
		defer close(results)
		defer close(events)
		results <- e.run(ctx, req, events)
	}()

	return events, results
}

func (e *Engine) run(ctx context.Context, req TurnRequest, events chan<- core.Event) TurnResult {
	active := e.registry.Resolve(req.State.ActiveAgent)
	if active == nil {
		return TurnResult{Err: fmt.Errorf("engine: no agent resolves for %q", req.State.ActiveAgent)}
	}
	if req.State.ActiveAgent != "" && req.State.ActiveAgent != active.Name {
		e.logger.Warn("engine.agent.fallback",
			"requested", req.State.ActiveAgent, "resolved", active.Name)
	}

	history := append(req.State.Clone().History, core.NewUserContent(req.Message))

	emit := func(ev core.Event) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case events <- ev:
			return nil
		}
	}

	for call := 0; call < e.opts.MaxModelCalls; call++ {
		final, err := e.generate(ctx, active, req, history, emit)
		if err != nil {
			return TurnResult{History: history, FinalAgent: active.Name, Err: err}
		}

		content := ensureCallIDs(final.Content)
		history = append(history, content)
		calls := content.FunctionCalls()

		if len(calls) == 0 {
			if err := emit(core.NewMessageEvent(active.Name, content)); err != nil {
				return TurnResult{History: history, FinalAgent: active.Name, Err: err}
			}
			return TurnResult{History: history, FinalAgent: active.Name}
		}

		transferTo := ""
		for _, fc := range calls {
			if err := emit(core.NewFunctionCallEvent(active.Name, fc)); err != nil {
				return TurnResult{History: history, FinalAgent: active.Name, Err: err}
			}

			tc := newToolContext(ctx, req, fc.ID, active.Name, e.logger)
			result, callErr := e.executeTool(tc, active, fc)

			ev := core.NewFunctionResponseEvent(active.Name, fc.ID, fc.Name, result, callErr)
			if err := emit(ev); err != nil {
				return TurnResult{History: history, FinalAgent: active.Name, Err: err}
			}
			history = append(history, *ev.Content)

			if target, ok := tc.TransferTarget(); ok && transferTo == "" {
				transferTo = target
			}
		}

		if transferTo != "" {
			next, ok := e.registry.Get(transferTo)
			if !ok {
				// Topology is validated at startup; tolerate anyway.
				e.logger.Error("engine.handoff.unknown_agent", "target", transferTo)
				continue
			}
			if err := emit(core.NewHandoffEvent(active.Name, transferTo)); err != nil {
				return TurnResult{History: history, FinalAgent: active.Name, Err: err}
			}
			// The receiving agent sees a transcript without tool traffic.
			history = core.WithoutToolItems(history)
			e.logger.Info("engine.handoff",
				"conversation_id", req.ConversationID, "from", active.Name, "to", next.Name)
			active = next
		}
	}

	return TurnResult{History: history, FinalAgent: active.Name, Err: ErrMaxModelCalls}
}

// generate performs one model call, forwarding text deltas as they stream and
// returning the aggregated final response. Backends that do not stream get
// their whole answer surfaced as a single delta so downstream consumers see
// text either way.
func (e *Engine) generate(
	ctx context.Context,
	active *agent.Agent,
	req TurnRequest,
	history []core.Content,
	emit func(core.Event) error,
) (model.Response, error) {
	mreq := model.Request{
		Instructions: active.Instructions.Resolve(req.User),
		Contents:     history,
		Tools:        active.ToolDefinitions(),
		Stream:       e.opts.Stream,
	}

	respCh, errCh := active.Model.Generate(ctx, mreq)

	var final *model.Response
	sawTextDelta := false
	for resp := range respCh {
		if resp.Partial {
			if delta := resp.Content.Text(); delta != "" {
				sawTextDelta = true
				if err := emit(core.NewTextDeltaEvent(active.Name, delta)); err != nil {
					return model.Response{}, err
				}
			}
			continue
		}
		r := resp
		final = &r
	}
	if err := <-errCh; err != nil {
		return model.Response{}, fmt.Errorf("engine: model call failed: %w", err)
	}
	if final == nil {
		return model.Response{}, fmt.Errorf("engine: model produced no final response")
	}

	if !sawTextDelta {
		if text := final.Content.Text(); text != "" {
			if err := emit(core.NewTextDeltaEvent(active.Name, text)); err != nil {
				return model.Response{}, err
			}
		}
	}
	return *final, nil
}

// ensureCallIDs assigns IDs to function calls that arrived without one, so
// tool responses stay correlated through history and persistence.
func ensureCallIDs(content core.Content) core.Content {
	needsID := false
	for _, p := range content.Parts {
		if fc, ok := p.(core.FunctionCallPart); ok && fc.FunctionCall.ID == "" {
			needsID = true
			break
		}
	}
	if !needsID {
		return content
	}
	parts := make([]core.Part, len(content.Parts))
	for i, p := range content.Parts {
		if fc, ok := p.(core.FunctionCallPart); ok && fc.FunctionCall.ID == "" {
			fc.FunctionCall.ID = core.NewID()
			parts[i] = fc
			continue
		}
		parts[i] = p
	}
	return core.Content{Role: content.Role, Parts: parts}
}
