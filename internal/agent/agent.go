// Package agent runs one conversational turn: it asks the model for a decision, performs at
// most one web search on its behalf, and records the exchange in the session transcript.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/qmuntal/stateless"

	"github.com/comigor/chat-relay/internal/history"
	"github.com/comigor/chat-relay/internal/llm"
	"github.com/comigor/chat-relay/internal/logger"
	"github.com/comigor/chat-relay/internal/session"
	"github.com/comigor/chat-relay/pkg/tools"
)

// FSM States
type FSMState stateless.State

var (
	StateReceived              FSMState = "Received"
	StateAwaitingModelDecision FSMState = "AwaitingModelDecision"
	StateToolInvocation        FSMState = "ToolInvocation"
	StateAwaitingFollowUp      FSMState = "AwaitingFollowUp"
	StateDirectReply           FSMState = "DirectReply"       // terminal
	StateToolAssistedReply     FSMState = "ToolAssistedReply" // terminal
	StateFailed                FSMState = "Failed"            // terminal
)

// FSM Triggers
type FSMTrigger stateless.Trigger

var (
	TriggerSubmit        FSMTrigger = "Submit"
	TriggerModelReplied  FSMTrigger = "ModelReplied"
	TriggerToolRequested FSMTrigger = "ToolRequested"
	TriggerToolCompleted FSMTrigger = "ToolCompleted"
	TriggerFail          FSMTrigger = "Fail"
)

// Agent orchestrates a turn against a model client and a tool registry. It holds no
// per-session state and may be shared across requests.
type Agent struct {
	llmClient    llm.Client
	tools        *tools.ToolManager
	systemPrompt string
}

// New creates a new agent.
func New(llmClient llm.Client, toolManager *tools.ToolManager, systemPrompt string) *Agent {
	if toolManager == nil {
		toolManager = tools.NewToolManager()
	}
	return &Agent{
		llmClient:    llmClient,
		tools:        toolManager,
		systemPrompt: systemPrompt,
	}
}

// turn carries the working data of one HandleMessage call between FSM actions.
type turn struct {
	committed []history.Turn
	pending   []history.Turn
	call      llm.ToolCall
	reply     string
	next      FSMTrigger
	err       error
}

func (t *turn) transcript() []history.Turn {
	out := make([]history.Turn, 0, len(t.committed)+len(t.pending))
	out = append(out, t.committed...)
	return append(out, t.pending...)
}

func (t *turn) fail(err error) {
	t.err = err
	t.next = TriggerFail
}

// HandleMessage processes userText within sess and returns the model's reply. The session
// transcript is only extended when a reply is produced; on any error it is left as it was.
// Callers must serialise calls for the same session.
func (a *Agent) HandleMessage(ctx context.Context, sess *session.Session, userText string) (string, error) {
	if sess == nil {
		return "", fmt.Errorf("%w: session is required", ErrValidation)
	}
	if strings.TrimSpace(userText) == "" {
		return "", fmt.Errorf("%w: message must not be empty", ErrValidation)
	}

	log := logger.FromContext(ctx).With("session_id", sess.ID)
	t := &turn{
		committed: sess.Transcript.Turns(),
		pending:   []history.Turn{history.UserTurn(userText)},
	}

	fsm := a.newStateMachine(t)
	t.next = TriggerSubmit
	for {
		state := FSMState(fsm.MustState())
		switch state {
		case StateDirectReply, StateToolAssistedReply:
			sess.Transcript.Append(t.pending...)
			sess.Transcript.Append(history.ModelTurn(t.reply))
			log.Debug("Turn completed", "state", state, "transcript_len", sess.Transcript.Len())
			return t.reply, nil
		case StateFailed:
			log.Warn("Turn failed", "error", t.err)
			return "", t.err
		}
		if err := fsm.FireCtx(ctx, t.next); err != nil {
			return "", fmt.Errorf("agent state machine: %w", err)
		}
	}
}

func (a *Agent) newStateMachine(t *turn) *stateless.StateMachine {
	fsm := stateless.NewStateMachine(StateReceived)

	fsm.Configure(StateReceived).
		Permit(TriggerSubmit, StateAwaitingModelDecision)

	fsm.Configure(StateAwaitingModelDecision).
		OnEntry(func(ctx context.Context, _ ...any) error {
			a.decide(ctx, t)
			return nil
		}).
		Permit(TriggerModelReplied, StateDirectReply).
		Permit(TriggerToolRequested, StateToolInvocation).
		Permit(TriggerFail, StateFailed)

	fsm.Configure(StateToolInvocation).
		OnEntry(func(ctx context.Context, _ ...any) error {
			a.invokeTool(ctx, t)
			return nil
		}).
		Permit(TriggerToolCompleted, StateAwaitingFollowUp).
		Permit(TriggerFail, StateFailed)

	fsm.Configure(StateAwaitingFollowUp).
		OnEntry(func(ctx context.Context, _ ...any) error {
			a.followUp(ctx, t)
			return nil
		}).
		Permit(TriggerModelReplied, StateToolAssistedReply).
		Permit(TriggerFail, StateFailed)

	fsm.Configure(StateDirectReply)
	fsm.Configure(StateToolAssistedReply)
	fsm.Configure(StateFailed)

	return fsm
}

// decide makes the first model call with the tools declared.
func (a *Agent) decide(ctx context.Context, t *turn) {
	out, err := a.llmClient.Generate(ctx, t.transcript(), llm.Options{
		SystemInstruction: a.systemPrompt,
		Tools:             a.tools.Declarations(),
	})
	if err != nil {
		t.fail(upstream("generate", err))
		return
	}
	if out.HasToolCalls() {
		if len(out.ToolCalls) > 1 {
			logger.FromContext(ctx).Debug("Ignoring extra tool calls", "count", len(out.ToolCalls))
		}
		t.call = out.ToolCalls[0]
		t.next = TriggerToolRequested
		return
	}
	if out.Text == "" {
		t.fail(upstream("generate", errors.New("model returned neither text nor a tool call")))
		return
	}
	t.reply = out.Text
	t.next = TriggerModelReplied
}

// invokeTool runs the requested tool and stages its formatted result as a user turn.
func (a *Agent) invokeTool(ctx context.Context, t *turn) {
	tool, err := a.tools.GetTool(t.call.Name)
	if err != nil {
		t.fail(fmt.Errorf("%w: %q", ErrUnknownTool, t.call.Name))
		return
	}
	logger.FromContext(ctx).Info("Invoking tool", "tool", t.call.Name, "arguments", t.call.Arguments)
	res, err := tool.Invoke(ctx, t.call.Arguments)
	if err != nil {
		t.fail(upstream("tool "+t.call.Name, err))
		return
	}
	t.pending = append(t.pending, history.UserTurn(FormatToolResult(t.call, res)))
	t.next = TriggerToolCompleted
}

// followUp asks the model to answer using the tool result. No tools are offered, so the
// model cannot request a second search.
func (a *Agent) followUp(ctx context.Context, t *turn) {
	out, err := a.llmClient.Generate(ctx, t.transcript(), llm.Options{
		SystemInstruction: a.systemPrompt,
	})
	if err != nil {
		t.fail(upstream("follow-up", err))
		return
	}
	if out.Text == "" {
		t.fail(upstream("follow-up", errors.New("model returned no text")))
		return
	}
	t.reply = out.Text
	t.next = TriggerModelReplied
}
