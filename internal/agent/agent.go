// Package agent runs a chat model with memory context and tool results.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aiox-platform/contextflow/internal/llm"
	"github.com/aiox-platform/contextflow/internal/memory"
	"github.com/aiox-platform/contextflow/internal/tool"
	"github.com/aiox-platform/contextflow/internal/workflow"
)

// Memory is the part of the memory service an agent uses.
type Memory interface {
	BuildContext(ctx context.Context, sessionKey, query string, cfg memory.AgentConfig, filter memory.Filter) (*memory.ContextPayload, error)
	RememberTurn(ctx context.Context, sessionKey, role, content string) error
	Learn(ctx context.Context, text string, metadata map[string]string) (string, error)
}

// Agent answers one prompt per Run. It implements workflow.Agent.
type Agent struct {
	AgentName    string
	Role         string
	Instructions []string
	Model        llm.Model
	Tools        []tool.Tool
	// Memory is optional; nil disables context and turn recording.
	Memory       Memory
	MemoryConfig memory.AgentConfig
	// LearnResponses stores every answer in long-term memory.
	LearnResponses bool
}

var _ workflow.Agent = (*Agent)(nil)

func (a *Agent) Name() string { return a.AgentName }

// Run builds context, calls tools, generates an answer and records the turn.
// Memory and tool failures degrade the answer; only a model failure is an error.
func (a *Agent) Run(ctx context.Context, req workflow.Request) (string, error) {
	payload := &memory.ContextPayload{}
	if a.Memory != nil {
		var err error
		payload, err = a.Memory.BuildContext(ctx, req.SessionKey, req.Prompt, a.MemoryConfig, a.filter(req))
		if err != nil {
			slog.Warn("agent: building memory context", "agent", a.AgentName, "error", err)
			payload = &memory.ContextPayload{}
		}
	}

	toolNotes := a.runTools(ctx, req)

	messages := make([]llm.Message, 0, len(payload.RecentTurns)+1)
	for _, turn := range payload.RecentTurns {
		switch turn.Role {
		case llm.RoleUser, llm.RoleAssistant:
			messages = append(messages, llm.Message{Role: turn.Role, Content: turn.Content})
		}
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: req.Prompt})

	resp, err := a.Model.Generate(ctx, llm.Request{
		System:   a.systemPrompt(payload, toolNotes),
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("agent %s: %w", a.AgentName, err)
	}

	a.record(ctx, req, resp.Content)
	return resp.Content, nil
}

func (a *Agent) filter(req workflow.Request) memory.Filter {
	if !a.MemoryConfig.ScopeToUser || req.UserID == "" {
		return nil
	}
	return memory.Filter{memory.UserKey: req.UserID}
}

type toolNote struct {
	name   string
	output string
}

func (a *Agent) runTools(ctx context.Context, req workflow.Request) []toolNote {
	query := req.Input
	if query == "" {
		query = req.Prompt
	}

	notes := make([]toolNote, 0, len(a.Tools))
	for _, t := range a.Tools {
		out, err := t.Invoke(ctx, tool.Input{Query: query, UserID: req.UserID})
		if err != nil {
			slog.Warn("agent: tool failed", "agent", a.AgentName, "tool", t.Name(), "error", err)
			out = "tool unavailable: " + err.Error()
		}
		notes = append(notes, toolNote{name: t.Name(), output: out})
	}
	return notes
}

func (a *Agent) systemPrompt(payload *memory.ContextPayload, notes []toolNote) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s.", a.AgentName)
	if a.Role != "" {
		b.WriteString(" ")
		b.WriteString(a.Role)
	}

	if len(a.Instructions) > 0 {
		b.WriteString("\n\n<instructions>\n")
		for _, ins := range a.Instructions {
			b.WriteString("- ")
			b.WriteString(ins)
			b.WriteString("\n")
		}
		b.WriteString("</instructions>")
	}

	if len(payload.RelevantMemories) > 0 {
		b.WriteString("\n\n<memories_from_previous_interactions>\n")
		for _, m := range payload.RelevantMemories {
			fmt.Fprintf(&b, "- %s\n", m.Content)
		}
		b.WriteString("</memories_from_previous_interactions>")
	}

	for _, n := range notes {
		fmt.Fprintf(&b, "\n\n<tool_result name=%q>\n%s\n</tool_result>", n.name, n.output)
	}
	return b.String()
}

func (a *Agent) record(ctx context.Context, req workflow.Request, answer string) {
	if a.Memory == nil || !a.MemoryConfig.Enabled {
		return
	}

	if a.MemoryConfig.ShortTermEnabled && req.SessionKey != "" {
		if err := a.Memory.RememberTurn(ctx, req.SessionKey, llm.RoleUser, req.Prompt); err != nil {
			slog.Warn("agent: storing user turn", "agent", a.AgentName, "error", err)
		} else if err := a.Memory.RememberTurn(ctx, req.SessionKey, llm.RoleAssistant, answer); err != nil {
			slog.Warn("agent: storing assistant turn", "agent", a.AgentName, "error", err)
		}
	}

	if a.LearnResponses && a.MemoryConfig.LongTermEnabled {
		meta := map[string]string{"agent": a.AgentName}
		if req.UserID != "" {
			meta[memory.UserKey] = req.UserID
		}
		if _, err := a.Memory.Learn(ctx, answer, meta); err != nil {
			slog.Warn("agent: learning response", "agent", a.AgentName, "error", err)
		}
	}
}
