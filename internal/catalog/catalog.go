// Package catalog assembles the demo workflows from agents, tools and memory.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aiox-platform/contextflow/internal/agent"
	"github.com/aiox-platform/contextflow/internal/llm"
	"github.com/aiox-platform/contextflow/internal/memory"
	"github.com/aiox-platform/contextflow/internal/tool"
	"github.com/aiox-platform/contextflow/internal/workflow"
)

// Tool names registered by NewToolRegistry.
const (
	ToolWebSearch       = "web_search"
	ToolMarketQuote     = "market_quote"
	ToolKnowledgeSearch = "knowledge_search"
)

// Deps are shared by every workflow in the catalog.
type Deps struct {
	Memory      *memory.Service
	Model       llm.Model
	Tools       *tool.Registry
	StepTimeout time.Duration
	Observer    workflow.Observer
}

// NewToolRegistry registers the standard tools. mem may be nil, in which case
// knowledge search is left out.
func NewToolRegistry(mem *memory.Service, knowledgeLimit int) *tool.Registry {
	reg := tool.NewRegistry(tool.NewWebSearch("", 0), tool.NewMarketQuote(""))
	if mem != nil {
		reg.Register(tool.NewKnowledgeSearch(mem, knowledgeLimit))
	}
	return reg
}

// Builder creates a workflow from deps.
type Builder func(Deps) (*workflow.Workflow, error)

var builders = map[string]Builder{
	"clinical":  Clinical,
	"financial": Financial,
	"legal":     Legal,
	"assistant": Assistant,
}

// Names lists the workflows Lookup knows.
func Names() []string {
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup builds the named workflow.
func Lookup(name string, d Deps) (*workflow.Workflow, error) {
	build, ok := builders[name]
	if !ok {
		return nil, fmt.Errorf("unknown workflow %q", name)
	}
	return build(d)
}

type agentSpec struct {
	name         string
	role         string
	instructions []string
	tools        []string
}

// newAgent binds an agent to mem, which may differ from d.Memory when a
// workflow overrides the short-term TTL.
func (d Deps) newAgent(spec agentSpec, mem *memory.Service) (*agent.Agent, error) {
	tools, err := d.selectTools(spec.tools)
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", spec.name, err)
	}

	a := &agent.Agent{
		AgentName:    spec.name,
		Role:         spec.role,
		Instructions: spec.instructions,
		Model:        d.Model,
		Tools:        tools,
		MemoryConfig: memory.DefaultAgentConfig(),
	}
	if mem != nil {
		a.Memory = mem
	}
	return a, nil
}

// selectTools resolves tool names. Knowledge search is optional because it
// needs a memory service; every other tool must be registered.
func (d Deps) selectTools(names []string) ([]tool.Tool, error) {
	if d.Tools == nil {
		return nil, nil
	}
	var out []tool.Tool
	for _, name := range names {
		t, ok := d.Tools.Lookup(name)
		if !ok {
			if name == ToolKnowledgeSearch {
				continue
			}
			return nil, fmt.Errorf("unknown tool %q", name)
		}
		out = append(out, t)
	}
	return out, nil
}

func (d Deps) step(name string, a workflow.Agent) *workflow.Step {
	return workflow.NewStep(name, a, d.StepTimeout)
}

// learnOutcome stores the final answer of a run for the requesting user.
func learnOutcome(mem *memory.Service) func(context.Context, workflow.RunInput, *workflow.RunResult) error {
	if mem == nil {
		return nil
	}
	return func(ctx context.Context, in workflow.RunInput, res *workflow.RunResult) error {
		meta := map[string]string{"workflow": res.Workflow}
		if in.UserID != "" {
			meta[memory.UserKey] = in.UserID
		}
		if _, err := mem.Learn(ctx, res.Content, meta); err != nil {
			return fmt.Errorf("learning %s outcome: %w", res.Workflow, err)
		}
		return nil
	}
}

func (d Deps) newWorkflow(name, description string, root workflow.Node, mem *memory.Service) *workflow.Workflow {
	obs := d.Observer
	if obs == nil {
		obs = workflow.LogObserver{}
	}
	return &workflow.Workflow{
		Name:        name,
		Description: description,
		Root:        root,
		Observer:    obs,
		OnComplete:  learnOutcome(mem),
	}
}
