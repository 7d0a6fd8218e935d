package catalog

import (
	"time"

	"github.com/aiox-platform/contextflow/internal/memory"
	"github.com/aiox-platform/contextflow/internal/workflow"
)

// LegalShortTermTTL keeps legal conversations longer than the default.
const LegalShortTermTTL = 120 * time.Second

// Legal researches case law and statutes in parallel, then drafts and reviews
// a memorandum.
func Legal(d Deps) (*workflow.Workflow, error) {
	var mem *memory.Service
	if d.Memory != nil {
		mem = d.Memory.WithShortTermTTL(LegalShortTermTTL)
	}

	specs := []agentSpec{
		{
			name:         "Case Law Researcher",
			role:         "Specialized in finding relevant case law and legal precedents.",
			instructions: []string{"Search for relevant case law, judicial opinions, and legal precedents"},
			tools:        []string{ToolWebSearch},
		},
		{
			name:         "Statutory Researcher",
			role:         "Specialized in researching statutes, regulations, and legislative history.",
			instructions: []string{"Search for applicable statutes, regulations, and legislative materials"},
			tools:        []string{ToolWebSearch},
		},
		{
			name:         "Legal Analyst",
			role:         "Analyzes legal research and synthesizes findings into coherent legal arguments.",
			instructions: []string{"Synthesize research findings into a comprehensive legal memorandum with clear arguments and citations"},
			tools:        []string{ToolKnowledgeSearch},
		},
		{
			name:         "Compliance Reviewer",
			role:         "Reviews legal documents for accuracy, completeness, and ethical compliance.",
			instructions: []string{"Review the legal memorandum for accuracy, cite-checking, and compliance with professional standards"},
		},
	}

	agents := make([]workflow.Agent, len(specs))
	for i, spec := range specs {
		a, err := d.newAgent(spec, mem)
		if err != nil {
			return nil, err
		}
		agents[i] = a
	}

	research := workflow.NewParallel("Legal Research Phase", nil,
		d.step("Research Case Law", agents[0]),
		d.step("Research Statutes", agents[1]),
	)
	root := workflow.NewSequential("Legal Research & Memorandum Pipeline",
		research,
		d.step("Legal Analysis", agents[2]),
		d.step("Compliance Review", agents[3]),
	)
	return d.newWorkflow("legal",
		"Parallel legal research followed by memorandum drafting and compliance review",
		root, mem), nil
}
