package workflow

import (
	"context"
	"strings"
)

// Router picks which nodes of a Conditional run, by name.
type Router func(*State) []string

// Conditional runs the nodes its router selects, one at a time in declaration
// order. Each selected node sees the same input; outputs are joined under
// "## name" headings. With nothing selected, Previous passes through.
type Conditional struct {
	name   string
	router Router
	nodes  []Node
}

// NewConditional creates a Conditional node.
func NewConditional(name string, router Router, nodes ...Node) *Conditional {
	return &Conditional{name: name, router: router, nodes: nodes}
}

func (c *Conditional) Name() string { return c.name }

func (c *Conditional) Execute(ctx context.Context, state *State) (Result, error) {
	selected := make(map[string]bool)
	for _, name := range c.router(state) {
		selected[name] = true
	}

	input := state.Previous
	var sections []string
	for _, node := range c.nodes {
		if !selected[node.Name()] {
			state.emit(Event{Type: EventStepSkipped, Step: node.Name()})
			continue
		}
		state.Previous = input
		res, err := node.Execute(ctx, state)
		if err != nil {
			state.Previous = input
			return Result{}, asStepFailure(node.Name(), err)
		}
		sections = append(sections, "## "+node.Name()+"\n\n"+res.Content)
	}
	state.Previous = input

	if len(sections) == 0 {
		return Result{Node: c.name, Content: input}, nil
	}
	return Result{Node: c.name, Content: strings.Join(sections, "\n\n")}, nil
}

// WhenAny returns a predicate matching when the workflow input, or the previous
// output if the input is empty, contains any keyword (case-insensitive).
func WhenAny(keywords ...string) func(*State) bool {
	return func(s *State) bool {
		text := s.Input
		if text == "" {
			text = s.Previous
		}
		text = strings.ToLower(text)
		for _, kw := range keywords {
			if strings.Contains(text, strings.ToLower(kw)) {
				return true
			}
		}
		return false
	}
}

// KeywordRouter selects every node whose predicate matches.
func KeywordRouter(rules map[string]func(*State) bool) Router {
	return func(s *State) []string {
		var names []string
		for name, match := range rules {
			if match(s) {
				names = append(names, name)
			}
		}
		return names
	}
}
