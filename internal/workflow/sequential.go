package workflow

import "context"

// Sequential runs nodes in order, feeding each output to the next node as
// state.Previous. The first failure stops the run and no partial result is returned.
type Sequential struct {
	name  string
	nodes []Node
}

// NewSequential creates a Sequential node.
func NewSequential(name string, nodes ...Node) *Sequential {
	return &Sequential{name: name, nodes: nodes}
}

func (s *Sequential) Name() string { return s.name }

func (s *Sequential) Execute(ctx context.Context, state *State) (Result, error) {
	last := Result{Node: s.name, Content: state.Previous}
	for _, node := range s.nodes {
		if err := ctx.Err(); err != nil {
			return Result{}, asStepFailure(node.Name(), err)
		}
		res, err := node.Execute(ctx, state)
		if err != nil {
			return Result{}, asStepFailure(node.Name(), err)
		}
		state.Previous = res.Content
		last = res
	}
	return Result{Node: s.name, Content: last.Content}, nil
}
