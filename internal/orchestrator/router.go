package orchestrator

import (
	"fmt"

	"github.com/aiox-platform/contextflow/internal/memory"
	inats "github.com/aiox-platform/contextflow/internal/nats"
	ixmpp "github.com/aiox-platform/contextflow/internal/xmpp"
)

// Route is a chat message resolved to a workflow run.
type Route struct {
	Workflow    string
	WorkflowJID string
	UserID      string
	SenderJID   string
	SessionKey  string
}

// Router resolves chat JIDs to known workflows.
type Router struct {
	known map[string]bool
}

// NewRouter creates a Router over the given workflow names.
func NewRouter(workflows []string) *Router {
	known := make(map[string]bool, len(workflows))
	for _, name := range workflows {
		known[name] = true
	}
	return &Router{known: known}
}

// Route resolves a message's ToJID to a workflow. The sender's bare JID is the
// user, and each (user, workflow) pair gets its own conversation.
func (r *Router) Route(msg inats.InboundMessage) (*Route, error) {
	name, err := ixmpp.ExtractWorkflowName(msg.ToJID)
	if err != nil {
		return nil, fmt.Errorf("extracting workflow name: %w", err)
	}
	if !r.known[name] {
		return nil, fmt.Errorf("workflow %q not found", name)
	}

	user := ixmpp.BareJID(msg.FromJID)
	if user == "" {
		return nil, fmt.Errorf("message has no sender")
	}
	return &Route{
		Workflow:    name,
		WorkflowJID: ixmpp.BareJID(msg.ToJID),
		UserID:      user,
		SenderJID:   msg.FromJID,
		SessionKey:  memory.SessionKey(user, name),
	}, nil
}
