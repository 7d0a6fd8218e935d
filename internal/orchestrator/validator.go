package orchestrator

import (
	"fmt"
	"strings"

	ixmpp "github.com/aiox-platform/contextflow/internal/xmpp"
)

// MaxMessageLength caps chat input handed to a workflow.
const MaxMessageLength = 8000

// Validator checks whether a routed chat message may start a workflow.
type Validator struct {
	allowedDomains []string
}

// NewValidator creates a Validator. An empty domain list allows every sender.
func NewValidator(allowedDomains []string) *Validator {
	return &Validator{allowedDomains: allowedDomains}
}

// Validate checks the sender's domain and the message body.
func (v *Validator) Validate(route *Route, body string) error {
	if route.Workflow == "" {
		return fmt.Errorf("workflow not resolved")
	}
	if strings.TrimSpace(body) == "" {
		return fmt.Errorf("empty message")
	}
	if len(body) > MaxMessageLength {
		return fmt.Errorf("message exceeds %d bytes", MaxMessageLength)
	}

	if len(v.allowedDomains) > 0 {
		domain := ixmpp.Domain(route.SenderJID)
		if !domainAllowed(domain, v.allowedDomains) {
			return fmt.Errorf("sender domain %q not in allowed domains", domain)
		}
	}
	return nil
}

func domainAllowed(domain string, allowed []string) bool {
	for _, d := range allowed {
		if strings.EqualFold(d, domain) {
			return true
		}
	}
	return false
}
