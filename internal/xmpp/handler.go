package xmpp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"gosrc.io/xmpp"
	"gosrc.io/xmpp/stanza"

	inats "github.com/aiox-platform/contextflow/internal/nats"
)

// InboundPublisher queues chat messages for the orchestrator.
type InboundPublisher interface {
	PublishInboundMessage(ctx context.Context, msg inats.InboundMessage) error
}

// Handler processes incoming XMPP stanzas and bridges chat messages to NATS.
// Each workflow is a contact under the component domain, e.g. legal@agents.example.
type Handler struct {
	publisher InboundPublisher
	workflows map[string]bool
}

// NewHandler creates a new XMPP stanza handler for the named workflows.
func NewHandler(publisher InboundPublisher, workflows []string) *Handler {
	known := make(map[string]bool, len(workflows))
	for _, name := range workflows {
		known[name] = true
	}
	return &Handler{publisher: publisher, workflows: known}
}

func (h *Handler) knows(jid string) bool {
	name, err := ExtractWorkflowName(jid)
	return err == nil && h.workflows[name]
}

// HandleMessage processes incoming <message> stanzas and publishes them to NATS.
func (h *Handler) HandleMessage(s xmpp.Sender, p stanza.Packet) {
	msg, ok := p.(stanza.Message)
	if !ok {
		return
	}

	if msg.Body == "" || msg.Type == "error" || msg.Type == "groupchat" {
		return
	}
	if !h.knows(msg.To) {
		h.sendError(s, msg.From, msg.To, "Unknown workflow. Write to clinical, financial, legal or assistant.")
		return
	}

	slog.Debug("XMPP message received",
		"from", msg.From,
		"to", msg.To,
		"type", string(msg.Type),
	)

	inbound := inats.InboundMessage{
		ID:         uuid.New().String(),
		FromJID:    msg.From,
		ToJID:      msg.To,
		Body:       msg.Body,
		StanzaType: string(msg.Type),
		ReceivedAt: time.Now().UTC(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := h.publisher.PublishInboundMessage(ctx, inbound); err != nil {
		slog.Error("publishing inbound message", "error", err, "from", msg.From)
		h.sendError(s, msg.From, msg.To, "Internal error processing your message")
		return
	}
}

// HandlePresence approves subscriptions to known workflows and refuses the rest.
func (h *Handler) HandlePresence(s xmpp.Sender, p stanza.Packet) {
	pres, ok := p.(stanza.Presence)
	if !ok {
		return
	}

	slog.Debug("XMPP presence received",
		"from", pres.From,
		"to", pres.To,
		"type", string(pres.Type),
	)

	reply := stanza.Presence{
		Attrs: stanza.Attrs{
			From: BareJID(pres.To),
			To:   pres.From,
		},
	}
	switch pres.Type {
	case "subscribe":
		reply.Type = "unsubscribed"
		if h.knows(pres.To) {
			reply.Type = "subscribed"
		}
	case "probe":
		if !h.knows(pres.To) {
			return
		}
		// an empty type means available
	default:
		return
	}

	if err := s.Send(reply); err != nil {
		slog.Error("sending presence reply", "error", err, "type", string(reply.Type))
	}
}

// HandleIQ processes incoming <iq> stanzas.
func (h *Handler) HandleIQ(_ xmpp.Sender, p stanza.Packet) {
	iq, ok := p.(*stanza.IQ)
	if !ok {
		return
	}
	slog.Debug("XMPP IQ received", "from", iq.From, "to", iq.To, "type", string(iq.Type))
}

// SendOutboundMessage sends a <message> stanza via XMPP.
func (h *Handler) SendOutboundMessage(s xmpp.Sender, outbound inats.OutboundMessage) error {
	msg := stanza.Message{
		Attrs: stanza.Attrs{
			From: outbound.FromJID,
			To:   outbound.ToJID,
			Type: "chat",
			Id:   outbound.ID,
		},
		Body: outbound.Body,
	}
	return s.Send(msg)
}

func (h *Handler) sendError(s xmpp.Sender, to, from, body string) {
	msg := stanza.Message{
		Attrs: stanza.Attrs{
			From: from,
			To:   to,
			Type: "chat",
		},
		Body: body,
	}
	if err := s.Send(msg); err != nil {
		slog.Error("sending error message", "error", err)
	}
}

// splitJID returns the local and domain parts of a JID, without resource.
func splitJID(jid string) (local, domain string) {
	bare := jid
	if idx := strings.Index(jid, "/"); idx >= 0 {
		bare = jid[:idx]
	}
	if idx := strings.Index(bare, "@"); idx >= 0 {
		return bare[:idx], bare[idx+1:]
	}
	return "", bare
}

// BareJID strips the resource from a JID and lowercases it.
func BareJID(jid string) string {
	local, domain := splitJID(jid)
	if local == "" {
		return strings.ToLower(domain)
	}
	return strings.ToLower(local + "@" + domain)
}

// Domain returns the domain part of a JID.
func Domain(jid string) string {
	_, domain := splitJID(jid)
	return strings.ToLower(domain)
}

// ExtractWorkflowName reads the workflow a chat is addressed to from a JID
// like "legal@agents.domain".
func ExtractWorkflowName(jid string) (string, error) {
	local, _ := splitJID(jid)
	local = strings.ToLower(strings.TrimSpace(local))
	if local == "" {
		return "", fmt.Errorf("JID %q has no workflow local part", jid)
	}
	for _, r := range local {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' && r != '_' {
			return "", fmt.Errorf("JID %q has an invalid workflow name", jid)
		}
	}
	return local, nil
}
