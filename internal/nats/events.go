package nats

import (
	"time"
)

// FetchTimeout is the default timeout for batch fetching messages from consumers.
const FetchTimeout = 2 * time.Second

// Stream names.
const (
	StreamKnowledge = "CONTEXTFLOW_KNOWLEDGE"
	StreamChat      = "CONTEXTFLOW_CHAT"
	StreamEvents    = "CONTEXTFLOW_EVENTS"
)

// Subject constants.
const (
	SubjectKnowledgeIngest       = "contextflow.knowledge.ingest"
	SubjectInboundMessage        = "contextflow.chat.inbound"
	SubjectOutboundMessage       = "contextflow.chat.outbound"
	SubjectWorkflowEventPrefix   = "contextflow.events.workflow" // contextflow.events.workflow.{workflow}
	SubjectWorkflowEventWildcard = SubjectWorkflowEventPrefix + ".>"
)

// KnowledgeEvent asks the ingest consumer to learn a text. ID doubles as the
// JetStream message id, so republishing the same event is deduplicated.
type KnowledgeEvent struct {
	ID          string            `json:"id"`
	UserID      string            `json:"user_id"`
	Text        string            `json:"text"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	PublishedAt time.Time         `json:"published_at"`
}

// InboundMessage is published when a chat message arrives at the XMPP component.
type InboundMessage struct {
	ID         string    `json:"id"`
	FromJID    string    `json:"from_jid"`
	ToJID      string    `json:"to_jid"`
	Body       string    `json:"body"`
	StanzaType string    `json:"stanza_type"`
	ReceivedAt time.Time `json:"received_at"`
}

// OutboundMessage is published to send a message back via XMPP.
type OutboundMessage struct {
	ID        string `json:"id"`
	ToJID     string `json:"to_jid"`
	FromJID   string `json:"from_jid"`
	Body      string `json:"body"`
	InReplyTo string `json:"in_reply_to,omitempty"`
}
