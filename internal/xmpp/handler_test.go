package xmpp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gosrc.io/xmpp"
	"gosrc.io/xmpp/stanza"

	inats "github.com/aiox-platform/contextflow/internal/nats"
)

// fakeSender records sent packets. Methods other than Send are not used.
type fakeSender struct {
	xmpp.Sender
	sent []stanza.Packet
}

func (f *fakeSender) Send(p stanza.Packet) error {
	f.sent = append(f.sent, p)
	return nil
}

type inbox struct {
	msgs []inats.InboundMessage
	err  error
}

func (i *inbox) PublishInboundMessage(_ context.Context, msg inats.InboundMessage) error {
	if i.err != nil {
		return i.err
	}
	i.msgs = append(i.msgs, msg)
	return nil
}

func chat(from, to, body string) stanza.Message {
	return stanza.Message{Attrs: stanza.Attrs{From: from, To: to, Type: "chat"}, Body: body}
}

func TestExtractWorkflowName(t *testing.T) {
	tests := []struct {
		name    string
		jid     string
		want    string
		wantErr bool
	}{
		{name: "bare JID", jid: "legal@agents.contextflow.local", want: "legal"},
		{name: "with resource", jid: "clinical@agents.contextflow.local/desk", want: "clinical"},
		{name: "mixed case", jid: "Financial@agents.contextflow.local", want: "financial"},
		{name: "domain only", jid: "agents.contextflow.local", wantErr: true},
		{name: "empty JID", jid: "", wantErr: true},
		{name: "invalid characters", jid: "le.gal!@agents.contextflow.local", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractWorkflowName(tt.jid)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBareJIDAndDomain(t *testing.T) {
	assert.Equal(t, "doctor@hospital.org", BareJID("Doctor@Hospital.org/phone"))
	assert.Equal(t, "hospital.org", BareJID("hospital.org/x"))
	assert.Equal(t, "hospital.org", Domain("doctor@Hospital.org/phone"))
	assert.Equal(t, "hospital.org", Domain("hospital.org"))
}

func TestHandleMessage_PublishesKnownWorkflow(t *testing.T) {
	box := &inbox{}
	h := NewHandler(box, []string{"legal"})
	s := &fakeSender{}

	h.HandleMessage(s, chat("advocate@lawfirm.in/laptop", "legal@agents.contextflow.local", "AI copyright?"))

	require.Len(t, box.msgs, 1)
	got := box.msgs[0]
	assert.Equal(t, "advocate@lawfirm.in/laptop", got.FromJID)
	assert.Equal(t, "legal@agents.contextflow.local", got.ToJID)
	assert.Equal(t, "AI copyright?", got.Body)
	assert.NotEmpty(t, got.ID)
	assert.Empty(t, s.sent)
}

func TestHandleMessage_Rejections(t *testing.T) {
	t.Run("unknown workflow gets an error reply", func(t *testing.T) {
		box := &inbox{}
		s := &fakeSender{}
		NewHandler(box, []string{"legal"}).HandleMessage(s, chat("u@x.org", "astrology@agents.local", "hi"))
		assert.Empty(t, box.msgs)
		require.Len(t, s.sent, 1)
		assert.Contains(t, s.sent[0].(stanza.Message).Body, "Unknown workflow")
	})

	t.Run("empty body and groupchat are ignored", func(t *testing.T) {
		box := &inbox{}
		s := &fakeSender{}
		h := NewHandler(box, []string{"legal"})
		h.HandleMessage(s, chat("u@x.org", "legal@agents.local", ""))
		group := chat("room@conf.x.org", "legal@agents.local", "hi")
		group.Type = "groupchat"
		h.HandleMessage(s, group)
		assert.Empty(t, box.msgs)
		assert.Empty(t, s.sent)
	})

	t.Run("publish failure gets an error reply", func(t *testing.T) {
		box := &inbox{err: errors.New("nats down")}
		s := &fakeSender{}
		NewHandler(box, []string{"legal"}).HandleMessage(s, chat("u@x.org", "legal@agents.local", "hi"))
		require.Len(t, s.sent, 1)
		assert.Equal(t, "u@x.org", s.sent[0].(stanza.Message).To)
	})
}

func TestHandlePresence(t *testing.T) {
	h := NewHandler(&inbox{}, []string{"clinical"})

	const from = "dr@hospital.org"
	tests := []struct {
		name     string
		attrs    stanza.Attrs
		wantSent bool
		wantType string
	}{
		{"subscribe to workflow", stanza.Attrs{From: from, To: "clinical@agents.local", Type: "subscribe"}, true, "subscribed"},
		{"subscribe to unknown", stanza.Attrs{From: from, To: "astrology@agents.local", Type: "subscribe"}, true, "unsubscribed"},
		{"probe known", stanza.Attrs{From: from, To: "clinical@agents.local/x", Type: "probe"}, true, ""},
		{"probe unknown", stanza.Attrs{From: from, To: "astrology@agents.local", Type: "probe"}, false, ""},
		{"unavailable ignored", stanza.Attrs{From: from, To: "clinical@agents.local", Type: "unavailable"}, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &fakeSender{}
			pres := stanza.Presence{Attrs: tt.attrs}
			h.HandlePresence(s, pres)
			if !tt.wantSent {
				assert.Empty(t, s.sent)
				return
			}
			require.Len(t, s.sent, 1)
			reply := s.sent[0].(stanza.Presence)
			assert.Equal(t, tt.wantType, string(reply.Type))
			assert.Equal(t, from, reply.To)
		})
	}
}
