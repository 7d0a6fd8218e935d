package xmpp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"gosrc.io/xmpp"

	"github.com/aiox-platform/contextflow/internal/config"
)

// Component manages the XMPP external component lifecycle (XEP-0114). The
// component domain hosts one chat contact per workflow.
type Component struct {
	sm        *xmpp.StreamManager
	comp      *xmpp.Component
	cancel    context.CancelFunc
	connected atomic.Bool
}

// NewComponent creates a new XMPP component with the given handler.
func NewComponent(cfg config.XMPPConfig, handler *Handler) (*Component, error) {
	router := xmpp.NewRouter()
	router.HandleFunc("message", handler.HandleMessage)
	router.HandleFunc("presence", handler.HandlePresence)
	router.HandleFunc("iq", handler.HandleIQ)

	comp, err := xmpp.NewComponent(xmpp.ComponentOptions{
		TransportConfiguration: xmpp.TransportConfiguration{
			Address: cfg.ComponentAddr(),
			Domain:  cfg.ComponentName,
		},
		Domain:   cfg.ComponentName,
		Secret:   cfg.ComponentSecret,
		Name:     "ContextFlow Workflow Gateway",
		Category: "gateway",
		Type:     "service",
	}, router, func(err error) {
		slog.Error("XMPP component error", "error", err)
	})
	if err != nil {
		return nil, err
	}

	c := &Component{comp: comp}
	c.sm = xmpp.NewStreamManager(comp, func(s xmpp.Sender) {
		c.connected.Store(true)
		slog.Info("XMPP component connected", "domain", cfg.ComponentName)
	})
	return c, nil
}

// Start runs the XMPP component. It blocks until the context is cancelled or an error occurs.
func (c *Component) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- c.sm.Run()
	}()

	defer c.connected.Store(false)
	select {
	case <-ctx.Done():
		c.sm.Stop()
		return nil
	case err := <-errCh:
		return fmt.Errorf("xmpp component: %w", err)
	}
}

// Ping reports whether the component has an open stream to the server.
func (c *Component) Ping(context.Context) error {
	if !c.connected.Load() {
		return errors.New("xmpp component not connected")
	}
	return nil
}

// Sender returns the underlying component for sending stanzas.
func (c *Component) Sender() xmpp.Sender {
	return c.comp
}

// Stop disconnects the XMPP component.
func (c *Component) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.sm.Stop()
}
