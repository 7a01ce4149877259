package widget

import (
	"context"

	"github.com/saturnino-fabrica-de-software/parla/internal/audit"
	"github.com/saturnino-fabrica-de-software/parla/internal/ws"
)

// eventPublisher is the hub surface gate notifications need.
type eventPublisher interface {
	Publish(event ws.Event)
}

type gateEventData struct {
	Method string `json:"method,omitempty"`
}

// gateNotifier forwards audit events to the configured audit logger and
// mirrors the transitions the widget client renders live, gate engagement
// and OTP dispatch, onto the session's event channel.
type gateNotifier struct {
	inner     audit.Logger
	hub       eventPublisher
	sessionID string
}

func newGateNotifier(inner audit.Logger, hub eventPublisher, sessionID string) *gateNotifier {
	return &gateNotifier{inner: inner, hub: hub, sessionID: sessionID}
}

func (n *gateNotifier) Log(ctx context.Context, event audit.Event) {
	n.inner.Log(ctx, event)

	switch event.EventType {
	case audit.EventGateEngaged:
		n.hub.Publish(ws.Event{
			SessionID: n.sessionID,
			Type:      ws.EventGateEngaged,
			Data:      gateEventData{Method: event.Method},
		})
	case audit.EventOtpSent:
		if event.Success {
			n.hub.Publish(ws.Event{
				SessionID: n.sessionID,
				Type:      ws.EventOtpSent,
				Data:      gateEventData{Method: event.Method},
			})
		}
	}
}
