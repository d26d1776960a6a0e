// Package stream serves the duplex WebSocket transport: inbound user
// messages and cancels, outbound replies and the plan event stream.
package stream

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"majordomo/internal/logging"
	"majordomo/internal/plan"
	"majordomo/internal/session"
)

// Inbound message types.
const (
	inboundMessage = "message"
	inboundCancel  = "cancel"
)

// inboundFrame is what clients send.
type inboundFrame struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// replyFrame wraps a session reply for the wire.
type replyFrame struct {
	Type string `json:"type"` // "reply"
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// Conn owns one WebSocket connection. All writes go through a single
// writer goroutine; the engine's scheduler, the reader, and message
// handlers only enqueue.
type Conn struct {
	ws       *websocket.Conn
	outbound chan []byte
	done     chan struct{}

	writeTimeout time.Duration
	pingInterval time.Duration
}

func newConn(ws *websocket.Conn, writeTimeout, pingInterval time.Duration) *Conn {
	return &Conn{
		ws:           ws,
		outbound:     make(chan []byte, 64),
		done:         make(chan struct{}),
		writeTimeout: writeTimeout,
		pingInterval: pingInterval,
	}
}

// SendPlan implements engine.EventSink.
func (c *Conn) SendPlan(ev plan.Event) {
	c.enqueueJSON(ev)
}

// SendUpdate implements engine.EventSink.
func (c *Conn) SendUpdate(ev plan.UpdateEvent) {
	c.enqueueJSON(ev)
}

func (c *Conn) sendReply(r session.Reply) {
	c.enqueueJSON(replyFrame{Type: "reply", Kind: r.Kind, Text: r.Text})
}

func (c *Conn) enqueueJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.StreamError("failed to marshal outbound frame: %v", err)
		return
	}
	select {
	case c.outbound <- data:
	case <-c.done:
		// Connection is gone; events for it are dropped. The client
		// resynchronizes from sequence numbers if it reconnects.
	}
}

// writeLoop is the single writer. It drains the outbound queue and
// keeps the connection alive with pings.
func (c *Conn) writeLoop() {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()
	defer c.ws.Close()

	for {
		select {
		case data := <-c.outbound:
			c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				logging.StreamWarn("write failed: %v", err)
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// readLoop dispatches inbound frames until the connection closes.
// Each user message is handled on its own goroutine so a running plan
// never blocks an incoming cancel.
func (c *Conn) readLoop(ctx context.Context, sess *session.Session, readLimit int64) {
	defer close(c.done)

	c.ws.SetReadLimit(readLimit)
	readTimeout := 2 * c.pingInterval
	c.ws.SetReadDeadline(time.Now().Add(readTimeout))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.StreamWarn("read failed: %v", err)
			}
			sess.Cancel()
			return
		}
		c.ws.SetReadDeadline(time.Now().Add(readTimeout))

		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.sendReply(session.Reply{Kind: session.ReplyError, Text: "malformed frame"})
			continue
		}

		switch frame.Type {
		case inboundCancel:
			if sess.Cancel() {
				c.sendReply(session.Reply{Kind: session.ReplyGuard, Text: "Okay, stopping."})
			} else {
				c.sendReply(session.Reply{Kind: session.ReplyGuard, Text: "Nothing is running."})
			}
		case inboundMessage:
			go func(text string) {
				c.sendReply(sess.HandleMessage(ctx, text))
			}(frame.Text)
		default:
			c.sendReply(session.Reply{Kind: session.ReplyError, Text: "unknown frame type"})
		}
	}
}
