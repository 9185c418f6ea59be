package eventsource

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"operator-verify/internal/application/port/output"
	"operator-verify/internal/domain/entity"

	"github.com/gorilla/websocket"
)

var _ output.EventEmitterPort = (*Client)(nil)

const defaultClientTimeout = 10 * time.Second

// Client emits events through the /control endpoint of a Server running in
// another process.
type Client struct {
	controlURL string
	dialer     *websocket.Dialer
	timeout    time.Duration
}

// NewClient takes the base URL of the event source (http, https, ws or wss).
func NewClient(baseURL string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse event source url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return nil, fmt.Errorf("unsupported event source scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/control"

	return &Client{
		controlURL: u.String(),
		dialer: &websocket.Dialer{
			HandshakeTimeout: defaultClientTimeout,
		},
		timeout: defaultClientTimeout,
	}, nil
}

func (c *Client) Emit(ctx context.Context, ev entity.Event) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, _, err := c.dialer.DialContext(ctx, c.controlURL, nil)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", entity.ErrEventSource, c.controlURL, err)
	}
	defer conn.Close()

	deadline, _ := ctx.Deadline()
	conn.SetWriteDeadline(deadline)
	conn.SetReadDeadline(deadline)

	if err := conn.WriteJSON(ev); err != nil {
		return fmt.Errorf("%w: send %s: %v", entity.ErrEventSource, ev.Type, err)
	}

	var reply entity.Event
	if err := conn.ReadJSON(&reply); err != nil {
		return fmt.Errorf("%w: read ack for %s: %v", entity.ErrEventSource, ev.Type, err)
	}
	if reply.Type != msgAck {
		return fmt.Errorf("%w: %s", entity.ErrEventSource, reply.Message)
	}

	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return nil
}
