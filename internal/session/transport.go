package session

import (
	"context"
	"fmt"
	"time"

	"github.com/coder/websocket"
)

// Transport is one live connection to the backend event stream.
type Transport interface {
	// Read blocks until the next text frame or a connection error.
	Read(ctx context.Context) ([]byte, error)

	// Write sends one text frame.
	Write(ctx context.Context, data []byte) error

	// Close tears the connection down. Safe to call more than once.
	Close() error
}

// DialFunc opens a new Transport. The session owns the result.
type DialFunc func(ctx context.Context) (Transport, error)

// Landing page frames routinely exceed the library's 32 KiB default.
const wsReadLimit = 8 << 20

// Dialer returns a DialFunc for the stream endpoint, e.g.
// ws://localhost:8000/ws_stream_campaign.
func Dialer(url string) DialFunc {
	return func(ctx context.Context) (Transport, error) {
		conn, _, err := websocket.Dial(ctx, url, nil)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", url, err)
		}
		conn.SetReadLimit(wsReadLimit)
		return &wsTransport{conn: conn}, nil
	}
}

type wsTransport struct {
	conn *websocket.Conn
}

func (t *wsTransport) Read(ctx context.Context) ([]byte, error) {
	_, data, err := t.conn.Read(ctx)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (t *wsTransport) Write(ctx context.Context, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return t.conn.Write(ctx, websocket.MessageText, data)
}

func (t *wsTransport) Close() error {
	err := t.conn.Close(websocket.StatusNormalClosure, "session ended")
	if err != nil && websocket.CloseStatus(err) != -1 {
		// Peer closed first; not an error worth surfacing.
		return nil
	}
	return err
}
