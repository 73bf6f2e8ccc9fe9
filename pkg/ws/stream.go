package ws

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	pingInterval   = 10 * time.Second
	writeWait      = 5 * time.Second
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// runStream dials url, sends the subscribe payload and feeds every frame
// to handle until the connection drops or ctx is cancelled. It reconnects
// with doubling backoff and resets the backoff after a healthy session.
func runStream(ctx context.Context, url string, subscribe interface{}, handle func([]byte) error, log *zap.Logger) {
	backoff := initialBackoff
	for {
		if ctx.Err() != nil {
			return
		}

		start := time.Now()
		err := pump(ctx, url, subscribe, handle)
		if ctx.Err() != nil {
			return
		}

		if time.Since(start) > time.Minute {
			backoff = initialBackoff
		}
		log.Warn("stream disconnected, reconnecting",
			zap.String("url", url), zap.Duration("backoff", backoff), zap.Error(err))

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff *= 2; backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func pump(ctx context.Context, url string, subscribe interface{}, handle func([]byte) error) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(subscribe); err != nil {
		return err
	}

	// The server drops quiet connections, so keep a PING ticker going.
	// It also unblocks the reader on ctx cancel by closing the conn.
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.TextMessage, []byte("PING")); err != nil {
					return
				}
			case <-ctx.Done():
				conn.Close()
				return
			case <-done:
				return
			}
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if err := handle(raw); err != nil {
			return err
		}
	}
}
