package api

import (
	"context"
	"strings"

	"github.com/gorilla/websocket"
)

// StreamEvents subscribes to the server's activity feed and hands every
// line to fn until ctx is done or the connection drops. Lines arrive in
// server order; fn runs on the stream goroutine.
func (c *Client) StreamEvents(ctx context.Context, fn func(string)) error {
	url := c.base + "/dungeon/events"
	if strings.HasPrefix(url, "https://") {
		url = "wss://" + strings.TrimPrefix(url, "https://")
	} else {
		url = "ws://" + strings.TrimPrefix(url, "http://")
	}

	dialer := websocket.Dialer{Jar: c.http.Jar}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		fn(string(msg))
	}
}
