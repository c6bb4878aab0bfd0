// Package websocket streams realtime hub messages to WebSocket clients.
package websocket

import (
	"net/http"
	"time"

	gorillaws "github.com/gorilla/websocket"

	"github.com/ViniciusResende/PerguntaUFMG/realtime"
)

const (
	writeWait  = 5 * time.Second
	pingPeriod = 30 * time.Second
	bufferSize = 256
)

// Option tunes the handler.
type Option func(*gorillaws.Upgrader)

// WithOriginCheck replaces the default allow-all origin check.
func WithOriginCheck(fn func(r *http.Request) bool) Option {
	return func(u *gorillaws.Upgrader) { u.CheckOrigin = fn }
}

// Handler upgrades to WebSocket and streams hub messages as JSON text frames
// until the client goes away.
func Handler(hub *realtime.Hub, opts ...Option) http.Handler {
	upgrader := gorillaws.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	for _, o := range opts {
		o(&upgrader)
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		id, ch := hub.Subscribe(bufferSize)
		defer hub.Unsubscribe(id)

		// Client frames are ignored; reading detects the close.
		gone := make(chan struct{})
		go func() {
			defer close(gone)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ping := time.NewTicker(pingPeriod)
		defer ping.Stop()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(gorillaws.TextMessage, realtime.MarshalJSON(msg)); err != nil {
					return
				}
			case <-ping.C:
				if err := conn.WriteControl(gorillaws.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					return
				}
			case <-gone:
				return
			case <-r.Context().Done():
				return
			}
		}
	})
}
