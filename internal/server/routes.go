package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/BioHazard786/Watchdrop/internal/protocol"
	"github.com/BioHazard786/Watchdrop/internal/signaling"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,

	// Peers connect from extensions and CLIs on arbitrary origins; the server
	// holds no credentials, so origin checking buys nothing here.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// NewRouter builds the HTTP surface: the websocket rendezvous endpoint and a
// health check.
func NewRouter(hub *signaling.Hub) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("rendezvous server is healthy."))
	})

	r.Get("/ws", ServeWs(hub))

	return r
}

// ServeWs returns an http.HandlerFunc that upgrades the connection and hands
// it to the hub. Each connection gets a fresh opaque connection id.
func ServeWs(hub *signaling.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("failed to upgrade connection", "error", err)
			return
		}

		client := &signaling.Client{
			Hub:  hub,
			Conn: conn,
			ID:   uuid.NewString(),
			Send: make(chan *protocol.Message, 256),
		}

		client.Hub.Register <- client

		go client.WritePump()
		go client.ReadPump()
	}
}
