package ws

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"geocubes.app/internal/sim/world"
)

// ClientIDHeader carries the opaque per-connection identifier on the
// websocket upgrade response.
const ClientIDHeader = "X-Geocubes-Client-Id"

const (
	readLimit     = 64 * 1024
	readDeadline  = 60 * time.Second
	writeDeadline = 5 * time.Second
	outQueue      = 32
)

type Server struct {
	world *world.World
	log   *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(w *world.World, logger *log.Logger) *Server {
	return &Server{
		world: w,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

// Handler runs one connection: register with the world, pump broadcasts out,
// forward raw intents in. The connection identifier is opaque and fresh per
// socket; a reconnecting client gets a new identity.
func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		// The identifier rides on the upgrade response so the client can
		// tell its own registry entry apart in snapshots.
		conn, err := s.upgrader.Upgrade(rw, r, http.Header{ClientIDHeader: []string{id}})
		if err != nil {
			return
		}
		defer conn.Close()

		out := make(chan []byte, outQueue)
		resp := make(chan []byte, 1)
		s.world.Join() <- world.JoinRequest{ID: id, Out: out, Resp: resp}
		initial := <-resp

		if initial != nil {
			_ = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := conn.WriteMessage(websocket.TextMessage, initial); err != nil {
				s.world.Leave() <- id
				return
			}
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop. Decoding and validation live in the world loop; the
		// transport only bounds message size and forwards.
		conn.SetReadLimit(readLimit)
		for {
			_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			s.world.Inbox() <- world.Envelope{ClientID: id, Raw: msg}
		}

		s.world.Leave() <- id
	}
}
