package observer

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"geocubes.app/internal/sim/world"
	"geocubes.app/internal/telemetry"
)

const stateTimeout = 2 * time.Second

// Server is the read-only diagnostic surface for operator inspection. It is
// not part of the gameplay contract and only answers loopback callers.
type Server struct {
	world    *world.World
	tel      *telemetry.Buffer
	counters *telemetry.Counters
	log      *log.Logger
}

func NewServer(w *world.World, tel *telemetry.Buffer, counters *telemetry.Counters, logger *log.Logger) *Server {
	return &Server{world: w, tel: tel, counters: counters, log: logger}
}

// StateHandler returns the current authoritative snapshot as JSON, fetched
// through the world loop so it is taken atomically.
func (s *Server) StateHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		resp := make(chan []byte, 1)
		select {
		case s.world.StateReq() <- world.StateRequest{Resp: resp}:
		case <-time.After(stateTimeout):
			http.Error(rw, "world busy", http.StatusServiceUnavailable)
			return
		}
		select {
		case b := <-resp:
			rw.Header().Set("Content-Type", "application/json")
			_, _ = rw.Write(b)
		case <-time.After(stateTimeout):
			http.Error(rw, "world busy", http.StatusServiceUnavailable)
		}
	}
}

type telemetryResponse struct {
	Counters telemetry.CountersSnapshot `json:"counters"`
	Events   []telemetry.Event          `json:"events"`
}

// TelemetryHandler returns the most recent buffered diagnostic events plus
// the running counters. ?n= bounds the number of events (default all).
func (s *Server) TelemetryHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		n := 0
		if v := r.URL.Query().Get("n"); v != "" {
			parsed, err := strconv.Atoi(v)
			if err != nil || parsed < 0 {
				http.Error(rw, "bad n", http.StatusBadRequest)
				return
			}
			n = parsed
		}

		resp := telemetryResponse{Events: []telemetry.Event{}}
		if s.counters != nil {
			resp.Counters = s.counters.Snapshot()
		}
		if s.tel != nil {
			resp.Events = s.tel.Last(n)
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
