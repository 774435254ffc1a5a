package world

import (
	"log"
	"time"

	"geocubes.app/internal/geo"
	"geocubes.app/internal/protocol"
	"geocubes.app/internal/sim/tuning"
	"geocubes.app/internal/telemetry"
)

// Config carries the policy constants the world consults. Zero values are
// replaced with tuning defaults in New.
type Config struct {
	BroadcastMinInterval time.Duration
	DeleteRangeMeters    float64
	TelemetryMaxBytes    int
	Palette              []string
}

// ConfigFromTuning maps the yaml tuning block onto a world config.
func ConfigFromTuning(t tuning.Tuning) Config {
	return Config{
		BroadcastMinInterval: time.Duration(t.BroadcastMinIntervalMs) * time.Millisecond,
		DeleteRangeMeters:    t.DeleteRangeM,
		TelemetryMaxBytes:    t.TelemetryMaxBytes,
		Palette:              t.Palette,
	}
}

// JoinRequest registers a connection. Out receives every broadcast; Resp gets
// the initial snapshot so the transport can push it before anything else.
type JoinRequest struct {
	ID   string
	Out  chan []byte
	Resp chan []byte
}

// Envelope is one raw inbound client message. Decoding and validation happen
// inside the world loop so no handler goroutine ever touches shared state.
type Envelope struct {
	ClientID string
	Raw      []byte
}

// StateRequest is a read-only snapshot fetch for the diagnostic surface.
type StateRequest struct {
	Resp chan []byte
}

// AuditEvent is one world mutation, fanned out to the attached sinks.
type AuditEvent struct {
	At       time.Time `json:"at"`
	Kind     string    `json:"kind"`
	ClientID string    `json:"clientId"`
	BlockID  int64     `json:"blockId,omitempty"`
	Lat      float64   `json:"lat,omitempty"`
	Lon      float64   `json:"lon,omitempty"`
	Reason   string    `json:"reason,omitempty"`
}

// Audit event kinds.
const (
	EventJoin         = "join"
	EventLeave        = "leave"
	EventDrop         = "drop"
	EventDelete       = "delete"
	EventDeleteDenied = "delete_denied"
)

// EventSink receives audit events. Implementations must not block for long;
// they run on the world loop.
type EventSink interface {
	RecordEvent(AuditEvent) error
}

type clientState struct {
	ID           string
	Lat, Lon     float64
	HasFix       bool
	Yaw          float64
	ColorIdx     int
	Color        string
	LastSeen     time.Time
	DeletedCubes int
	Out          chan []byte
}

// World is the single-writer authority over the origin, the client registry
// and the block store. All state must be accessed only from the Run goroutine.
type World struct {
	cfg Config
	log *log.Logger

	origin  geo.OriginManager
	clients map[string]*clientState
	blocks  []protocol.DroppedBlock

	nextBlockID int64
	nextColor   int

	join     chan JoinRequest
	leave    chan string
	inbox    chan Envelope
	stateReq chan StateRequest
	stop     chan struct{}

	// Broadcast throttle: at most one pending timer, see markDirty.
	dirty      bool
	lastEmit   time.Time
	timer      *time.Timer
	timerArmed bool

	tel      *telemetry.Buffer
	counters *telemetry.Counters
	sinks    []EventSink

	clock func() time.Time
}

func New(cfg Config, logger *log.Logger) *World {
	d := tuning.Defaults()
	if cfg.BroadcastMinInterval <= 0 {
		cfg.BroadcastMinInterval = time.Duration(d.BroadcastMinIntervalMs) * time.Millisecond
	}
	if cfg.DeleteRangeMeters <= 0 {
		cfg.DeleteRangeMeters = d.DeleteRangeM
	}
	if cfg.TelemetryMaxBytes <= 0 {
		cfg.TelemetryMaxBytes = d.TelemetryMaxBytes
	}
	if len(cfg.Palette) == 0 {
		cfg.Palette = d.Palette
	}
	if logger == nil {
		logger = log.Default()
	}

	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}

	return &World{
		cfg:      cfg,
		log:      logger,
		clients:  make(map[string]*clientState),
		join:     make(chan JoinRequest, 16),
		leave:    make(chan string, 16),
		inbox:    make(chan Envelope, 256),
		stateReq: make(chan StateRequest, 4),
		stop:     make(chan struct{}),
		timer:    timer,
		clock:    time.Now,
	}
}

// SetTelemetry attaches the diagnostic buffer and counters. Call before Run.
func (w *World) SetTelemetry(buf *telemetry.Buffer, counters *telemetry.Counters) {
	w.tel = buf
	w.counters = counters
}

// AttachSink adds an audit sink. Call before Run.
func (w *World) AttachSink(s EventSink) {
	if s != nil {
		w.sinks = append(w.sinks, s)
	}
}

func (w *World) Join() chan<- JoinRequest      { return w.join }
func (w *World) Leave() chan<- string          { return w.leave }
func (w *World) Inbox() chan<- Envelope        { return w.inbox }
func (w *World) StateReq() chan<- StateRequest { return w.stateReq }

func (w *World) Stop() { close(w.stop) }

// Origin exposes the published origin for read-only consumers.
func (w *World) Origin() (geo.Origin, bool) { return w.origin.Get() }

func (w *World) record(ev AuditEvent) {
	for _, s := range w.sinks {
		if err := s.RecordEvent(ev); err != nil {
			w.log.Printf("audit sink: %v", err)
		}
	}
}

// sendLatest prefers fresh state over strict delivery: if the client's queue
// is full, drop the oldest message to make room for this one.
func sendLatest(ch chan []byte, b []byte) {
	if ch == nil || b == nil {
		return
	}
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
