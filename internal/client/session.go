package client

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"geocubes.app/internal/protocol"
	"geocubes.app/internal/transport/ws"
)

// Session is one live connection to a world server. A reader goroutine fans
// inbound messages out to typed channels; sends are serialized with a mutex
// so intent helpers can be called from any goroutine.
type Session struct {
	ID string

	conn    *websocket.Conn
	writeMu sync.Mutex

	snapshots chan protocol.WorldStateMsg
	results   chan protocol.DeleteResultMsg
	counters  chan protocol.MyCountersMsg
	done      chan struct{}

	closeOnce sync.Once
}

// Dial connects to a server's websocket endpoint. The server assigns the
// connection identity and returns it on the upgrade response.
func Dial(url string) (*Session, error) {
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	id := resp.Header.Get(ws.ClientIDHeader)
	if id == "" {
		conn.Close()
		return nil, fmt.Errorf("dial %s: missing %s header", url, ws.ClientIDHeader)
	}

	s := &Session{
		ID:        id,
		conn:      conn,
		snapshots: make(chan protocol.WorldStateMsg, 8),
		results:   make(chan protocol.DeleteResultMsg, 8),
		counters:  make(chan protocol.MyCountersMsg, 8),
		done:      make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

// Snapshots delivers world broadcasts. Slow consumers lose intermediate
// snapshots, never the newest; each snapshot is complete on its own.
func (s *Session) Snapshots() <-chan protocol.WorldStateMsg { return s.snapshots }

// Results delivers delete outcomes addressed to this connection.
func (s *Session) Results() <-chan protocol.DeleteResultMsg { return s.results }

// Counters delivers per-connection counter updates.
func (s *Session) Counters() <-chan protocol.MyCountersMsg { return s.counters }

// Done closes when the connection drops.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) readLoop() {
	defer close(s.done)
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(raw)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWorldState:
			var m protocol.WorldStateMsg
			if json.Unmarshal(raw, &m) == nil {
				pushLatest(s.snapshots, m)
			}
		case protocol.TypeDeleteResult:
			var m protocol.DeleteResultMsg
			if json.Unmarshal(raw, &m) == nil {
				pushLatest(s.results, m)
			}
		case protocol.TypeMyCounters:
			var m protocol.MyCountersMsg
			if json.Unmarshal(raw, &m) == nil {
				pushLatest(s.counters, m)
			}
		}
	}
}

// pushLatest drops the oldest queued item when the channel is full.
func pushLatest[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}

func (s *Session) send(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, b)
}

func (s *Session) SendGps(lat, lon float64) error {
	return s.send(protocol.GpsUpdateMsg{Type: protocol.TypeGpsUpdate, Lat: lat, Lon: lon})
}

func (s *Session) SendOrientation(yaw float64) error {
	return s.send(protocol.OrientationUpdateMsg{Type: protocol.TypeOrientationUpdate, Yaw: yaw})
}

func (s *Session) DropCube(lat, lon float64) error {
	return s.send(protocol.DropCubeMsg{Type: protocol.TypeDropCube, Lat: lat, Lon: lon})
}

func (s *Session) DeleteCube(blockID int64) error {
	return s.send(protocol.DeleteCubeMsg{Type: protocol.TypeDeleteCube, BlockID: blockID})
}

func (s *Session) ToggleColor() error {
	return s.send(protocol.ToggleColorMsg{Type: protocol.TypeToggleColor})
}

func (s *Session) SendTelemetry(kind string, data json.RawMessage) error {
	return s.send(protocol.TelemetryMsg{Type: protocol.TypeTelemetry, Kind: kind, Data: data})
}

// Close tears the connection down. Safe to call more than once.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.conn.Close()
	})
	return err
}
