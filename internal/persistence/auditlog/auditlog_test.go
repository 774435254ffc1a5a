package auditlog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"

	"geocubes.app/internal/sim/world"
)

func TestWriteAndReadBack(t *testing.T) {
	dir := t.TempDir()
	w := New(dir)

	events := []world.AuditEvent{
		{At: time.Now(), Kind: world.EventJoin, ClientID: "c1"},
		{At: time.Now(), Kind: world.EventDrop, ClientID: "c1", BlockID: 1, Lat: 40.0, Lon: -75.0},
		{At: time.Now(), Kind: world.EventDeleteDenied, ClientID: "c2", BlockID: 1, Reason: "too_far"},
	}
	for _, ev := range events {
		if err := w.RecordEvent(ev); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "audit-*.jsonl.zst"))
	if err != nil || len(matches) == 0 {
		t.Fatalf("no audit file written: %v %v", matches, err)
	}

	f, err := os.Open(matches[0])
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	defer dec.Close()

	var got []world.AuditEvent
	sc := bufio.NewScanner(dec.IOReadCloser())
	for sc.Scan() {
		var ev world.AuditEvent
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			t.Fatalf("line: %v", err)
		}
		got = append(got, ev)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}

	if len(got) != len(events) {
		t.Fatalf("read %d events, want %d", len(got), len(events))
	}
	if got[1].Kind != world.EventDrop || got[1].BlockID != 1 || got[1].Lat != 40.0 {
		t.Fatalf("drop event mangled: %+v", got[1])
	}
	if got[2].Reason != "too_far" {
		t.Fatalf("denied event mangled: %+v", got[2])
	}
}
