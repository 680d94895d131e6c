package nucleus

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestTracerRendersEvents(t *testing.T) {
	events := make(chan StatusEvent, 4)
	events <- StatusEvent{Time: time.Now(), Clock: 42, Kind: StatusStart, ThreadID: 7, Name: "rx", Priority: 80}
	events <- StatusEvent{Time: time.Now(), Clock: 43, Kind: StatusSuspend, ThreadID: 7, Name: "rx", Priority: 80}
	events <- StatusEvent{Time: time.Now(), Clock: 44, Kind: StatusTimeout, ThreadID: 7, Name: "rx", Priority: 80}
	close(events)

	var out bytes.Buffer
	tr := NewTracer(&out)
	csvPath := filepath.Join(t.TempDir(), "trace.csv")
	if err := tr.EnableCSVLogging(csvPath); err != nil {
		t.Fatal(err)
	}
	if err := tr.Run(context.Background(), events); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected suspensions to be hidden, got %q", out.String())
	}
	if !strings.Contains(lines[0], "Start") || !strings.Contains(lines[1], "Timeout") {
		t.Fatalf("unexpected lines %q", lines)
	}

	f, err := os.Open(csvPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 4 {
		t.Fatalf("expected header + 3 records, got %d", len(records))
	}
	if records[3][2] != "Timeout" || records[3][4] != "rx" {
		t.Fatalf("unexpected record %v", records[3])
	}
}

func TestEmitDropsWhenFull(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TraceBuffer = 1
	nk := New(cfg)

	nk.Lock()
	nk.emit(StatusIRQ, nil)
	nk.emit(StatusIRQ, nil)
	nk.emit(StatusIRQ, nil)
	nk.Unlock()

	if nk.Dropped() != 2 {
		t.Fatalf("expected 2 dropped events, got %d", nk.Dropped())
	}
}
