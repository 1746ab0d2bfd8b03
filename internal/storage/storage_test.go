package storage

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nbox/texturelab/internal/models"
	"github.com/parquet-go/parquet-go"
)

// clock is a settable time source
type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func openAt(t *testing.T, dir string, debounce time.Duration) (*HistoryStore, *clock) {
	t.Helper()
	s, err := Open(dir, debounce)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	c := &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	s.now = c.now
	return s, c
}

func mapsWithAlbedo(data string) []models.TextureMap {
	maps := models.InitialMaps()
	maps[0].Image = []byte(data)
	return maps
}

func TestRecordCoalesces(t *testing.T) {
	s, c := openAt(t, t.TempDir(), 0)

	first := s.Record("oak", mapsWithAlbedo("v1"))
	c.t = c.t.Add(4 * time.Minute)
	second := s.Record("oak", mapsWithAlbedo("v2"))

	entries := s.List()
	if len(entries) != 1 {
		t.Fatalf("Expected 1 coalesced entry, got %d", len(entries))
	}
	if second.ID != first.ID {
		t.Error("Coalesced entry should keep its id")
	}
	if !entries[0].Timestamp.Equal(c.t) {
		t.Errorf("Expected timestamp updated to %v, got %v", c.t, entries[0].Timestamp)
	}
	if string(entries[0].Maps[0].Image) != "v2" {
		t.Errorf("Expected maps replaced, got %q", entries[0].Maps[0].Image)
	}
}

func TestRecordNewEntries(t *testing.T) {
	tests := []struct {
		name    string
		advance time.Duration
		second  string
	}{
		{"outside window", 5 * time.Minute, "oak"},
		{"different name", time.Minute, "pine"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, c := openAt(t, t.TempDir(), 0)
			s.Record("oak", mapsWithAlbedo("a"))
			c.t = c.t.Add(tt.advance)
			s.Record(tt.second, mapsWithAlbedo("b"))

			entries := s.List()
			if len(entries) != 2 {
				t.Fatalf("Expected 2 entries, got %d", len(entries))
			}
			if entries[0].Name != tt.second || string(entries[0].Maps[0].Image) != "b" {
				t.Errorf("Expected newest entry first, got %+v", entries[0].Name)
			}
		})
	}
}

func TestRecordCapsAtMax(t *testing.T) {
	s, c := openAt(t, t.TempDir(), 0)
	for i := 0; i < MaxEntries+5; i++ {
		s.Record("mat", mapsWithAlbedo("x"))
		c.t = c.t.Add(CoalesceWindow)
	}

	entries := s.List()
	if len(entries) != MaxEntries {
		t.Fatalf("Expected %d entries, got %d", MaxEntries, len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if !entries[i-1].Timestamp.After(entries[i].Timestamp) {
			t.Fatalf("Entries not most-recent-first at %d", i)
		}
	}
}

func TestRecordSnapshotIsFrozen(t *testing.T) {
	s, _ := openAt(t, t.TempDir(), 0)
	maps := mapsWithAlbedo("orig")
	s.Record("oak", maps)

	maps[0].Image[0] = 'X'
	maps[1].Status = models.StatusError

	got := s.List()[0]
	if string(got.Maps[0].Image) != "orig" || got.Maps[1].Status != models.StatusIdle {
		t.Error("History entry aliases the caller's maps")
	}
}

func TestPersistAndReopen(t *testing.T) {
	dir := t.TempDir()
	s, _ := openAt(t, dir, 0)
	entry := s.Record("oak", mapsWithAlbedo("img"))
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := Open(dir, 0)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	got, ok := reopened.Get(entry.ID)
	if !ok {
		t.Fatal("Entry not found after reopen")
	}
	if got.Name != "oak" || string(got.Maps[0].Image) != "img" {
		t.Errorf("Unexpected entry after reopen: %+v", got.Name)
	}
}

func TestDebouncedSave(t *testing.T) {
	dir := t.TempDir()
	s, c := openAt(t, dir, 30*time.Millisecond)
	defer s.Close()

	s.Record("oak", mapsWithAlbedo("1"))
	c.t = c.t.Add(time.Second)
	s.Record("oak", mapsWithAlbedo("2"))

	if _, err := os.Stat(s.Path()); !os.IsNotExist(err) {
		t.Fatal("History written before the quiet period elapsed")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		data, err := os.ReadFile(s.Path())
		if err == nil {
			var entries []models.HistoryEntry
			if err := json.Unmarshal(data, &entries); err != nil {
				t.Fatalf("Saved history is not valid JSON: %v", err)
			}
			if len(entries) != 1 || string(entries[0].Maps[0].Image) != "2" {
				t.Fatalf("Expected the latest state saved once, got %d entries", len(entries))
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("Debounced save never happened")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestFlushWritesImmediately(t *testing.T) {
	s, _ := openAt(t, t.TempDir(), time.Hour)
	s.Record("oak", mapsWithAlbedo("1"))

	if err := s.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if _, err := os.Stat(s.Path()); err != nil {
		t.Errorf("Expected history file after Flush: %v", err)
	}
	s.Close()
}

func TestOpenToleratesCorruptData(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"garbage", "{not json"},
		{"wrong shape", `{"id":"x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, HistoryFile), []byte(tt.data), 0644); err != nil {
				t.Fatal(err)
			}
			s, err := Open(dir, 0)
			if err != nil {
				t.Fatalf("Open should tolerate corrupt data, got %v", err)
			}
			if len(s.List()) != 0 {
				t.Error("Expected empty history")
			}
		})
	}
}

func TestClear(t *testing.T) {
	s, _ := openAt(t, t.TempDir(), 0)
	s.Record("oak", mapsWithAlbedo("1"))

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if len(s.List()) != 0 {
		t.Error("Expected empty history after Clear")
	}
	if _, err := os.Stat(s.Path()); !os.IsNotExist(err) {
		t.Error("Expected history file removed")
	}
	if err := s.Clear(); err != nil {
		t.Errorf("Clearing twice should succeed, got %v", err)
	}
}

func TestExportParquet(t *testing.T) {
	s, c := openAt(t, t.TempDir(), 0)
	maps := mapsWithAlbedo("abc")
	maps[2].Status = models.StatusError
	maps[2].Error = "Generation blocked by Safety filters."
	maps[2].Adjustments.OffsetX = 25
	s.Record("oak", maps)
	c.t = c.t.Add(time.Hour)
	s.Record("pine", models.InitialMaps())

	var buf bytes.Buffer
	n, err := s.ExportParquet(&buf)
	if err != nil {
		t.Fatalf("ExportParquet failed: %v", err)
	}
	if n != 12 {
		t.Fatalf("Expected 12 rows, got %d", n)
	}

	reader := parquet.NewGenericReader[OutcomeRow](bytes.NewReader(buf.Bytes()))
	defer reader.Close()

	rows := make([]OutcomeRow, 16)
	read, err := reader.Read(rows)
	if err != nil && err != io.EOF {
		t.Fatalf("Read failed: %v", err)
	}
	if read != 12 {
		t.Fatalf("Expected to read 12 rows, got %d", read)
	}

	// pine is newest, so oak's rows start at 6
	normal := rows[8]
	if normal.Name != "oak" || normal.MapID != "normal" || normal.Status != "error" || normal.OffsetX != 25 {
		t.Errorf("Unexpected normal row %+v", normal)
	}
	if albedo := rows[6]; !albedo.HasImage || albedo.ImageBytes != 3 {
		t.Errorf("Unexpected albedo row %+v", albedo)
	}
}
