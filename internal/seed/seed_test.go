package seed

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Shivanand-hulikatti/spotlight/internal/config"
	"github.com/Shivanand-hulikatti/spotlight/internal/model"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type memStore struct {
	events    []model.Event
	failOn    string
	existsErr error
}

func (m *memStore) Exists(_ context.Context, name, venue, date string) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	for _, e := range m.events {
		if e.Name == name && e.VenueName == venue && e.Date == date {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) Create(_ context.Context, ev model.Event) (*model.Event, error) {
	if ev.Name == m.failOn {
		return nil, errors.New("insert event: connection reset")
	}
	m.events = append(m.events, ev)
	return &ev, nil
}

func TestLoad_BuiltInFixtures(t *testing.T) {
	records, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(records) != 15 {
		t.Fatalf("got %d records, want 15", len(records))
	}
	first := records[0]
	if first.Name != "Blues & Soul Open Mic Night" || first.VenueName != "The Howlin' Wolf" || first.Date != "2025-10-22" || first.Time != "19:00" {
		t.Errorf("unexpected first record %+v", first)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.yaml")
	data := "- name: Folk Night\n  venue_name: The Parish\n  city: Austin\n  state: TX\n  date: \"2025-12-01\"\n  type: Gig Night\n  genre: Folk\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	records, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(records) != 1 || records[0].City != "Austin" {
		t.Errorf("unexpected records %+v", records)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := Parse([]byte("name: [unclosed")); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestRun_InsertsThenSkipsDuplicates(t *testing.T) {
	records, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	store := &memStore{}
	s := New(store, config.SeedConfig{}, quietLogger())

	sum, err := s.Run(context.Background(), records)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum != (Summary{Inserted: 15, Total: 15}) {
		t.Errorf("first run = %+v", sum)
	}
	for _, e := range store.events {
		if e.Source != model.SourceScraper {
			t.Errorf("%s: source = %q", e.Name, e.Source)
		}
	}

	sum, err = s.Run(context.Background(), records)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum != (Summary{Skipped: 15, Total: 15}) {
		t.Errorf("second run = %+v", sum)
	}
}

func TestRun_CountsFailures(t *testing.T) {
	records := []model.EventInput{
		{Name: "  Folk Night ", VenueName: "The Parish", City: "Austin", State: "TX", Date: "2025-12-01", Type: "Gig Night", Genre: "Folk"},
		{Name: "No Venue", City: "Austin", State: "TX", Date: "2025-12-01", Type: "Gig Night", Genre: "Folk"},
		{Name: "Broken", VenueName: "Stubb's", City: "Austin", State: "TX", Date: "2025-12-02", Type: "Gig Night", Genre: "Rock"},
		{Name: "Bad Date", VenueName: "Stubb's", City: "Austin", State: "TX", Date: "2025-02-30", Type: "Gig Night", Genre: "Rock"},
	}
	store := &memStore{failOn: "Broken"}
	sum, err := New(store, config.SeedConfig{}, quietLogger()).Run(context.Background(), records)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum != (Summary{Inserted: 1, Failed: 3, Total: 4}) {
		t.Errorf("summary = %+v", sum)
	}
	if store.events[0].Name != "Folk Night" {
		t.Errorf("name not trimmed: %q", store.events[0].Name)
	}
}

func TestRun_DuplicateCheckFailure(t *testing.T) {
	records, _ := Load("")
	store := &memStore{existsErr: errors.New("timeout")}
	sum, err := New(store, config.SeedConfig{}, quietLogger()).Run(context.Background(), records[:2])
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Failed != 2 || len(store.events) != 0 {
		t.Errorf("summary = %+v, stored %d", sum, len(store.events))
	}
}

func TestRun_DryRunTouchesNothing(t *testing.T) {
	records, _ := Load("")
	sum, err := New(nil, config.SeedConfig{DryRun: true}, quietLogger()).Run(context.Background(), records)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum != (Summary{Total: 15}) {
		t.Errorf("summary = %+v", sum)
	}
}

func TestRun_StopsWhenCancelled(t *testing.T) {
	records, _ := Load("")
	ctx, cancel := context.WithCancel(context.Background())
	store := &memStore{}
	s := New(store, config.SeedConfig{Delay: time.Hour}, quietLogger())

	done := make(chan struct{})
	var sum Summary
	var err error
	go func() {
		sum, err = s.Run(ctx, records)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
	if sum.Inserted > 1 {
		t.Errorf("kept inserting after cancel: %+v", sum)
	}
}
