// Package seed bulk-loads fixture listings into the event store.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/Shivanand-hulikatti/spotlight/internal/config"
	"github.com/Shivanand-hulikatti/spotlight/internal/model"
	"github.com/Shivanand-hulikatti/spotlight/internal/normalize"
)

//go:embed fixtures.yaml
var fixtures []byte

// Store is the subset of the event repository the seeder needs.
type Store interface {
	Exists(ctx context.Context, name, venue, date string) (bool, error)
	Create(ctx context.Context, ev model.Event) (*model.Event, error)
}

// Summary counts what a run did with each record.
type Summary struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
	Total    int `json:"total"`
}

// Load reads fixture records from path, or the built-in set when path is
// empty.
func Load(path string) ([]model.EventInput, error) {
	data := fixtures
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read fixtures: %w", err)
		}
		data = b
	}
	return Parse(data)
}

// Parse decodes a YAML list of event records.
func Parse(data []byte) ([]model.EventInput, error) {
	var records []model.EventInput
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	return records, nil
}

// Seeder inserts fixture records one at a time.
type Seeder struct {
	store  Store
	delay  time.Duration
	dryRun bool
	log    *logrus.Logger
}

// New returns a Seeder. store may be nil in dry-run mode.
func New(store Store, cfg config.SeedConfig, log *logrus.Logger) *Seeder {
	return &Seeder{store: store, delay: cfg.Delay, dryRun: cfg.DryRun, log: log}
}

// Run normalizes each record with the seed rules, skips records already
// stored under the same name, venue and date, and inserts the rest. A
// failing record is counted and logged; the run continues. Run stops early
// only when ctx is done.
func (s *Seeder) Run(ctx context.Context, records []model.EventInput) (Summary, error) {
	sum := Summary{Total: len(records)}

	for i, rec := range records {
		entry := s.log.WithFields(logrus.Fields{"n": i + 1, "name": rec.Name, "venue": rec.VenueName, "date": rec.Date})

		ev, err := normalize.NormalizeInput(rec, normalize.SeedRules)
		if err != nil {
			entry.WithError(err).Warn("rejected")
			sum.Failed++
			continue
		}

		if s.dryRun {
			entry.Info("would insert")
			continue
		}

		exists, err := s.store.Exists(ctx, ev.Name, ev.VenueName, ev.Date)
		if err != nil {
			entry.WithError(err).Error("duplicate check failed")
			sum.Failed++
			continue
		}
		if exists {
			entry.Info("skipping duplicate")
			sum.Skipped++
			continue
		}

		if _, err := s.store.Create(ctx, ev); err != nil {
			entry.WithError(err).Error("insert failed")
			sum.Failed++
		} else {
			entry.Info("inserted")
			sum.Inserted++
		}

		if err := s.pause(ctx); err != nil {
			return sum, err
		}
	}
	return sum, nil
}

func (s *Seeder) pause(ctx context.Context) error {
	if s.delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
