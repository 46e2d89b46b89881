// Package repository implements all database queries for the events listing.
// It uses pgx directly (no ORM).
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Shivanand-hulikatti/spotlight/internal/model"
)

// DB is the subset of *pgxpool.Pool the repositories use.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// eventColumns is the projection every event query selects, in scan order.
const eventColumns = `id, name, venue_name, city, state, to_char(date, 'YYYY-MM-DD'), time, type, genre,
	description, contact_email, contact_phone, website, source, created_by, created_at, updated_at`

// EventRepository handles persistence for events.
type EventRepository struct {
	db DB
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db DB) *EventRepository {
	return &EventRepository{db: db}
}

func scanEvent(row pgx.Row) (*model.Event, error) {
	var e model.Event
	err := row.Scan(
		&e.ID, &e.Name, &e.VenueName, &e.City, &e.State, &e.Date, &e.Time, &e.Type, &e.Genre,
		&e.Description, &e.ContactEmail, &e.ContactPhone, &e.Website, &e.Source, &e.CreatedBy,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Create inserts a normalized event and returns it with a generated UUID
// and creation time.
func (r *EventRepository) Create(ctx context.Context, ev model.Event) (*model.Event, error) {
	ev.ID = uuid.New().String()
	ev.CreatedAt = time.Now().UTC()
	ev.UpdatedAt = nil

	_, err := r.db.Exec(ctx,
		`INSERT INTO events (id, name, venue_name, city, state, date, time, type, genre,
			description, contact_email, contact_phone, website, source, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		ev.ID, ev.Name, ev.VenueName, ev.City, ev.State, ev.Date, ev.Time, ev.Type, ev.Genre,
		ev.Description, ev.ContactEmail, ev.ContactPhone, ev.Website, ev.Source, ev.CreatedBy, ev.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return &ev, nil
}

// List returns the events matching f ordered by date, then insertion.
func (r *EventRepository) List(ctx context.Context, f model.ListFilter) ([]model.Event, error) {
	where, args := listConditions(f)

	q := `SELECT ` + eventColumns + ` FROM events`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, ` AND `)
	}
	q += ` ORDER BY date ASC, created_at ASC, id ASC`

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events := []model.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// listConditions translates a filter into SQL predicates with positional
// arguments. City, state and the free-text search are case-insensitive
// substring matches; type and genre are exact.
func listConditions(f model.ListFilter) ([]string, []any) {
	var where []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, strings.ReplaceAll(cond, "$?", fmt.Sprintf("$%d", len(args))))
	}

	if f.City != "" {
		add(`city ILIKE $?`, likePattern(f.City))
	}
	if f.State != "" {
		add(`state ILIKE $?`, likePattern(f.State))
	}
	if f.Type != "" {
		add(`type = $?`, f.Type)
	}
	if f.Genre != "" {
		add(`genre = $?`, f.Genre)
	}
	if f.DateFrom != "" {
		add(`date >= $?`, f.DateFrom)
	}
	if f.DateTo != "" {
		add(`date <= $?`, f.DateTo)
	}
	if f.CreatedBy != "" {
		add(`created_by = $?`, f.CreatedBy)
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		add(`(name ILIKE $? OR city ILIKE $? OR state ILIKE $? OR genre ILIKE $? OR description ILIKE $?)`, likePattern(term))
	}
	return where, args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// GetByID returns a single event or model.ErrNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	e, err := scanEvent(r.db.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// Update replaces the editable fields of an event. Ownership and creation
// metadata are left as stored.
func (r *EventRepository) Update(ctx context.Context, id string, ev model.Event) (*model.Event, error) {
	e, err := scanEvent(r.db.QueryRow(ctx,
		`UPDATE events SET name = $2, venue_name = $3, city = $4, state = $5, date = $6, time = $7,
			type = $8, genre = $9, description = $10, contact_email = $11, contact_phone = $12,
			website = $13, source = $14, updated_at = $15
		 WHERE id = $1
		 RETURNING `+eventColumns,
		id, ev.Name, ev.VenueName, ev.City, ev.State, ev.Date, ev.Time, ev.Type, ev.Genre,
		ev.Description, ev.ContactEmail, ev.ContactPhone, ev.Website, ev.Source, time.Now().UTC(),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("update event: %w", err)
	}
	return e, nil
}

// Delete removes an event or returns model.ErrNotFound.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// Exists reports whether an event with the same name, venue and date is
// already stored. The seeder uses it to skip duplicates.
func (r *EventRepository) Exists(ctx context.Context, name, venue, date string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM events WHERE name = $1 AND venue_name = $2 AND date = $3)`,
		name, venue, date,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check event exists: %w", err)
	}
	return exists, nil
}

// Stats aggregates totals by type and the ten busiest cities.
func (r *EventRepository) Stats(ctx context.Context) (*model.Stats, error) {
	stats := &model.Stats{EventsByType: map[string]int{}, TopCities: []model.CityCount{}}

	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM events`).Scan(&stats.TotalEvents); err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}

	rows, err := r.db.Query(ctx, `SELECT type, COUNT(*) FROM events GROUP BY type`)
	if err != nil {
		return nil, fmt.Errorf("count events by type: %w", err)
	}
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan type count: %w", err)
		}
		stats.EventsByType[typ] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count events by type: %w", err)
	}

	rows, err = r.db.Query(ctx,
		`SELECT city, COUNT(*) AS n FROM events GROUP BY city ORDER BY n DESC, city ASC LIMIT 10`)
	if err != nil {
		return nil, fmt.Errorf("count events by city: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var cc model.CityCount
		if err := rows.Scan(&cc.City, &cc.Count); err != nil {
			return nil, fmt.Errorf("scan city count: %w", err)
		}
		stats.TopCities = append(stats.TopCities, cc)
	}
	return stats, rows.Err()
}
