package store

import (
	"database/sql"
	"time"
)

// EventKind is the kind of pointer event recorded.
type EventKind string

const (
	// EventDown is a pinch press.
	EventDown EventKind = "down"
	// EventUp is a pinch release.
	EventUp EventKind = "up"
	// EventRelease is a button release forced by the hand leaving view or
	// by detection stopping while pinched.
	EventRelease EventKind = "release"
)

// Event is a button transition emitted during a session.
type Event struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Kind      EventKind `json:"kind"`
	X         int       `json:"x"`
	Y         int       `json:"y"`
	Distance  float64   `json:"distance"`
	At        time.Time `json:"at"`
}

// EventRepository provides access to pointer events.
type EventRepository struct {
	db *sql.DB
}

// Events returns the event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Append records an event and sets its ID.
func (r *EventRepository) Append(e *Event) error {
	result, err := r.db.Exec(
		`INSERT INTO pointer_events (session_id, kind, x, y, distance, at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.SessionID, string(e.Kind), e.X, e.Y, e.Distance, e.At,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = id
	return nil
}

// ListBySession returns a session's events in the order they happened.
func (r *EventRepository) ListBySession(sessionID string) ([]*Event, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, kind, x, y, distance, at
		 FROM pointer_events WHERE session_id = ? ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e := &Event{}
		var kind string
		if err := rows.Scan(&e.ID, &e.SessionID, &kind, &e.X, &e.Y, &e.Distance, &e.At); err != nil {
			return nil, err
		}
		e.Kind = EventKind(kind)
		events = append(events, e)
	}

	return events, rows.Err()
}

// CountBySession returns how many events a session recorded.
func (r *EventRepository) CountBySession(sessionID string) (int, error) {
	var n int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM pointer_events WHERE session_id = ?`,
		sessionID,
	).Scan(&n)
	return n, err
}
