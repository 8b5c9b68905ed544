package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/soyeahso/ai4cs/internal/hooks"
)

// ErrNotFound is returned when a consultation is not in the journal.
var ErrNotFound = errors.New("not found")

// Consultation is the journal summary of one session.
type Consultation struct {
	ID            string     `json:"id"`
	FirstQuestion string     `json:"firstQuestion"`
	Step          string     `json:"step"`
	Answers       int        `json:"answers"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	EndedAt       *time.Time `json:"endedAt,omitempty"`
	EndReason     string     `json:"endReason,omitempty"`
}

// Exchange is one Advance attempt. Failed attempts have Seq 0 and a
// non-empty ErrorCode.
type Exchange struct {
	ID        int64         `json:"id"`
	SessionID string        `json:"sessionId"`
	Seq       int           `json:"seq"`
	Answer    string        `json:"answer"`
	Reply     string        `json:"reply,omitempty"`
	Step      string        `json:"step,omitempty"`
	ErrorCode string        `json:"errorCode,omitempty"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
	CreatedAt time.Time     `json:"createdAt"`
	Rank      float64       `json:"rank,omitempty"` // FTS5 rank (search results only)
}

// Journal is an append-only audit log of consultations.
type Journal struct {
	db *DB
}

// NewJournal creates a journal on an open database.
func NewJournal(db *DB) *Journal {
	return &Journal{db: db}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.DateTime)
}

func parseTime(s string) time.Time {
	t, _ := time.ParseInLocation(time.DateTime, s, time.UTC)
	return t
}

// RecordStart inserts a consultation row.
func (j *Journal) RecordStart(id, firstQuestion, step string, at time.Time) error {
	ts := formatTime(at)
	_, err := j.db.sql.Exec(
		`INSERT INTO consultations (id, first_question, step, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		id, firstQuestion, step, ts, ts,
	)
	return err
}

// RecordExchange appends an exchange. Successful exchanges also move the
// consultation's step and answer count forward.
func (j *Journal) RecordExchange(ex Exchange) error {
	tx, err := j.db.sql.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	ts := formatTime(ex.CreatedAt)
	if _, err := tx.Exec(
		`INSERT INTO exchanges (session_id, seq, answer, reply, step, error_code, error, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ex.SessionID, ex.Seq, ex.Answer, ex.Reply, ex.Step, ex.ErrorCode, ex.Error,
		ex.Duration.Milliseconds(), ts,
	); err != nil {
		return fmt.Errorf("inserting exchange: %w", err)
	}

	if ex.ErrorCode == "" {
		if _, err := tx.Exec(
			`UPDATE consultations SET step = ?, answers = ?, updated_at = ? WHERE id = ?`,
			ex.Step, ex.Seq, ts, ex.SessionID,
		); err != nil {
			return fmt.Errorf("updating consultation: %w", err)
		}
	}

	return tx.Commit()
}

// RecordEnd marks a consultation as ended. Ending twice keeps the first reason.
func (j *Journal) RecordEnd(id, reason string, at time.Time) error {
	_, err := j.db.sql.Exec(
		`UPDATE consultations SET ended_at = ?, end_reason = ? WHERE id = ? AND ended_at IS NULL`,
		formatTime(at), reason, id,
	)
	return err
}

// Consultation returns one consultation summary.
func (j *Journal) Consultation(id string) (*Consultation, error) {
	row := j.db.sql.QueryRow(
		`SELECT id, first_question, step, answers, created_at, updated_at, ended_at, end_reason
		 FROM consultations WHERE id = ?`, id,
	)
	c, err := scanConsultation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

// RecentConsultations lists the newest consultations first. Limit of 0
// defaults to 20.
func (j *Journal) RecentConsultations(limit int) ([]Consultation, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.sql.Query(
		`SELECT id, first_question, step, answers, created_at, updated_at, ended_at, end_reason
		 FROM consultations ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Consultation
	for rows.Next() {
		c, err := scanConsultation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// Exchanges returns every recorded attempt for a session, oldest first.
func (j *Journal) Exchanges(sessionID string) ([]Exchange, error) {
	rows, err := j.db.sql.Query(
		`SELECT id, session_id, seq, answer, reply, step, error_code, error, duration_ms, created_at, 0
		 FROM exchanges WHERE session_id = ? ORDER BY id`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanExchanges(rows)
}

// Search finds exchanges whose answer or reply matches an FTS5 query,
// best match first. Limit of 0 defaults to 20.
func (j *Journal) Search(query string, limit int) ([]Exchange, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.sql.Query(
		`SELECT e.id, e.session_id, e.seq, e.answer, e.reply, e.step, e.error_code, e.error,
		        e.duration_ms, e.created_at, rank
		 FROM exchanges_fts
		 JOIN exchanges e ON e.id = exchanges_fts.rowid
		 WHERE exchanges_fts MATCH ?
		 ORDER BY rank
		 LIMIT ?`,
		query, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanExchanges(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConsultation(row rowScanner) (*Consultation, error) {
	var (
		c                    Consultation
		createdAt, updatedAt string
		endedAt, endReason   sql.NullString
	)
	if err := row.Scan(&c.ID, &c.FirstQuestion, &c.Step, &c.Answers, &createdAt, &updatedAt, &endedAt, &endReason); err != nil {
		return nil, err
	}
	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updatedAt)
	if endedAt.Valid {
		t := parseTime(endedAt.String)
		c.EndedAt = &t
	}
	c.EndReason = endReason.String
	return &c, nil
}

func scanExchanges(rows *sql.Rows) ([]Exchange, error) {
	var out []Exchange
	for rows.Next() {
		var (
			ex         Exchange
			durationMs int64
			createdAt  string
		)
		if err := rows.Scan(
			&ex.ID, &ex.SessionID, &ex.Seq, &ex.Answer, &ex.Reply, &ex.Step,
			&ex.ErrorCode, &ex.Error, &durationMs, &createdAt, &ex.Rank,
		); err != nil {
			return nil, err
		}
		ex.Duration = time.Duration(durationMs) * time.Millisecond
		ex.CreatedAt = parseTime(createdAt)
		out = append(out, ex)
	}
	return out, rows.Err()
}

// Attach subscribes the journal to consultation lifecycle events. Write
// failures are logged and never reach the consultation.
func (j *Journal) Attach(m *hooks.Manager) {
	const name = "journal"

	m.On(hooks.EventSessionStart, name, func(_ context.Context, p hooks.Payload) error {
		return j.RecordStart(p.SessionID, str(p.Data, "question"), str(p.Data, "step"), time.Now())
	})
	m.On(hooks.EventAfterAdvance, name, func(_ context.Context, p hooks.Payload) error {
		return j.RecordExchange(Exchange{
			SessionID: p.SessionID,
			Seq:       num(p.Data, "seq"),
			Answer:    str(p.Data, "answer"),
			Reply:     str(p.Data, "reply"),
			Step:      str(p.Data, "step"),
			Duration:  time.Duration(num(p.Data, "durationMs")) * time.Millisecond,
		})
	})
	m.On(hooks.EventAdvanceFailed, name, func(_ context.Context, p hooks.Payload) error {
		code := str(p.Data, "kind")
		if code == "" {
			code = "internal_error"
		}
		return j.RecordExchange(Exchange{
			SessionID: p.SessionID,
			Answer:    str(p.Data, "answer"),
			ErrorCode: code,
			Error:     str(p.Data, "error"),
			Duration:  time.Duration(num(p.Data, "durationMs")) * time.Millisecond,
		})
	})
	m.On(hooks.EventSessionEnd, name, func(_ context.Context, p hooks.Payload) error {
		return j.RecordEnd(p.SessionID, str(p.Data, "reason"), time.Now())
	})
}

func str(data map[string]any, key string) string {
	s, _ := data[key].(string)
	return s
}

func num(data map[string]any, key string) int {
	switch v := data[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
