package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	// Pure-Go SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/rlibbert/noc-analyst/internal/models"
)

// ErrTicketNotFound is returned when a ticket number does not exist.
var ErrTicketNotFound = errors.New("ticket not found")

// SystemAuthor is the work-note author used for notes the service writes
// itself (analysis summaries, escalations, rebalancing).
const SystemAuthor = "AI NOC Analyst"

const ticketSchema = `
CREATE TABLE IF NOT EXISTS tickets (
	number            TEXT PRIMARY KEY,
	category          TEXT NOT NULL,
	subcategory       TEXT NOT NULL DEFAULT '',
	priority          TEXT NOT NULL,
	state             TEXT NOT NULL,
	assigned_to       TEXT NOT NULL DEFAULT '',
	assignment_group  TEXT NOT NULL DEFAULT '',
	short_description TEXT NOT NULL,
	description       TEXT NOT NULL DEFAULT '',
	root_causes_json  TEXT NOT NULL DEFAULT '[]',
	event_id          TEXT NOT NULL DEFAULT '',
	affected_json     TEXT NOT NULL DEFAULT '[]',
	impact            TEXT NOT NULL DEFAULT '',
	urgency           TEXT NOT NULL DEFAULT '',
	created_at        TIMESTAMP NOT NULL,
	updated_at        TIMESTAMP NOT NULL,
	resolved_at       TIMESTAMP,
	sla_deadline      TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS work_notes (
	id            TEXT PRIMARY KEY,
	ticket_number TEXT NOT NULL REFERENCES tickets(number),
	author        TEXT NOT NULL,
	created_at    TIMESTAMP NOT NULL,
	text          TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tickets_state ON tickets(state);
CREATE INDEX IF NOT EXISTS idx_work_notes_ticket ON work_notes(ticket_number);
`

const ticketColumns = `number, category, subcategory, priority, state, assigned_to,
	assignment_group, short_description, description, root_causes_json, event_id,
	affected_json, impact, urgency, created_at, updated_at, resolved_at, sla_deadline`

// TicketStore persists tickets and their work notes in SQLite.
type TicketStore struct {
	db *sql.DB

	numMu   sync.Mutex
	nextNum int
}

// OpenTicketStore opens (and if needed creates) the ticket database at path
// and seeds the incident number counter from existing rows. Numbers start at
// INC0001000 and increase monotonically across restarts.
func OpenTicketStore(path string) (*TicketStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ticket db: %w", err)
	}

	// SQLite is single-writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping ticket db: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %s: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, ticketSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create ticket schema: %w", err)
	}

	var maxNum sql.NullInt64
	row := db.QueryRowContext(ctx,
		"SELECT MAX(CAST(SUBSTR(number, 4) AS INTEGER)) FROM tickets")
	if err := row.Scan(&maxNum); err != nil {
		db.Close()
		return nil, fmt.Errorf("seed number counter: %w", err)
	}
	next := 1000
	if maxNum.Valid && int(maxNum.Int64) >= next {
		next = int(maxNum.Int64) + 1
	}

	return &TicketStore{db: db, nextNum: next}, nil
}

// Close closes the database connection.
func (s *TicketStore) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for health checks.
func (s *TicketStore) DB() *sql.DB {
	return s.db
}

func (s *TicketStore) nextNumber() string {
	s.numMu.Lock()
	defer s.numMu.Unlock()
	n := s.nextNum
	s.nextNum++
	return fmt.Sprintf("INC%07d", n)
}

// Create inserts a new ticket. A ticket without a number is assigned the
// next INC number. Any work notes already attached are persisted with it.
func (s *TicketStore) Create(ctx context.Context, ticket *models.Ticket) error {
	if ticket.Number == "" {
		ticket.Number = s.nextNumber()
	}
	causesJSON, err := json.Marshal(ticket.RootCauses)
	if err != nil {
		return fmt.Errorf("marshal root causes: %w", err)
	}
	affectedJSON, err := json.Marshal(ticket.AffectedSystems)
	if err != nil {
		return fmt.Errorf("marshal affected systems: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tickets (`+ticketColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		ticket.Number, ticket.Category, ticket.Subcategory, string(ticket.Priority),
		string(ticket.State), ticket.AssignedTo, ticket.AssignmentGroup,
		ticket.ShortDescription, ticket.Description, string(causesJSON),
		ticket.EventID, string(affectedJSON), ticket.Impact, ticket.Urgency,
		ticket.CreatedAt, ticket.UpdatedAt, nullTime(ticket.ResolvedAt),
		ticket.SLADeadline,
	)
	if err != nil {
		return fmt.Errorf("insert ticket: %w", err)
	}

	for i := range ticket.WorkNotes {
		note := &ticket.WorkNotes[i]
		if note.ID == "" {
			note.ID = uuid.New().String()
		}
		if err := insertWorkNote(ctx, tx, ticket.Number, *note); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create: %w", err)
	}
	return nil
}

// Get returns the ticket with the given number, work notes included.
func (s *TicketStore) Get(ctx context.Context, number string) (*models.Ticket, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+ticketColumns+" FROM tickets WHERE number = ?", number)
	ticket, err := scanTicket(row)
	if err != nil {
		return nil, err
	}
	notes, err := s.workNotes(ctx, number)
	if err != nil {
		return nil, err
	}
	ticket.WorkNotes = notes
	return ticket, nil
}

// List returns all tickets, newest first, without work notes.
func (s *TicketStore) List(ctx context.Context) ([]models.Ticket, error) {
	return s.queryTickets(ctx,
		"SELECT "+ticketColumns+" FROM tickets ORDER BY created_at DESC, number DESC")
}

// ListOpen returns tickets in New or In Progress state, oldest first so the
// escalation sweep visits the most overdue tickets before the counter moves.
func (s *TicketStore) ListOpen(ctx context.Context) ([]models.Ticket, error) {
	return s.queryTickets(ctx, `
		SELECT `+ticketColumns+` FROM tickets
		WHERE state IN ('New', 'In Progress')
		ORDER BY created_at ASC, number ASC`)
}

// Update persists the mutable fields of an existing ticket.
func (s *TicketStore) Update(ctx context.Context, ticket *models.Ticket) error {
	causesJSON, err := json.Marshal(ticket.RootCauses)
	if err != nil {
		return fmt.Errorf("marshal root causes: %w", err)
	}
	affectedJSON, err := json.Marshal(ticket.AffectedSystems)
	if err != nil {
		return fmt.Errorf("marshal affected systems: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE tickets SET category = ?, subcategory = ?, priority = ?, state = ?,
			assigned_to = ?, assignment_group = ?, short_description = ?,
			description = ?, root_causes_json = ?, affected_json = ?,
			impact = ?, urgency = ?, updated_at = ?, resolved_at = ?,
			sla_deadline = ?
		WHERE number = ?
	`,
		ticket.Category, ticket.Subcategory, string(ticket.Priority),
		string(ticket.State), ticket.AssignedTo, ticket.AssignmentGroup,
		ticket.ShortDescription, ticket.Description, string(causesJSON),
		string(affectedJSON), ticket.Impact, ticket.Urgency, ticket.UpdatedAt,
		nullTime(ticket.ResolvedAt), ticket.SLADeadline, ticket.Number,
	)
	if err != nil {
		return fmt.Errorf("update ticket: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrTicketNotFound
	}
	return nil
}

// AddWorkNote appends a note to the ticket's work log and bumps updated_at.
func (s *TicketStore) AddWorkNote(ctx context.Context, number, author, text string) (*models.WorkNote, error) {
	note := models.WorkNote{
		ID:        uuid.New().String(),
		Author:    author,
		Timestamp: time.Now().UTC(),
		Text:      text,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin work note: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		"UPDATE tickets SET updated_at = ? WHERE number = ?", note.Timestamp, number)
	if err != nil {
		return nil, fmt.Errorf("touch ticket: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, ErrTicketNotFound
	}
	if err := insertWorkNote(ctx, tx, number, note); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit work note: %w", err)
	}
	return &note, nil
}

// Escalate applies a reassignment, a priority bump and an explanatory work
// note as one transaction so a crash never leaves a half-escalated ticket.
func (s *TicketStore) Escalate(ctx context.Context, number, assignee, group string, priority models.Priority, note string) error {
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin escalate: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE tickets SET assigned_to = ?, assignment_group = ?, priority = ?,
			updated_at = ?
		WHERE number = ?
	`, assignee, group, string(priority), now, number)
	if err != nil {
		return fmt.Errorf("escalate ticket: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrTicketNotFound
	}

	workNote := models.WorkNote{
		ID:        uuid.New().String(),
		Author:    SystemAuthor,
		Timestamp: now,
		Text:      note,
	}
	if err := insertWorkNote(ctx, tx, number, workNote); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit escalate: %w", err)
	}
	return nil
}

func (s *TicketStore) queryTickets(ctx context.Context, query string) ([]models.Ticket, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query tickets: %w", err)
	}
	defer rows.Close()

	var tickets []models.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *ticket)
	}
	return tickets, rows.Err()
}

func (s *TicketStore) workNotes(ctx context.Context, number string) ([]models.WorkNote, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, author, created_at, text FROM work_notes
		WHERE ticket_number = ? ORDER BY created_at ASC, id ASC
	`, number)
	if err != nil {
		return nil, fmt.Errorf("query work notes: %w", err)
	}
	defer rows.Close()

	var notes []models.WorkNote
	for rows.Next() {
		var n models.WorkNote
		if err := rows.Scan(&n.ID, &n.Author, &n.Timestamp, &n.Text); err != nil {
			return nil, fmt.Errorf("scan work note: %w", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

func insertWorkNote(ctx context.Context, tx *sql.Tx, number string, note models.WorkNote) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO work_notes (id, ticket_number, author, created_at, text)
		VALUES (?, ?, ?, ?, ?)
	`, note.ID, number, note.Author, note.Timestamp, note.Text)
	if err != nil {
		return fmt.Errorf("insert work note: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner) (*models.Ticket, error) {
	var (
		t            models.Ticket
		priority     string
		state        string
		causesJSON   string
		affectedJSON string
		resolvedAt   sql.NullTime
	)
	err := row.Scan(
		&t.Number, &t.Category, &t.Subcategory, &priority, &state,
		&t.AssignedTo, &t.AssignmentGroup, &t.ShortDescription, &t.Description,
		&causesJSON, &t.EventID, &affectedJSON, &t.Impact, &t.Urgency,
		&t.CreatedAt, &t.UpdatedAt, &resolvedAt, &t.SLADeadline,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan ticket: %w", err)
	}

	t.Priority = models.Priority(priority)
	t.State = models.TicketState(state)
	if err := json.Unmarshal([]byte(causesJSON), &t.RootCauses); err != nil {
		return nil, fmt.Errorf("unmarshal root causes: %w", err)
	}
	if err := json.Unmarshal([]byte(affectedJSON), &t.AffectedSystems); err != nil {
		return nil, fmt.Errorf("unmarshal affected systems: %w", err)
	}
	if resolvedAt.Valid {
		resolved := resolvedAt.Time
		t.ResolvedAt = &resolved
	}
	return &t, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
