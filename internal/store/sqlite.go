package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on a single SQLite file.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (creating if needed) the database at path and
// ensures the schema exists.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping sqlite: %w", err)
	}

	s := newSQLiteStoreWithDB(db)
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: initialize schema: %w", err)
	}
	return s, nil
}

func newSQLiteStoreWithDB(db *sql.DB) *SQLiteStore {
	if db == nil {
		panic("store: sql db required")
	}
	return &SQLiteStore{db: db, now: time.Now}
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS conversations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		role TEXT NOT NULL,
		message TEXT NOT NULL,
		timestamp INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_conversations_user ON conversations(user_id, timestamp);

	CREATE TABLE IF NOT EXISTS sessions (
		user_id TEXT PRIMARY KEY,
		slot_esperado TEXT,
		agendamento_temp TEXT
	);

	CREATE TABLE IF NOT EXISTS agendamentos (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		nome TEXT NOT NULL,
		email TEXT,
		telefone TEXT,
		data TEXT,
		hora TEXT,
		timestamp INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_agendamentos_data ON agendamentos(data);
	`
	_, err := s.db.ExecContext(ctx, query)
	return err
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) AppendTurn(ctx context.Context, userID string, role Role, text string) error {
	if err := role.validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (user_id, role, message, timestamp) VALUES (?, ?, ?, ?)`,
		userID, string(role), text, s.now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("store: append turn: %w", err)
	}
	return nil
}

func (s *SQLiteStore) History(ctx context.Context, userID string) ([]Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, role, message, timestamp FROM conversations WHERE user_id = ? ORDER BY id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: query history: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var (
			turn Turn
			role string
			ts   int64
		)
		if err := rows.Scan(&turn.ID, &role, &turn.Text, &ts); err != nil {
			return nil, fmt.Errorf("store: scan turn: %w", err)
		}
		turn.UserID = userID
		turn.Role = Role(role)
		turn.CreatedAt = time.Unix(0, ts).UTC()
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate history: %w", err)
	}
	return turns, nil
}

func (s *SQLiteStore) Session(ctx context.Context, userID string) (SessionRecord, error) {
	var expected, pending sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT slot_esperado, agendamento_temp FROM sessions WHERE user_id = ?`,
		userID,
	).Scan(&expected, &pending)
	if errors.Is(err, sql.ErrNoRows) {
		return SessionRecord{}, nil
	}
	if err != nil {
		return SessionRecord{}, fmt.Errorf("store: load session: %w", err)
	}

	rec := SessionRecord{ExpectedSlot: expected.String}
	if pending.Valid && pending.String != "" {
		rec.PendingBooking = []byte(pending.String)
	}
	return rec, nil
}

func (s *SQLiteStore) PutSession(ctx context.Context, userID string, rec SessionRecord) error {
	var pending any
	if len(rec.PendingBooking) > 0 {
		pending = string(rec.PendingBooking)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (user_id, slot_esperado, agendamento_temp)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			slot_esperado = excluded.slot_esperado,
			agendamento_temp = excluded.agendamento_temp`,
		userID, nullIfEmpty(rec.ExpectedSlot), pending,
	)
	if err != nil {
		return fmt.Errorf("store: save session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) InsertAppointment(ctx context.Context, appt NewAppointment) (int64, error) {
	if err := validateAppointment(appt); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO agendamentos (nome, email, telefone, data, hora, timestamp) VALUES (?, ?, ?, ?, ?, ?)`,
		appt.Name, nullIfEmpty(appt.Email), nullIfEmpty(appt.Phone), appt.Date, appt.Time, s.now().UnixNano(),
	)
	if err != nil {
		return 0, fmt.Errorf("store: insert appointment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: appointment id: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) BookedTimes(ctx context.Context, date string) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT hora FROM agendamentos WHERE data = ?`, date)
	if err != nil {
		return nil, fmt.Errorf("store: query booked times: %w", err)
	}
	defer rows.Close()

	booked := make(map[string]struct{})
	for rows.Next() {
		var hora sql.NullString
		if err := rows.Scan(&hora); err != nil {
			return nil, fmt.Errorf("store: scan booked time: %w", err)
		}
		if hora.Valid {
			booked[hora.String] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate booked times: %w", err)
	}
	return booked, nil
}

func (s *SQLiteStore) ListAppointments(ctx context.Context) ([]Appointment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, nome, email, telefone, data, hora, timestamp FROM agendamentos ORDER BY timestamp DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("store: query appointments: %w", err)
	}
	defer rows.Close()

	appts := []Appointment{}
	for rows.Next() {
		var (
			appt                   Appointment
			email, phone, date, hr sql.NullString
			ts                     int64
		)
		if err := rows.Scan(&appt.ID, &appt.Name, &email, &phone, &date, &hr, &ts); err != nil {
			return nil, fmt.Errorf("store: scan appointment: %w", err)
		}
		appt.Email = email.String
		appt.Phone = phone.String
		appt.Date = date.String
		appt.Time = hr.String
		appt.CreatedAt = time.Unix(0, ts).UTC()
		appts = append(appts, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate appointments: %w", err)
	}
	return appts, nil
}
