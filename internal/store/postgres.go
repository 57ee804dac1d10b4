package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store on Postgres. The schema is owned by the
// migrations package.
type PostgresStore struct {
	pool   pgxQuerier
	tracer trace.Tracer
}

// NewPostgresStore wraps an existing pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("store: pgx pool required")
	}
	return newPostgresStoreWithExec(pool)
}

func newPostgresStoreWithExec(exec pgxQuerier) *PostgresStore {
	if exec == nil {
		panic("store: exec required")
	}
	return &PostgresStore{pool: exec, tracer: otel.Tracer("clinicbot.internal.store.postgres")}
}

func (s *PostgresStore) AppendTurn(ctx context.Context, userID string, role Role, text string) error {
	if err := role.validate(); err != nil {
		return err
	}
	ctx, span := s.tracer.Start(ctx, "store.append_turn")
	defer span.End()

	query := `INSERT INTO conversations (user_id, role, message) VALUES ($1, $2, $3)`
	if _, err := s.pool.Exec(ctx, query, userID, string(role), text); err != nil {
		span.RecordError(err)
		return fmt.Errorf("store: append turn: %w", err)
	}
	return nil
}

func (s *PostgresStore) History(ctx context.Context, userID string) ([]Turn, error) {
	ctx, span := s.tracer.Start(ctx, "store.history")
	defer span.End()

	query := `
		SELECT id, role, message, created_at
		FROM conversations
		WHERE user_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("store: query history: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var (
			turn Turn
			role string
		)
		if err := rows.Scan(&turn.ID, &role, &turn.Text, &turn.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan turn: %w", err)
		}
		turn.UserID = userID
		turn.Role = Role(role)
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate history: %w", err)
	}
	return turns, nil
}

func (s *PostgresStore) Session(ctx context.Context, userID string) (SessionRecord, error) {
	ctx, span := s.tracer.Start(ctx, "store.session")
	defer span.End()

	query := `SELECT slot_esperado, agendamento_temp FROM sessions WHERE user_id = $1`
	var (
		expected *string
		pending  []byte
	)
	if err := s.pool.QueryRow(ctx, query, userID).Scan(&expected, &pending); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SessionRecord{}, nil
		}
		span.RecordError(err)
		return SessionRecord{}, fmt.Errorf("store: load session: %w", err)
	}

	var rec SessionRecord
	if expected != nil {
		rec.ExpectedSlot = *expected
	}
	if len(pending) > 0 {
		rec.PendingBooking = pending
	}
	return rec, nil
}

func (s *PostgresStore) PutSession(ctx context.Context, userID string, rec SessionRecord) error {
	ctx, span := s.tracer.Start(ctx, "store.put_session")
	defer span.End()

	var pending any
	if len(rec.PendingBooking) > 0 {
		pending = string(rec.PendingBooking)
	}
	query := `
		INSERT INTO sessions (user_id, slot_esperado, agendamento_temp, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			slot_esperado = EXCLUDED.slot_esperado,
			agendamento_temp = EXCLUDED.agendamento_temp,
			updated_at = NOW()
	`
	if _, err := s.pool.Exec(ctx, query, userID, nullIfEmpty(rec.ExpectedSlot), pending); err != nil {
		span.RecordError(err)
		return fmt.Errorf("store: save session: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertAppointment(ctx context.Context, appt NewAppointment) (int64, error) {
	if err := validateAppointment(appt); err != nil {
		return 0, err
	}
	ctx, span := s.tracer.Start(ctx, "store.insert_appointment")
	defer span.End()

	query := `
		INSERT INTO agendamentos (nome, email, telefone, data, hora)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	var id int64
	err := s.pool.QueryRow(ctx, query, appt.Name, nullIfEmpty(appt.Email), nullIfEmpty(appt.Phone), appt.Date, appt.Time).Scan(&id)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("store: insert appointment: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) BookedTimes(ctx context.Context, date string) (map[string]struct{}, error) {
	ctx, span := s.tracer.Start(ctx, "store.booked_times")
	defer span.End()

	rows, err := s.pool.Query(ctx, `SELECT hora FROM agendamentos WHERE data = $1`, date)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("store: query booked times: %w", err)
	}
	defer rows.Close()

	booked := make(map[string]struct{})
	for rows.Next() {
		var hora string
		if err := rows.Scan(&hora); err != nil {
			return nil, fmt.Errorf("store: scan booked time: %w", err)
		}
		booked[hora] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate booked times: %w", err)
	}
	return booked, nil
}

func (s *PostgresStore) ListAppointments(ctx context.Context) ([]Appointment, error) {
	ctx, span := s.tracer.Start(ctx, "store.list_appointments")
	defer span.End()

	query := `
		SELECT id, nome, email, telefone, data, hora, created_at
		FROM agendamentos
		ORDER BY created_at DESC, id DESC
	`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("store: query appointments: %w", err)
	}
	defer rows.Close()

	appts := []Appointment{}
	for rows.Next() {
		var (
			appt         Appointment
			email, phone *string
			createdAt    time.Time
		)
		if err := rows.Scan(&appt.ID, &appt.Name, &email, &phone, &appt.Date, &appt.Time, &createdAt); err != nil {
			return nil, fmt.Errorf("store: scan appointment: %w", err)
		}
		if email != nil {
			appt.Email = *email
		}
		if phone != nil {
			appt.Phone = *phone
		}
		appt.CreatedAt = createdAt.UTC()
		appts = append(appts, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate appointments: %w", err)
	}
	return appts, nil
}
