package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"course-scheduler/internal/holiday"
	"course-scheduler/internal/schedule"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

// Store persists courses and tenant holidays.
type Store interface {
	Ping(ctx context.Context) error
	CreateCourse(ctx context.Context, c *Course) error
	GetCourse(ctx context.Context, tenantID string, id uuid.UUID) (*Course, error)
	ListCourses(ctx context.Context, tenantID string) ([]Course, error)
	DeleteCourse(ctx context.Context, tenantID string, id uuid.UUID) error
	ListHolidays(ctx context.Context, tenantID string, from, to civil.Date) ([]holiday.Holiday, error)
	InsertHoliday(ctx context.Context, h *holiday.Holiday) error
	InsertHolidays(ctx context.Context, hs []holiday.Holiday) (int, error)
	DeleteHoliday(ctx context.Context, tenantID string, id uuid.UUID) error
}

type PostgresStore struct {
	DB *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, dbURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}
	return &PostgresStore{DB: pool}, nil
}

func (s *PostgresStore) Close() { s.DB.Close() }

func (s *PostgresStore) Ping(ctx context.Context) error { return s.DB.Ping(ctx) }

func dateParam(d civil.Date) time.Time { return d.In(time.UTC) }

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// CreateCourse inserts the course and all its sessions in one transaction.
func (s *PostgresStore) CreateCourse(ctx context.Context, c *Course) error {
	slots, err := json.Marshal(c.WeeklySchedule)
	if err != nil {
		return err
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	q := `INSERT INTO courses
	      (id, tenant_id, name, timezone, total_hours, session_duration_minutes,
	       first_session_date, weekly_schedule, total_sessions, calculated_end_date, created_at)
	      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,now()) RETURNING created_at`
	err = tx.QueryRow(ctx, q,
		c.ID, c.TenantID, c.Name, c.Timezone, c.TotalHours, c.SessionDurationMinutes,
		dateParam(c.FirstSessionDate), slots, c.TotalSessions, dateParam(c.CalculatedEndDate),
	).Scan(&c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}

	rows := make([][]any, len(c.Sessions))
	for i, o := range c.Sessions {
		rows[i] = []any{c.ID, o.Sequence, dateParam(o.Date), string(o.Weekday), string(o.StartTime), string(o.EndTime)}
	}
	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"course_sessions"},
		[]string{"course_id", "sequence", "session_date", "weekday", "start_time", "end_time"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("insert sessions: %w", err)
	}
	return tx.Commit(ctx)
}

const courseColumns = `id,tenant_id,name,timezone,total_hours,session_duration_minutes,
	first_session_date,weekly_schedule,total_sessions,calculated_end_date,created_at`

func scanCourse(row pgx.Row) (*Course, error) {
	var (
		c           Course
		first, last time.Time
		slots       []byte
	)
	if err := row.Scan(&c.ID, &c.TenantID, &c.Name, &c.Timezone, &c.TotalHours, &c.SessionDurationMinutes,
		&first, &slots, &c.TotalSessions, &last, &c.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(slots, &c.WeeklySchedule); err != nil {
		return nil, fmt.Errorf("decode weekly schedule: %w", err)
	}
	c.FirstSessionDate = civil.DateOf(first)
	c.CalculatedEndDate = civil.DateOf(last)
	return &c, nil
}

func (s *PostgresStore) GetCourse(ctx context.Context, tenantID string, id uuid.UUID) (*Course, error) {
	q := `SELECT ` + courseColumns + ` FROM courses WHERE tenant_id=$1 AND id=$2`
	c, err := scanCourse(s.DB.QueryRow(ctx, q, tenantID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.DB.Query(ctx,
		`SELECT sequence,session_date,weekday,start_time,end_time
		 FROM course_sessions WHERE course_id=$1 ORDER BY sequence`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			o              schedule.Occurrence
			date           time.Time
			wd, start, end string
		)
		if err := rows.Scan(&o.Sequence, &date, &wd, &start, &end); err != nil {
			return nil, err
		}
		o.Date = civil.DateOf(date)
		o.Weekday = schedule.Weekday(wd)
		o.StartTime = schedule.Clock(start)
		o.EndTime = schedule.Clock(end)
		c.Sessions = append(c.Sessions, o)
	}
	return c, rows.Err()
}

func (s *PostgresStore) ListCourses(ctx context.Context, tenantID string) ([]Course, error) {
	q := `SELECT ` + courseColumns + ` FROM courses WHERE tenant_id=$1 ORDER BY first_session_date, name`
	rows, err := s.DB.Query(ctx, q, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteCourse(ctx context.Context, tenantID string, id uuid.UUID) error {
	// course_sessions cascade
	res, err := s.DB.Exec(ctx, `DELETE FROM courses WHERE tenant_id=$1 AND id=$2`, tenantID, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListHolidays returns the tenant's holidays plus global ones (empty
// tenant) between from and to inclusive.
func (s *PostgresStore) ListHolidays(ctx context.Context, tenantID string, from, to civil.Date) ([]holiday.Holiday, error) {
	q := `SELECT id,tenant_id,holiday_date,name,source
	      FROM holidays
	      WHERE tenant_id IN ($1,'') AND holiday_date >= $2 AND holiday_date <= $3
	      ORDER BY holiday_date`
	rows, err := s.DB.Query(ctx, q, tenantID, dateParam(from), dateParam(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []holiday.Holiday
	for rows.Next() {
		var (
			h holiday.Holiday
			d time.Time
		)
		if err := rows.Scan(&h.ID, &h.TenantID, &d, &h.Name, &h.Source); err != nil {
			return nil, err
		}
		h.Date = civil.DateOf(d)
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *PostgresStore) InsertHoliday(ctx context.Context, h *holiday.Holiday) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	q := `INSERT INTO holidays (id, tenant_id, holiday_date, name, source) VALUES ($1,$2,$3,$4,$5)`
	_, err := s.DB.Exec(ctx, q, h.ID, h.TenantID, dateParam(h.Date), h.Name, h.Source)
	if isUniqueViolation(err) {
		return fmt.Errorf("holiday on %s: %w", h.Date, ErrDuplicate)
	}
	return err
}

// InsertHolidays skips dates the tenant already has and returns how many
// rows were added.
func (s *PostgresStore) InsertHolidays(ctx context.Context, hs []holiday.Holiday) (int, error) {
	if len(hs) == 0 {
		return 0, nil
	}
	q := `INSERT INTO holidays (id, tenant_id, holiday_date, name, source) VALUES ($1,$2,$3,$4,$5)
	      ON CONFLICT (tenant_id, holiday_date) DO NOTHING`
	batch := &pgx.Batch{}
	for i := range hs {
		if hs[i].ID == uuid.Nil {
			hs[i].ID = uuid.New()
		}
		h := hs[i]
		batch.Queue(q, h.ID, h.TenantID, dateParam(h.Date), h.Name, h.Source)
	}

	br := s.DB.SendBatch(ctx, batch)
	defer br.Close()

	added := 0
	for range hs {
		tag, err := br.Exec()
		if err != nil {
			return added, err
		}
		added += int(tag.RowsAffected())
	}
	return added, nil
}

func (s *PostgresStore) DeleteHoliday(ctx context.Context, tenantID string, id uuid.UUID) error {
	res, err := s.DB.Exec(ctx, `DELETE FROM holidays WHERE tenant_id=$1 AND id=$2`, tenantID, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
