package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/absmach/guardian/pkg/alert"
	"github.com/absmach/guardian/pkg/threshold"
)

type alertRepo struct {
	db *Database
}

func NewAlertRepository(db *Database) AlertRepository {
	return &alertRepo{db: db}
}

type dbAlert struct {
	ID          string    `db:"id"`
	Process     string    `db:"process"`
	PID         int32     `db:"pid"`
	UID         int32     `db:"uid"`
	Reasons     uint32    `db:"reasons"`
	Usage       float64   `db:"cpu_usage"`
	LockTime    int64     `db:"lock_time"`
	Interactive bool      `db:"interactive"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r *alertRepo) Save(ctx context.Context, a alert.Alert) error {
	if a.ID == "" {
		return ErrEmptyID
	}
	if a.Process == "" {
		return ErrEmptyName
	}

	query := `INSERT INTO alerts (id, process, pid, uid, reasons, cpu_usage, lock_time, interactive, created_at)
		VALUES (:id, :process, :pid, :uid, :reasons, :cpu_usage, :lock_time, :interactive, :created_at)
		ON CONFLICT(id) DO UPDATE SET
			process = excluded.process,
			pid = excluded.pid,
			uid = excluded.uid,
			reasons = excluded.reasons,
			cpu_usage = excluded.cpu_usage,
			lock_time = excluded.lock_time,
			interactive = excluded.interactive,
			created_at = excluded.created_at`

	if _, err := r.db.NamedExecContext(ctx, query, toDBAlert(a)); err != nil {
		return fmt.Errorf("%w: %w", ErrCreate, err)
	}

	return nil
}

func (r *alertRepo) List(ctx context.Context, offset, limit uint64) ([]alert.Alert, uint64, error) {
	var total uint64
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM alerts"); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	query := `SELECT id, process, pid, uid, reasons, cpu_usage, lock_time, interactive, created_at
		FROM alerts ORDER BY created_at DESC LIMIT ? OFFSET ?`

	var rows []dbAlert
	if err := r.db.SelectContext(ctx, &rows, query, int64(min(limit, uint64(1<<62))), offset); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrDBScan, err)
	}

	alerts := make([]alert.Alert, len(rows))
	for i, row := range rows {
		alerts[i] = row.toAlert()
	}

	return alerts, total, nil
}

func (r *alertRepo) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM alerts"); err != nil {
		return fmt.Errorf("%w: %w", ErrDelete, err)
	}

	return nil
}

func toDBAlert(a alert.Alert) dbAlert {
	return dbAlert{
		ID:          a.ID,
		Process:     a.Process,
		PID:         a.PID,
		UID:         a.UID,
		Reasons:     uint32(a.Reasons),
		Usage:       a.Usage,
		LockTime:    int64(a.LockTime),
		Interactive: a.Interactive,
		CreatedAt:   a.CreatedAt,
	}
}

func (row dbAlert) toAlert() alert.Alert {
	return alert.Alert{
		ID:          row.ID,
		Process:     row.Process,
		PID:         row.PID,
		UID:         row.UID,
		Reasons:     threshold.Reason(row.Reasons),
		Usage:       row.Usage,
		LockTime:    time.Duration(row.LockTime),
		Interactive: row.Interactive,
		CreatedAt:   row.CreatedAt,
	}
}
