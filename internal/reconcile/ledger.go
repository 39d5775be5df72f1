package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/clinic-order-portal/internal/observability/metrics"
	"github.com/wolfman30/clinic-order-portal/internal/orderflow"
	"github.com/wolfman30/clinic-order-portal/pkg/logging"
)

// ErrOrphanNotFound is returned when resolving an orphan id that does not exist or is
// already resolved.
var ErrOrphanNotFound = errors.New("reconcile: orphan not found")

// Record is a payment info created without a matching payment attempt.
type Record struct {
	ID            uuid.UUID
	PaymentInfoID string
	OrderID       string
	PaymentMethod string
	Reason        string
	CreatedAt     time.Time
	ResolvedAt    *time.Time
}

type rowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresLedger keeps orphaned payment infos in payment_orphans so operators can
// reconcile them with the payment service.
type PostgresLedger struct {
	pool    rowQuerier
	logger  *logging.Logger
	metrics *metrics.OrderFlowMetrics
	now     func() time.Time
}

func NewPostgresLedger(pool *pgxpool.Pool, logger *logging.Logger, m *metrics.OrderFlowMetrics) *PostgresLedger {
	if pool == nil {
		panic("reconcile: pgx pool required")
	}
	return newLedgerWithExec(pool, logger, m)
}

func newLedgerWithExec(exec rowQuerier, logger *logging.Logger, m *metrics.OrderFlowMetrics) *PostgresLedger {
	if exec == nil {
		panic("reconcile: exec required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &PostgresLedger{pool: exec, logger: logger, metrics: m, now: time.Now}
}

// RecordOrphan inserts the orphan. A payment info already on file is left untouched.
func (l *PostgresLedger) RecordOrphan(ctx context.Context, o orderflow.Orphan) error {
	if strings.TrimSpace(o.PaymentInfoID) == "" {
		return errors.New("reconcile: payment info id required")
	}
	query := `
		INSERT INTO payment_orphans (id, payment_info_id, order_id, payment_method, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (payment_info_id) DO NOTHING
	`
	ct, err := l.pool.Exec(ctx, query, uuid.New(), o.PaymentInfoID, o.OrderID, string(o.PaymentMethod), o.Reason, l.now().UTC())
	if err != nil {
		l.metrics.ObserveOrphan("error")
		return fmt.Errorf("reconcile: record orphan: %w", err)
	}
	if ct.RowsAffected() == 0 {
		l.metrics.ObserveOrphan("duplicate")
		return nil
	}
	l.metrics.ObserveOrphan("recorded")
	l.logger.Warn("payment info recorded as orphan", "payment_info_id", o.PaymentInfoID, "order_id", o.OrderID)
	return nil
}

// Unresolved lists open orphans, oldest first. A non-positive limit defaults to 100.
func (l *PostgresLedger) Unresolved(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, payment_info_id, order_id, payment_method, reason, created_at, resolved_at
		FROM payment_orphans
		WHERE resolved_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := l.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("reconcile: list orphans: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.PaymentInfoID, &r.OrderID, &r.PaymentMethod, &r.Reason, &r.CreatedAt, &r.ResolvedAt); err != nil {
			return nil, fmt.Errorf("reconcile: scan orphan: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reconcile: list orphans: %w", err)
	}
	return out, nil
}

// Resolve marks an orphan handled.
func (l *PostgresLedger) Resolve(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE payment_orphans SET resolved_at = $2 WHERE id = $1 AND resolved_at IS NULL`
	ct, err := l.pool.Exec(ctx, query, id, l.now().UTC())
	if err != nil {
		return fmt.Errorf("reconcile: resolve orphan: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrOrphanNotFound
	}
	l.metrics.ObserveOrphan("resolved")
	l.logger.Info("orphan resolved", "orphan_id", id)
	return nil
}

// OpenCount returns the number of unresolved orphans.
func (l *PostgresLedger) OpenCount(ctx context.Context) (int, error) {
	var n int
	if err := l.pool.QueryRow(ctx, `SELECT COUNT(*) FROM payment_orphans WHERE resolved_at IS NULL`).Scan(&n); err != nil {
		return 0, fmt.Errorf("reconcile: count orphans: %w", err)
	}
	return n, nil
}

// RefreshOpenGauge publishes the unresolved count to the open_orphans gauge.
func (l *PostgresLedger) RefreshOpenGauge(ctx context.Context) (int, error) {
	n, err := l.OpenCount(ctx)
	if err != nil {
		return 0, err
	}
	l.metrics.SetOpenOrphans(n)
	return n, nil
}

// Run refreshes the open_orphans gauge every interval until ctx is done.
func (l *PostgresLedger) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := l.RefreshOpenGauge(ctx); err != nil && ctx.Err() == nil {
			l.logger.Warn("orphan gauge refresh failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// LogLedger only logs orphans. It is used when no database is configured.
type LogLedger struct {
	logger  *logging.Logger
	metrics *metrics.OrderFlowMetrics
}

func NewLogLedger(logger *logging.Logger, m *metrics.OrderFlowMetrics) *LogLedger {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogLedger{logger: logger, metrics: m}
}

func (l *LogLedger) RecordOrphan(_ context.Context, o orderflow.Orphan) error {
	l.metrics.ObserveOrphan("logged")
	l.logger.Error("orphaned payment info needs manual reconciliation",
		"payment_info_id", o.PaymentInfoID,
		"order_id", o.OrderID,
		"payment_method", o.PaymentMethod,
		"reason", o.Reason,
	)
	return nil
}

var (
	_ orderflow.OrphanRecorder = (*PostgresLedger)(nil)
	_ orderflow.OrphanRecorder = (*LogLedger)(nil)
)
