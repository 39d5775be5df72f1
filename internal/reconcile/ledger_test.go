package reconcile

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-order-portal/internal/observability/metrics"
	"github.com/wolfman30/clinic-order-portal/internal/orderflow"
	"github.com/wolfman30/clinic-order-portal/pkg/logging"
)

func newMockLedger(t *testing.T) (*PostgresLedger, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	ledger := newLedgerWithExec(mock, nil, nil)
	fixed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ledger.now = func() time.Time { return fixed }
	return ledger, mock
}

func TestRecordOrphan(t *testing.T) {
	ledger, mock := newMockLedger(t)

	mock.ExpectExec("INSERT INTO payment_orphans").
		WithArgs(pgxmock.AnyArg(), "pi-1", "o-1", "promptpay", "Failed to create payment attempt", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := ledger.RecordOrphan(context.Background(), orderflow.Orphan{
		PaymentInfoID: "pi-1",
		OrderID:       "o-1",
		PaymentMethod: orderflow.PaymentPromptPay,
		Reason:        "Failed to create payment attempt",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordOrphanDuplicateIsNotAnError(t *testing.T) {
	ledger, mock := newMockLedger(t)
	reg := prometheus.NewRegistry()
	ledger.metrics = metrics.NewOrderFlowMetrics(reg)

	mock.ExpectExec("INSERT INTO payment_orphans").
		WithArgs(pgxmock.AnyArg(), "pi-1", "o-1", "credit_card", "boom", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	err := ledger.RecordOrphan(context.Background(), orderflow.Orphan{
		PaymentInfoID: "pi-1", OrderID: "o-1", PaymentMethod: orderflow.PaymentCreditCard, Reason: "boom",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordOrphanRequiresPaymentInfoID(t *testing.T) {
	ledger, mock := newMockLedger(t)
	err := ledger.RecordOrphan(context.Background(), orderflow.Orphan{OrderID: "o-1"})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordOrphanDatabaseError(t *testing.T) {
	ledger, mock := newMockLedger(t)
	mock.ExpectExec("INSERT INTO payment_orphans").WillReturnError(errors.New("connection refused"))

	err := ledger.RecordOrphan(context.Background(), orderflow.Orphan{PaymentInfoID: "pi-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record orphan")
}

func TestUnresolved(t *testing.T) {
	ledger, mock := newMockLedger(t)
	id := uuid.New()
	created := time.Date(2026, 2, 28, 9, 0, 0, 0, time.UTC)

	rows := pgxmock.NewRows([]string{"id", "payment_info_id", "order_id", "payment_method", "reason", "created_at", "resolved_at"}).
		AddRow(id, "pi-1", "o-1", "credit_card", "timeout", created, (*time.Time)(nil))
	mock.ExpectQuery("SELECT id, payment_info_id").WithArgs(100).WillReturnRows(rows)

	records, err := ledger.Unresolved(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, id, records[0].ID)
	assert.Equal(t, "pi-1", records[0].PaymentInfoID)
	assert.Equal(t, created, records[0].CreatedAt)
	assert.Nil(t, records[0].ResolvedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolve(t *testing.T) {
	ledger, mock := newMockLedger(t)
	id := uuid.New()

	mock.ExpectExec("UPDATE payment_orphans").WithArgs(id, pgxmock.AnyArg()).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, ledger.Resolve(context.Background(), id))

	mock.ExpectExec("UPDATE payment_orphans").WithArgs(id, pgxmock.AnyArg()).WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	assert.ErrorIs(t, ledger.Resolve(context.Background(), id), ErrOrphanNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenCount(t *testing.T) {
	ledger, mock := newMockLedger(t)
	mock.ExpectQuery("SELECT COUNT").WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))

	n, err := ledger.OpenCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestRefreshOpenGaugePublishesCount(t *testing.T) {
	ledger, mock := newMockLedger(t)
	reg := prometheus.NewRegistry()
	ledger.metrics = metrics.NewOrderFlowMetrics(reg)
	mock.ExpectQuery("SELECT COUNT").WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(4))

	n, err := ledger.RefreshOpenGauge(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	expected := `
# HELP clinic_reconcile_open_orphans Orphaned payment-info records not yet resolved
# TYPE clinic_reconcile_open_orphans gauge
clinic_reconcile_open_orphans 4
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "clinic_reconcile_open_orphans"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunRefreshesUntilCancelled(t *testing.T) {
	ledger, mock := newMockLedger(t)
	reg := prometheus.NewRegistry()
	ledger.metrics = metrics.NewOrderFlowMetrics(reg)
	mock.ExpectQuery("SELECT COUNT").WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		ledger.Run(ctx, time.Hour)
		close(done)
	}()

	expected := `
# HELP clinic_reconcile_open_orphans Orphaned payment-info records not yet resolved
# TYPE clinic_reconcile_open_orphans gauge
clinic_reconcile_open_orphans 2
`
	require.Eventually(t, func() bool {
		return testutil.GatherAndCompare(reg, strings.NewReader(expected), "clinic_reconcile_open_orphans") == nil
	}, time.Second, 10*time.Millisecond)
	cancel()
	<-done
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLogLedger(t *testing.T) {
	var buf bytes.Buffer
	ledger := NewLogLedger(logging.NewWithWriter("debug", &buf), nil)

	err := ledger.RecordOrphan(context.Background(), orderflow.Orphan{PaymentInfoID: "pi-7", OrderID: "o-7"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "pi-7")
	assert.Contains(t, buf.String(), "manual reconciliation")
}
