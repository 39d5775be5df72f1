package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-order-portal/internal/reconcile"
)

type fakeLedger struct {
	records  []reconcile.Record
	limit    int
	resolved []uuid.UUID
	open     int
	err      error
}

func (f *fakeLedger) Unresolved(_ context.Context, limit int) ([]reconcile.Record, error) {
	f.limit = limit
	return f.records, f.err
}

func (f *fakeLedger) Resolve(_ context.Context, id uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	f.resolved = append(f.resolved, id)
	return nil
}

func (f *fakeLedger) OpenCount(context.Context) (int, error) {
	return f.open, f.err
}

func TestRunListsUnresolved(t *testing.T) {
	id := uuid.MustParse("6f1c2b1e-8a2f-4d3c-9b5e-0a1b2c3d4e5f")
	l := &fakeLedger{records: []reconcile.Record{{
		ID: id, PaymentInfoID: "pi-1", OrderID: "o-1", PaymentMethod: "promptpay",
		Reason: "attempt failed", CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}}}
	var out bytes.Buffer

	require.NoError(t, run(context.Background(), l, []string{"list", "25"}, &out))
	assert.Equal(t, 25, l.limit)
	assert.Contains(t, out.String(), "PAYMENT INFO")
	assert.Contains(t, out.String(), id.String())
	assert.Contains(t, out.String(), "2026-03-01T10:00:00Z")
}

func TestRunDefaultsToList(t *testing.T) {
	l := &fakeLedger{}
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), l, nil, &out))
	assert.Equal(t, 0, l.limit)
}

func TestRunResolvesEveryID(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	l := &fakeLedger{}
	var out bytes.Buffer

	require.NoError(t, run(context.Background(), l, []string{"resolve", a.String(), b.String()}, &out))
	assert.Equal(t, []uuid.UUID{a, b}, l.resolved)
	assert.Contains(t, out.String(), "resolved "+b.String())
}

func TestRunResolveValidatesBeforeWriting(t *testing.T) {
	l := &fakeLedger{}
	err := run(context.Background(), l, []string{"resolve", uuid.NewString(), "nope"}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Empty(t, l.resolved)
}

func TestRunResolveNotFound(t *testing.T) {
	l := &fakeLedger{err: reconcile.ErrOrphanNotFound}
	err := run(context.Background(), l, []string{"resolve", uuid.NewString()}, &bytes.Buffer{})
	assert.ErrorIs(t, err, reconcile.ErrOrphanNotFound)
}

func TestRunCount(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), &fakeLedger{open: 3}, []string{"count"}, &out))
	assert.Equal(t, "3\n", out.String())
}

func TestRunRejectsUnknownCommand(t *testing.T) {
	assert.Error(t, run(context.Background(), &fakeLedger{}, []string{"purge"}, &bytes.Buffer{}))
	assert.Error(t, run(context.Background(), &fakeLedger{}, []string{"list", "-1"}, &bytes.Buffer{}))
}
