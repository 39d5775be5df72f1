package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/wolfman30/clinic-order-portal/internal/config"
	"github.com/wolfman30/clinic-order-portal/internal/reconcile"
	"github.com/wolfman30/clinic-order-portal/pkg/logging"
)

// ledger is the operator side of the payment reconciliation ledger.
type ledger interface {
	Unresolved(ctx context.Context, limit int) ([]reconcile.Record, error)
	Resolve(ctx context.Context, id uuid.UUID) error
	OpenCount(ctx context.Context) (int, error)
}

// Usage: orphans [list [limit] | resolve <id>... | count]
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := run(ctx, reconcile.NewPostgresLedger(pool, logger, nil), os.Args[1:], os.Stdout); err != nil {
		logger.Error("orphans command failed", "error", err)
		pool.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, l ledger, args []string, out io.Writer) error {
	cmd := "list"
	if len(args) > 0 {
		cmd = args[0]
	}

	switch cmd {
	case "list":
		limit := 0
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid limit %q", args[1])
			}
			limit = n
		}
		records, err := l.Unresolved(ctx, limit)
		if err != nil {
			return err
		}
		return printRecords(out, records)
	case "resolve":
		if len(args) < 2 {
			return errors.New("resolve requires at least one orphan id")
		}
		ids := make([]uuid.UUID, 0, len(args)-1)
		for _, raw := range args[1:] {
			id, err := uuid.Parse(raw)
			if err != nil {
				return fmt.Errorf("invalid orphan id %q: %w", raw, err)
			}
			ids = append(ids, id)
		}
		for _, id := range ids {
			if err := l.Resolve(ctx, id); err != nil {
				return fmt.Errorf("resolve %s: %w", id, err)
			}
			fmt.Fprintf(out, "resolved %s\n", id)
		}
		return nil
	case "count":
		n, err := l.OpenCount(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, n)
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func printRecords(out io.Writer, records []reconcile.Record) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPAYMENT INFO\tORDER\tMETHOD\tCREATED\tREASON")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.PaymentInfoID, r.OrderID, r.PaymentMethod, r.CreatedAt.UTC().Format(time.RFC3339), r.Reason)
	}
	return tw.Flush()
}
