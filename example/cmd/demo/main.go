package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"

	"github.com/mickamy/snapcdc"
	"github.com/mickamy/snapcdc/sqlstore"
)

func main() {
	driver := getenv("SNAPCDC_DRIVER", "sqlite")
	dsn := getenv("SNAPCDC_DSN", "file:demo.db")
	ctx := context.Background()

	store, err := sqlstore.Open(ctx, driver, dsn, sqlstore.Config{})
	if err != nil {
		log.Fatalf("open: %v", err)
	}
	defer func(store *sqlstore.Store) {
		_ = store.Close()
	}(store)
	db := store.DB()

	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS orders (
    id TEXT PRIMARY KEY,
    customer_id TEXT NOT NULL,
    amount NUMERIC NOT NULL,
    status TEXT NOT NULL
)`); err != nil {
		log.Fatalf("create orders: %v", err)
	}
	if err := store.Migrate(ctx, "orders"); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	// Seed two orders and take the first snapshot.
	first, second := uuid.NewString(), uuid.NewString()
	if err := store.AppendRows(ctx, "orders", []snapcdc.Row{
		{"id": first, "customer_id": uuid.NewString(), "amount": 1200, "status": "new"},
		{"id": second, "customer_id": uuid.NewString(), "amount": 80, "status": "new"},
	}); err != nil {
		log.Fatalf("insert: %v", err)
	}
	if _, err := store.Capture(ctx, "orders", "seed"); err != nil {
		log.Fatalf("capture: %v", err)
	}

	// Pay one, cancel the other, take another order.
	if err := store.UpdateRows(ctx, "orders", snapcdc.Predicate{"id": first}, snapcdc.Row{"status": "paid", "amount": 1500}); err != nil {
		log.Fatalf("update: %v", err)
	}
	if err := store.DeleteRows(ctx, "orders", snapcdc.Predicate{"id": second}); err != nil {
		log.Fatalf("delete: %v", err)
	}
	if err := store.AppendRows(ctx, "orders", []snapcdc.Row{
		{"id": uuid.NewString(), "customer_id": uuid.NewString(), "amount": 42, "status": "new"},
	}); err != nil {
		log.Fatalf("insert: %v", err)
	}
	if _, err := store.Capture(ctx, "orders", "edit"); err != nil {
		log.Fatalf("capture: %v", err)
	}

	h := snapcdc.New(store, snapcdc.Config{
		Redact: snapcdc.RedactMap{
			"customer_id": func(string, any) any { return "***" },
		},
	})
	ctx = snapcdc.WithOperator(ctx, "demo-user")

	summary, err := h.GetChangeSummary(ctx, "orders", snapcdc.Range{})
	if err != nil {
		log.Fatalf("summary: %v", err)
	}
	fmt.Printf("inserts=%d updates=%d deletes=%d (expected 1/1/1), affected=%v\n",
		summary.Inserts, summary.Updates, summary.Deletes, summary.AffectedColumns)

	out, err := h.ExportChanges(ctx, "orders", snapcdc.Range{}, snapcdc.FormatCSV)
	if err != nil {
		log.Fatalf("export: %v", err)
	}
	fmt.Print(out)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
