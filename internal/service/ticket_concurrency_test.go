package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ma-central/macsvc/internal/apperror"
	"github.com/ma-central/macsvc/internal/model"
	"github.com/ma-central/macsvc/internal/repository/sqlite"
)

// These tests run the issuance workflow against the real store, because the
// guarantees under test live in SQLite: the conditional decrement and the
// UNIQUE(holder_id, event_id) constraint.

func newSQLiteTicketService(t *testing.T) (*TicketService, *sqlite.DB) {
	t.Helper()

	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := testLogger()
	ledger := NewLedgerService(db, logger)
	catalog := NewCatalogService(db.Events(), logger)
	svc := NewTicketService(catalog, ledger, db.Tickets(), db, logger)

	return svc, db
}

// Ten concurrent purchases by the same holder for the same event, with a
// balance that could afford all of them. Exactly one may succeed; the other
// nine must be refunded and report AlreadyIssued.
func TestConcurrentIssuanceSameHolder(t *testing.T) {
	svc, db := newSQLiteTicketService(t)
	ctx := context.Background()

	holder := &model.User{StudentID: "s1", Username: "amy", FullName: "Amy", PassHash: "x"}
	if err := db.Create(ctx, holder); err != nil {
		t.Fatalf("creating holder: %v", err)
	}
	if _, err := db.AdjustPoints(ctx, holder.ID, 1000); err != nil {
		t.Fatalf("funding holder: %v", err)
	}

	event := &model.Event{
		StartTime: 1, EndTime: 2, Title: "Carnival",
		PointValue: -30, LastSaleDate: 1 << 60,
	}
	if err := db.Events().Create(ctx, event); err != nil {
		t.Fatalf("creating event: %v", err)
	}

	const attempts = 10
	var wg sync.WaitGroup
	errs := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Issue(ctx, holder.ID, event.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	issued := 0
	for err := range errs {
		switch {
		case err == nil:
			issued++
		case errors.Is(err, apperror.ErrAlreadyIssued):
			// expected for the losers
		default:
			t.Errorf("unexpected issuance error: %v", err)
		}
	}
	if issued != 1 {
		t.Errorf("%d of %d concurrent issuances succeeded, want exactly 1", issued, attempts)
	}

	tickets, err := db.Tickets().ListByHolder(ctx, holder.ID)
	if err != nil {
		t.Fatalf("listing tickets: %v", err)
	}
	if len(tickets) != 1 {
		t.Errorf("holder ended with %d tickets, want 1", len(tickets))
	}

	// The ledger moved exactly once: every losing debit was refunded.
	after, err := db.GetByID(ctx, holder.ID)
	if err != nil {
		t.Fatalf("reading holder: %v", err)
	}
	if after.Score != 970 {
		t.Errorf("final score = %d, want 970", after.Score)
	}
}

// Same shape, but the balance affords only one purchase. The constraint and
// the conditional decrement must between them still yield one ticket, one
// debit, and a mix of AlreadyIssued / InsufficientBalance for the rest.
func TestConcurrentIssuanceTightBalance(t *testing.T) {
	svc, db := newSQLiteTicketService(t)
	ctx := context.Background()

	holder := &model.User{StudentID: "s1", Username: "amy", FullName: "Amy", PassHash: "x"}
	if err := db.Create(ctx, holder); err != nil {
		t.Fatalf("creating holder: %v", err)
	}
	if _, err := db.AdjustPoints(ctx, holder.ID, 30); err != nil {
		t.Fatalf("funding holder: %v", err)
	}

	event := &model.Event{
		StartTime: 1, EndTime: 2, Title: "Carnival",
		PointValue: -30, LastSaleDate: 1 << 60,
	}
	if err := db.Events().Create(ctx, event); err != nil {
		t.Fatalf("creating event: %v", err)
	}

	const attempts = 10
	var wg sync.WaitGroup
	errs := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Issue(ctx, holder.ID, event.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	issued := 0
	for err := range errs {
		switch {
		case err == nil:
			issued++
		case errors.Is(err, apperror.ErrAlreadyIssued),
			errors.Is(err, apperror.ErrInsufficientBalance):
			// both are legitimate losing outcomes under this interleaving
		default:
			t.Errorf("unexpected issuance error: %v", err)
		}
	}
	if issued != 1 {
		t.Errorf("%d of %d concurrent issuances succeeded, want exactly 1", issued, attempts)
	}

	after, err := db.GetByID(ctx, holder.ID)
	if err != nil {
		t.Fatalf("reading holder: %v", err)
	}
	if after.Score != 0 {
		t.Errorf("final score = %d, want 0", after.Score)
	}

	tickets, err := db.Tickets().ListByHolder(ctx, holder.ID)
	if err != nil {
		t.Fatalf("listing tickets: %v", err)
	}
	if len(tickets) != 1 {
		t.Errorf("holder ended with %d tickets, want 1", len(tickets))
	}
}

// Different holders racing for the same event must not interfere with each
// other: the unique constraint is per (holder, event) pair.
func TestConcurrentIssuanceDifferentHolders(t *testing.T) {
	svc, db := newSQLiteTicketService(t)
	ctx := context.Background()

	event := &model.Event{
		StartTime: 1, EndTime: 2, Title: "Carnival",
		PointValue: -30, LastSaleDate: 1 << 60,
	}
	if err := db.Events().Create(ctx, event); err != nil {
		t.Fatalf("creating event: %v", err)
	}

	const holders = 8
	ids := make([]int64, holders)
	for i := 0; i < holders; i++ {
		u := &model.User{
			StudentID: "s" + string(rune('a'+i)),
			Username:  "user" + string(rune('a'+i)),
			FullName:  "User",
			PassHash:  "x",
		}
		if err := db.Create(ctx, u); err != nil {
			t.Fatalf("creating holder %d: %v", i, err)
		}
		if _, err := db.AdjustPoints(ctx, u.ID, 100); err != nil {
			t.Fatalf("funding holder %d: %v", i, err)
		}
		ids[i] = u.ID
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(holderID int64) {
			defer wg.Done()
			if _, err := svc.Issue(ctx, holderID, event.ID); err != nil {
				t.Errorf("issuance for holder %d failed: %v", holderID, err)
			}
		}(id)
	}
	wg.Wait()

	for _, id := range ids {
		tickets, err := db.Tickets().ListByHolder(ctx, id)
		if err != nil {
			t.Fatalf("listing tickets for holder %d: %v", id, err)
		}
		if len(tickets) != 1 {
			t.Errorf("holder %d has %d tickets, want 1", id, len(tickets))
		}
	}
}
