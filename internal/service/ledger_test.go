package service

import (
	"context"
	"errors"
	"testing"

	"github.com/ma-central/macsvc/internal/apperror"
)

func TestLedgerAdjustCredit(t *testing.T) {
	users := newFakeUserRepo()
	ledger := NewLedgerService(users, testLogger())
	user := users.addUser(0)

	applied, err := ledger.Adjust(context.Background(), user.ID, 40)
	if err != nil {
		t.Fatalf("Adjust returned error: %v", err)
	}
	if !applied {
		t.Fatal("credit was not applied")
	}

	after, _ := users.GetByID(context.Background(), user.ID)
	if after.Score != 40 || after.Lifetime != 40 {
		t.Errorf("after credit: score=%d lifetime=%d, want 40/40", after.Score, after.Lifetime)
	}
}

func TestLedgerAdjustDebitInsufficient(t *testing.T) {
	users := newFakeUserRepo()
	ledger := NewLedgerService(users, testLogger())
	user := users.addUser(10)

	applied, err := ledger.Adjust(context.Background(), user.ID, -20)
	if err != nil {
		t.Fatalf("Adjust returned error: %v", err)
	}
	if applied {
		t.Error("unaffordable debit was applied")
	}
}

func TestLedgerAdjustUnknownUser(t *testing.T) {
	ledger := NewLedgerService(newFakeUserRepo(), testLogger())

	_, err := ledger.Adjust(context.Background(), 9999, 10)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Adjust error = %v, want ErrNotFound", err)
	}
}

func TestLedgerAdjustStoreFailure(t *testing.T) {
	users := newFakeUserRepo()
	users.adjustErr = errors.New("db on fire")
	ledger := NewLedgerService(users, testLogger())

	_, err := ledger.Adjust(context.Background(), 1, 10)
	if !errors.Is(err, apperror.ErrPersistence) {
		t.Errorf("Adjust error = %v, want ErrPersistence", err)
	}
}

func TestLedgerRefundRestoresScoreOnly(t *testing.T) {
	users := newFakeUserRepo()
	ledger := NewLedgerService(users, testLogger())
	user := users.addUser(100)

	if _, err := ledger.Adjust(context.Background(), user.ID, -30); err != nil {
		t.Fatalf("debiting: %v", err)
	}
	if err := ledger.Refund(context.Background(), user.ID, 30); err != nil {
		t.Fatalf("Refund returned error: %v", err)
	}

	after, _ := users.GetByID(context.Background(), user.ID)
	if after.Score != 100 {
		t.Errorf("score after refund = %d, want 100", after.Score)
	}
	if after.Lifetime != 100 {
		t.Errorf("lifetime after refund = %d, want 100", after.Lifetime)
	}
}

func TestLedgerRefundUnknownUser(t *testing.T) {
	ledger := NewLedgerService(newFakeUserRepo(), testLogger())

	err := ledger.Refund(context.Background(), 9999, 30)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Refund error = %v, want ErrNotFound", err)
	}
}

func TestLeaderboardClampsLimit(t *testing.T) {
	users := newFakeUserRepo()
	ledger := NewLedgerService(users, testLogger())
	for i := 0; i < 3; i++ {
		users.addUser(int64(i * 10))
	}

	for _, limit := range []int{0, -5, MaxListLimit + 1} {
		board, err := ledger.Leaderboard(context.Background(), limit)
		if err != nil {
			t.Fatalf("Leaderboard(%d) returned error: %v", limit, err)
		}
		// The fake holds 3 users; the clamped default is far larger, so all
		// three come back.
		if len(board) != 3 {
			t.Errorf("Leaderboard(%d) returned %d entries, want 3", limit, len(board))
		}
	}

	board, err := ledger.Leaderboard(context.Background(), 2)
	if err != nil {
		t.Fatalf("Leaderboard(2) returned error: %v", err)
	}
	if len(board) != 2 {
		t.Errorf("Leaderboard(2) returned %d entries, want 2", len(board))
	}
}
