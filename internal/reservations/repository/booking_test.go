package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	reserrors "yoyaku/internal/reservations/errors"
	"yoyaku/pkg/config"
	mongotx "yoyaku/pkg/db/mongo"
	"yoyaku/pkg/logger"
	"yoyaku/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

type stubTxManager struct {
	errs  []error
	calls int
}

func (s *stubTxManager) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	var err error
	if s.calls < len(s.errs) {
		err = s.errs[s.calls]
	} else if len(s.errs) > 0 {
		err = s.errs[len(s.errs)-1]
	}
	s.calls++
	return err
}

type stubLockRepo struct {
	acquireErrs []error
	acquires    int
	releases    int
}

func (s *stubLockRepo) Acquire(ctx context.Context, key model.SlotKey) (string, error) {
	var err error
	if s.acquires < len(s.acquireErrs) {
		err = s.acquireErrs[s.acquires]
	} else if len(s.acquireErrs) > 0 {
		err = s.acquireErrs[len(s.acquireErrs)-1]
	}
	s.acquires++
	if err != nil {
		return "", err
	}
	return "slot_lock_" + key.String(), nil
}

func (s *stubLockRepo) Release(ctx context.Context, lockID string) error {
	s.releases++
	return nil
}

func newStubRepo(tx *stubTxManager, locks *stubLockRepo) *mongoBookingRepository {
	return &mongoBookingRepository{
		cfg: &config.Config{
			ReserveMaxAttempts: 3,
			ReserveBackoff:     time.Millisecond,
			Log:                logger.New(logger.Config{Level: "error", Format: logger.JSON, Service: "test"}),
		},
		txManager: tx,
		locks:     locks,
	}
}

func reserveTestBooking() *model.Booking {
	return &model.Booking{
		Date:         "2025-06-10",
		Time:         "11:00",
		CustomerName: "Taro",
		Status:       model.StatusConfirmed,
	}
}

func transientErr() error {
	return mongo.CommandError{Labels: []string{"TransientTransactionError"}}
}

func duplicateKeyErr() error {
	return mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000}}}
}

func TestReserveAtomicallyDomainErrorsAreFinal(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{"capacity full", reserrors.ErrCapacityFull},
		{"duplicate booking", reserrors.ErrDuplicateBooking},
		{"infrastructure failure", errors.New("connection reset")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tx := &stubTxManager{errs: []error{tc.err}}
			locks := &stubLockRepo{}
			repo := newStubRepo(tx, locks)

			err := repo.ReserveAtomically(context.Background(), reserveTestBooking(), 3)
			if !errors.Is(err, tc.err) {
				t.Errorf("expected %v, got %v", tc.err, err)
			}
			if tx.calls != 1 {
				t.Errorf("domain and infrastructure failures must not retry, got %d attempts", tx.calls)
			}
			if locks.releases != 1 {
				t.Errorf("lock must be released on failure, got %d releases", locks.releases)
			}
		})
	}
}

func TestReserveAtomicallyMapsConcurrentDuplicateKey(t *testing.T) {
	tx := &stubTxManager{errs: []error{duplicateKeyErr()}}
	locks := &stubLockRepo{}
	repo := newStubRepo(tx, locks)

	err := repo.ReserveAtomically(context.Background(), reserveTestBooking(), 3)
	if !errors.Is(err, reserrors.ErrDuplicateBooking) {
		t.Errorf("unique index violation must map to the duplicate error, got %v", err)
	}
	if tx.calls != 1 {
		t.Errorf("a concurrent duplicate is final, got %d attempts", tx.calls)
	}
}

func TestReserveAtomicallyRetriesTransientConflicts(t *testing.T) {
	tx := &stubTxManager{errs: []error{transientErr(), transientErr(), nil}}
	locks := &stubLockRepo{}
	repo := newStubRepo(tx, locks)

	if err := repo.ReserveAtomically(context.Background(), reserveTestBooking(), 3); err != nil {
		t.Fatalf("expected success after transient retries, got %v", err)
	}
	if tx.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", tx.calls)
	}
	if locks.acquires != 3 || locks.releases != 3 {
		t.Errorf("every attempt must acquire and release the lock, got %d/%d", locks.acquires, locks.releases)
	}
}

func TestReserveAtomicallyExhaustsRetryLimit(t *testing.T) {
	tx := &stubTxManager{errs: []error{transientErr()}}
	locks := &stubLockRepo{}
	repo := newStubRepo(tx, locks)

	err := repo.ReserveAtomically(context.Background(), reserveTestBooking(), 3)
	if !errors.Is(err, reserrors.ErrConflict) {
		t.Errorf("exhausted retries must surface the conflict error, got %v", err)
	}
	if tx.calls != repo.cfg.ReserveMaxAttempts {
		t.Errorf("expected %d attempts, got %d", repo.cfg.ReserveMaxAttempts, tx.calls)
	}
	if locks.releases != tx.calls {
		t.Errorf("every acquired lock must be released, got %d releases for %d attempts", locks.releases, tx.calls)
	}
}

func TestReserveAtomicallyWaitsOutHeldSlotLock(t *testing.T) {
	tx := &stubTxManager{}
	locks := &stubLockRepo{acquireErrs: []error{reserrors.ErrSlotLocked, nil}}
	repo := newStubRepo(tx, locks)

	if err := repo.ReserveAtomically(context.Background(), reserveTestBooking(), 3); err != nil {
		t.Fatalf("expected success once the lock frees, got %v", err)
	}
	if tx.calls != 1 {
		t.Errorf("the transaction must not run while the lock is held, got %d runs", tx.calls)
	}
	if locks.releases != 1 {
		t.Errorf("expected 1 release, got %d", locks.releases)
	}
}

func TestReserveAtomicallyGivesUpWhenLockStaysHeld(t *testing.T) {
	tx := &stubTxManager{}
	locks := &stubLockRepo{acquireErrs: []error{reserrors.ErrSlotLocked}}
	repo := newStubRepo(tx, locks)

	err := repo.ReserveAtomically(context.Background(), reserveTestBooking(), 3)
	if !errors.Is(err, reserrors.ErrConflict) {
		t.Errorf("a lock held past every attempt must surface the conflict error, got %v", err)
	}
	if tx.calls != 0 {
		t.Errorf("the transaction must never run without the lock, got %d runs", tx.calls)
	}
	if locks.releases != 0 {
		t.Errorf("nothing to release when acquisition never succeeded, got %d", locks.releases)
	}
}
