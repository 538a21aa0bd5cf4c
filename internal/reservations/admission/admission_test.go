package admission

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apperrors "yoyaku/pkg/errors"
	"yoyaku/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{
		Level:   "error",
		Format:  logger.JSON,
		Service: "test",
	})
}

type mockCounter struct {
	countFunc func(ctx context.Context, fingerprint string) (int64, error)
}

func (m *mockCounter) CountByFingerprint(ctx context.Context, fingerprint string) (int64, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx, fingerprint)
	}
	return 0, nil
}

func newTestController(counter BookingCounter) *Controller {
	return NewController(NewMemoryRateStore(), counter, Limits{
		CreateLimit:  5,
		CreateWindow: time.Hour,
		DeleteLimit:  10,
		DeleteWindow: time.Minute,
		AnomalyLimit: 100,
		ClientQuota:  2,
	}, testLogger())
}

func TestCheckRateAllowsWithinWindow(t *testing.T) {
	c := newTestController(&mockCounter{})
	defer c.Stop()

	for i := 0; i < 5; i++ {
		if err := c.CheckRate(context.Background(), "client-a", ActionCreateBooking); err != nil {
			t.Fatalf("attempt %d should pass: %v", i+1, err)
		}
	}

	err := c.CheckRate(context.Background(), "client-a", ActionCreateBooking)
	if !apperrors.HasCode(err, apperrors.CodeQuotaExceeded) {
		t.Errorf("6th create in the window must fail QUOTA_EXCEEDED, got %v", err)
	}
}

func TestCheckRateIsolatesFingerprints(t *testing.T) {
	c := newTestController(&mockCounter{})
	defer c.Stop()

	for i := 0; i < 5; i++ {
		if err := c.CheckRate(context.Background(), "client-a", ActionCreateBooking); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if err := c.CheckRate(context.Background(), "client-b", ActionCreateBooking); err != nil {
		t.Errorf("a different fingerprint must have its own window: %v", err)
	}
}

func TestCheckRateIsolatesActionClasses(t *testing.T) {
	c := newTestController(&mockCounter{})
	defer c.Stop()

	for i := 0; i < 5; i++ {
		if err := c.CheckRate(context.Background(), "client-a", ActionCreateBooking); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if err := c.CheckRate(context.Background(), "client-a", ActionDeleteBooking); err != nil {
		t.Errorf("delete class has its own window: %v", err)
	}
}

func TestCheckRateRejectsEmptyFingerprint(t *testing.T) {
	c := newTestController(&mockCounter{})
	defer c.Stop()

	err := c.CheckRate(context.Background(), "", ActionCreateBooking)
	if !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
}

func TestAnomalyGuardTripsIndependently(t *testing.T) {
	c := NewController(NewMemoryRateStore(), &mockCounter{}, Limits{
		CreateLimit:  100,
		CreateWindow: time.Hour,
		DeleteLimit:  100,
		DeleteWindow: time.Minute,
		AnomalyLimit: 3,
		ClientQuota:  2,
	}, testLogger())
	defer c.Stop()

	var err error
	for i := 0; i < 10; i++ {
		if i%2 == 0 {
			err = c.CheckRate(context.Background(), "burst-client", ActionCreateBooking)
		} else {
			err = c.CheckRate(context.Background(), "burst-client", ActionDeleteBooking)
		}
		if err != nil {
			break
		}
	}

	if !apperrors.HasCode(err, apperrors.CodeQuotaExceeded) {
		t.Errorf("mixed-class burst must trip the anomaly guard, got %v", err)
	}
}

func TestCheckCumulativeQuota(t *testing.T) {
	held := int64(0)
	c := newTestController(&mockCounter{
		countFunc: func(ctx context.Context, fingerprint string) (int64, error) {
			return held, nil
		},
	})
	defer c.Stop()

	held = 1
	if err := c.CheckCumulativeQuota(context.Background(), "client-a"); err != nil {
		t.Errorf("1 of 2 held should pass: %v", err)
	}

	held = 2
	err := c.CheckCumulativeQuota(context.Background(), "client-a")
	if !apperrors.HasCode(err, apperrors.CodeQuotaExceeded) {
		t.Errorf("at quota must fail QUOTA_EXCEEDED, got %v", err)
	}
}

func TestMemoryRateStoreWindowExpiry(t *testing.T) {
	store := NewMemoryRateStore()
	defer store.Stop()

	window := 30 * time.Millisecond
	for i := 0; i < 3; i++ {
		allowed, err := store.Allow(context.Background(), "k", 3, window)
		if err != nil || !allowed {
			t.Fatalf("attempt %d: allowed=%v err=%v", i, allowed, err)
		}
	}

	if allowed, _ := store.Allow(context.Background(), "k", 3, window); allowed {
		t.Fatal("4th action inside the window must be denied")
	}

	time.Sleep(window + 10*time.Millisecond)

	if allowed, _ := store.Allow(context.Background(), "k", 3, window); !allowed {
		t.Fatal("after the window expires the client is admitted again")
	}
}

// Racing callers must not all observe the pre-admission count: the store
// has to record and check as one step, so exactly limit callers pass.
func TestMemoryRateStoreConcurrentAdmission(t *testing.T) {
	store := NewMemoryRateStore()
	defer store.Stop()

	const callers = 20
	const limit = 5

	var wg sync.WaitGroup
	var admitted int64
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed, err := store.Allow(context.Background(), "k", limit, time.Hour)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if allowed {
				atomic.AddInt64(&admitted, 1)
			}
		}()
	}
	wg.Wait()

	if admitted != limit {
		t.Errorf("expected exactly %d callers admitted, got %d", limit, admitted)
	}
}
