package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/opensource-finance/shikra/internal/bus"
	"github.com/opensource-finance/shikra/internal/domain"
)

// stubScreener records screening calls and returns a canned result.
type stubScreener struct {
	mu         sync.Mutex
	calls      atomic.Int32
	lastID     int64
	lastCats   []domain.Category
	failWithID int64
}

func (s *stubScreener) Screen(ctx context.Context, applicantID int64, categories []domain.Category) (*domain.DetectionResult, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.lastID = applicantID
	s.lastCats = categories
	s.mu.Unlock()

	if s.failWithID != 0 && applicantID == s.failWithID {
		return nil, errors.New("screening failed")
	}

	res := domain.NewDetectionResult(applicantID, "Test Applicant")
	res.Classify()
	return res, nil
}

func TestWorker(t *testing.T) {
	eventBus := bus.NewChannelBus(100)
	defer eventBus.Close()

	ctx := context.Background()

	t.Run("StartAndStop", func(t *testing.T) {
		w := NewWorker(eventBus, &stubScreener{})

		if err := w.Start(); err != nil {
			t.Fatalf("Start failed: %v", err)
		}

		stats := w.GetStats()
		if stats.SubscriptionCount != 1 {
			t.Errorf("expected 1 subscription, got %d", stats.SubscriptionCount)
		}
		if len(stats.Topics) != 1 || stats.Topics[0] != domain.TopicScreeningRequested {
			t.Errorf("expected topic %s, got %v", domain.TopicScreeningRequested, stats.Topics)
		}

		if err := w.Stop(); err != nil {
			t.Errorf("Stop failed: %v", err)
		}

		stats = w.GetStats()
		if stats.SubscriptionCount != 0 {
			t.Errorf("expected 0 subscriptions after stop, got %d", stats.SubscriptionCount)
		}
	})

	t.Run("ProcessRequest", func(t *testing.T) {
		screener := &stubScreener{}
		w := NewWorker(eventBus, screener)
		w.Start()
		defer w.Stop()

		// Allow subscription to be active
		time.Sleep(50 * time.Millisecond)

		req := ScreeningRequest{
			ApplicantID: 42,
			Categories:  []domain.Category{domain.CategoryIdentity, domain.CategoryFinancial},
			RequestID:   "req-001",
		}
		payload, _ := json.Marshal(req)

		if err := eventBus.Publish(ctx, domain.TopicScreeningRequested, payload); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}

		// Wait for processing
		time.Sleep(100 * time.Millisecond)

		if screener.calls.Load() != 1 {
			t.Fatalf("expected 1 screening call, got %d", screener.calls.Load())
		}

		screener.mu.Lock()
		defer screener.mu.Unlock()
		if screener.lastID != 42 {
			t.Errorf("expected applicant 42, got %d", screener.lastID)
		}
		if len(screener.lastCats) != 2 {
			t.Errorf("expected 2 categories, got %v", screener.lastCats)
		}
	})

	t.Run("AllCategoriesWhenOmitted", func(t *testing.T) {
		screener := &stubScreener{}
		w := NewWorker(eventBus, screener)
		w.Start()
		defer w.Stop()

		time.Sleep(50 * time.Millisecond)

		payload, _ := json.Marshal(ScreeningRequest{ApplicantID: 7})
		eventBus.Publish(ctx, domain.TopicScreeningRequested, payload)

		time.Sleep(100 * time.Millisecond)

		screener.mu.Lock()
		defer screener.mu.Unlock()
		if screener.lastID != 7 {
			t.Errorf("expected applicant 7, got %d", screener.lastID)
		}
		if screener.lastCats != nil {
			t.Errorf("expected nil categories, got %v", screener.lastCats)
		}
	})

	t.Run("ScreeningErrorDoesNotStopWorker", func(t *testing.T) {
		screener := &stubScreener{failWithID: 99}
		w := NewWorker(eventBus, screener)
		w.Start()
		defer w.Stop()

		time.Sleep(50 * time.Millisecond)

		payload, _ := json.Marshal(ScreeningRequest{ApplicantID: 99})
		eventBus.Publish(ctx, domain.TopicScreeningRequested, payload)
		time.Sleep(100 * time.Millisecond)

		// Worker should still process subsequent requests
		payload, _ = json.Marshal(ScreeningRequest{ApplicantID: 1})
		eventBus.Publish(ctx, domain.TopicScreeningRequested, payload)
		time.Sleep(100 * time.Millisecond)

		if screener.calls.Load() != 2 {
			t.Errorf("expected 2 screening calls, got %d", screener.calls.Load())
		}
		screener.mu.Lock()
		defer screener.mu.Unlock()
		if screener.lastID != 1 {
			t.Errorf("expected last applicant 1, got %d", screener.lastID)
		}
	})

	t.Run("MalformedPayloadSkipped", func(t *testing.T) {
		screener := &stubScreener{}
		w := NewWorker(eventBus, screener)
		w.Start()
		defer w.Stop()

		time.Sleep(50 * time.Millisecond)

		eventBus.Publish(ctx, domain.TopicScreeningRequested, []byte("not json"))
		time.Sleep(100 * time.Millisecond)

		if screener.calls.Load() != 0 {
			t.Errorf("expected no screening calls for malformed payload, got %d", screener.calls.Load())
		}
	})
}
