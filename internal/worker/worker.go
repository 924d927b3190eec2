// Package worker provides async screening processing for the Pro tier.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/opensource-finance/shikra/internal/domain"
)

// Screener runs a screening for one applicant. Satisfied by
// screening.Service.
type Screener interface {
	Screen(ctx context.Context, applicantID int64, categories []domain.Category) (*domain.DetectionResult, error)
}

// Worker processes screening requests asynchronously from the EventBus.
type Worker struct {
	bus      domain.EventBus
	screener Screener

	subscriptions []domain.Subscription
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewWorker creates a new async worker.
func NewWorker(bus domain.EventBus, screener Screener) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:      bus,
		screener: screener,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// ScreeningRequest is the message payload for async screening.
type ScreeningRequest struct {
	ApplicantID int64             `json:"applicantId"`
	Categories  []domain.Category `json:"categories,omitempty"`
	RequestID   string            `json:"requestId,omitempty"`
}

// Start subscribes to the screening request topic.
func (w *Worker) Start() error {
	sub, err := w.bus.Subscribe(w.ctx, domain.TopicScreeningRequested, w.handleMessage)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("worker started", "topic", domain.TopicScreeningRequested)
	return nil
}

// handleMessage parses and runs one screening request. Completion and
// fraud-alert events are published by the screening service itself.
func (w *Worker) handleMessage(ctx context.Context, msg *domain.Message) error {
	start := time.Now()

	var req ScreeningRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		slog.Error("failed to parse screening request",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = msg.ID
	}

	slog.Debug("processing screening request",
		"applicant_id", req.ApplicantID,
		"request_id", requestID,
	)

	result, err := w.screener.Screen(ctx, req.ApplicantID, req.Categories)
	if err != nil {
		slog.Error("screening failed",
			"applicant_id", req.ApplicantID,
			"request_id", requestID,
			"error", err,
		)
		return err
	}

	slog.Info("screening request processed",
		"applicant_id", req.ApplicantID,
		"request_id", requestID,
		"score", result.TotalScore,
		"risk", result.RiskLevel,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() error {
	w.cancel()

	// Unsubscribe all
	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	w.wg.Wait()

	slog.Info("worker stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
