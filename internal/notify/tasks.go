package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Task type names routed through asynq.
const (
	TypeReceiptPrint  = "receipt:print"
	TypeLoyaltyNotice = "loyalty:notice"
)

// ReceiptPayload identifies the order whose kitchen ticket must be printed.
type ReceiptPayload struct {
	OrderID uuid.UUID `json:"orderId"`
}

// LoyaltyNoticePayload carries the SMS notification for earned points.
type LoyaltyNoticePayload struct {
	Phone  string `json:"phone"`
	Points int64  `json:"points"`
}

// Enqueuer schedules background tasks over asynq.
type Enqueuer struct {
	Client *asynq.Client
}

// EnqueueReceipt queues a kitchen ticket print for the order. Retries are
// aggressive; a lost ticket means a lost order in the kitchen.
func (e *Enqueuer) EnqueueReceipt(ctx context.Context, orderID uuid.UUID) error {
	if e == nil || e.Client == nil {
		return nil
	}
	payload, err := json.Marshal(ReceiptPayload{OrderID: orderID})
	if err != nil {
		return fmt.Errorf("encode receipt payload: %w", err)
	}
	task := asynq.NewTask(TypeReceiptPrint, payload)
	_, err = e.Client.EnqueueContext(ctx, task,
		asynq.MaxRetry(10),
		asynq.Queue("critical"),
		asynq.Timeout(30*time.Second),
	)
	if err != nil {
		return fmt.Errorf("enqueue receipt: %w", err)
	}
	return nil
}

// EnqueueLoyaltyNotice queues the points SMS. Best effort: limited retries
// on a low-priority queue.
func (e *Enqueuer) EnqueueLoyaltyNotice(ctx context.Context, phone string, points int64) error {
	if e == nil || e.Client == nil {
		return nil
	}
	payload, err := json.Marshal(LoyaltyNoticePayload{Phone: phone, Points: points})
	if err != nil {
		return fmt.Errorf("encode loyalty notice payload: %w", err)
	}
	task := asynq.NewTask(TypeLoyaltyNotice, payload)
	_, err = e.Client.EnqueueContext(ctx, task,
		asynq.MaxRetry(3),
		asynq.Queue("default"),
		asynq.Timeout(15*time.Second),
	)
	if err != nil {
		return fmt.Errorf("enqueue loyalty notice: %w", err)
	}
	return nil
}
