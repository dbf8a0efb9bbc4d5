package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/twinpizza/backend-orders/internal/checkout"
	"github.com/twinpizza/backend-orders/internal/pricing"
)

// TicketPrinter sends a rendered ticket to the kitchen printer.
type TicketPrinter interface {
	Print(ctx context.Context, ticket string) error
}

// SMSSender delivers a text message.
type SMSSender interface {
	Send(ctx context.Context, phone, message string) error
}

// Worker consumes background tasks.
type Worker struct {
	Orders  *checkout.Store
	Printer TicketPrinter
	SMS     SMSSender
	Log     zerolog.Logger
}

// Register attaches the task handlers to an asynq mux.
func (w *Worker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeReceiptPrint, w.HandleReceipt)
	mux.HandleFunc(TypeLoyaltyNotice, w.HandleLoyaltyNotice)
}

// HandleReceipt renders and prints the kitchen ticket for an order.
func (w *Worker) HandleReceipt(ctx context.Context, task *asynq.Task) error {
	var payload ReceiptPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode receipt payload: %w: %w", err, asynq.SkipRetry)
	}
	if w.Orders == nil {
		return fmt.Errorf("order store not configured: %w", asynq.SkipRetry)
	}
	order, err := w.Orders.Get(ctx, payload.OrderID)
	if err != nil {
		return fmt.Errorf("load order %s: %w", payload.OrderID, err)
	}
	ticket := RenderTicket(order)
	if w.Printer == nil {
		w.Log.Info().Str("order_id", order.ID.String()).Msg("no printer configured, ticket logged only")
		w.Log.Info().Msg(ticket)
		return nil
	}
	if err := w.Printer.Print(ctx, ticket); err != nil {
		return fmt.Errorf("print ticket for %s: %w", order.ID, err)
	}
	w.Log.Info().Str("order_id", order.ID.String()).Msg("kitchen ticket printed")
	return nil
}

// HandleLoyaltyNotice sends the earned-points SMS.
func (w *Worker) HandleLoyaltyNotice(ctx context.Context, task *asynq.Task) error {
	var payload LoyaltyNoticePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode loyalty notice payload: %w: %w", err, asynq.SkipRetry)
	}
	if payload.Phone == "" {
		return fmt.Errorf("loyalty notice without phone: %w", asynq.SkipRetry)
	}
	message := fmt.Sprintf("Merci pour votre commande ! Vous avez gagné %d points fidélité.", payload.Points)
	if w.SMS == nil {
		w.Log.Info().Str("phone", payload.Phone).Int64("points", payload.Points).
			Msg("no sms sender configured, loyalty notice logged only")
		return nil
	}
	if err := w.SMS.Send(ctx, payload.Phone, message); err != nil {
		return fmt.Errorf("send loyalty sms: %w", err)
	}
	return nil
}

// RenderTicket formats an order for the kitchen printer. Line summaries come
// from the pricing engine so the ticket always matches what was charged.
func RenderTicket(order checkout.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "COMMANDE %s\n", shortID(order.ID))
	fmt.Fprintf(&b, "Canal: %s\n", order.Channel)
	if order.CustomerName != "" {
		fmt.Fprintf(&b, "Client: %s\n", order.CustomerName)
	}
	if order.Phone != "" {
		fmt.Fprintf(&b, "Tel: %s\n", order.Phone)
	}
	b.WriteString("------------------------------\n")
	for _, item := range order.Items {
		fmt.Fprintf(&b, "%dx %s  %s\n", item.Quantity, item.ProductRef, pricing.FormatEUR(item.LineTotal))
		if item.Summary != "" {
			fmt.Fprintf(&b, "   %s\n", item.Summary)
		}
	}
	b.WriteString("------------------------------\n")
	if order.Total.PromotionDiscount > 0 {
		fmt.Fprintf(&b, "Remise: -%s\n", pricing.FormatEUR(order.Total.PromotionDiscount))
	}
	if order.Total.DeliveryFee > 0 {
		fmt.Fprintf(&b, "Livraison: %s\n", pricing.FormatEUR(order.Total.DeliveryFee))
	}
	fmt.Fprintf(&b, "TOTAL: %s\n", pricing.FormatEUR(order.Total.GrandTotal))
	if order.Note != "" {
		fmt.Fprintf(&b, "Note: %s\n", order.Note)
	}
	return b.String()
}

func shortID(id uuid.UUID) string {
	s := id.String()
	return strings.ToUpper(s[:8])
}
