package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/fakestore/internal/domain"
	"github.com/fjod/go_cart/fakestore/pkg/logger"
	"github.com/google/uuid"
)

// PaymentMessage is shown once a checkout has been handed off.
const PaymentMessage = "Proceeding to payment..."

var (
	ErrEmptyCart = errors.New("cart is empty")
	ErrPublish   = errors.New("checkout could not be published")
)

type LineSummary struct {
	ProductID int64   `json:"product_id"`
	Title     string  `json:"title"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	LineTotal string  `json:"line_total"`
}

type Summary struct {
	CheckoutID     string        `json:"checkout_id"`
	Lines          []LineSummary `json:"lines"`
	TotalAmount    string        `json:"total_amount"`
	TotalItemCount int           `json:"total_item_count"`
	Message        string        `json:"message"`
}

// Event is what gets published for every accepted checkout.
type Event struct {
	EventID        string        `json:"event_id"`
	SessionID      string        `json:"session_id"`
	Lines          []LineSummary `json:"lines"`
	TotalAmount    string        `json:"total_amount"`
	TotalItemCount int           `json:"total_item_count"`
	CreatedAt      time.Time     `json:"created_at"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

type Service struct {
	publisher Publisher
	log       *logger.Logger
	now       func() time.Time
}

func NewService(publisher Publisher, log *logger.Logger) *Service {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{publisher: publisher, log: log, now: time.Now}
}

// Summarize lists the lines of c with their totals.
func Summarize(c domain.Cart) (Summary, error) {
	if len(c.Lines) == 0 {
		return Summary{}, ErrEmptyCart
	}
	lines := make([]LineSummary, 0, len(c.Lines))
	for _, l := range c.Lines {
		lines = append(lines, LineSummary{
			ProductID: l.Product.ID,
			Title:     l.Product.Title,
			Quantity:  l.Quantity,
			UnitPrice: l.Product.Price,
			LineTotal: l.Total().StringFixed(2),
		})
	}
	return Summary{
		Lines:          lines,
		TotalAmount:    c.TotalAmount().StringFixed(2),
		TotalItemCount: c.TotalItemCount(),
		Message:        PaymentMessage,
	}, nil
}

// Checkout publishes the cart of sessionID. The cart itself is left alone;
// it is cleared when the order is reported complete.
func (s *Service) Checkout(ctx context.Context, sessionID string, c domain.Cart) (Summary, error) {
	summary, err := Summarize(c)
	if err != nil {
		return Summary{}, err
	}
	summary.CheckoutID = uuid.NewString()

	event := Event{
		EventID:        summary.CheckoutID,
		SessionID:      sessionID,
		Lines:          summary.Lines,
		TotalAmount:    summary.TotalAmount,
		TotalItemCount: summary.TotalItemCount,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Error(ctx, "failed to publish checkout", err)
		return Summary{}, fmt.Errorf("%w: %v", ErrPublish, err)
	}

	s.log.Info(ctx, fmt.Sprintf("checkout %s published", event.EventID))
	return summary, nil
}

// NopPublisher drops events. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error { return nil }
