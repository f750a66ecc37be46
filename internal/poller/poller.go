package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fjod/go_cart/fakestore/pkg/logger"
	"github.com/segmentio/kafka-go"
)

// CartClearer empties the cart of one session.
type CartClearer interface {
	ClearSession(ctx context.Context, sessionID string) error
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Poller consumes order-completed events and clears the matching cart.
type Poller struct {
	reader  messageReader
	clearer CartClearer
	log     *logger.Logger
}

type orderCompleted struct {
	SessionID string `json:"session_id"`
}

func NewPoller(clearer CartClearer, log *logger.Logger, topic, groupID string, brokers ...string) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
	return newPoller(reader, clearer, log)
}

func newPoller(reader messageReader, clearer CartClearer, log *logger.Logger) *Poller {
	if log == nil {
		log = logger.Nop()
	}
	return &Poller{reader: reader, clearer: clearer, log: log}
}

// Run blocks until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		p.poll(ctx)
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.log.Warn(context.Background(), "error closing reader", err)
	}
}

func (p *Poller) poll(ctx context.Context) {
	m, err := p.reader.ReadMessage(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			p.log.Error(ctx, "error reading message", err)
		}
		return
	}

	var payload orderCompleted
	if errUnmarshal := json.Unmarshal(m.Value, &payload); errUnmarshal != nil {
		p.log.Warn(ctx, "error parsing message", errUnmarshal)
		return
	}
	if payload.SessionID == "" {
		p.log.Warn(ctx, fmt.Sprintf("message at offset %d has no session_id", m.Offset), nil)
		return
	}

	ctx = p.log.WithSessionID(ctx, payload.SessionID)
	if errClear := p.clearer.ClearSession(ctx, payload.SessionID); errClear != nil {
		p.log.Error(ctx, "failed to clear cart", errClear)
		return
	}
	p.log.Info(ctx, "cart cleared after completed order")
}
