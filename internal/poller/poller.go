package poller

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/ranchopanda/spice-trail-boutique-sub000/internal/logger"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	consumerGroup = "storefront-checkout-consumer"
	statusDone    = "completed"
	retryDelay    = time.Second
)

// Completer is the part of the cart store the poller drives.
type Completer interface {
	CompleteCheckout(ctx context.Context, url string) bool
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// CheckoutEvent is published by the commerce system once a hosted checkout
// reaches a final state.
type CheckoutEvent struct {
	CheckoutURL string `json:"checkout_url"`
	Status      string `json:"status"`
}

// Poller empties the cart when the checkout it handed off has been paid.
type Poller struct {
	store  Completer
	reader messageReader
	logger *zap.Logger
}

func NewPoller(store Completer, l *zap.Logger, topic string, brokers ...string) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  consumerGroup,
		MaxBytes: 10e6, // 10MB
	})
	return newPoller(store, reader, l)
}

func newPoller(store Completer, reader messageReader, l *zap.Logger) *Poller {
	return &Poller{store: store, reader: reader, logger: logger.OrNop(l)}
}

// Run consumes until ctx is cancelled or the reader is closed.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("checkout consumer started")
	for {
		if ctx.Err() != nil {
			return
		}
		m, err := p.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return
			}
			p.logger.Warn("error reading message", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(retryDelay):
			}
			continue
		}
		p.handle(ctx, m)
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.logger.Warn("error closing reader", zap.Error(err))
	}
}

func (p *Poller) handle(ctx context.Context, m kafka.Message) {
	log := p.logger.With(zap.Int("partition", m.Partition), zap.Int64("offset", m.Offset))

	var event CheckoutEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		log.Warn("error parsing message", zap.Error(err))
		return
	}
	if event.CheckoutURL == "" {
		log.Warn("missing checkout_url")
		return
	}
	if event.Status != statusDone {
		log.Debug("checkout not completed, ignored", zap.String("status", event.Status))
		return
	}

	if p.store.CompleteCheckout(ctx, event.CheckoutURL) {
		log.Info("cart emptied after completed checkout")
		return
	}
	// the cart moved on since this session was created
	log.Info("completed checkout no longer matches the cart", zap.String("checkout_url", event.CheckoutURL))
}
