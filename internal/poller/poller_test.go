package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/ranchopanda/spice-trail-boutique-sub000/internal/domain"
	"github.com/ranchopanda/spice-trail-boutique-sub000/internal/persistence"
	"github.com/ranchopanda/spice-trail-boutique-sub000/internal/store"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"gotest.tools/v3/assert"
)

type fakeReader struct {
	m        sync.Mutex
	messages []kafkaGo.Message
	errs     []error
	closed   bool
}

func (f *fakeReader) ReadMessage(ctx context.Context) (kafkaGo.Message, error) {
	f.m.Lock()
	defer f.m.Unlock()
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return kafkaGo.Message{}, err
	}
	if len(f.messages) == 0 {
		return kafkaGo.Message{}, io.EOF
	}
	m := f.messages[0]
	f.messages = f.messages[1:]
	return m, nil
}

func (f *fakeReader) Close() error {
	f.m.Lock()
	defer f.m.Unlock()
	f.closed = true
	return nil
}

type fakeSessions struct{ url string }

func (f fakeSessions) CreateSession(context.Context, []domain.LineItem) (string, error) {
	return f.url, nil
}

func message(t *testing.T, url, status string) kafkaGo.Message {
	payload, err := json.Marshal(CheckoutEvent{CheckoutURL: url, Status: status})
	require.NoError(t, err)
	return kafkaGo.Message{Key: []byte(url), Value: payload}
}

// cartWithCheckout returns a store holding one line and a checkout URL.
func cartWithCheckout(t *testing.T, url string) *store.Store {
	ctx := context.Background()
	adapter := persistence.NewAdapter(persistence.NewMemoryBackend(), "organic-cart", nil)
	s := store.New(ctx, adapter, fakeSessions{url: url}, "USD", nil)
	t.Cleanup(s.Close)

	require.NoError(t, s.AddItem(ctx, domain.LineItem{
		VariantID: "gid://shop/ProductVariant/11",
		UnitPrice: domain.Money{Amount: "8.50", CurrencyCode: "USD"},
	}, 2))
	got, err := s.CreateCheckout(ctx)
	require.NoError(t, err)
	require.Equal(t, url, got)
	return s
}

func TestPoller_CompletedCheckoutEmptiesCart(t *testing.T) {
	s := cartWithCheckout(t, "https://shop.example/c/1")
	reader := &fakeReader{messages: []kafkaGo.Message{message(t, "https://shop.example/c/1", "completed")}}

	newPoller(s, reader, nil).Run(context.Background())

	assert.Equal(t, 0, s.TotalItems())
	assert.Equal(t, "", s.CheckoutURL())
}

func TestPoller_IgnoresOtherMessages(t *testing.T) {
	s := cartWithCheckout(t, "https://shop.example/c/1")
	reader := &fakeReader{messages: []kafkaGo.Message{
		{Value: []byte("not json")},
		message(t, "", "completed"),
		message(t, "https://shop.example/c/1", "abandoned"),
		message(t, "https://shop.example/c/other", "completed"),
	}}

	newPoller(s, reader, nil).Run(context.Background())

	assert.Equal(t, 2, s.TotalItems())
	assert.Equal(t, "https://shop.example/c/1", s.CheckoutURL())
}

func TestPoller_StaleCheckoutKeepsCart(t *testing.T) {
	s := cartWithCheckout(t, "https://shop.example/c/1")
	require.NoError(t, s.AddItem(context.Background(), domain.LineItem{
		VariantID: "gid://shop/ProductVariant/31",
		UnitPrice: domain.Money{Amount: "4.00", CurrencyCode: "USD"},
	}, 1))
	reader := &fakeReader{messages: []kafkaGo.Message{message(t, "https://shop.example/c/1", "completed")}}

	newPoller(s, reader, nil).Run(context.Background())

	assert.Equal(t, 3, s.TotalItems())
}

func TestPoller_RetriesAfterReadError(t *testing.T) {
	s := cartWithCheckout(t, "https://shop.example/c/1")
	reader := &fakeReader{
		errs:     []error{errors.New("broker not available")},
		messages: []kafkaGo.Message{message(t, "https://shop.example/c/1", "completed")},
	}

	start := time.Now()
	newPoller(s, reader, nil).Run(context.Background())

	assert.Equal(t, 0, s.TotalItems())
	assert.Assert(t, time.Since(start) >= retryDelay)
}

func TestPoller_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	reader := &fakeReader{messages: []kafkaGo.Message{message(t, "https://shop.example/c/1", "completed")}}

	newPoller(nil, reader, nil).Run(ctx)

	assert.Equal(t, 1, len(reader.messages))
}

func TestPoller_Close(t *testing.T) {
	reader := &fakeReader{}
	newPoller(nil, reader, nil).Close()
	assert.Assert(t, reader.closed)
}

func setupKafka(t *testing.T) (string, func()) {
	ctx := context.Background()

	kafkaContainer, err := kafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err)

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers, "broker address should not be empty")

	cleanup := func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate kafka container: %v", err)
		}
	}

	return brokers[0], cleanup
}

func createTopic(t *testing.T, brokerAddr, topic string) {
	conn, err := kafkaGo.Dial("tcp", brokerAddr)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	controllerConn, err := kafkaGo.Dial("tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	require.NoError(t, err)
	defer controllerConn.Close()

	err = controllerConn.CreateTopics(kafkaGo.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil {
		t.Logf("topic creation error (may already exist): %v", err)
	}
}

func TestPoller_Kafka(t *testing.T) {
	if testing.Short() {
		t.Skip("needs docker")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broker, cleanupKafka := setupKafka(t)
	defer cleanupKafka()
	topic := "checkout-completed"
	createTopic(t, broker, topic)

	s := cartWithCheckout(t, "https://shop.example/c/42")
	poller := NewPoller(s, nil, topic, broker)
	defer poller.Close()

	w := &kafkaGo.Writer{
		Addr:                   kafkaGo.TCP(broker),
		Topic:                  topic,
		Balancer:               &kafkaGo.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	err := w.WriteMessages(ctx, message(t, "https://shop.example/c/42", "completed"))
	require.NoError(t, err)
	w.Close()

	go poller.Run(ctx)
	require.Eventually(t, func() bool {
		return s.TotalItems() == 0
	}, 30*time.Second, 500*time.Millisecond)
}
