// Package eventbus implements the typed publish/subscribe client over
// RabbitMQ. The client owns its own reconnection policy, independent of the
// store: subscriptions are re-armed transparently after every reconnect, and
// publishing while disconnected is a logged no-op rather than a failure.
package eventbus

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/IANDYI/tracking-sync/internal/connection"
	"github.com/IANDYI/tracking-sync/internal/core/ports"
)

// Options configures the broker client.
type Options struct {
	// Retries bounds the initial connection burst; zero or negative means
	// keep trying indefinitely at Interval.
	Retries int

	// Interval between connection attempts.
	Interval time.Duration

	// ReceiveFromYourself controls whether messages published by this client
	// instance are delivered back to its own subscriptions. Default false.
	ReceiveFromYourself bool

	// TLS transport security materials; nil for a plain connection.
	TLS *tls.Config
}

// NewTLSConfig builds a TLS config trusting the CA bundle at caPath in
// addition to the system roots.
func NewTLSConfig(caPath string) (*tls.Config, error) {
	pem, err := os.ReadFile(caPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA bundle: %w", err)
	}
	pool, err := x509.SystemCertPool()
	if err != nil {
		pool = x509.NewCertPool()
	}
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in %s", caPath)
	}
	return &tls.Config{RootCAs: pool}, nil
}

type subscription struct {
	queue   string
	handler ports.MessageHandler
	tag     string
	channel *amqp091.Channel
}

// Client is the RabbitMQ implementation of ports.EventBus.
type Client struct {
	logger *zap.Logger
	opts   Options
	mgr    *connection.Manager
	cb     *gobreaker.CircuitBreaker

	// appID stamps publishes so self-deliveries can be filtered.
	appID string

	mu       sync.Mutex
	subs     map[string]*subscription
	handlers sync.WaitGroup
	disposed bool
}

// NewClient creates an uninitialized broker client.
func NewClient(logger *zap.Logger) *Client {
	settings := gobreaker.Settings{
		Name:        "rabbitmq",
		MaxRequests: 5,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	}
	return &Client{
		logger: logger,
		cb:     gobreaker.NewCircuitBreaker(settings),
		appID:  uuid.NewString(),
		subs:   make(map[string]*subscription),
	}
}

// Initialize connects to the broker at uri. On retry exhaustion the client
// keeps dialing in the background; the returned error reports the last dial
// failure but the client remains usable once the broker comes up.
func (c *Client) Initialize(ctx context.Context, uri string, opts Options) error {
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	c.opts = opts

	dial := func(ctx context.Context) (io.Closer, error) {
		if opts.TLS != nil {
			return amqp091.DialTLS(uri, opts.TLS)
		}
		return amqp091.Dial(uri)
	}

	policy := connection.RetryPolicy{
		MaxAttempts:      opts.Retries,
		Interval:         opts.Interval,
		FallbackInterval: opts.Interval,
	}
	if opts.Retries <= 0 {
		// Unbounded: a single burst attempt, then the indefinite fallback
		// loop carries the retrying forever.
		policy.MaxAttempts = 1
	}

	c.mgr = connection.NewManager("broker", dial, policy, c.logger)
	c.mgr.OnStateChange(func(state connection.State) {
		if state == connection.StateConnected {
			c.onConnected()
		}
	})
	return c.mgr.Connect(ctx)
}

// OnStateChange exposes the underlying connection transitions to observers
// (metrics, logging collaborators).
func (c *Client) OnStateChange(fn func(connection.State)) {
	c.mgr.OnStateChange(fn)
}

// State reports the broker connection state.
func (c *Client) State() connection.State {
	if c.mgr == nil {
		return connection.StateDisconnected
	}
	return c.mgr.State()
}

// onConnected arms the close notification and re-establishes every
// registered subscription on the fresh connection.
func (c *Client) onConnected() {
	conn, err := c.conn()
	if err != nil {
		return
	}

	closeCh := conn.NotifyClose(make(chan *amqp091.Error, 1))
	go func() {
		if closeErr := <-closeCh; closeErr != nil {
			c.mu.Lock()
			disposed := c.disposed
			c.mu.Unlock()
			if !disposed {
				c.logger.Warn("broker connection closed", zap.Error(closeErr))
				c.mgr.MarkLost()
			}
		}
	}()

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, sub := range c.subs {
		if err := c.consume(conn, sub); err != nil {
			c.logger.Error("failed to restore subscription",
				zap.String("queue", sub.queue), zap.Error(err))
		}
	}
}

func (c *Client) conn() (*amqp091.Connection, error) {
	handle, err := c.mgr.Handle()
	if err != nil {
		return nil, err
	}
	return handle.(*amqp091.Connection), nil
}

// Publish sends event as a persistent JSON message to the named queue. When
// the broker is unreachable (or the breaker is open) the publish resolves as
// a logged no-op: the caller's write is already durable and must not be
// rolled back by a publication failure.
func (c *Client) Publish(ctx context.Context, queue string, event interface{}) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = c.cb.Execute(func() (interface{}, error) {
		conn, err := c.conn()
		if err != nil {
			return nil, err
		}
		channel, err := conn.Channel()
		if err != nil {
			return nil, err
		}
		defer channel.Close()

		if _, err := channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return nil, err
		}
		return nil, channel.PublishWithContext(ctx,
			"",    // exchange
			queue, // routing key
			false, // mandatory
			false, // immediate
			amqp091.Publishing{
				ContentType:  "application/json",
				Body:         body,
				DeliveryMode: amqp091.Persistent,
				Timestamp:    time.Now(),
				MessageId:    uuid.NewString(),
				AppId:        c.appID,
			})
	})
	if err != nil {
		c.logger.Warn("event publication skipped",
			zap.String("queue", queue), zap.Error(err))
	}
	return nil
}

// Subscribe registers a handler for the named queue. If the broker is
// currently connected consumption starts immediately; otherwise it starts on
// the next successful reconnect.
func (c *Client) Subscribe(queue string, handler ports.MessageHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return fmt.Errorf("event bus client is disposed")
	}
	if _, ok := c.subs[queue]; ok {
		return fmt.Errorf("already subscribed to queue %s", queue)
	}

	sub := &subscription{queue: queue, handler: handler}
	c.subs[queue] = sub

	if conn, err := c.conn(); err == nil {
		if err := c.consume(conn, sub); err != nil {
			delete(c.subs, queue)
			return fmt.Errorf("failed to start consuming %s: %w", queue, err)
		}
	}
	return nil
}

// Unsubscribe cancels the subscription on the named queue.
func (c *Client) Unsubscribe(queue string) error {
	c.mu.Lock()
	sub, ok := c.subs[queue]
	delete(c.subs, queue)
	c.mu.Unlock()
	if !ok {
		return nil
	}
	if sub.channel != nil && !sub.channel.IsClosed() {
		_ = sub.channel.Cancel(sub.tag, false)
		_ = sub.channel.Close()
	}
	return nil
}

// consume opens a dedicated channel for sub and starts its delivery loop.
// QoS 1 with manual acknowledgment: one unacknowledged delivery at a time,
// acknowledged only by the handler's decision. Caller holds c.mu.
func (c *Client) consume(conn *amqp091.Connection, sub *subscription) error {
	channel, err := conn.Channel()
	if err != nil {
		return err
	}
	if _, err := channel.QueueDeclare(sub.queue, true, false, false, false, nil); err != nil {
		channel.Close()
		return err
	}
	if err := channel.Qos(1, 0, false); err != nil {
		channel.Close()
		return err
	}

	tag := fmt.Sprintf("%s-%s", sub.queue, uuid.NewString())
	deliveries, err := channel.Consume(sub.queue, tag, false, false, false, false, nil)
	if err != nil {
		channel.Close()
		return err
	}

	sub.tag = tag
	sub.channel = channel
	c.logger.Info("subscription active", zap.String("queue", sub.queue))

	c.handlers.Add(1)
	go func() {
		defer c.handlers.Done()
		for msg := range deliveries {
			c.dispatch(sub, msg)
		}
		// Delivery channel closed: connection loss is handled by the close
		// notification; a cancelled consumer just ends here.
	}()
	return nil
}

// dispatch runs the handler for one delivery and applies its decision to the
// broker acknowledgment protocol.
func (c *Client) dispatch(sub *subscription, msg amqp091.Delivery) {
	if msg.AppId == c.appID && !c.opts.ReceiveFromYourself {
		// Self-published message with self-delivery disabled: discard.
		_ = msg.Ack(false)
		return
	}

	switch sub.handler(context.Background(), msg.Body) {
	case ports.ActionAck:
		if err := msg.Ack(false); err != nil {
			c.logger.Warn("failed to acknowledge message",
				zap.String("queue", sub.queue), zap.Error(err))
		}
	case ports.ActionRequeue:
		if err := msg.Nack(false, true); err != nil {
			c.logger.Warn("failed to requeue message",
				zap.String("queue", sub.queue), zap.Error(err))
		}
	default:
		if err := msg.Nack(false, false); err != nil {
			c.logger.Warn("failed to reject message",
				zap.String("queue", sub.queue), zap.Error(err))
		}
	}
}

// Dispose cancels all subscriptions, waits for in-flight handlers to finish
// and releases the broker connection. Idempotent.
func (c *Client) Dispose() error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return nil
	}
	c.disposed = true
	subs := make([]*subscription, 0, len(c.subs))
	for _, sub := range c.subs {
		subs = append(subs, sub)
	}
	c.subs = make(map[string]*subscription)
	c.mu.Unlock()

	for _, sub := range subs {
		if sub.channel != nil && !sub.channel.IsClosed() {
			_ = sub.channel.Cancel(sub.tag, false)
			_ = sub.channel.Close()
		}
	}
	c.handlers.Wait()

	if c.mgr != nil {
		return c.mgr.Dispose()
	}
	return nil
}

var _ ports.EventBus = (*Client)(nil)
