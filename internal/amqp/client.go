// Package amqp publishes ledger events and consumes remote voice transcripts
// over RabbitMQ.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"expensetracker/internal/core"
)

// Circuit breaker states
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures        = 5
	openTimeout        = 30 * time.Second
	maxBackoff         = 30 * time.Second
	publishTimeout     = 5 * time.Second
	transcriptPrefetch = 8
)

// ErrCircuitOpen is returned while the breaker rejects publishes.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type Client struct {
	url             string
	exchangeName    string
	queueName       string
	transcriptQueue string

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	state        int32
	failureCount int64
	lastFailure  time.Time

	// Consumer seams; nil means the broker session and exponentialBackoff.
	openDeliveries deliverySource
	consumeBackoff func(attempt int) time.Duration
}

// NewClient dials url and declares the exchange, the expense event queue and,
// when transcriptQueue is set, the queue remote transcripts arrive on.
func NewClient(url, exchangeName, queueName, transcriptQueue string) (*Client, error) {
	client := &Client{
		url:             url,
		exchangeName:    exchangeName,
		queueName:       queueName,
		transcriptQueue: transcriptQueue,
	}

	if err := client.connect(); err != nil {
		return nil, err
	}

	return client, nil
}

func (c *Client) connect() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	c.conn = conn
	c.channel = channel

	if err := c.setup(); err != nil {
		c.closeLocked()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}

	return nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	for _, q := range []string{c.queueName, c.transcriptQueue} {
		if q == "" {
			continue
		}
		if _, err := c.channel.QueueDeclare(
			q,     // name
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,   // arguments
		); err != nil {
			return fmt.Errorf("declare queue %s: %w", q, err)
		}

		// Routing key is the queue name on a direct exchange.
		if err := c.channel.QueueBind(q, q, c.exchangeName, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", q, err)
		}
	}

	return nil
}

// ensureConnected redials with exponential backoff when the connection dropped.
func (c *Client) ensureConnected(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil && !c.conn.IsClosed() && c.channel != nil && !c.channel.IsClosed() {
		return nil
	}
	c.closeLocked()

	var lastErr error
	for attempt := 0; attempt < maxFailures; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if lastErr = c.connect(); lastErr == nil {
			slog.InfoContext(ctx, "Reconnected to AMQP broker", "attempt", attempt+1)
			return nil
		}
		slog.WarnContext(ctx, "AMQP reconnect failed", "attempt", attempt+1, "error", lastErr)

		t := time.NewTimer(exponentialBackoff(attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return fmt.Errorf("reconnect: %w", lastErr)
}

// exponentialBackoff returns 1s, 2s, 4s ... capped at maxBackoff.
func exponentialBackoff(attempt int) time.Duration {
	if attempt > 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "eof", "broken pipe", "closed network"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// isCircuitOpen reports whether publishes should be rejected. An open breaker
// moves to half-open once openTimeout has passed since the last failure.
func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	c.mu.Lock()
	last := c.lastFailure
	c.mu.Unlock()
	if time.Since(last) > openTimeout {
		atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
		return false
	}
	return true
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	n := atomic.AddInt64(&c.failureCount, 1)
	c.mu.Lock()
	c.lastFailure = time.Now()
	c.mu.Unlock()
	if n >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

// PublishExpenseRecorded publishes an expense.recorded event for entry.
func (c *Client) PublishExpenseRecorded(ctx context.Context, entry core.LedgerEntry) error {
	if c.isCircuitOpen() {
		return fmt.Errorf("publish expense %s: %w", entry.ID, ErrCircuitOpen)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := NewExpenseRecordedMessage(entry).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	if err := c.publish(ctx, c.queueName, body); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Published expense recorded message",
		"id", entry.ID,
		"category", entry.Category,
		"exchange", c.exchangeName,
		"queue", c.queueName)

	return nil
}

// PublishTranscript sends a transcript to the transcript queue. Remote voice
// clients use it; it is also how tests feed the consumer.
func (c *Client) PublishTranscript(ctx context.Context, transcript, source string) error {
	if c.transcriptQueue == "" {
		return errors.New("no transcript queue configured")
	}
	if c.isCircuitOpen() {
		return fmt.Errorf("publish transcript: %w", ErrCircuitOpen)
	}
	body, err := NewTranscriptMessage(transcript, source).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return c.publish(ctx, c.transcriptQueue, body)
}

func (c *Client) publish(ctx context.Context, routingKey string, body []byte) error {
	if err := c.ensureConnected(ctx); err != nil {
		c.recordFailure()
		return fmt.Errorf("connect: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()

	err := ch.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		routingKey,     // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		c.recordFailure()
		if isConnectionError(err) {
			c.mu.Lock()
			c.closeLocked()
			c.mu.Unlock()
		}
		return fmt.Errorf("publish message: %w", err)
	}

	c.recordSuccess()
	return nil
}

// deliverySource opens a consumer session and returns its delivery stream
// plus a func that releases the session.
type deliverySource func(ctx context.Context) (<-chan amqp091.Delivery, func(), error)

// errDeliveriesClosed means the broker side of a consumer session went away.
var errDeliveriesClosed = errors.New("transcript delivery channel closed")

// ConsumeTranscripts delivers remote transcripts to handler until ctx ends.
// It consumes on a channel of its own, so publish failures that reset the
// shared channel never end consumption. A lost session is reopened with
// exponential backoff. The only return values are ctx.Err() and a missing
// transcript queue. Malformed messages are dropped; handler errors requeue
// the message.
func (c *Client) ConsumeTranscripts(ctx context.Context, handler func(context.Context, *TranscriptMessage) error) error {
	if c.transcriptQueue == "" {
		return errors.New("no transcript queue configured")
	}
	open := c.openDeliveries
	if open == nil {
		open = c.openTranscriptSession
	}
	backoff := c.consumeBackoff
	if backoff == nil {
		backoff = exponentialBackoff
	}

	for attempt := 0; ; {
		delivered, err := c.consumeSession(ctx, open, handler)
		if ctxErr := ctx.Err(); ctxErr != nil {
			slog.InfoContext(ctx, "Stopping transcript consumption", "reason", ctxErr)
			return ctxErr
		}
		if delivered {
			attempt = 0
		}
		wait := backoff(attempt)
		slog.WarnContext(ctx, "Transcript consumer interrupted, retrying",
			"error", err,
			"attempt", attempt+1,
			"retry_in", wait)
		attempt++

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			slog.InfoContext(ctx, "Stopping transcript consumption", "reason", ctx.Err())
			return ctx.Err()
		case <-t.C:
		}
	}
}

// consumeSession runs one consumer session to its end. delivered reports
// whether at least one message arrived, which resets the retry backoff.
func (c *Client) consumeSession(ctx context.Context, open deliverySource, handler func(context.Context, *TranscriptMessage) error) (delivered bool, err error) {
	msgs, release, err := open(ctx)
	if err != nil {
		return false, err
	}
	defer release()

	slog.InfoContext(ctx, "Started consuming voice transcripts", "queue", c.transcriptQueue)

	for {
		select {
		case <-ctx.Done():
			return delivered, ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return delivered, errDeliveriesClosed
			}
			delivered = true

			msg, err := TranscriptMessageFromJSON(delivery.Body)
			if err != nil || strings.TrimSpace(msg.Transcript) == "" {
				slog.ErrorContext(ctx, "Dropping malformed transcript message", "error", err)
				delivery.Nack(false, false) // reject and don't requeue
				continue
			}

			if err := handler(ctx, msg); err != nil {
				slog.ErrorContext(ctx, "Failed to handle transcript",
					"error", err,
					"source", msg.Source)
				delivery.Nack(false, true) // reject and requeue
				continue
			}

			delivery.Ack(false)
		}
	}
}

// openTranscriptSession opens a dedicated consumer channel on the shared
// connection, reconnecting first when needed.
func (c *Client) openTranscriptSession(ctx context.Context) (<-chan amqp091.Delivery, func(), error) {
	if err := c.ensureConnected(ctx); err != nil {
		return nil, nil, fmt.Errorf("connect: %w", err)
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil, nil, errors.New("no AMQP connection")
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("open consumer channel: %w", err)
	}
	if err := ch.Qos(transcriptPrefetch, 0, false); err != nil {
		ch.Close()
		return nil, nil, fmt.Errorf("set consumer prefetch: %w", err)
	}

	msgs, err := ch.Consume(
		c.transcriptQueue, // queue
		"",                // consumer
		false,             // auto-ack (we want manual ack)
		false,             // exclusive
		false,             // no-local
		false,             // no-wait
		nil,               // args
	)
	if err != nil {
		ch.Close()
		return nil, nil, fmt.Errorf("start consuming: %w", err)
	}
	return msgs, func() { ch.Close() }, nil
}

func (c *Client) closeLocked() {
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	return nil
}
