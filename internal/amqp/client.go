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
)

// Circuit breaker states.
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	maxBackoff     = 30 * time.Second
	publishTimeout = 5 * time.Second
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

// Handler receives decoded messages from ConsumeEntries.
type Handler interface {
	HandleSyncMessage(ctx context.Context, msg *EntrySyncMessage) error
	HandleDeleteMessage(ctx context.Context, msg *EntryDeleteMessage) error
}

type Client struct {
	url          string
	exchangeName string
	queueName    string

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	// dialMu serializes reconnects so concurrent publishers dial once.
	dialMu sync.Mutex
	dialFn func() (*amqp091.Connection, *amqp091.Channel, error)

	state        int32
	failureCount int64
	lastFailure  time.Time
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	client := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
	}
	client.dialMu.Lock()
	defer client.dialMu.Unlock()
	if err := client.connect(); err != nil {
		return nil, err
	}
	return client, nil
}

func (c *Client) dial() (*amqp091.Connection, *amqp091.Channel, error) {
	if c.dialFn != nil {
		return c.dialFn()
	}
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}

	if err := setup(channel, c.exchangeName, c.queueName); err != nil {
		closeQuietly(channel, conn)
		return nil, nil, fmt.Errorf("setup exchange and queue: %w", err)
	}
	return conn, channel, nil
}

// connect dials and swaps in the new connection, closing the one it replaces.
// Callers hold dialMu.
func (c *Client) connect() error {
	conn, channel, err := c.dial()
	if err != nil {
		return err
	}

	c.mu.Lock()
	oldConn, oldChannel := c.conn, c.channel
	c.conn, c.channel = conn, channel
	c.mu.Unlock()

	closeQuietly(oldChannel, oldConn)
	return nil
}

func (c *Client) openChannel() *amqp091.Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel == nil || c.channel.IsClosed() {
		return nil
	}
	return c.channel
}

// ensureChannel returns an open channel, reconnecting if needed. A publisher
// that waited on dialMu reuses the channel another one just opened.
func (c *Client) ensureChannel() (*amqp091.Channel, error) {
	if ch := c.openChannel(); ch != nil {
		return ch, nil
	}
	c.dialMu.Lock()
	defer c.dialMu.Unlock()
	if ch := c.openChannel(); ch != nil {
		return ch, nil
	}
	if err := c.connect(); err != nil {
		return nil, err
	}
	if ch := c.openChannel(); ch != nil {
		return ch, nil
	}
	return nil, errors.New("channel closed right after connect")
}

func closeQuietly(ch *amqp091.Channel, conn *amqp091.Connection) {
	if ch != nil {
		_ = ch.Close()
	}
	if conn != nil {
		_ = conn.Close()
	}
}

func setup(ch *amqp091.Channel, exchange, queue string) error {
	err := ch.ExchangeDeclare(
		exchange, // name
		"direct", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Routing key is the queue name on a direct exchange
	if err := ch.QueueBind(queue, queue, exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// reconnect drops the current connection and dials again with backoff until
// it succeeds or ctx is done.
func (c *Client) reconnect(ctx context.Context) error {
	c.closeConn()
	for attempt := 0; ; attempt++ {
		c.dialMu.Lock()
		err := c.connect()
		c.dialMu.Unlock()
		if err == nil {
			slog.InfoContext(ctx, "Reconnected to AMQP", "attempt", attempt+1)
			return nil
		}
		wait := exponentialBackoff(attempt)
		slog.WarnContext(ctx, "AMQP reconnect failed", "attempt", attempt+1, "retry_in", wait, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// PublishEntrySync publishes an entry sync message.
func (c *Client) PublishEntrySync(ctx context.Context, userID, date string, version int64) error {
	body, err := NewEntrySyncMessage(userID, date, version).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, TypeEntrySync, body); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Published entry sync message",
		"user_id", userID,
		"date", date,
		"version", version,
		"exchange", c.exchangeName)
	return nil
}

// PublishEntryDelete publishes an entry delete message.
func (c *Client) PublishEntryDelete(ctx context.Context, userID, date string) error {
	body, err := NewEntryDeleteMessage(userID, date).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, TypeEntryDelete, body); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Published entry delete message",
		"user_id", userID,
		"date", date,
		"exchange", c.exchangeName)
	return nil
}

func (c *Client) publish(ctx context.Context, msgType string, body []byte) error {
	if c.isCircuitOpen() {
		return fmt.Errorf("publish %s: %w", msgType, ErrCircuitOpen)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	ch, err := c.ensureChannel()
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("publish %s: %w", msgType, err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = ch.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Type:         msgType,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		c.recordFailure()
		if isConnectionError(err) {
			c.closeConn()
		}
		return fmt.Errorf("publish %s: %w", msgType, err)
	}
	c.recordSuccess()
	return nil
}

// ConsumeEntries delivers sync and delete messages to h until ctx is done.
// A lost connection is re-established with backoff. Failed messages are
// requeued once; a second failure drops them and leaves recovery to the
// pending-sync sweep.
func (c *Client) ConsumeEntries(ctx context.Context, h Handler) error {
	for {
		err := c.consume(ctx, h)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.WarnContext(ctx, "AMQP consumer stopped, reconnecting", "error", err)
		if err := c.reconnect(ctx); err != nil {
			return err
		}
	}
}

func (c *Client) consume(ctx context.Context, h Handler) error {
	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()
	if ch == nil {
		return errors.New("channel not open")
	}

	msgs, err := ch.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack (we want manual ack)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming entry messages", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return errors.New("message channel closed")
			}
			c.dispatch(ctx, h, delivery)
		}
	}
}

func (c *Client) dispatch(ctx context.Context, h Handler, d amqp091.Delivery) {
	var err error
	switch d.Type {
	case TypeEntrySync:
		msg, decodeErr := EntrySyncMessageFromJSON(d.Body)
		if decodeErr != nil {
			slog.ErrorContext(ctx, "Failed to unmarshal sync message", "error", decodeErr)
			d.Nack(false, false)
			return
		}
		err = h.HandleSyncMessage(ctx, msg)
	case TypeEntryDelete:
		msg, decodeErr := EntryDeleteMessageFromJSON(d.Body)
		if decodeErr != nil {
			slog.ErrorContext(ctx, "Failed to unmarshal delete message", "error", decodeErr)
			d.Nack(false, false)
			return
		}
		err = h.HandleDeleteMessage(ctx, msg)
	default:
		slog.WarnContext(ctx, "Dropping message with unknown type", "type", d.Type)
		d.Nack(false, false)
		return
	}

	if err != nil {
		slog.ErrorContext(ctx, "Failed to handle message",
			"type", d.Type,
			"redelivered", d.Redelivered,
			"error", err)
		d.Nack(false, !d.Redelivered)
		return
	}
	d.Ack(false)
}

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

// exponentialBackoff returns 1s, 2s, 4s ... capped at maxBackoff.
func exponentialBackoff(attempt int) time.Duration {
	if attempt >= 5 {
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

func (c *Client) closeConn() {
	c.mu.Lock()
	ch, conn := c.channel, c.conn
	c.channel, c.conn = nil, nil
	c.mu.Unlock()
	closeQuietly(ch, conn)
}

func (c *Client) Close() error {
	c.closeConn()
	return nil
}
