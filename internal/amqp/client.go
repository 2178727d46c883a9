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

// Circuit breaker states
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	maxBackoff     = 30 * time.Second
	connectRetries = 3
	publishTimeout = 5 * time.Second
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

// Publisher sends export audit events to a direct exchange. The connection
// is opened lazily and re-established after connection errors.
type Publisher struct {
	url          string
	exchangeName string
	queueName    string

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	state        int32
	failureCount int64
	failureMu    sync.Mutex
	lastFailure  time.Time
}

func NewPublisher(ctx context.Context, url, exchangeName, queueName string) (*Publisher, error) {
	p := &Publisher{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.connectLocked(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) connectLocked(ctx context.Context) error {
	var lastErr error
	for attempt := range connectRetries {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(exponentialBackoff(attempt - 1)):
			}
		}

		conn, err := amqp091.Dial(p.url)
		if err != nil {
			lastErr = fmt.Errorf("dial AMQP: %w", err)
			slog.WarnContext(ctx, "AMQP dial failed", "attempt", attempt+1, "error", err)
			continue
		}

		channel, err := conn.Channel()
		if err != nil {
			conn.Close()
			lastErr = fmt.Errorf("open channel: %w", err)
			continue
		}

		p.conn, p.channel = conn, channel
		if err := p.setup(); err != nil {
			p.closeLocked()
			return fmt.Errorf("setup exchange and queue: %w", err)
		}
		return nil
	}
	return lastErr
}

func (p *Publisher) setup() error {
	// Declare exchange
	err := p.channel.ExchangeDeclare(
		p.exchangeName, // name
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

	// Declare queue
	_, err = p.channel.QueueDeclare(
		p.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Routing key is the queue name
	err = p.channel.QueueBind(
		p.queueName,
		p.queueName,
		p.exchangeName,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// PublishExportEvent publishes a persistent export audit event.
func (p *Publisher) PublishExportEvent(ctx context.Context, ev ExportEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.isCircuitOpen() {
		return fmt.Errorf("publish export event: %w", ErrCircuitOpen)
	}

	body, err := ev.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel == nil || p.channel.IsClosed() {
		if err := p.connectLocked(ctx); err != nil {
			p.recordFailure()
			return fmt.Errorf("reconnect: %w", err)
		}
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = p.channel.PublishWithContext(
		pubCtx,
		p.exchangeName, // exchange
		p.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    ev.Timestamp,
			MessageId:    ev.JobID,
			Body:         body,
		},
	)
	if err != nil {
		if isConnectionError(err) {
			p.closeLocked()
		}
		p.recordFailure()
		return fmt.Errorf("publish message: %w", err)
	}
	p.recordSuccess()

	slog.DebugContext(ctx, "Published export event",
		"job_id", ev.JobID,
		"state", ev.State,
		"exchange", p.exchangeName,
		"queue", p.queueName)

	return nil
}

func (p *Publisher) isCircuitOpen() bool {
	if atomic.LoadInt32(&p.state) != StateOpen {
		return false
	}
	p.failureMu.Lock()
	last := p.lastFailure
	p.failureMu.Unlock()
	if time.Since(last) > openTimeout {
		atomic.CompareAndSwapInt32(&p.state, StateOpen, StateHalfOpen)
		return false
	}
	return true
}

func (p *Publisher) recordSuccess() {
	atomic.StoreInt64(&p.failureCount, 0)
	atomic.StoreInt32(&p.state, StateClosed)
}

func (p *Publisher) recordFailure() {
	p.failureMu.Lock()
	p.lastFailure = time.Now()
	p.failureMu.Unlock()

	n := atomic.AddInt64(&p.failureCount, 1)
	if n >= maxFailures || atomic.LoadInt32(&p.state) == StateHalfOpen {
		atomic.StoreInt32(&p.state, StateOpen)
	}
}

func (p *Publisher) closeLocked() {
	if p.channel != nil {
		p.channel.Close()
		p.channel = nil
	}
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		p.channel.Close()
		p.channel = nil
	}
	if p.conn != nil {
		err := p.conn.Close()
		p.conn = nil
		return err
	}
	return nil
}

// exponentialBackoff returns 1s, 2s, 4s... capped at maxBackoff.
func exponentialBackoff(attempt int) time.Duration {
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	return min(d, maxBackoff)
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{
		"connection refused",
		"connection closed",
		"EOF",
		"broken pipe",
		"use of closed network connection",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
