package queue

import (
    "context"
    "encoding/json"
    "errors"
    "log/slog"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

// redialAfter is how long the publisher stays quiet after a failed dial.
const redialAfter = 30 * time.Second

// Publisher sends lifecycle events to RabbitMQ.  The connection is opened
// lazily and reopened after a failure; errors are logged and returned so
// callers can ignore them without interrupting the request flow.
type Publisher struct {
    url string

    mu         sync.Mutex
    conn       *amqp.Connection
    ch         *amqp.Channel
    retryAfter time.Time
}

// NewPublisher returns a publisher for url.  No connection is made yet.
func NewPublisher(url string) *Publisher {
    return &Publisher{url: url}
}

// Publish marshals ev and routes it to EventsQueue as a persistent message.
func (p *Publisher) Publish(ctx context.Context, ev LifecycleEvent) error {
    body, err := json.Marshal(ev)
    if err != nil {
        slog.Error("rabbitmq: marshal event failed", "error", err)
        return err
    }
    p.mu.Lock()
    defer p.mu.Unlock()

    ch, err := p.channel()
    if err != nil {
        slog.Warn("rabbitmq: channel unavailable", "error", err, "kind", ev.Kind)
        return err
    }
    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", EventsQueue, false, false, pub); err != nil {
        slog.Warn("rabbitmq: publish failed", "error", err, "kind", ev.Kind)
        p.reset()
        return err
    }
    return nil
}

// channel returns the open channel, dialing and declaring the queue when
// needed.  Caller holds p.mu.
func (p *Publisher) channel() (*amqp.Channel, error) {
    if p.ch != nil && !p.ch.IsClosed() {
        return p.ch, nil
    }
    p.reset()
    if p.url == "" {
        return nil, errors.New("rabbitmq url not configured")
    }
    if time.Now().Before(p.retryAfter) {
        return nil, errors.New("rabbitmq unavailable, waiting before redial")
    }
    conn, err := amqp.DialConfig(p.url, amqp.Config{
        Heartbeat: 10 * time.Second,
        Locale:    "en_US",
        Dial:      amqp.DefaultDial(3 * time.Second),
    })
    if err != nil {
        p.retryAfter = time.Now().Add(redialAfter)
        return nil, err
    }
    ch, err := conn.Channel()
    if err != nil {
        _ = conn.Close()
        return nil, err
    }
    // Durable so events survive broker restarts.
    if _, err := ch.QueueDeclare(EventsQueue, true, false, false, false, nil); err != nil {
        _ = ch.Close()
        _ = conn.Close()
        return nil, err
    }
    p.conn, p.ch = conn, ch
    return ch, nil
}

func (p *Publisher) reset() {
    if p.ch != nil {
        _ = p.ch.Close()
    }
    if p.conn != nil {
        _ = p.conn.Close()
    }
    p.ch, p.conn = nil, nil
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
    p.mu.Lock()
    defer p.mu.Unlock()
    p.reset()
    return nil
}
