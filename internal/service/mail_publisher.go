package service

import (
    "context"
    "encoding/json"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"

    "github.com/iliyamo/property-listings/internal/mail"
    "github.com/iliyamo/property-listings/internal/queue"
)

// MailPublisher implements Mailer by publishing a MailRequestedEvent to the
// "mail.requested" queue; queue.Consumer performs the actual delivery.
// Errors are logged and returned so the caller can choose to ignore them.
type MailPublisher struct {
    url string
    log *zap.Logger
}

func NewMailPublisher(url string, log *zap.Logger) *MailPublisher {
    return &MailPublisher{url: url, log: log}
}

// Send dials the broker, ensures the queue exists and publishes m as a
// persistent message.
func (p *MailPublisher) Send(ctx context.Context, m mail.Message) error {
    conn, err := amqp.Dial(p.url)
    if err != nil {
        p.log.Warn("rabbitmq: dial failed", zap.Error(err))
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        p.log.Warn("rabbitmq: channel open failed", zap.Error(err))
        return err
    }
    defer func() { _ = ch.Close() }()

    // Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(
        queue.MailQueue, // name
        true,            // durable
        false,           // autoDelete
        false,           // exclusive
        false,           // noWait
        nil,             // args
    ); err != nil {
        p.log.Warn("rabbitmq: queue declare failed", zap.Error(err))
        return err
    }

    now := time.Now().UTC()
    body, err := json.Marshal(queue.MailRequestedEvent{
        To:          m.To,
        Subject:     m.Subject,
        HTML:        m.HTML,
        RequestedAt: now.Format(time.RFC3339),
    })
    if err != nil {
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        Timestamp:    now,
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx,
        "",              // default exchange
        queue.MailQueue, // routing key = queue name
        false,           // mandatory
        false,           // immediate
        pub,
    ); err != nil {
        p.log.Warn("rabbitmq: publish failed", zap.Error(err))
        return err
    }
    return nil
}
