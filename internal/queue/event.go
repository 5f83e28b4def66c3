// Package queue defines message payloads exchanged over the message broker
// and the consumer that processes them.
package queue

import "github.com/iliyamo/property-listings/internal/mail"

// MailQueue is the durable queue carrying outgoing emails.
const MailQueue = "mail.requested"

// MailRequestedEvent is published whenever the API wants an email sent
// (verification or password reset). It carries the fully rendered message
// so the consumer never has to query the primary database.
type MailRequestedEvent struct {
    To          string `json:"to"`
    Subject     string `json:"subject"`
    HTML        string `json:"html"`
    RequestedAt string `json:"requested_at"`
}

// Message converts the event back into a deliverable mail.Message.
func (e MailRequestedEvent) Message() mail.Message {
    return mail.Message{To: e.To, Subject: e.Subject, HTML: e.HTML}
}
