// Package mail renders the transactional emails of the service and delivers
// them over SMTP. Callers treat delivery as best effort.
package mail

import (
	"bytes"
	"context"
	"html/template"
	"net/url"
	"strings"
)

// Message is a single outgoing email.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// Sender delivers a Message.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

const (
	verificationSubject = "Verify Your Email for Real Estate App"
	resetSubject        = "Password Reset Request for Your Real Estate App Account"
)

var verificationTmpl = template.Must(template.New("verify").Parse(`<p>Hello {{.Name}},</p>
<p>Thank you for registering with Real Estate App.</p>
<p>Please click on the following link to verify your email address:</p>
<p><a href="{{.Link}}">{{.Link}}</a></p>
<p>This link will expire in 24 hours.</p>
<p>If you did not register for this account, please ignore this email.</p>
<p>The Real Estate App Team</p>`))

var resetTmpl = template.Must(template.New("reset").Parse(`<p>Hello {{.Name}},</p>
<p>You have requested to reset the password for your Real Estate App account.</p>
<p>Please click on the following link to reset your password:</p>
<p><a href="{{.Link}}">{{.Link}}</a></p>
<p>This link will expire in 1 hour.</p>
<p>If you did not request a password reset, please ignore this email.</p>
<p>The Real Estate App Team</p>`))

type linkData struct {
	Name string
	Link string
}

// VerificationLink builds APP_URL/auth/verify-email?token=..&email=..
func VerificationLink(appURL, token, email string) string {
	q := url.Values{}
	q.Set("token", token)
	q.Set("email", email)
	return strings.TrimRight(appURL, "/") + "/auth/verify-email?" + q.Encode()
}

// ResetLink builds APP_URL/auth/reset-password?token=..
func ResetLink(appURL, token string) string {
	return strings.TrimRight(appURL, "/") + "/auth/reset-password?token=" + url.QueryEscape(token)
}

// VerificationMessage renders the email sent after registration or on a
// resend request. name falls back to the address when empty.
func VerificationMessage(to, name, link string) (Message, error) {
	return render(verificationTmpl, to, verificationSubject, name, link)
}

// PasswordResetMessage renders the forgot-password email.
func PasswordResetMessage(to, name, link string) (Message, error) {
	return render(resetTmpl, to, resetSubject, name, link)
}

func render(t *template.Template, to, subject, name, link string) (Message, error) {
	if name == "" {
		name = to
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, linkData{Name: name, Link: link}); err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: subject, HTML: buf.String()}, nil
}
