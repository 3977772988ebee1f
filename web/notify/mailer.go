// Package notify mails the back office about new public submissions.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ytschitwan/portal/config"
	"github.com/ytschitwan/portal/database/model"
	"github.com/ytschitwan/portal/logger"
	"github.com/ytschitwan/portal/util/common"
	"go.uber.org/atomic"
	"gopkg.in/gomail.v2"
)

const queueSize = 64

// Mailer queues notification mails and sends them from a single goroutine.
// A full queue drops the mail; the request that triggered it is never delayed.
type Mailer struct {
	from  string
	to    []string
	queue chan *gomail.Message
	send  func(m *gomail.Message) error

	sent    atomic.Int64
	dropped atomic.Int64
	failed  atomic.Int64
}

// NewMailer returns nil when cfg has no host or no recipients.
func NewMailer(cfg config.SMTPConfig) *Mailer {
	if cfg.Host == "" || len(cfg.To) == 0 {
		return nil
	}
	from := cfg.From
	if from == "" {
		from = cfg.User
	}
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	return newMailer(from, cfg.To, dialer.DialAndSend)
}

func newMailer(from string, to []string, send func(m ...*gomail.Message) error) *Mailer {
	return &Mailer{
		from:  from,
		to:    to,
		queue: make(chan *gomail.Message, queueSize),
		send:  func(m *gomail.Message) error { return send(m) },
	}
}

// Run sends queued mails until ctx is done.
func (m *Mailer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-m.queue:
			m.deliver(msg)
		}
	}
}

func (m *Mailer) deliver(msg *gomail.Message) {
	defer common.Recover("notify mail")
	if err := m.send(msg); err != nil {
		m.failed.Inc()
		logger.Warning("notification mail failed:", err)
		return
	}
	m.sent.Inc()
}

func (m *Mailer) enqueue(subject, body string) {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", m.to...)
	msg.SetHeader("Subject", subject)
	msg.SetDateHeader("Date", time.Now())
	msg.SetBody("text/plain", body)

	select {
	case m.queue <- msg:
	default:
		m.dropped.Inc()
		logger.Warningf("notification queue full, dropped %q", subject)
	}
}

func (m *Mailer) ContactReceived(c model.Contact) {
	subject := fmt.Sprintf("[%s] New contact: %s", config.GetName(), c.Subject)
	m.enqueue(subject, contactBody(c))
}

func (m *Mailer) RegistrationCreated(e model.Event, r model.Registration) {
	subject := fmt.Sprintf("[%s] New registration for %s", config.GetName(), e.Title)
	m.enqueue(subject, registrationBody(e, r))
}

// Stats returns the sent, failed and dropped counters.
func (m *Mailer) Stats() (sent, failed, dropped int64) {
	return m.sent.Load(), m.failed.Load(), m.dropped.Load()
}

func contactBody(c model.Contact) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\n", c.Name, c.Email)
	if c.Phone != "" {
		fmt.Fprintf(&b, "Phone: %s\n", c.Phone)
	}
	if c.InquiryType != "" {
		fmt.Fprintf(&b, "Type: %s\n", c.InquiryType)
	}
	fmt.Fprintf(&b, "Subject: %s\n\n%s\n", c.Subject, c.Message)
	return b.String()
}

func registrationBody(e model.Event, r model.Registration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Event: %s (%s)\n", e.Title, e.Date.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Name: %s\nEmail: %s\nPhone: %s\n", r.Name, r.Email, r.Phone)
	if r.Message != "" {
		fmt.Fprintf(&b, "\n%s\n", r.Message)
	}
	return b.String()
}
