package email

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/quillblog/backend/internal/logger"
	"github.com/quillblog/backend/internal/metrics"
	"github.com/quillblog/backend/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const sendTimeout = 30 * time.Second

// Mailer composes account emails, sends them and records each attempt as an
// EmailSendLog row
type Mailer struct {
	sender Sender
	db     *gorm.DB
}

// NewMailer creates a mailer. db may be nil to skip send logs.
func NewMailer(sender Sender, db *gorm.DB) *Mailer {
	return &Mailer{sender: sender, db: db}
}

// Send delivers msg and records the result. The send error is returned after
// the log row is written.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	err := m.sender.Send(ctx, msg)
	metrics.RecordEmail(err == nil)
	if err != nil {
		logger.Log.Error("Failed to send email",
			zap.Strings("to", msg.To),
			zap.String("subject", msg.Subject),
			zap.Error(err),
		)
	}

	if m.db != nil {
		entry := models.EmailSendLog{
			EmailTo:    strings.Join(msg.To, ","),
			Title:      msg.Subject,
			Content:    msg.HTML,
			SendResult: err == nil,
		}
		if dbErr := m.db.WithContext(context.WithoutCancel(ctx)).Create(&entry).Error; dbErr != nil {
			logger.Log.Warn("Failed to record email send log", zap.Error(dbErr))
		}
	}

	return err
}

// SendVerifyCode sends a password reset verification code that expires after ttl
func (m *Mailer) SendVerifyCode(ctx context.Context, to, code string, ttl time.Duration) error {
	body := fmt.Sprintf(
		"You are resetting the password, the verification code is: %s, valid within %s, please keep it properly",
		html.EscapeString(code),
		validity(ttl),
	)
	return m.Send(ctx, Message{
		To:      []string{to},
		Subject: "Verify Email",
		HTML:    body,
	})
}

// validity renders a code lifetime for the email body
func validity(ttl time.Duration) string {
	switch {
	case ttl == time.Minute:
		return "1 minute"
	case ttl >= time.Minute && ttl%time.Minute == 0:
		return fmt.Sprintf("%d minutes", int(ttl/time.Minute))
	}
	return ttl.String()
}

// SendActivation sends the account activation link issued at registration
func (m *Mailer) SendActivation(ctx context.Context, to, link string) error {
	escaped := html.EscapeString(link)
	body := fmt.Sprintf(`<p>Please click the link below to verify your email address</p>

<a href="%s" rel="bookmark">%s</a>

<p>Thanks again! If the link above cannot be opened, copy it into your browser.</p>
<p>%s</p>`, escaped, escaped, escaped)

	return m.Send(ctx, Message{
		To:      []string{to},
		Subject: "Verify your email",
		HTML:    body,
	})
}
