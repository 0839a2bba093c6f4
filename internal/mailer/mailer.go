package mailer

import (
	"context"
	"fmt"

	"github.com/membergate/membergate/config"
	apperrors "github.com/membergate/membergate/internal/errors"
	"github.com/membergate/membergate/internal/logger"
	"github.com/mrz1836/postmark"
)

// Sender delivers the temporary credential to a newly provisioned member.
// This is the only channel the plaintext credential ever travels through.
type Sender interface {
	SendTemporaryPassword(ctx context.Context, email, password string) error
}

// New returns a Postmark-backed sender when tokens are configured, otherwise
// a log-only sender for development.
func New(cfg config.MailConfig) Sender {
	if cfg.PostmarkServerToken == "" || cfg.SenderEmail == "" {
		logger.Info("Postmark not configured; credential emails will not be sent")
		return &logSender{}
	}
	return &postmarkSender{
		client: postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken),
		cfg:    cfg,
	}
}

type postmarkSender struct {
	client *postmark.Client
	cfg    config.MailConfig
}

func (s *postmarkSender) SendTemporaryPassword(ctx context.Context, email, password string) error {
	body := fmt.Sprintf(
		"Welcome!\n\nYour membership is active. Sign in with this email address and the temporary password below, then change it.\n\nTemporary password: %s\n\nQuestions? Reply to this email.\n",
		password,
	)

	resp, err := s.client.SendEmail(ctx, postmark.Email{
		From:     s.cfg.SenderEmail,
		ReplyTo:  s.cfg.SupportEmail,
		To:       email,
		Subject:  "Your membership access",
		Tag:      "member-credentials",
		TextBody: body,
	})
	if err != nil {
		return apperrors.ProviderError{Provider: "postmark", Operation: "send email", Err: err}
	}
	if resp.ErrorCode > 0 {
		return apperrors.ProviderError{
			Provider:  "postmark",
			Operation: "send email",
			Err:       fmt.Errorf("postmark error %d: %s", resp.ErrorCode, resp.Message),
		}
	}
	return nil
}

// logSender records that a credential was issued without ever logging the
// credential itself.
type logSender struct{}

func (s *logSender) SendTemporaryPassword(ctx context.Context, email, password string) error {
	logger.Info("Credential email skipped (mail not configured)", "email", email)
	return nil
}
