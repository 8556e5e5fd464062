package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/International-Combat-Archery-Alliance/email"
	"github.com/International-Combat-Archery-Alliance/email/awsses"
	"github.com/International-Combat-Archery-Alliance/team-tickets/config"
	"github.com/International-Combat-Archery-Alliance/team-tickets/smtpmail"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

var _ email.Sender = &EmailLogger{}

// email.Sender that logs out the email contents for local dev
type EmailLogger struct {
	logger *slog.Logger
}

func (el *EmailLogger) SendEmail(ctx context.Context, e email.Email) error {
	el.logger.InfoContext(ctx, "email that would be sent",
		slog.String("from", e.FromAddress),
		slog.Any("to", e.ToAddresses),
		slog.String("subject", e.Subject),
		slog.String("text-body", e.TextBody),
	)

	return nil
}

func createAWSEmailSender(ctx context.Context, awsCfg *awsConfigLoader) (*awsses.AWSSESSender, error) {
	cfg, err := awsCfg.load(ctx)
	if err != nil {
		return nil, err
	}

	sesClient := sesv2.NewFromConfig(cfg)
	sender := awsses.NewAWSSESSender(sesClient)

	return sender, nil
}

func createSMTPEmailSender(ctx context.Context, cfg config.SMTPConfig, awsCfg *awsConfigLoader) (*smtpmail.Sender, error) {
	password := cfg.Password
	if cfg.PasswordSSMParam != "" {
		var err error
		password, err = getSSMParameter(ctx, awsCfg, cfg.PasswordSSMParam)
		if err != nil {
			return nil, err
		}
	}

	return smtpmail.NewSender(smtpmail.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: password,
	}), nil
}

func getSSMParameter(ctx context.Context, awsCfg *awsConfigLoader, name string) (string, error) {
	cfg, err := awsCfg.load(ctx)
	if err != nil {
		return "", err
	}

	out, err := ssm.NewFromConfig(cfg).GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get ssm parameter %q: %w", name, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("ssm parameter %q has no value", name)
	}

	return *out.Parameter.Value, nil
}

func createEmailSender(ctx context.Context, cfg *config.Config, logger *slog.Logger, awsCfg *awsConfigLoader) (email.Sender, error) {
	switch cfg.Mail.Provider {
	case config.MailSMTP:
		return createSMTPEmailSender(ctx, cfg.SMTP, awsCfg)
	case config.MailSES:
		return createAWSEmailSender(ctx, awsCfg)
	default:
		return &EmailLogger{logger: logger}, nil
	}
}
