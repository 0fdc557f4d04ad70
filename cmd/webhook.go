package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/zinc-sig/tandem/internal/config"
	"github.com/zinc-sig/tandem/internal/output"
	"github.com/zinc-sig/tandem/internal/webhook"
)

// webhookClient converts the [webhook] table into a client.
func webhookClient(cfg config.WebhookConfig, logger *slog.Logger) *webhook.Client {
	retry := webhook.DefaultRetryConfig()
	retry.MaxRetries = cfg.Retries
	if cfg.RetryDelayMS > 0 {
		retry.InitialDelay = time.Duration(cfg.RetryDelayMS) * time.Millisecond
	}

	return webhook.NewClient(&webhook.Config{
		URL:       cfg.URL,
		Method:    cfg.Method,
		Headers:   cfg.Headers,
		Timeout:   time.Duration(cfg.TimeoutMS) * time.Millisecond,
		AuthType:  cfg.AuthType,
		AuthToken: cfg.AuthToken,
	}, retry, logger)
}

// deliverSummary sends summary to the webhook and records the outcome in
// its webhook fields. Delivery failures never fail the run.
func deliverSummary(cfg config.WebhookConfig, summary *output.Summary, logger *slog.Logger) {
	client := webhookClient(cfg, logger)

	// The payload never carries the delivery status fields.
	payload := *summary
	payload.WebhookSent = false
	payload.WebhookAttempts = 0
	payload.WebhookError = ""

	logger.Debug("sending run summary", "url", cfg.URL)

	// The run context may already be cancelled by an interrupt; the summary
	// is still worth delivering.
	delivery, err := client.Send(context.Background(), &payload)
	if delivery != nil {
		summary.WebhookAttempts = delivery.Attempts
	}
	if err != nil {
		logger.Warn("webhook delivery failed", "url", cfg.URL, "error", err)
		summary.WebhookError = err.Error()
		return
	}
	summary.WebhookSent = true
}
