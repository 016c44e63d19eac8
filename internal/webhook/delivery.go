// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package webhook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// Delivery configuration constants
const (
	MaxAttempts    = 5                 // Maximum number of delivery attempts
	InitialBackoff = 10 * time.Second  // Initial backoff delay
	MaxBackoff     = 10 * time.Minute  // Maximum backoff delay
	RequestTimeout = 30 * time.Second  // HTTP request timeout
	MaxResponseLen = 10 * 1024         // Maximum response body kept for logs (10KB)
	UserAgent      = "Siteworks-Webhook/1.0"
)

// Delivery headers.
const (
	HeaderSignature  = "X-Webhook-Signature"
	HeaderEvent      = "X-Webhook-Event"
	HeaderDeliveryID = "X-Webhook-Delivery-ID"
	HeaderAttempt    = "X-Webhook-Attempt"
)

// DeliveryResult represents the result of a delivery attempt.
type DeliveryResult struct {
	Success      bool
	StatusCode   int
	ResponseBody string
	Error        error
	ShouldRetry  bool
}

// process attempts one delivery and schedules a retry or gives up on failure.
func (d *Dispatcher) process(ctx context.Context, delivery *queuedDelivery) {
	delivery.attempts++
	result := d.attemptDelivery(ctx, delivery)

	if result.Success {
		d.logger.Info("webhook delivered",
			"event_type", delivery.event,
			"event_id", delivery.id,
			"status_code", result.StatusCode,
			"attempt", delivery.attempts)
		return
	}

	if !result.ShouldRetry || delivery.attempts >= d.cfg.MaxAttempts {
		d.giveUp(ctx, delivery, result.Error)
		return
	}

	backoff := d.backoff(delivery.attempts)
	d.logger.Info("webhook delivery scheduled for retry",
		"event_type", delivery.event,
		"event_id", delivery.id,
		"attempt", delivery.attempts,
		"backoff", backoff.String(),
		"error", result.Error)
	d.retryLater(ctx, delivery, backoff)
}

// attemptDelivery performs the actual HTTP POST request.
func (d *Dispatcher) attemptDelivery(ctx context.Context, delivery *queuedDelivery) DeliveryResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, delivery.target.URL, bytes.NewReader(delivery.payload))
	if err != nil {
		return DeliveryResult{
			Error:       fmt.Errorf("failed to create request: %w", err),
			ShouldRetry: false, // Bad URL, don't retry
		}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set(HeaderSignature, GenerateSignature(delivery.payload, delivery.target.Secret))
	req.Header.Set(HeaderEvent, delivery.event)
	req.Header.Set(HeaderDeliveryID, delivery.id)
	req.Header.Set(HeaderAttempt, strconv.Itoa(delivery.attempts))
	for key, value := range delivery.target.Headers {
		req.Header.Set(key, value)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return DeliveryResult{
			Error:       fmt.Errorf("request failed: %w", err),
			ShouldRetry: !errors.Is(err, context.Canceled),
		}
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseLen))
	responseBody := string(body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return DeliveryResult{
			Success:      true,
			StatusCode:   resp.StatusCode,
			ResponseBody: responseBody,
		}
	}

	// 4xx is final except 408 and 429.
	shouldRetry := resp.StatusCode >= 500 ||
		resp.StatusCode == http.StatusRequestTimeout ||
		resp.StatusCode == http.StatusTooManyRequests
	return DeliveryResult{
		StatusCode:   resp.StatusCode,
		ResponseBody: responseBody,
		Error:        fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
		ShouldRetry:  shouldRetry,
	}
}

// backoff doubles the initial delay per attempt, capped at MaxBackoff.
func (d *Dispatcher) backoff(attempt int) time.Duration {
	return calculateBackoff(attempt, d.cfg.InitialBackoff, d.cfg.MaxBackoff)
}

func calculateBackoff(attempt int, initial, maxBackoff time.Duration) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}
	backoff := initial
	for i := 1; i < attempt; i++ {
		backoff *= 2
		if backoff >= maxBackoff {
			return maxBackoff
		}
	}
	return min(backoff, maxBackoff)
}
