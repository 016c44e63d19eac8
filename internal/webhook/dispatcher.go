// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/agencyworks/siteworks/internal/model"
	"github.com/agencyworks/siteworks/internal/util"
)

// Errors returned by Dispatch.
var (
	ErrNotRunning = errors.New("webhook dispatcher is not running")
	ErrQueueFull  = errors.New("webhook delivery queue is full")
	ErrNoTarget   = errors.New("no webhook target subscribed to event")
)

// Target is an endpoint that receives events.
type Target struct {
	URL    string
	Secret string
	// Events lists the subscribed event types. Empty means all.
	Events  []string
	Headers map[string]string
}

// HasEvent reports whether the target is subscribed to eventType.
func (t Target) HasEvent(eventType string) bool {
	return len(t.Events) == 0 || slices.Contains(t.Events, eventType)
}

// DeliveryLog records deliveries that were given up on.
type DeliveryLog interface {
	LogEvent(ctx context.Context, level, category, message, actor, ipAddress string, metadata map[string]any) error
}

// Config holds dispatcher configuration.
type Config struct {
	Targets   []Target
	Workers   int
	QueueSize int
	// MaxAttempts bounds deliveries of one event to one target.
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// Client overrides the HTTP client.
	Client *http.Client
	// BlockPrivateNetworks refuses connections to private and reserved
	// addresses. Ignored when Client is set.
	BlockPrivateNetworks bool
}

// DefaultConfig returns default dispatcher configuration.
func DefaultConfig() Config {
	return Config{
		Workers:        3,
		QueueSize:      100,
		MaxAttempts:    MaxAttempts,
		InitialBackoff: InitialBackoff,
		MaxBackoff:     MaxBackoff,
	}
}

// queuedDelivery is one event bound for one target.
type queuedDelivery struct {
	id       string
	event    string
	payload  []byte
	target   Target
	attempts int
}

// Dispatcher queues events and delivers them with retries.
type Dispatcher struct {
	cfg     Config
	client  *http.Client
	log     DeliveryLog
	logger  *slog.Logger
	queue   chan *queuedDelivery
	wg      sync.WaitGroup
	done    chan struct{}
	mu      sync.RWMutex
	running bool
}

// NewDispatcher creates a new webhook dispatcher. log may be nil.
func NewDispatcher(cfg Config, log DeliveryLog, logger *slog.Logger) *Dispatcher {
	defaults := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = defaults.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaults.QueueSize
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaults.MaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = defaults.InitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = defaults.MaxBackoff
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := cfg.Client
	if client == nil {
		transport := &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		}
		if cfg.BlockPrivateNetworks {
			transport.DialContext = util.SSRFSafeDialContext(&net.Dialer{Timeout: 5 * time.Second})
		}
		client = &http.Client{Timeout: RequestTimeout, Transport: transport}
	}

	return &Dispatcher{
		cfg:    cfg,
		client: client,
		log:    log,
		logger: logger,
		queue:  make(chan *queuedDelivery, cfg.QueueSize),
		done:   make(chan struct{}),
	}
}

// Start starts the dispatcher workers.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return
	}
	d.running = true
	d.mu.Unlock()

	d.logger.Info("starting webhook dispatcher", "workers", d.cfg.Workers, "targets", len(d.cfg.Targets))
	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
}

// Stop stops the dispatcher and waits for workers to finish. Queued and
// pending retries are dropped.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	d.mu.Unlock()

	d.logger.Info("stopping webhook dispatcher")
	close(d.done)
	d.wg.Wait()
	if n := len(d.queue); n > 0 {
		d.logger.Warn("webhook deliveries dropped on shutdown", "count", n)
	}
	d.logger.Info("webhook dispatcher stopped")
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	d.logger.Debug("webhook worker started", "worker_id", id)

	for {
		select {
		case <-d.done:
			return
		case <-ctx.Done():
			return
		case delivery := <-d.queue:
			d.process(ctx, delivery)
		}
	}
}

// Dispatch queues event for every subscribed target.
func (d *Dispatcher) Dispatch(ctx context.Context, event *Event) error {
	d.mu.RLock()
	running := d.running
	d.mu.RUnlock()
	if !running {
		return ErrNotRunning
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal webhook event: %w", err)
	}

	queued := 0
	for _, target := range d.cfg.Targets {
		if !target.HasEvent(event.Type) {
			continue
		}
		delivery := &queuedDelivery{
			id:      event.ID,
			event:   event.Type,
			payload: payload,
			target:  target,
		}
		if !d.enqueue(delivery) {
			return fmt.Errorf("%s: %w", event.Type, ErrQueueFull)
		}
		queued++
	}
	if queued == 0 {
		return fmt.Errorf("%s: %w", event.Type, ErrNoTarget)
	}

	d.logger.Debug("webhook event queued", "event_type", event.Type, "event_id", event.ID, "targets", queued)
	return nil
}

// DispatchEvent is a convenience method to dispatch an event with the given type and data.
func (d *Dispatcher) DispatchEvent(ctx context.Context, eventType string, data any) error {
	return d.Dispatch(ctx, NewEvent(eventType, data))
}

func (d *Dispatcher) enqueue(delivery *queuedDelivery) bool {
	select {
	case d.queue <- delivery:
		return true
	default:
		return false
	}
}

// retryLater requeues delivery after backoff unless the dispatcher stops first.
func (d *Dispatcher) retryLater(ctx context.Context, delivery *queuedDelivery, backoff time.Duration) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		timer := time.NewTimer(backoff)
		defer timer.Stop()

		select {
		case <-timer.C:
			if !d.enqueue(delivery) {
				d.giveUp(ctx, delivery, ErrQueueFull)
			}
		case <-d.done:
		case <-ctx.Done():
		}
	}()
}

func (d *Dispatcher) giveUp(ctx context.Context, delivery *queuedDelivery, reason error) {
	d.logger.Warn("webhook delivery failed permanently",
		"event_type", delivery.event,
		"event_id", delivery.id,
		"url", delivery.target.URL,
		"attempts", delivery.attempts,
		"reason", reason)
	if d.log == nil {
		return
	}
	err := d.log.LogEvent(ctx, model.EventLevelError, model.EventCategorySystem, "Webhook delivery failed", "", "",
		map[string]any{
			"event":    delivery.event,
			"event_id": delivery.id,
			"url":      delivery.target.URL,
			"attempts": delivery.attempts,
			"error":    reason.Error(),
		})
	if err != nil {
		d.logger.Warn("failed to record webhook failure", "error", err)
	}
}

// GenerateSignature generates an HMAC-SHA256 signature for the payload.
func GenerateSignature(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature verifies an HMAC-SHA256 signature.
func VerifySignature(payload []byte, signature, secret string) bool {
	expectedSig := GenerateSignature(payload, secret)
	return hmac.Equal([]byte(signature), []byte(expectedSig))
}
