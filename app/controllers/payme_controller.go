package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/futapp/futapp-api/app/models"
	"github.com/futapp/futapp-api/internal/pkg/ledger"
	"github.com/futapp/futapp-api/internal/pkg/payme"
)

// WebhookStats exposes the callback counters.
type WebhookStats interface {
	Snapshot(ctx context.Context) (map[string]map[string]int64, error)
	Drain(ctx context.Context) (map[string]map[string]int64, error)
}

// TransactionAudit reads ledger records for operators.
type TransactionAudit interface {
	CheckTransaction(ctx context.Context, providerTxID string) (*models.PaymentTransaction, error)
	Events(ctx context.Context, providerTxID string) ([]models.PaymentTransactionEvent, error)
}

// PaymeController handles the Payme Merchant API endpoint
type PaymeController struct {
	server  *payme.Server
	timeout time.Duration
	stats   WebhookStats
	audit   TransactionAudit
}

// NewPaymeController creates a new Payme controller. stats may be nil when
// Redis is disabled.
func NewPaymeController(server *payme.Server, timeout time.Duration, stats WebhookStats, audit TransactionAudit) *PaymeController {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &PaymeController{server: server, timeout: timeout, stats: stats, audit: audit}
}

// HandleWebhook answers every callback with HTTP 200, protocol errors are
// reported inside the JSON-RPC envelope.
func (pc *PaymeController) HandleWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)

	ctx, cancel := context.WithTimeout(c.UserContext(), pc.timeout)
	defer cancel()

	resp := pc.server.Handle(ctx, payme.Inbound{
		HTTPMethod:    c.Method(),
		Authorization: c.Get(fiber.HeaderAuthorization),
		RemoteIP:      c.IP(),
		RequestID:     c.GetRespHeader(fiber.HeaderXRequestID),
		Body:          rawBody,
	})
	return c.Status(fiber.StatusOK).JSON(resp)
}

// HandleWebhookStats returns the callback counters. ?reset=true drains them.
func (pc *PaymeController) HandleWebhookStats(c *fiber.Ctx) error {
	if pc.stats == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "stats_unavailable"})
	}

	read := pc.stats.Snapshot
	if c.QueryBool("reset", false) {
		read = pc.stats.Drain
	}
	counts, err := read(c.UserContext())
	if err != nil {
		log.Errorf("[PaymeController] Failed to read webhook stats: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "stats_read_failed"})
	}
	return c.JSON(fiber.Map{"outcomes": counts})
}

// HandleTransactionAudit returns the ledger record of a Payme transaction and
// its audit trail.
func (pc *PaymeController) HandleTransactionAudit(c *fiber.Ctx) error {
	if pc.audit == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "audit_unavailable"})
	}

	id := c.Params("id")
	tx, err := pc.audit.CheckTransaction(c.UserContext(), id)
	if errors.Is(err, ledger.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "transaction_not_found"})
	}
	if err != nil {
		log.Errorf("[PaymeController] Failed to load transaction %s: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "transaction_read_failed"})
	}

	events, err := pc.audit.Events(c.UserContext(), id)
	if err != nil {
		log.Errorf("[PaymeController] Failed to load events of transaction %s: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "transaction_read_failed"})
	}

	return c.JSON(fiber.Map{
		"transaction": tx,
		"payme_state": tx.ProviderState(),
		"terminal":    tx.IsTerminal(),
		"events":      events,
	})
}
