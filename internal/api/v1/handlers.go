package apiv1

import (
	"github.com/gofiber/fiber/v2"

	"github.com/futapp/futapp-api/app/controllers"
	"github.com/futapp/futapp-api/internal/pkg/constants"
)

// APIServer holds the v1 handlers
type APIServer struct {
	payme *controllers.PaymeController
}

// NewAPIServer creates a new API server instance
func NewAPIServer(payme *controllers.PaymeController) *APIServer {
	return &APIServer{payme: payme}
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ping": "pong"})
}

// PaymeWebhook accepts every HTTP method so non-POST calls get the
// protocol error instead of a 405.
func (s *APIServer) PaymeWebhook(c *fiber.Ctx) error {
	return s.payme.HandleWebhook(c)
}

// GetPaymeStats returns callback counters (operator auth)
func (s *APIServer) GetPaymeStats(c *fiber.Ctx) error {
	return s.payme.HandleWebhookStats(c)
}

// GetPaymeTransaction returns one ledger record with its audit trail (operator auth)
func (s *APIServer) GetPaymeTransaction(c *fiber.Ctx) error {
	return s.payme.HandleTransactionAudit(c)
}

// RegisterHandlers mounts the v1 routes on router
func RegisterHandlers(router fiber.Router, s *APIServer, operatorAuth fiber.Handler) {
	router.Get("/ping", s.GetPing)
	router.Get(constants.PaymeStatsRoute, operatorAuth, s.GetPaymeStats)
	router.Get(constants.PaymeTxRoute, operatorAuth, s.GetPaymeTransaction)
	router.All(constants.PaymeWebhookRoute, s.PaymeWebhook)
}
