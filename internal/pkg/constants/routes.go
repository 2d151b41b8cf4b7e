package constants

// Route constants
const (
	PublicRoute       = "/"
	HealthRoute       = "/healthz"
	MetricsRoute      = "/metrics"
	APIRoute          = "/api"
	APIV1Route        = "/v1"
	PaymeWebhookRoute = "/webhooks/payme"
	PaymeStatsRoute   = "/webhooks/payme/stats"
	PaymeTxRoute      = "/webhooks/payme/transactions/:id"
	DocsBasePath      = "/docs/api/"
	DocsPath          = "v1"
	OpenAPIFile       = "public/docs/v1/openapi.yml"
)
