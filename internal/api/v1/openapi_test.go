package apiv1

import (
	"context"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/futapp/futapp-api/internal/pkg/constants"
)

func TestOpenAPIDocument(t *testing.T) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile("../../../" + constants.OpenAPIFile)
	require.NoError(t, err)
	require.NoError(t, doc.Validate(context.Background()))

	for _, path := range []string{"/ping", constants.PaymeWebhookRoute, constants.PaymeStatsRoute} {
		assert.NotNil(t, doc.Paths.Find(path), path)
	}
	assert.NotNil(t, doc.Paths.Find(constants.PaymeWebhookRoute).Post)
	assert.NotNil(t, doc.Paths.Find("/webhooks/payme/transactions/{id}").Get)
}
