package apidocs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpecLoadsAndValidates(t *testing.T) {
	path := Find()
	require.NotEmpty(t, path, "openapi document not found")

	doc, err := Load(context.Background(), path)
	require.NoError(t, err)

	ops := Operations(doc)
	assert.Contains(t, ops, "POST /webhooks/payt")
	assert.Contains(t, ops, "POST /api/v1/chat")
	assert.Contains(t, ops, "DELETE /admin/settings/:key")
	assert.Contains(t, ops, "GET /admin/purchases/:id")
}

func TestFiberPath(t *testing.T) {
	tests := map[string]string{
		"/admin/bots/{id}":      "/admin/bots/:id",
		"/api/v1/plans":         "/api/v1/plans",
		"/admin/settings/{key}": "/admin/settings/:key",
	}
	for in, want := range tests {
		assert.Equal(t, want, fiberPath(in), in)
	}
}
