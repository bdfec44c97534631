package appctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTenantID(ctx))
	assert.Empty(t, GetUserID(ctx))

	ctx = SetRequestID(ctx, "req-1")
	ctx = SetRoute(ctx, "/api/v1/duplicates/analyze")
	ctx = SetTenantID(ctx, "tenant-1")
	ctx = SetUserID(ctx, "admin-1")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "/api/v1/duplicates/analyze", GetRoute(ctx))
	assert.Equal(t, "tenant-1", GetTenantID(ctx))
	assert.Equal(t, "admin-1", GetUserID(ctx))
}
