package requestid

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := NewContext(context.Background(), "abc123")
	assert.Equal(t, "abc123", FromContext(ctx))
	assert.Empty(t, FromContext(context.Background()))
}

func TestGenerate(t *testing.T) {
	a, b := Generate(), Generate()
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}
