package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusService(t *testing.T) {
	s := NewStatusService(createTestStore(t))
	ctx := context.Background()

	_, err := s.Create(ctx, " ")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	first, err := s.Create(ctx, "web")
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	_, err = s.Create(ctx, "mobile")
	require.NoError(t, err)

	checks, err := s.List(ctx, 0, 1000)
	require.NoError(t, err)
	assert.Len(t, checks, 2)

	none, err := s.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = s.List(ctx, -1, 10)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}
