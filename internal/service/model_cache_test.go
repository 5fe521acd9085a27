package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/tokobot/internal/domain"
)

func TestModelCacheNotReady(t *testing.T) {
	c := NewModelCache(&fakeProvider{})

	_, err := c.Current()
	assert.ErrorIs(t, err, domain.ErrNotReady)
	assert.Zero(t, c.Version())
}

func TestModelCacheRebuild(t *testing.T) {
	p := &fakeProvider{}
	c := NewModelCache(p)
	ctx := context.Background()

	h1, err := c.Rebuild(ctx, domain.BuiltContext{Instruction: "v1"})
	require.NoError(t, err)
	h2, err := c.Rebuild(ctx, domain.BuiltContext{Instruction: "v2"})
	require.NoError(t, err)

	assert.Equal(t, uint64(1), h1.Version)
	assert.Equal(t, uint64(2), h2.Version)

	cur, err := c.Current()
	require.NoError(t, err)
	assert.Same(t, h2, cur)
	assert.Equal(t, "v2", cur.Context.Instruction)
	assert.Equal(t, []string{"v1", "v2"}, p.configured)
}

func TestModelCacheRebuildFailureKeepsHandle(t *testing.T) {
	p := &fakeProvider{}
	c := NewModelCache(p)
	ctx := context.Background()

	h1, err := c.Rebuild(ctx, domain.BuiltContext{Instruction: "v1"})
	require.NoError(t, err)

	p.setErr(errBoom)
	_, err = c.Rebuild(ctx, domain.BuiltContext{Instruction: "v2"})
	assert.ErrorIs(t, err, errBoom)

	cur, err := c.Current()
	require.NoError(t, err)
	assert.Same(t, h1, cur)
	assert.Equal(t, uint64(1), c.Version())
}
