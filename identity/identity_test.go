package identity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderGeneratesOnFirstUse(t *testing.T) {
	p := New(t.TempDir())

	id, err := p.ID()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "user_"), "id %q", id)

	again, err := p.ID()
	require.NoError(t, err)
	assert.Equal(t, id, again)
}

func TestProviderPersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()

	first, err := New(dir).ID()
	require.NoError(t, err)

	second, err := New(dir).ID()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestProviderReset(t *testing.T) {
	dir := t.TempDir()
	p := New(dir)
	first, err := p.ID()
	require.NoError(t, err)

	require.NoError(t, p.Reset())
	// Resetting twice is fine.
	require.NoError(t, p.Reset())

	second, err := New(dir).ID()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestStatic(t *testing.T) {
	id, err := Static("abc").ID()
	require.NoError(t, err)
	assert.Equal(t, "abc", id)

	_, err = Static("").ID()
	assert.Error(t, err)
}
