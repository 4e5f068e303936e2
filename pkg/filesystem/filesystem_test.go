package filesystem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPI(t *testing.T) {
	t.Cleanup(SetOsFs)

	SetOsFs()
	assert.Equal(t, "OsFs", API().Name())

	SetMemMapFs()
	assert.Equal(t, "MemMapFS", API().Name())

	require.NoError(t, API().WriteFile("/page.png", []byte("x"), 0644))
	ok, err := API().Exists("/page.png")
	require.NoError(t, err)
	assert.True(t, ok)

	SetMemMapFs()
	ok, err = API().Exists("/page.png")
	require.NoError(t, err)
	assert.False(t, ok, "a new memory filesystem starts empty")
}
