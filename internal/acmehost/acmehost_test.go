package acmehost

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWinID(t *testing.T) {
	t.Setenv("winid", "")
	_, err := WinID()
	assert.ErrorIs(t, err, ErrNoWindow)

	t.Setenv("winid", "42\n")
	id, err := WinID()
	require.NoError(t, err)
	assert.Equal(t, 42, id)

	t.Setenv("winid", "x")
	_, err = WinID()
	assert.Error(t, err)
}

func TestTagName(t *testing.T) {
	assert.Equal(t, "/home/u/i1.txt", TagName("/home/u/i1.txt Del Snarf | Look "))
	assert.Equal(t, "", TagName("   "))
}

func TestMatchDocument(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{"i1": "i1.txt", "i2": "sub/i2.txt"}

	id, ok := MatchDocument(filepath.Join(dir, "sub", "i2.txt"), dir, files)
	require.True(t, ok)
	assert.Equal(t, "i2", id)

	_, ok = MatchDocument(filepath.Join(dir, "i3.txt"), dir, files)
	assert.False(t, ok)
	_, ok = MatchDocument("", dir, files)
	assert.False(t, ok)
}
