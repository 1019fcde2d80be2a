package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ttr_router/pkg/mapdata"
)

func TestWriteSnapshot(t *testing.T) {
	board, err := mapdata.Default()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "board.bin")
	size, err := writeSnapshot(path, board)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, info.Size(), size)
	assert.Positive(t, size)
}

func TestWriteSnapshotUnwritablePath(t *testing.T) {
	board, err := mapdata.Default()
	require.NoError(t, err)

	_, err = writeSnapshot(filepath.Join(t.TempDir(), "missing", "board.bin"), board)
	assert.Error(t, err)
}
