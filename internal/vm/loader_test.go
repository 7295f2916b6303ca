package vm

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	image := program(0x00E0, 0x1200)

	got, err := Load(bytes.NewReader(image))
	require.NoError(t, err)
	assert.Equal(t, image, got)
}

func TestLoadLargestImage(t *testing.T) {
	got, err := Load(bytes.NewReader(make([]byte, MaxProgramSize)))
	require.NoError(t, err)
	assert.Len(t, got, MaxProgramSize)
}

func TestLoadTooLarge(t *testing.T) {
	_, err := Load(bytes.NewReader(make([]byte, MaxProgramSize+1)))
	assert.ErrorIs(t, err, ErrProgramTooLarge)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pong.ch8")
	require.NoError(t, os.WriteFile(path, program(0x6001), 0o644))

	got, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, program(0x6001), got)
}

func TestLoadFileMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.ch8")

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), "missing.ch8")
}
