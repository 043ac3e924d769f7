/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/sketchbox/internal/raster"
)

func TestSaveCanvas(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "canvas.png")

	s := raster.NewSurface(12, 7, raster.White)
	require.NoError(t, saveCanvas(path, s))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 12, img.Bounds().Dx())
	assert.Equal(t, 7, img.Bounds().Dy())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file is cleaned up")
}

func TestSaveCanvasMissingDir(t *testing.T) {
	s := raster.NewSurface(1, 1, raster.White)

	assert.Error(t, saveCanvas(filepath.Join(t.TempDir(), "missing", "canvas.png"), s))
}

func TestHumanReadableSize(t *testing.T) {
	assert.Equal(t, "999 B", humanReadableSize(999))
	assert.Equal(t, "1.5 kB", humanReadableSize(1500))
	assert.Equal(t, "2.0 MB", humanReadableSize(2_000_000))
}
