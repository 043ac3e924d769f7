/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Seednode/sketchbox/internal/lobby"
	"github.com/Seednode/sketchbox/internal/raster"
)

func humanReadableSize(bytes int64) string {
	const unit = 1000

	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	size := float64(bytes) / unit
	for _, prefix := range "kMGTP" {
		if size < unit {
			return fmt.Sprintf("%.1f %cB", size, prefix)
		}
		size /= unit
	}

	return fmt.Sprintf("%.1f EB", size)
}

// saveCanvas writes s to path as a PNG. The image goes to a temporary file in
// the same directory first, so an interrupted write never leaves a truncated
// canvas behind.
func saveCanvas(path string, s *raster.Surface) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".sketchbox-*.png")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := lobby.WritePNG(tmp, s.Image()); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}
