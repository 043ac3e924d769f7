/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/Seednode/sketchbox/internal/client"
	"github.com/Seednode/sketchbox/internal/protocol"
	"github.com/Seednode/sketchbox/internal/raster"
	"github.com/Seednode/sketchbox/internal/session"
)

// watch joins a game as a player that never draws, logs what it sees, and
// saves the canvas when it leaves.
func watch(ctx context.Context, cfg *Config, wc *watchConfig, url string) error {
	if _, err := protocol.ParseColor(wc.color); err != nil {
		return fmt.Errorf("invalid --color: %w", err)
	}

	log := cfg.logger.With().Str("name", wc.name).Logger()

	conn, err := client.Dial(ctx, url, client.Options{Binary: wc.binary, Logger: log})
	if err != nil {
		return err
	}
	defer conn.Close()

	s := session.New(conn, session.LogView{Log: log}, session.Config{
		Width:      cfg.canvasWidth,
		Height:     cfg.canvasHeight,
		Background: raster.White,
		Join: protocol.Join{
			Name:   wc.name,
			Avatar: protocol.Avatar{Color: wc.color},
		},
		Logger: log,
	})

	logf(cfg, "WATCH: Joining %s as %s", url, wc.name)

	runErr := s.Run(ctx)
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	if err := saveCanvas(wc.out, s.Surface()); err != nil {
		return errors.Join(runErr, err)
	}
	logf(cfg, "WATCH: Saved canvas to %s", wc.out)

	return runErr
}
