/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"image/color"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"
	"golang.org/x/image/colornames"

	"github.com/Seednode/sketchbox/internal/lobby"
	"github.com/Seednode/sketchbox/internal/raster"
)

const faviconSize = 64

// favicon is drawn with the same renderer players use: a blue scribble on a
// transparent square, finished with a red dot.
var favicon = sync.OnceValues(func() ([]byte, error) {
	s := raster.NewSurface(faviconSize, faviconSize, color.NRGBA{})
	k := raster.NewStroker(s)

	k.Start(12, 50, raster.Pen{Color: color.NRGBA(colornames.Royalblue), Size: 9})
	for _, pt := range [][2]float64{{22, 30}, {32, 44}, {42, 20}} {
		k.Continue(pt[0], pt[1])
	}
	k.End()

	k.Start(52, 12, raster.Pen{Color: color.NRGBA(colornames.Crimson), Size: 12})
	k.End()

	var buf bytes.Buffer
	if err := lobby.WritePNG(&buf, s.Image()); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
})

func getFavicon(cfg *Config) string {
	return `<link rel="icon" type="image/png" sizes="64x64" href="` + cfg.prefix + `/favicon.png">
	<meta name="theme-color" content="#ffffff">`
}

func serveFavicon(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		data, err := favicon()
		if err != nil {
			errs <- err
			http.Error(w, "favicon unavailable", http.StatusInternalServerError)

			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "public, max-age=86400")
		w.Header().Set("Expires", time.Now().Add(24*time.Hour).UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		securityHeaders(cfg, w)

		_, err = w.Write(data)
		if err != nil {
			errs <- err

			return
		}
	}
}
