/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"html"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/Seednode/sketchbox/internal/prompts"
)

func serveHomePage(cfg *Config, registry *prompts.Registry, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		var body strings.Builder

		body.WriteString(`<h1>sketchbox</h1>`)
		body.WriteString(`<p><a href="` + cfg.prefix + `/sketch">Start a new game</a></p>`)
		body.WriteString(`<h2>Prompt packs</h2><ul>`)
		for _, p := range registry.List() {
			body.WriteString("<li>" + html.EscapeString(p.Name) + " (" + strconv.Itoa(len(p.Words)) + " words)")
			if p.Name == cfg.pack {
				body.WriteString(" <em>in use</em>")
			}
			body.WriteString("</li>")
		}
		body.WriteString(`</ul>`)

		data := newPage(cfg, "sketchbox", body.String())

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)

		written, err := w.Write([]byte(data))
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Home page (%s) to %s in %s",
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

func serveHealthCheck(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)

		_, err := w.Write([]byte("Ok\n"))
		if err != nil {
			errs <- err

			return
		}
	}
}

func serveRobots(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		data := `User-agent: *
Disallow: /sketch/
Disallow: /api/`

		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		securityHeaders(cfg, w)

		_, err := w.Write([]byte(data))
		if err != nil {
			errs <- err

			return
		}
	}
}
