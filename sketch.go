/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"errors"
	"html"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	"github.com/Seednode/sketchbox/internal/lobby"
)

const qrSize = 320

// redirectNewGame sends GET /sketch to a freshly generated game ID.
func redirectNewGame(cfg *Config, path string, m *lobby.Manager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		gameID := m.NewGameID()
		logf(cfg, "GAMES: Created game %s/%s", path, gameID)
		http.Redirect(w, r, cfg.prefix+path+"/"+gameID, http.StatusTemporaryRedirect)
	}
}

func serveGamePage(cfg *Config, path string, m *lobby.Manager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		startTime := time.Now()

		gameID := ps.ByName("gameid")
		base := cfg.prefix + path + "/" + gameID

		var body strings.Builder

		body.WriteString("<h1>Game " + html.EscapeString(gameID) + "</h1>")
		body.WriteString(`<p><img src="` + html.EscapeString(base) + `/qr" alt="QR code" width="160" height="160"></p>`)
		body.WriteString(`<p>Connect to <code>` + html.EscapeString(base) + `/ws</code></p>`)

		if hub, ok := m.Lookup(gameID); ok {
			players, err := hub.Players(r.Context())
			if err == nil {
				body.WriteString("<h2>Players</h2><ol>")
				for _, p := range players {
					body.WriteString("<li>" + html.EscapeString(p.Name) + " (" + strconv.Itoa(p.Score) + ")</li>")
				}
				body.WriteString("</ol>")
			}
			body.WriteString(`<p><a href="` + html.EscapeString(base) + `/canvas.png">canvas.png</a> `)
			body.WriteString(`<a href="` + html.EscapeString(base) + `/canvas.pdf">canvas.pdf</a></p>`)
		} else {
			body.WriteString("<p>Nobody has joined yet.</p>")
		}

		data := newPage(cfg, "sketchbox: "+gameID, body.String())

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)

		written, err := w.Write([]byte(data))
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Game page %s (%s) to %s in %s",
			gameID,
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

func serveWS(cfg *Config, m *lobby.Manager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID := ps.ByName("gameid")
		if gameID == "" {
			http.Error(w, "missing game id", http.StatusBadRequest)
			return
		}

		logf(cfg, "GAMES: %s connected to %s", realIP(r), gameID)

		err := m.Hub(gameID).Serve(w, r)
		switch {
		case errors.Is(err, lobby.ErrHubClosed):
			logf(cfg, "GAMES: %s rejected from closed game %s", realIP(r), gameID)
		case err != nil:
			errs <- err
		}
	}
}

// serveQR renders a PNG QR code pointing at the game page.
func serveQR(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if ps.ByName("gameid") == "" {
			http.Error(w, "missing game id", http.StatusBadRequest)
			return
		}

		scheme := cfg.scheme()
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		url := scheme + "://" + r.Host + strings.TrimSuffix(r.URL.Path, "/qr")

		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			errs <- err
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", strconv.Itoa(len(png)))
		securityHeaders(cfg, w)

		if _, err := w.Write(png); err != nil {
			errs <- err
		}
	}
}

// serveCanvas writes the current canvas of a running game as PNG or PDF.
func serveCanvas(cfg *Config, m *lobby.Manager, format string, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		startTime := time.Now()

		gameID := ps.ByName("gameid")

		hub, ok := m.Lookup(gameID)
		if !ok {
			http.Error(w, "game not found", http.StatusNotFound)
			return
		}

		img, err := hub.Snapshot(r.Context())
		if err != nil {
			http.Error(w, "game not found", http.StatusNotFound)
			return
		}

		var buf bytes.Buffer
		switch format {
		case "pdf":
			err = lobby.WritePDF(&buf, img, "sketchbox "+gameID)
			w.Header().Set("Content-Type", "application/pdf")
		default:
			err = lobby.WritePNG(&buf, img)
			w.Header().Set("Content-Type", "image/png")
		}
		if err != nil {
			errs <- err
			http.Error(w, "export failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		securityHeaders(cfg, w)

		written, err := w.Write(buf.Bytes())
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Canvas %s.%s (%s) to %s in %s",
			gameID,
			format,
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

// registerSketchGame sets up routes so that:
//   - $path                    redirects to a new random game
//   - $path/:gameid            game page
//   - $path/:gameid/ws         websocket for that game
//   - $path/:gameid/qr         PNG QR code for the game page
//   - $path/:gameid/canvas.png current canvas
//   - $path/:gameid/canvas.pdf current canvas on one PDF page
func registerSketchGame(cfg *Config, path string, mux *httprouter.Router, m *lobby.Manager, errs chan<- error) {
	mux.GET(cfg.prefix+path, redirectNewGame(cfg, path, m))
	mux.GET(cfg.prefix+path+"/:gameid", serveGamePage(cfg, path, m, errs))
	mux.GET(cfg.prefix+path+"/:gameid/ws", serveWS(cfg, m, errs))
	mux.GET(cfg.prefix+path+"/:gameid/qr", serveQR(cfg, errs))
	mux.GET(cfg.prefix+path+"/:gameid/canvas.png", serveCanvas(cfg, m, "png", errs))
	mux.GET(cfg.prefix+path+"/:gameid/canvas.pdf", serveCanvas(cfg, m, "pdf", errs))
}
