/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"

	"github.com/Seednode/sketchbox/internal/prompts"
)

const maxPackBody = 1 << 20

type apiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

type wordRequest struct {
	Word string `json:"word"`
}

func writeJSON(cfg *Config, w http.ResponseWriter, status int, resp apiResponse, errs chan<- error) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	securityHeaders(cfg, w)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		errs <- err
	}
}

func writeError(cfg *Config, w http.ResponseWriter, status int, msg string, errs chan<- error) {
	writeJSON(cfg, w, status, apiResponse{Error: msg}, errs)
}

// packStatus maps registry errors onto HTTP status codes.
func packStatus(err error) int {
	switch {
	case errors.Is(err, prompts.ErrPackNotFound):
		return http.StatusNotFound
	case errors.Is(err, prompts.ErrPackExists):
		return http.StatusConflict
	case errors.Is(err, prompts.ErrInvalidPack), errors.Is(err, prompts.ErrInvalidWord):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPackBody))

	return dec.Decode(v)
}

func listPacks(cfg *Config, registry *prompts.Registry, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		writeJSON(cfg, w, http.StatusOK, apiResponse{Success: true, Data: registry.List()}, errs)
	}
}

func createPack(cfg *Config, registry *prompts.Registry, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var p prompts.Pack
		if err := decodeBody(w, r, &p); err != nil {
			writeError(cfg, w, http.StatusBadRequest, "invalid JSON body", errs)
			return
		}

		if strings.TrimSpace(p.Name) == "" || len(p.Words) == 0 {
			writeError(cfg, w, http.StatusBadRequest, "name and words are required", errs)
			return
		}

		if err := registry.Create(p); err != nil {
			writeError(cfg, w, packStatus(err), err.Error(), errs)
			return
		}

		created, err := registry.Get(strings.TrimSpace(p.Name))
		if err != nil {
			writeError(cfg, w, packStatus(err), err.Error(), errs)
			return
		}

		logf(cfg, "PACKS: Created %q (%d words) for %s", created.Name, len(created.Words), realIP(r))

		writeJSON(cfg, w, http.StatusCreated, apiResponse{Success: true, Data: created}, errs)
	}
}

func getPack(cfg *Config, registry *prompts.Registry, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		p, err := registry.Get(ps.ByName("pack"))
		if err != nil {
			writeError(cfg, w, packStatus(err), err.Error(), errs)
			return
		}

		writeJSON(cfg, w, http.StatusOK, apiResponse{Success: true, Data: p}, errs)
	}
}

func deletePack(cfg *Config, registry *prompts.Registry, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		name := ps.ByName("pack")

		if name == cfg.pack {
			writeError(cfg, w, http.StatusConflict, "pack is in use", errs)
			return
		}

		if err := registry.Delete(name); err != nil {
			writeError(cfg, w, packStatus(err), err.Error(), errs)
			return
		}

		logf(cfg, "PACKS: Deleted %q for %s", name, realIP(r))

		writeJSON(cfg, w, http.StatusOK, apiResponse{Success: true}, errs)
	}
}

func addWord(cfg *Config, registry *prompts.Registry, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		var req wordRequest
		if err := decodeBody(w, r, &req); err != nil {
			writeError(cfg, w, http.StatusBadRequest, "invalid JSON body", errs)
			return
		}

		name := ps.ByName("pack")
		if err := registry.AddWord(name, req.Word); err != nil {
			writeError(cfg, w, packStatus(err), err.Error(), errs)
			return
		}

		p, err := registry.Get(name)
		if err != nil {
			writeError(cfg, w, packStatus(err), err.Error(), errs)
			return
		}

		writeJSON(cfg, w, http.StatusOK, apiResponse{Success: true, Data: p}, errs)
	}
}

func deleteWord(cfg *Config, registry *prompts.Registry, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		name := ps.ByName("pack")
		if err := registry.DeleteWord(name, ps.ByName("word")); err != nil {
			writeError(cfg, w, packStatus(err), err.Error(), errs)
			return
		}

		p, err := registry.Get(name)
		if err != nil {
			writeError(cfg, w, packStatus(err), err.Error(), errs)
			return
		}

		writeJSON(cfg, w, http.StatusOK, apiResponse{Success: true, Data: p}, errs)
	}
}

func registerPackAPI(cfg *Config, mux *httprouter.Router, registry *prompts.Registry, errs chan<- error) {
	mux.GET(cfg.prefix+"/api/packs", listPacks(cfg, registry, errs))
	mux.POST(cfg.prefix+"/api/packs", createPack(cfg, registry, errs))
	mux.GET(cfg.prefix+"/api/packs/:pack", getPack(cfg, registry, errs))
	mux.DELETE(cfg.prefix+"/api/packs/:pack", deletePack(cfg, registry, errs))
	mux.POST(cfg.prefix+"/api/packs/:pack/words", addWord(cfg, registry, errs))
	mux.DELETE(cfg.prefix+"/api/packs/:pack/words/:word", deleteWord(cfg, registry, errs))
}
