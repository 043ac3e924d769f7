// Package prompts manages the named word packs prompts are drawn from.
package prompts

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// DefaultPack is used when no pack is configured.
const DefaultPack = "standard-pack"

var (
	ErrPackExists   = errors.New("pack with this name already exists")
	ErrPackNotFound = errors.New("pack not found")
	ErrInvalidPack  = errors.New("invalid pack")
	ErrInvalidWord  = errors.New("invalid word")
	ErrEmptyPack    = errors.New("pack has no words")
)

//go:embed packs/*.json
var defaults embed.FS

type Pack struct {
	Name  string   `json:"name"`
	Words []string `json:"words"`
}

func (p Pack) clone() Pack {
	return Pack{Name: p.Name, Words: slices.Clone(p.Words)}
}

// Registry holds packs in memory. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	packs map[string]Pack
}

func NewRegistry() *Registry {
	return &Registry{packs: make(map[string]Pack)}
}

// Defaults returns a registry seeded with the built-in packs.
func Defaults() (*Registry, error) {
	r := NewRegistry()

	entries, err := fs.Glob(defaults, "packs/*.json")
	if err != nil {
		return nil, err
	}

	for _, name := range entries {
		f, err := defaults.Open(name)
		if err != nil {
			return nil, err
		}

		err = r.Load(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}

	return r, nil
}

// Load reads one JSON pack from rd and adds it.
func (r *Registry) Load(rd io.Reader) error {
	var p Pack
	if err := json.NewDecoder(rd).Decode(&p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPack, err)
	}

	return r.Create(p)
}

// LoadDir adds every *.json pack found in dir and returns how many were
// loaded.
func (r *Registry) LoadDir(dir string) (int, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return 0, err
	}

	loaded := 0
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return loaded, err
		}

		err = r.Load(f)
		f.Close()
		if err != nil {
			return loaded, fmt.Errorf("%s: %w", path, err)
		}
		loaded++
	}

	return loaded, nil
}

func normalize(word string) string {
	return strings.TrimSpace(word)
}

// List returns every pack, sorted by name.
func (r *Registry) List() []Pack {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Pack, 0, len(r.packs))
	for _, p := range r.packs {
		out = append(out, p.clone())
	}
	slices.SortFunc(out, func(a, b Pack) int { return strings.Compare(a.Name, b.Name) })

	return out
}

func (r *Registry) Get(name string) (Pack, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.packs[name]
	if !ok {
		return Pack{}, fmt.Errorf("%w: %s", ErrPackNotFound, name)
	}

	return p.clone(), nil
}

// Create adds a new pack. Blank words are dropped and duplicates collapsed.
func (r *Registry) Create(p Pack) error {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidPack)
	}

	words := make([]string, 0, len(p.Words))
	for _, w := range p.Words {
		w = normalize(w)
		if w == "" || slices.Contains(words, w) {
			continue
		}
		words = append(words, w)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.packs[name]; ok {
		return fmt.Errorf("%w: %s", ErrPackExists, name)
	}
	r.packs[name] = Pack{Name: name, Words: words}

	return nil
}

func (r *Registry) Delete(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.packs[name]; !ok {
		return fmt.Errorf("%w: %s", ErrPackNotFound, name)
	}
	delete(r.packs, name)

	return nil
}

// AddWord adds word to a pack. Adding a word already present is a no-op.
func (r *Registry) AddWord(name, word string) error {
	word = normalize(word)
	if word == "" {
		return ErrInvalidWord
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.packs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPackNotFound, name)
	}
	if !slices.Contains(p.Words, word) {
		p.Words = append(slices.Clip(p.Words), word)
		r.packs[name] = p
	}

	return nil
}

// DeleteWord removes word from a pack. Removing an absent word is a no-op.
func (r *Registry) DeleteWord(name, word string) error {
	word = normalize(word)

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.packs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPackNotFound, name)
	}
	p.Words = slices.DeleteFunc(slices.Clone(p.Words), func(w string) bool { return w == word })
	r.packs[name] = p

	return nil
}

// Random picks a word from the named pack.
func (r *Registry) Random(name string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.packs[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrPackNotFound, name)
	}
	if len(p.Words) == 0 {
		return "", fmt.Errorf("%w: %s", ErrEmptyPack, name)
	}

	return p.Words[rand.IntN(len(p.Words))], nil
}
