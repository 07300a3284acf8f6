package game

import (
	"fmt"
	"strings"
	"sync"
)

// Registry maps every command alias to its game.
type Registry struct {
	mu      sync.RWMutex
	byAlias map[string]Game
	games   []Game
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byAlias: make(map[string]Game)}
}

// Register adds a game under its key and aliases. An alias may belong to
// only one game.
func (r *Registry) Register(g Game) error {
	if g == nil {
		return fmt.Errorf("cannot register nil game")
	}
	if g.Key() == "" {
		return fmt.Errorf("game key cannot be empty")
	}

	aliases := append([]string{g.Key()}, g.Aliases()...)

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range aliases {
		if other, ok := r.byAlias[strings.ToLower(a)]; ok && other != g {
			return fmt.Errorf("alias %q already registered by %s", a, other.Key())
		}
	}
	for _, a := range aliases {
		r.byAlias[strings.ToLower(a)] = g
	}
	r.games = append(r.games, g)
	return nil
}

// MustRegister registers every game and panics on conflicts.
func (r *Registry) MustRegister(games ...Game) *Registry {
	for _, g := range games {
		if err := r.Register(g); err != nil {
			panic(err)
		}
	}
	return r
}

// Get resolves a command, ignoring case.
func (r *Registry) Get(command string) (Game, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.byAlias[strings.ToLower(command)]
	return g, ok
}

// ByKey returns the game whose key is key.
func (r *Registry) ByKey(key string) (Game, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, g := range r.games {
		if g.Key() == key {
			return g, true
		}
	}
	return nil, false
}

// List returns the games in registration order.
func (r *Registry) List() []Game {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Game(nil), r.games...)
}

// Commands returns every registered alias.
func (r *Registry) Commands() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	commands := make([]string, 0, len(r.byAlias))
	for cmd := range r.byAlias {
		commands = append(commands, cmd)
	}
	return commands
}

// Count returns the number of registered games.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.games)
}
