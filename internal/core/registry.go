package core

import (
	"fmt"
	"sort"
	"sync"

	"github.com/JonMunkholm/emojiimport/internal/fetch"
)

// SourceInfo describes a source variant for the CLI.
type SourceInfo struct {
	Key           string // Subcommand name, unique
	Group         string // Provider family (Steam, Twitch, Local, ...)
	Label         string // One-line description
	Param         string // Selector name shown in usage, empty when none
	ParamRequired bool
	Usage         string // Longer help text
}

// Credentials are the provider secrets a source may need.
type Credentials struct {
	TwitchClientID    string
	TwitchAccessToken string
	SlackToken        string
	DiscordBotToken   string
}

// SourceDeps are handed to a source constructor.
type SourceDeps struct {
	HTTP        *fetch.Client
	Credentials Credentials
}

// SourceDefinition registers a source variant.
type SourceDefinition struct {
	Info SourceInfo
	// New builds the source. It fails with ErrConfig when a required
	// credential is missing.
	New func(SourceDeps) (Source, error)
}

var (
	registry   = make(map[string]SourceDefinition)
	registryMu sync.RWMutex
)

// RegisterSource adds a source definition to the registry.
// Panics if a source with the same key is already registered.
func RegisterSource(def SourceDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if def.Info.Key == "" {
		panic("source registered without key")
	}
	if def.New == nil {
		panic(fmt.Sprintf("source %s registered without constructor", def.Info.Key))
	}
	if _, exists := registry[def.Info.Key]; exists {
		panic(fmt.Sprintf("source already registered: %s", def.Info.Key))
	}

	registry[def.Info.Key] = def
}

// GetSource returns a source definition by key.
// Returns false if not found.
func GetSource(key string) (SourceDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[key]
	return def, ok
}

// SourcesByGroup returns all source definitions for a specific group.
// Sorted by key.
func SourcesByGroup(group string) []SourceDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	var result []SourceDefinition
	for _, def := range registry {
		if def.Info.Group == group {
			result = append(result, def)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Info.Key < result[j].Info.Key
	})

	return result
}

// SourceGroups returns all unique group names, sorted.
func SourceGroups() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	seen := make(map[string]bool)
	for _, def := range registry {
		seen[def.Info.Group] = true
	}

	groups := make([]string, 0, len(seen))
	for g := range seen {
		groups = append(groups, g)
	}

	sort.Strings(groups)
	return groups
}

// SourceCount returns the number of registered sources.
func SourceCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// NewSource looks up key and builds the source.
func NewSource(key string, deps SourceDeps) (Source, error) {
	def, ok := GetSource(key)
	if !ok {
		return nil, fmt.Errorf("%w: unknown source %q", ErrConfig, key)
	}
	return def.New(deps)
}
