package core

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

var (
	registry   = make(map[string]FormatDefinition)
	registryMu sync.RWMutex
)

func init() {
	registerBuiltins()
}

func registerBuiltins() {
	Register(FormatDefinition{
		Key:        "dat",
		Group:      GroupMetadata,
		Label:      "Concordance DAT",
		Extensions: []string{".dat"},
		Grammar:    GrammarDelimited,
		Delimiters: ConcordanceDelimiters(),
		HasHeader:  true,
	})
	Register(FormatDefinition{
		Key:        "csv",
		Group:      GroupMetadata,
		Label:      "Comma-separated values",
		Extensions: []string{".csv"},
		Grammar:    GrammarDelimited,
		Delimiters: CSVDelimiters(),
		HasHeader:  true,
	})
	Register(FormatDefinition{
		Key:        "tsv",
		Group:      GroupMetadata,
		Label:      "Tab-separated values",
		Extensions: []string{".tsv", ".tab", ".txt"},
		Grammar:    GrammarDelimited,
		Delimiters: TSVDelimiters(),
		HasHeader:  true,
	})
	Register(FormatDefinition{
		Key:        "opt",
		Group:      GroupImage,
		Label:      "Opticon image cross-reference",
		Extensions: []string{".opt"},
		Grammar:    GrammarOpticon,
	})
	Register(FormatDefinition{
		Key:        "lfp",
		Group:      GroupImage,
		Label:      "IPRO image manifest",
		Extensions: []string{".lfp"},
		Grammar:    GrammarLFP,
	})
}

// Register adds a format definition to the registry.
// Panics if a format with the same key is already registered.
func Register(def FormatDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	def.Key = strings.ToLower(def.Key)
	if _, exists := registry[def.Key]; exists {
		panic(fmt.Sprintf("format already registered: %s", def.Key))
	}
	registry[def.Key] = def
}

// GetFormat returns a format definition by key, case-insensitively.
// Returns false if not found.
func GetFormat(key string) (FormatDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[strings.ToLower(strings.TrimSpace(key))]
	return def, ok
}

// FormatForPath returns the format whose extensions include the file's.
func FormatForPath(path string) (FormatDefinition, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return FormatDefinition{}, false
	}
	for _, def := range Formats() {
		for _, e := range def.Extensions {
			if e == ext {
				return def, true
			}
		}
	}
	return FormatDefinition{}, false
}

// Formats returns all registered format definitions.
// Sorted by group then by key for consistent ordering.
func Formats() []FormatDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]FormatDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Group != result[j].Group {
			return result[i].Group < result[j].Group
		}
		return result[i].Key < result[j].Key
	})

	return result
}

// ByGroup returns all format definitions for a specific group.
// Sorted by key for consistent ordering.
func ByGroup(group FormatGroup) []FormatDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	var result []FormatDefinition
	for _, def := range registry {
		if def.Group == group {
			result = append(result, def)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Key < result[j].Key
	})

	return result
}

// Groups returns all unique group names.
// Sorted alphabetically.
func Groups() []FormatGroup {
	registryMu.RLock()
	defer registryMu.RUnlock()

	seen := make(map[FormatGroup]bool)
	for _, def := range registry {
		seen[def.Group] = true
	}

	groups := make([]FormatGroup, 0, len(seen))
	for g := range seen {
		groups = append(groups, g)
	}

	sort.Slice(groups, func(i, j int) bool { return groups[i] < groups[j] })
	return groups
}

// FormatCount returns the number of registered formats.
func FormatCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Clear removes all registered formats.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]FormatDefinition)
}

// ResetFormats restores the built-in formats after Clear.
func ResetFormats() {
	Clear()
	registerBuiltins()
}
