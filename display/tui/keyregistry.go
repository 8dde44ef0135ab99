package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

// KeyCategory groups keybindings by function.
type KeyCategory string

const (
	CategoryView   KeyCategory = "view"
	CategoryData   KeyCategory = "data"
	CategorySystem KeyCategory = "system"
)

// KeyEntry is one registered keybinding.
type KeyEntry struct {
	Binding  key.Binding
	Category KeyCategory
}

// KeyRegistry lists every keybinding of the graph view, for -keys output.
type KeyRegistry struct {
	Entries []KeyEntry
}

// DefaultRegistry returns the bindings the Model actually matches on.
func DefaultRegistry() *KeyRegistry {
	return &KeyRegistry{
		Entries: []KeyEntry{
			{Binding: keys.Toggle, Category: CategoryView},
			{Binding: keys.Top, Category: CategoryView},
			{Binding: keys.Help, Category: CategoryView},
			{Binding: keys.Reset, Category: CategoryData},
			{Binding: keys.Quit, Category: CategorySystem},
		},
	}
}

// ByCategory returns the entries in a category.
func (r *KeyRegistry) ByCategory(cat KeyCategory) []KeyEntry {
	var result []KeyEntry
	for _, e := range r.Entries {
		if e.Category == cat {
			result = append(result, e)
		}
	}
	return result
}

// HasDuplicateKeys reports keys bound more than once.
func (r *KeyRegistry) HasDuplicateKeys() []string {
	seen := make(map[string]string)
	var conflicts []string
	for _, e := range r.Entries {
		for _, k := range e.Binding.Keys() {
			if existing, ok := seen[k]; ok {
				conflicts = append(conflicts, fmt.Sprintf("duplicate key %q: %s vs %s", k, existing, e.Binding.Help().Desc))
				continue
			}
			seen[k] = e.Binding.Help().Desc
		}
	}
	return conflicts
}

// FormatTable renders the bindings grouped by category. Mouse clicks on the
// timescale banner are listed too since they have no key.
func (r *KeyRegistry) FormatTable() string {
	var sb strings.Builder
	for _, cat := range []KeyCategory{CategoryView, CategoryData, CategorySystem} {
		entries := r.ByCategory(cat)
		if len(entries) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\n%s:\n", strings.ToUpper(string(cat)))
		sb.WriteString(strings.Repeat("-", 40) + "\n")
		for _, e := range entries {
			fmt.Fprintf(&sb, "  %-16s  %s\n", strings.Join(e.Binding.Keys(), ", "), e.Binding.Help().Desc)
		}
		if cat == CategoryView {
			fmt.Fprintf(&sb, "  %-16s  %s\n", "click banner", "timescale")
		}
	}
	return sb.String()
}

// FormatJSON returns the bindings as JSON-friendly maps.
func (r *KeyRegistry) FormatJSON() []map[string]string {
	result := make([]map[string]string, 0, len(r.Entries))
	for _, e := range r.Entries {
		result = append(result, map[string]string{
			"keys":     strings.Join(e.Binding.Keys(), ", "),
			"desc":     e.Binding.Help().Desc,
			"category": string(e.Category),
		})
	}
	return result
}
