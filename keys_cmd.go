package main

import (
	"encoding/json"
	"fmt"
	"io"

	"gitlab.com/tinyland/lab/net-meter/display/tui"
)

// runKeysCommand prints the TUI keybindings as a table or as JSON.
func runKeysCommand(w io.Writer, category, format string) error {
	reg := tui.DefaultRegistry()
	if category != "" {
		filtered := reg.ByCategory(tui.KeyCategory(category))
		if len(filtered) == 0 {
			return fmt.Errorf("no bindings found for category %q", category)
		}
		reg = &tui.KeyRegistry{Entries: filtered}
	}

	switch format {
	case "json":
		data, err := json.MarshalIndent(reg.FormatJSON(), "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))
	case "", "table":
		fmt.Fprint(w, reg.FormatTable())
	default:
		return fmt.Errorf("unknown keys format %q (table|json)", format)
	}
	return nil
}
