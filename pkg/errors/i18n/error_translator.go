// Package i18n resolves TusError codes to a locale-specific message for
// the wire response, falling back to the code itself when a locale has
// no entry for it.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
)

//go:embed *.json
var i18nFiles embed.FS

var messages map[string]string

// Load reads locale's translation table (e.g. "en", "tr") and makes it
// the active table for subsequent T calls. Call once at startup.
func Load(locale string) error {
	filename := locale + ".json"

	data, err := i18nFiles.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("read embedded i18n file %s: %w", filename, err)
	}

	table := make(map[string]string)
	if err := json.Unmarshal(data, &table); err != nil {
		return fmt.Errorf("parse embedded i18n file %s: %w", filename, err)
	}
	messages = table
	return nil
}

// T returns the active locale's message for code, or code itself if no
// table has been loaded or code has no entry.
func T(code string) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	return code
}
