package config

import (
	"encoding/json"
	"os"
	"strings"
)

// LoadTermTranslations reads the optional synonym map used by search
// normalization. Keys are lowercased; a missing or unreadable file just
// yields an empty map, the resolver works without translations.
func LoadTermTranslations(path string) map[string]string {
	if strings.TrimSpace(path) == "" {
		return map[string]string{}
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return map[string]string{}
	}
	var data map[string]string
	if err := json.Unmarshal(raw, &data); err != nil {
		return map[string]string{}
	}
	out := make(map[string]string, len(data))
	for k, v := range data {
		k = strings.ToLower(strings.TrimSpace(k))
		v = strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	return out
}
