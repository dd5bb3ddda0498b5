// Package config loads lintstatus.yaml.
package config

import (
	"os"
	"regexp"
)

// envRef matches ${VAR} and ${VAR:-default}.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// ExpandEnv substitutes environment references in a config document.
// ${VAR} becomes the value of VAR, or "" when unset. ${VAR:-default} falls
// back to default when VAR is unset or empty. A missing secret surfaces
// later as a validation error (adapter.url, editor.addr), not here.
func ExpandEnv(input string) string {
	return envRef.ReplaceAllStringFunc(input, func(ref string) string {
		m := envRef.FindStringSubmatch(ref)
		if v := os.Getenv(m[1]); v != "" {
			return v
		}
		return m[2]
	})
}
