package config

import (
	"os"
	"regexp"
	"strings"
)

// envVarPattern matches ${VAR}, ${VAR:-default} and $VAR
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z0-9_]+)(:-[^}]*)?\}|\$([A-Za-z0-9_]+)`)

// ExpandEnv replaces ${VAR}, ${VAR:-default} and $VAR with environment variables.
// Example: "${OPENAI_API_KEY}" → "sk-..."
func ExpandEnv(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)

		if groups[3] != "" {
			return os.Getenv(groups[3])
		}

		if value, ok := os.LookupEnv(groups[1]); ok && value != "" {
			return value
		}
		return strings.TrimPrefix(groups[2], ":-")
	})
}

// ExpandEnvMap expands all values in a map
func ExpandEnvMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}

	expanded := make(map[string]string, len(m))
	for key, value := range m {
		expanded[key] = ExpandEnv(value)
	}
	return expanded
}
