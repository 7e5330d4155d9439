package featureflags

import (
	"os"
	"strings"
)

// Known flags.
const (
	LinePush          = "line_push"
	ElderlyAdminAlert = "elderly_admin_alert"
)

// defaults apply when FLAG_<NAME> is unset.
var defaults = map[string]bool{
	LinePush:          true,
	ElderlyAdminAlert: true,
}

// Enabled returns true if a flag is enabled via environment variable.
// Flags are read from env as FLAG_<NAME>=true/1/yes (case-insensitive)
func Enabled(name string) bool {
	v, ok := os.LookupEnv("FLAG_" + strings.ToUpper(name))
	if !ok || v == "" {
		return defaults[name]
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
