// Package config holds helpers for values read from the config file.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath resolves a path the way a shell would: a leading ~ becomes
// the user's home directory and $VAR references are substituted. A home
// lookup failure leaves the tilde in place.
func ExpandPath(path string) string {
	switch {
	case path == "":
		return ""
	case path == "~":
		if home, err := os.UserHomeDir(); err == nil {
			path = home
		}
	case strings.HasPrefix(path, "~/"):
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~/"))
		}
	}
	return os.ExpandEnv(path)
}
