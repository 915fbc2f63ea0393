// Package endpoint resolves broker names to unix socket paths.
//
// A broker is reachable in one of two ways: through a registered service
// name, which lives in the user's runtime directory, or through a direct
// port name, which lives in a fixed system directory.
package endpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Mode is the addressing mode used to reach the broker.
type Mode string

const (
	// ModeService addresses the broker by registered service name.
	ModeService Mode = "service"
	// ModePort addresses the broker by direct port name.
	ModePort Mode = "port"
)

const (
	// DefaultName is the name the broker registers under.
	DefaultName = "io.cloudeng.KeychainHelper"
	// DefaultPortDir holds direct port sockets.
	DefaultPortDir = "/var/run/credbroker"
)

// ParseMode converts s to a Mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(s)); m {
	case ModeService, ModePort:
		return m, nil
	default:
		return "", fmt.Errorf("unknown addressing mode %q, expected %q or %q", s, ModeService, ModePort)
	}
}

// Endpoint is a resolved broker address.
type Endpoint struct {
	Mode Mode
	Name string
	Path string
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s:%s (%s)", e.Mode, e.Name, e.Path)
}

// Target is the gRPC dial target for e.
func (e Endpoint) Target() string {
	return "unix://" + e.Path
}

// Resolver turns a mode and name into an Endpoint. Empty fields fall back
// to the defaults.
type Resolver struct {
	RuntimeDir string
	PortDir    string
}

// DefaultRuntimeDir is $XDG_RUNTIME_DIR, or the temporary directory when it
// is unset.
func DefaultRuntimeDir() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return dir
	}
	return os.TempDir()
}

// Resolve returns the endpoint of name in mode.
func (r Resolver) Resolve(mode Mode, name string) (Endpoint, error) {
	if name == "" {
		name = DefaultName
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return Endpoint{}, fmt.Errorf("invalid broker name %q", name)
	}

	switch mode {
	case ModeService:
		dir := r.RuntimeDir
		if dir == "" {
			dir = DefaultRuntimeDir()
		}
		return Endpoint{Mode: mode, Name: name, Path: filepath.Join(dir, name+".sock")}, nil
	case ModePort:
		dir := r.PortDir
		if dir == "" {
			dir = DefaultPortDir
		}
		return Endpoint{Mode: mode, Name: name, Path: filepath.Join(dir, name+".port")}, nil
	default:
		return Endpoint{}, fmt.Errorf("unknown addressing mode %q", mode)
	}
}
