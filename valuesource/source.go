// Package valuesource resolves configuration values that should not be
// written into a configuration file directly, such as passwords.
//
// A Source is written as a single key/value pair naming where the value
// lives:
//
//	password:
//	  env: CREDBROKER_KEYRING_FILE_PASSWORD
package valuesource

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
)

const (
	SourceEnv     = "env"
	SourceCommand = "command"
	SourcePath    = "path"
	SourceValue   = "value"
)

// Source represents a strategy for loading a value from local host.
type Source struct {
	Key   string
	Value string
}

// FromMap builds a Source from its configuration file form.
func FromMap(raw map[string]string) (Source, error) {
	var s Source
	return s, s.unmarshalRaw(raw)
}

// IsZero reports whether no source was configured.
func (s Source) IsZero() bool {
	return s.Key == ""
}

// Resolve loads the value. Trailing line breaks are removed from values
// read from a file or produced by a command.
func (s Source) Resolve() (string, error) {
	switch strings.ToLower(s.Key) {
	case SourceCommand:
		data, err := execCmd(s.Value)
		if err != nil {
			return "", fmt.Errorf("command %q failed: %v", s.Value, err)
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	case SourcePath:
		data, err := os.ReadFile(os.ExpandEnv(s.Value))
		if err != nil {
			return "", err
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	case SourceEnv:
		data, ok := os.LookupEnv(s.Value)
		if !ok {
			return "", fmt.Errorf("environment variable %s is not defined", s.Value)
		}
		return data, nil
	case SourceValue:
		return s.Value, nil
	case "":
		return "", errors.New("no value source configured")
	default:
		return "", fmt.Errorf("invalid value source: %s", s.Key)
	}
}

func execCmd(cmd string) ([]byte, error) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return nil, errors.New("empty command")
	}
	run := exec.Command(parts[0], parts[1:]...)
	return run.Output()
}

func (s *Source) unmarshalRaw(raw map[string]string) error {
	switch len(raw) {
	case 0:
		s.Key = ""
		s.Value = ""
		return nil
	case 1:
		for k, v := range raw {
			s.Key = k
			s.Value = v
		}
		return nil
	default:
		return errors.New("multiple key/value pairs specified for source but only one may be defined")
	}
}
