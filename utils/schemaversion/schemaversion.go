package schemaversion

import (
	"fmt"

	"github.com/Masterminds/semver"
)

// SchemaVersion represents the version of a wire format
type SchemaVersion string

// Validate the provided schema version is present and adheres
// to semantic versioning
func (v SchemaVersion) Validate() error {
	_, err := v.parse()
	return err
}

// Compatible checks that the version satisfies constraint, for example
// "^1.0.0". The error explains why it does not.
func (v SchemaVersion) Compatible(constraint string) error {
	version, err := v.parse()
	if err != nil {
		return err
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("invalid version constraint %q: %v", constraint, err)
	}
	if ok, errs := c.Validate(version); !ok {
		if len(errs) > 0 {
			return fmt.Errorf("unsupported schema version %q: %v", string(v), errs[0])
		}
		return fmt.Errorf("unsupported schema version %q", string(v))
	}
	return nil
}

func (v SchemaVersion) parse() (*semver.Version, error) {
	version, err := semver.NewVersion(string(v))
	if err != nil {
		return nil, fmt.Errorf("invalid schema version %q: %v", string(v), err)
	}
	return version, nil
}
