package schemaversion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	for _, tc := range []struct {
		version SchemaVersion
		wantErr string
	}{
		{version: "", wantErr: `invalid schema version "": Invalid Semantic Version`},
		{version: "one.two", wantErr: `invalid schema version "one.two": Invalid Semantic Version`},
		{version: "1.0.0"},
		{version: "v1.4.0"},
	} {
		t.Run(string(tc.version), func(t *testing.T) {
			err := tc.version.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tc.wantErr)
		})
	}
}

func TestCompatible(t *testing.T) {
	testCases := []struct {
		name    string
		version SchemaVersion
		wantErr string
	}{
		{name: "same", version: "1.0.0"},
		{name: "minor bump", version: "1.3.2"},
		{name: "major bump", version: "2.0.0", wantErr: `unsupported schema version "2.0.0"`},
		{name: "older", version: "0.9.0", wantErr: `unsupported schema version "0.9.0"`},
		{name: "garbage", version: "one", wantErr: `invalid schema version "one"`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.version.Compatible("^1.0.0")
			if tc.wantErr != "" {
				if assert.Error(t, err) {
					assert.Contains(t, err.Error(), tc.wantErr)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}

	assert.Error(t, SchemaVersion("1.0.0").Compatible("not a constraint"))
}
