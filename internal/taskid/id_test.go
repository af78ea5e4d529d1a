// internal/taskid/id_test.go
package taskid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		expectErr bool
		expected  ID
	}{
		{
			name:     "project and target",
			raw:      "app:build",
			expected: ID{Project: "app", Target: "build"},
		},
		{
			name:     "with configuration",
			raw:      "app:build:production",
			expected: ID{Project: "app", Target: "build", Configuration: "production"},
		},
		{
			name:     "scoped project name",
			raw:      "@acme/ui:test",
			expected: ID{Project: "@acme/ui", Target: "test"},
		},
		{
			name:      "error - empty string",
			raw:       "",
			expectErr: true,
		},
		{
			name:      "error - missing target",
			raw:       "app",
			expectErr: true,
		},
		{
			name:      "error - empty segment",
			raw:       "app::production",
			expectErr: true,
		},
		{
			name:      "error - too many segments",
			raw:       "a:b:c:d",
			expectErr: true,
		},
		{
			name:      "error - whitespace",
			raw:       "my app:build",
			expectErr: true,
		},
		{
			name:      "error - just dot",
			raw:       ".:build",
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			id, err := Parse(tc.raw)

			if tc.expectErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expected, id)
		})
	}
}

func TestID_RoundTrip(t *testing.T) {
	testIDs := []string{
		"app:build",
		"app:build:production",
		"@acme/ui:serve:development",
	}

	for _, raw := range testIDs {
		t.Run(raw, func(t *testing.T) {
			id, err := Parse(raw)
			require.NoError(t, err)
			assert.Equal(t, raw, id.String())
		})
	}
}

func TestID_Deterministic(t *testing.T) {
	assert.Equal(t, New("lib", "build", "").String(), New("lib", "build", "").String())
	assert.NotEqual(t, New("lib", "build", "").String(), New("lib", "build", "prod").String())
	assert.Panics(t, func() { MustParse("nope") })
}
