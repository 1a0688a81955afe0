package specfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rulecov/rulecov/internal/domain"
)

func writeSpec(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pricing.spec.yaml")
	err := os.WriteFile(path, []byte(content), 0o644)
	require.NoError(t, err)
	return path
}

func TestLoader_Load_ValidSpec(t *testing.T) {
	path := writeSpec(t, `tests:
  - description: adult customer
    decision: Eligibility
    in:
      age: 25
      member: true
      name: alice
    out: "true"
  - decision: Eligibility
    out: "false"
`)

	cases, err := Loader{}.Load(path)

	require.NoError(t, err)
	require.Len(t, cases, 2)

	first := cases[0]
	assert.Equal(t, "adult customer", first.Description)
	assert.Equal(t, "Eligibility", first.Decision)
	assert.Equal(t, "true", first.Expected)
	age, err := first.Inputs["age"].AsNumber()
	require.NoError(t, err)
	assert.InDelta(t, 25, age, 1e-9)
	member, err := first.Inputs["member"].AsBool()
	require.NoError(t, err)
	assert.True(t, member)
	assert.Equal(t, "alice", first.Inputs["name"].AsString())

	second := cases[1]
	assert.Empty(t, second.Description)
	assert.Empty(t, second.Inputs)
	assert.Equal(t, "false", second.Expected)
}

func TestLoader_Load_CanonicalizesExpected(t *testing.T) {
	path := writeSpec(t, `tests:
  - decision: Pricing
    out: 0.5
  - decision: Pricing
    out: true
`)

	cases, err := Loader{}.Load(path)

	require.NoError(t, err)
	assert.Equal(t, "0.5", cases[0].Expected)
	assert.Equal(t, "true", cases[1].Expected)
}

func TestLoader_Load_LenientShapes(t *testing.T) {
	shapes := []struct {
		name string
		src  string
	}{
		{name: "empty list", src: "tests: []\n"},
		{name: "missing tests key", src: "notes: draft\n"},
		{name: "tests is a scalar", src: "tests: 42\n"},
		{name: "tests is a mapping", src: "tests:\n  first:\n    decision: A\n"},
		{name: "empty file", src: ""},
	}
	for _, tc := range shapes {
		t.Run(tc.name, func(t *testing.T) {
			path := writeSpec(t, tc.src)

			cases, err := Loader{}.Load(path)

			require.NoError(t, err)
			assert.Empty(t, cases)
		})
	}
}

func TestLoader_Load_FailsClosed(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "missing decision",
			src:  "tests:\n  - in:\n      x: 1\n    out: y\n",
			want: "missing decision key",
		},
		{
			name: "missing out",
			src:  "tests:\n  - decision: A\n    in:\n      x: 1\n",
			want: "missing expected output",
		},
		{
			name: "non-scalar input",
			src:  "tests:\n  - decision: A\n    in:\n      x: [1, 2]\n    out: y\n",
			want: `input "x"`,
		},
		{
			name: "non-scalar out",
			src:  "tests:\n  - decision: A\n    out:\n      nested: 1\n",
			want: "expected output",
		},
		{
			name: "malformed yaml",
			src:  "tests: {{{",
			want: "",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := writeSpec(t, tc.src)

			_, err := Loader{}.Load(path)

			require.Error(t, err)
			var pe *domain.SpecParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, path, pe.Path)
			if tc.want != "" {
				assert.Contains(t, err.Error(), tc.want)
			}
		})
	}
}

func TestLoader_Load_MissingFile(t *testing.T) {
	_, err := Loader{}.Load(filepath.Join(t.TempDir(), "absent.spec.yaml"))

	require.Error(t, err)
	var pe *domain.SpecParseError
	assert.True(t, errors.As(err, &pe))
}
