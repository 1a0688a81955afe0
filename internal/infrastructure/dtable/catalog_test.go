package dtable

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rulecov/rulecov/internal/domain"
)

const multiTable = `decisions:
  - decision: Eligibility
    inputs: [age]
    outputs: [eligible]
    rules:
      - id: adult
        when: ["age >= 18"]
        then: ["true"]
      - id: minor
        when: ["age < 18"]
        then: ["false"]
  - decision: Tier
    inputs: [spend]
    outputs: [tier]
  - decision: Shipping
    inputs: [weight]
    outputs: [cost]
    rules:
      - when: ["weight <= 1.0"]
        then: ["4.99"]
`

func TestCatalog_DecisionKeys(t *testing.T) {
	path := createTableFile(t, multiTable)

	keys, err := NewCatalog().DecisionKeys(path)

	require.NoError(t, err)
	assert.Equal(t, []string{"Eligibility", "Tier", "Shipping"}, keys)
}

func TestCatalog_DecisionKeys_MissingFile(t *testing.T) {
	_, err := NewCatalog().DecisionKeys(filepath.Join(t.TempDir(), "gone.table.yaml"))

	require.Error(t, err)
	var nf *domain.SourceNotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestCatalog_Rules(t *testing.T) {
	path := createTableFile(t, multiTable)

	rules, err := NewCatalog().Rules(path, "Eligibility")

	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "adult", rules[0].ID)
	assert.Equal(t, []string{"age >= 18"}, rules[0].Conditions)
	assert.Equal(t, []string{"true"}, rules[0].Outputs)
	assert.Equal(t, "minor", rules[1].ID)
}

func TestCatalog_Rules_GeneratedIDs(t *testing.T) {
	path := createTableFile(t, multiTable)

	rules, err := NewCatalog().Rules(path, "Shipping")

	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "rule1", rules[0].ID)
}

func TestCatalog_Rules_DecisionNotFound(t *testing.T) {
	path := createTableFile(t, multiTable)

	_, err := NewCatalog().Rules(path, "Refund")

	require.Error(t, err)
	var nf *domain.DecisionNotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "Refund", nf.Decision)
	assert.Equal(t, path, nf.Path)
}

func TestCatalog_Rules_EmptyDecision(t *testing.T) {
	path := createTableFile(t, multiTable)

	_, err := NewCatalog().Rules(path, "Tier")

	require.Error(t, err)
	var nf *domain.RuleNotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "Tier", nf.Decision)
}

func TestCatalog_ReflectsFileChanges(t *testing.T) {
	tmpdir := t.TempDir()
	path := filepath.Join(tmpdir, "billing.table.yaml")
	require.NoError(t, os.WriteFile(path, []byte(approvalTable), 0o644))
	cat := NewCatalog()

	keys, err := cat.DecisionKeys(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Approval"}, keys)

	require.NoError(t, os.WriteFile(path, []byte(multiTable), 0o644))

	keys, err = cat.DecisionKeys(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Eligibility", "Tier", "Shipping"}, keys)
}
