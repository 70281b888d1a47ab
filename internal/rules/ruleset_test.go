package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestLoad_YAML(t *testing.T) {
	rs, err := Load("testdata/rules.yaml")
	require.NoError(t, err)

	require.Len(t, rs.Forbidden, 3)
	assert.Equal(t, "no-circular", rs.Forbidden[0].Name)
	assert.Equal(t, SeverityError, rs.Forbidden[0].Severity)
	require.NotNil(t, rs.Forbidden[0].To.Circular)
	assert.True(t, *rs.Forbidden[0].To.Circular)

	// defaults
	assert.Equal(t, SeverityWarn, rs.Forbidden[1].Severity)
	assert.Equal(t, SeverityWarn, rs.AllowedSeverity)

	assert.True(t, rs.ConstrainsCircularity())
}

func TestLoad_JSON(t *testing.T) {
	rs, err := Load("testdata/rules.json")
	require.NoError(t, err)

	require.Len(t, rs.Forbidden, 1)
	require.Len(t, rs.Allowed, 1)
	assert.Equal(t, "unnamed", rs.Allowed[0].Name)
	assert.Equal(t, SeverityError, rs.AllowedSeverity)
	assert.False(t, rs.ConstrainsCircularity())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"unknown severity", "testdata/bad-severity.yaml"},
		{"bad regex", "testdata/bad-regex.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidRuleSet)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("testdata/does-not-exist.yaml")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidRuleSet)
}

func TestConstrainsCircularity(t *testing.T) {
	tests := []struct {
		name string
		rs   *RuleSet
		want bool
	}{
		{"nil", nil, false},
		{"empty", &RuleSet{}, false},
		{"forbidden without circular", &RuleSet{Forbidden: []Rule{{To: ToCondition{Path: "x"}}}}, false},
		{"forbidden circular true", &RuleSet{Forbidden: []Rule{{To: ToCondition{Circular: boolPtr(true)}}}}, true},
		{"forbidden circular false", &RuleSet{Forbidden: []Rule{{To: ToCondition{Circular: boolPtr(false)}}}}, true},
		{"allowed circular only", &RuleSet{Allowed: []Rule{{To: ToCondition{Circular: boolPtr(true)}}}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rs.ConstrainsCircularity())
		})
	}
}
