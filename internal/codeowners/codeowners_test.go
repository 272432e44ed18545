package codeowners

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchLastRuleWins(t *testing.T) {
	blob := []byte("*  @a\n/docs/ @b\n/docs/api.md @c\n")
	rules, err := ParseRules(blob)
	require.NoError(t, err)
	require.Len(t, rules, 3)

	assert.Equal(t, []string{"@a"}, Match(rules, "src/x.rs"))
	assert.Equal(t, []string{"@b"}, Match(rules, "docs/index.md"))
	assert.Equal(t, []string{"@c"}, Match(rules, "docs/api.md"))
}

func TestMatchRemoval(t *testing.T) {
	blob := []byte("* @a\n/secret/ \n")
	rules, err := ParseRules(blob)
	require.NoError(t, err)
	require.Len(t, rules, 2)

	assert.Empty(t, Match(rules, "secret/k"))
	assert.Equal(t, []string{"@a"}, Match(rules, "other/file"))
}

func TestMatchNoRules(t *testing.T) {
	rules, err := ParseRules([]byte("# just a comment\n\n"))
	require.NoError(t, err)
	assert.Empty(t, rules)
	assert.Nil(t, Match(rules, "anything"))
}

func TestTrailingHashNotStripped(t *testing.T) {
	blob := []byte("*.go @team #notacomment\n")
	rules, err := ParseRules(blob)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, []string{"@team", "#notacomment"}, rules[0].Owners)
}

func TestNormalizePathspec(t *testing.T) {
	root := "/repo"
	got, err := NormalizePathspec(root, "/repo/sub", "../file.go")
	require.NoError(t, err)
	assert.Equal(t, "file.go", got)

	got, err = NormalizePathspec(root, "/repo", ".")
	require.NoError(t, err)
	assert.Equal(t, "", got)

	_, err = NormalizePathspec(root, "/repo", "../../outside")
	require.Error(t, err)
}

func TestNormalizePathspecBare(t *testing.T) {
	got, err := NormalizePathspec("", "", "some/in-tree/path")
	require.NoError(t, err)
	assert.Equal(t, "some/in-tree/path", got)
}
