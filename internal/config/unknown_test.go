package config

import (
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeForUnknown(t *testing.T, content string) error {
	t.Helper()

	md, err := toml.Decode(content, DefaultConfig())
	require.NoError(t, err)

	return checkUnknownKeys(&md)
}

func TestCheckUnknownKeys_None(t *testing.T) {
	assert.NoError(t, decodeForUnknown(t, "[logging]\nlog_level = \"debug\"\n"))
}

func TestCheckUnknownKeys_SectionTypo(t *testing.T) {
	err := decodeForUnknown(t, "[loging]\nlog_level = \"debug\"\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did you mean [logging]")
}

func TestCheckUnknownKeys_KeyTypo(t *testing.T) {
	err := decodeForUnknown(t, "[session]\ncredential_stor = \"file\"\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `did you mean "credential_store"`)
}

func TestCheckUnknownKeys_NoSuggestion(t *testing.T) {
	err := decodeForUnknown(t, "[network]\ncompletely_unrelated = 1\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown config key "completely_unrelated" in [network]`)
	assert.NotContains(t, err.Error(), "did you mean")
}

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 0, levenshtein("abc", "abc"))
	assert.Equal(t, 1, levenshtein("abc", "abd"))
	assert.Equal(t, 3, levenshtein("", "abc"))
	assert.Equal(t, 3, levenshtein("kitten", "sitting"))
}
