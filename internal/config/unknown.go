package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// maxLevenshteinDistance is the maximum edit distance for "did you mean?"
// suggestions when unknown config keys are detected.
const maxLevenshteinDistance = 3

// knownKeys maps each section name to its valid keys.
var knownKeys = map[string][]string{
	"api":        {"base_url", "identity_path", "login_path", "callback_path", "resources_path"},
	"session":    {"credential_store", "token_file", "database", "check_expiry"},
	"federation": {"authorize_url", "client_id", "scopes", "redirect_port"},
	"cache":      {"enabled"},
	"logging":    {"log_level", "log_format"},
	"network":    {"connect_timeout", "data_timeout", "user_agent", "max_retries"},
}

// knownSections is the sorted list of section names, for deterministic
// suggestions when two candidates have the same edit distance.
var knownSections = func() []string {
	keys := make([]string, 0, len(knownKeys))
	for k := range knownKeys {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}()

// checkUnknownKeys inspects TOML metadata for undecoded keys and returns
// an error with "did you mean?" suggestions for each unknown key.
func checkUnknownKeys(md *toml.MetaData) error {
	undecoded := md.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}

	var errs []error

	reported := make(map[string]bool)

	for _, key := range undecoded {
		err := buildKeyError(key)
		if err == nil || reported[err.Error()] {
			continue
		}

		reported[err.Error()] = true
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// buildKeyError creates a descriptive error for an unknown key, suggesting
// the closest section or the closest key within a known section.
func buildKeyError(key toml.Key) error {
	section := key[0]

	keys, ok := knownKeys[section]
	if !ok {
		if suggestion := closestMatch(section, knownSections); suggestion != "" {
			return fmt.Errorf("unknown config section [%s] (did you mean [%s]?)", section, suggestion)
		}

		return fmt.Errorf("unknown config section or key %q", strings.Join(key, "."))
	}

	if len(key) < 2 { //nolint:mnd // section + field
		return nil
	}

	field := key[1]

	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	if suggestion := closestMatch(field, sorted); suggestion != "" {
		return fmt.Errorf("unknown config key %q in [%s] (did you mean %q?)", field, section, suggestion)
	}

	return fmt.Errorf("unknown config key %q in [%s]", field, section)
}

// closestMatch finds the closest known key by Levenshtein distance.
// Returns empty string if no match is within maxLevenshteinDistance.
func closestMatch(unknown string, known []string) string {
	best := ""
	bestDist := maxLevenshteinDistance + 1

	for _, k := range known {
		d := levenshtein(unknown, k)
		if d < bestDist {
			bestDist = d
			best = k
		}
	}

	if bestDist <= maxLevenshteinDistance {
		return best
	}

	return ""
}

// levenshtein computes the edit distance between two strings.
func levenshtein(a, b string) int {
	if a == "" {
		return len(b)
	}

	if b == "" {
		return len(a)
	}

	// Single-row optimization avoids allocating a full matrix.
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := range len(a) {
		curr[0] = i + 1

		for j := range len(b) {
			cost := 1
			if a[i] == b[j] {
				cost = 0
			}

			curr[j+1] = min(curr[j]+1, prev[j+1]+1, prev[j]+cost)
		}

		prev, curr = curr, prev
	}

	return prev[len(b)]
}
