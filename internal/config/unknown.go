package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

// maxLevenshteinDistance is the maximum edit distance for "did you mean?"
// suggestions when unknown config keys are detected.
const maxLevenshteinDistance = 3

const gamesSection = "games"

// knownSectionKeys lists the valid keys of each fixed section. Keys are kept
// sorted for deterministic suggestions when two candidates tie.
var knownSectionKeys = map[string][]string{
	"auth":    {"credentials_file", "token_file"},
	"sync":    {"archive_format", "backup_dir", "create_backups", "history_file", "scratch_dir"},
	"meta":    {"custom_path", "enabled", "mode"},
	"logging": {"log_level"},
	"network": {"burst", "requests_per_second", "timeout"},
}

// knownGameKeys are the valid keys inside a [games.<id>] table.
var knownGameKeys = []string{"folder", "save_dir"}

var knownSections = func() []string {
	names := []string{gamesSection}
	for name := range knownSectionKeys {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}()

// checkUnknownKeys inspects TOML metadata for undecoded keys and returns
// an error with "did you mean?" suggestions for each unknown key.
func checkUnknownKeys(md *toml.MetaData) error {
	var errs []error

	seen := make(map[string]bool)

	for _, key := range md.Undecoded() {
		err := unknownKeyError(key)
		if err == nil || seen[err.Error()] {
			continue
		}

		seen[err.Error()] = true
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// unknownKeyError describes one undecoded key. Keys below an unknown section
// are reported as the section itself.
func unknownKeyError(key toml.Key) error {
	section := key[0]

	if len(key) == 1 {
		if owner := sectionOwning(section); owner != "" {
			return fmt.Errorf("config key %q must be inside the [%s] section", section, owner)
		}

		return suggest(fmt.Sprintf("unknown config section %q", section), section, knownSections)
	}

	if section == gamesSection {
		if len(key) < 3 { //nolint:mnd // games.<id>.<key>
			return nil
		}

		return suggest(fmt.Sprintf("unknown key %q in [games.%s]", key[2], key[1]), key[2], knownGameKeys)
	}

	keys, ok := knownSectionKeys[section]
	if !ok {
		return suggest(fmt.Sprintf("unknown config section %q", section), section, knownSections)
	}

	return suggest(fmt.Sprintf("unknown key %q in [%s]", key[1], section), key[1], keys)
}

// sectionOwning returns the section that defines key, if any. It catches
// settings written at the top level instead of under their table.
func sectionOwning(key string) string {
	for _, section := range knownSections {
		if slices.Contains(knownSectionKeys[section], key) {
			return section
		}
	}

	return ""
}

func suggest(msg, unknown string, known []string) error {
	if s := closestMatch(unknown, known); s != "" {
		return fmt.Errorf("%s, did you mean %q?", msg, s)
	}

	return errors.New(msg)
}

// closestMatch finds the closest known key by Levenshtein distance.
// Returns empty string if no match is within maxLevenshteinDistance.
func closestMatch(unknown string, known []string) string {
	best := ""
	bestDist := maxLevenshteinDistance + 1

	for _, k := range known {
		d := levenshtein(strings.ToLower(unknown), k)
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
