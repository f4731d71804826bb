package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"mode", "mode", 0},
		{"mdoe", "mode", 2},
		{"save_dirs", "save_dir", 1},
		{"kitten", "sitting", 3},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, levenshtein(tt.a, tt.b), "%q -> %q", tt.a, tt.b)
	}
}

func TestClosestMatch(t *testing.T) {
	assert.Equal(t, "archive_format", closestMatch("archive_fromat", knownSectionKeys["sync"]))
	assert.Equal(t, "logging", closestMatch("LOGGING", knownSections))
	assert.Empty(t, closestMatch("completely_unrelated", knownSections))
}

func TestSectionOwning(t *testing.T) {
	assert.Equal(t, "sync", sectionOwning("create_backups"))
	assert.Equal(t, "meta", sectionOwning("mode"))
	assert.Empty(t, sectionOwning("folder"))
}
