// Package ignore implements the ignore policy: configured
// patterns, a .contextignore file, and the implicit always-ignored
// ".context/" path, merged and matched as contiguous path-segment
// sub-sequences — no glob, no negation, case-sensitive.
//
// Matchers are LRU-cached per directory via hashicorp/golang-lru/v2.
package ignore

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// StateDirPattern is the implicit, always-present ignored path.
const StateDirPattern = ".context"

// Matcher holds normalized ignore patterns and evaluates paths against them.
type Matcher struct {
	patterns [][]string // each pattern pre-split into segments
}

// normalizePattern applies the trim/backslash/collapse/strip rules.
func normalizePattern(p string) string {
	p = strings.TrimSpace(p)
	p = strings.ReplaceAll(p, `\`, "/")
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	p = strings.TrimPrefix(p, "./")
	p = strings.Trim(p, "/")
	return p
}

// New builds a Matcher from configured patterns plus the contents of a
// .contextignore file (if present) plus the implicit state-dir pattern.
func New(configuredPatterns []string, contextIgnorePath string) (*Matcher, error) {
	all := make([]string, 0, len(configuredPatterns)+4)
	all = append(all, configuredPatterns...)

	if contextIgnorePath != "" {
		lines, err := readContextIgnore(contextIgnorePath)
		if err != nil {
			return nil, err
		}
		all = append(all, lines...)
	}
	all = append(all, StateDirPattern)

	m := &Matcher{}
	seen := map[string]bool{}
	for _, raw := range all {
		norm := normalizePattern(raw)
		if norm == "" || seen[norm] {
			continue
		}
		seen[norm] = true
		m.patterns = append(m.patterns, strings.Split(norm, "/"))
	}
	return m, nil
}

func readContextIgnore(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}

// Ignored reports whether relPath (already "/"-separated, relative) is
// ignored: any normalized pattern appears as a contiguous sub-sequence of
// the path's segments.
func (m *Matcher) Ignored(relPath string) bool {
	if m == nil {
		return false
	}
	segs := strings.Split(strings.Trim(relPath, "/"), "/")
	for _, pattern := range m.patterns {
		if containsSubsequence(segs, pattern) {
			return true
		}
	}
	return false
}

// containsSubsequence reports whether pattern appears contiguously inside segs.
func containsSubsequence(segs, pattern []string) bool {
	if len(pattern) == 0 || len(pattern) > len(segs) {
		return false
	}
	for start := 0; start+len(pattern) <= len(segs); start++ {
		match := true
		for i, p := range pattern {
			if segs[start+i] != p {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// Cache LRU-caches compiled Matchers by directory so repeated scans of
// the same tree do not re-parse .contextignore per directory.
type Cache struct {
	lru *lru.Cache[string, *Matcher]
}

// NewCache creates a Cache holding up to size compiled matchers.
func NewCache(size int) (*Cache, error) {
	c, err := lru.New[string, *Matcher](size)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: c}, nil
}

// GetOrBuild returns the cached Matcher for root, building and caching
// one via build if absent.
func (c *Cache) GetOrBuild(root string, build func() (*Matcher, error)) (*Matcher, error) {
	key := filepath.Clean(root)
	if m, ok := c.lru.Get(key); ok {
		return m, nil
	}
	m, err := build()
	if err != nil {
		return nil, err
	}
	c.lru.Add(key, m)
	return m, nil
}
