package stoplist

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manager holds the stopword set used by the tokenizer.
// Terms are matched exactly; callers lowercase before lookup.
type Manager struct {
	stops map[string]struct{}
}

// NewManager creates a stoplist from the given terms
func NewManager(initialStops []string) *Manager {
	stops := make(map[string]struct{}, len(initialStops))
	for _, s := range initialStops {
		stops[s] = struct{}{}
	}
	return &Manager{stops: stops}
}

// IsStop checks if a token is a stopword
func (m *Manager) IsStop(token string) bool {
	_, ok := m.stops[token]
	return ok
}

// Add adds a token to the stoplist
func (m *Manager) Add(token string) {
	m.stops[token] = struct{}{}
}

// Remove removes a token from the stoplist
func (m *Manager) Remove(token string) {
	delete(m.stops, token)
}

// Len returns the number of stopwords
func (m *Manager) Len() int {
	return len(m.stops)
}

// All returns all stopwords, sorted
func (m *Manager) All() []string {
	result := make([]string, 0, len(m.stops))
	for s := range m.stops {
		result = append(result, s)
	}
	sort.Strings(result)
	return result
}

// Load reads a newline-separated stopword list. Each line is one term used
// verbatim; blank lines are skipped and a trailing CR is dropped.
func Load(r io.Reader) (*Manager, error) {
	var terms []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSuffix(sc.Text(), "\r")
		if line == "" {
			continue
		}
		terms = append(terms, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return NewManager(terms), nil
}

// yamlList is the YAML form of a stoplist.
type yamlList struct {
	Terms []string `yaml:"terms"`
}

// LoadFile loads a stoplist from disk. Files ending in .yaml or .yml are read
// as a `terms:` list, anything else as one term per line.
func LoadFile(path string) (*Manager, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open stoplist %s: %w", path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var sl yamlList
		if err := yaml.NewDecoder(f).Decode(&sl); err != nil && err != io.EOF {
			return nil, fmt.Errorf("parse stoplist %s: %w", path, err)
		}
		return NewManager(sl.Terms), nil
	default:
		m, err := Load(f)
		if err != nil {
			return nil, fmt.Errorf("read stoplist %s: %w", path, err)
		}
		return m, nil
	}
}
