// Package copies resolves how many copies of each card go into a deck.
package copies

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/maruel/natural"
)

// FileName is the copies list looked up in a project directory.
const FileName = "copies.toml"

// Source maps a card base name to a copy count.
type Source interface {
	// Lookup reports found=false when the name has no entry.
	Lookup(baseName string) (count int, found bool)
}

// List is a Source backed by a TOML table of "name" = count pairs.
type List struct {
	counts map[string]int
}

// Empty returns a list without entries, every lookup misses.
func Empty() *List {
	return &List{counts: map[string]int{}}
}

// FromMap copies m into a new list.
func FromMap(m map[string]int) *List {
	l := Empty()
	for k, v := range m {
		l.counts[k] = v
	}
	return l
}

// Load reads a copies list. A missing file is an empty list, an unreadable or
// malformed one is an error.
func Load(path string) (*List, error) {
	var counts map[string]int
	if _, err := toml.DecodeFile(path, &counts); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Empty(), nil
		}
		return nil, fmt.Errorf("error parsing copies list %s: %w", path, err)
	}
	return FromMap(counts), nil
}

func (l *List) Lookup(baseName string) (int, bool) {
	n, ok := l.counts[baseName]
	return n, ok
}

// Names returns all entries in natural order.
func (l *List) Names() []string {
	names := make([]string, 0, len(l.counts))
	for k := range l.counts {
		names = append(names, k)
	}
	sort.Sort(natural.StringSlice(names))
	return names
}

// Save writes the list back as TOML.
func (l *List) Save(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating copies list: %w", err)
	}
	defer file.Close()

	if err := toml.NewEncoder(file).Encode(l.counts); err != nil {
		return fmt.Errorf("error encoding copies list: %w", err)
	}
	return nil
}
