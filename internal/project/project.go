// Package project loads a card project directory: a deck.toml manifest, the
// card face images and the shared card back.
package project

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/h2non/filetype"
	"github.com/maruel/natural"

	"github.com/arcanaland/ttsdeck/internal/card"
	"github.com/arcanaland/ttsdeck/internal/config"
	"github.com/arcanaland/ttsdeck/internal/copies"
)

const (
	// ManifestFile describes the deck, it is optional.
	ManifestFile = "deck.toml"
	// DefaultSourcePPI is the resolution card images are assumed to be drawn at.
	DefaultSourcePPI = 300
	// OutputDir receives exported sheets and the save document.
	OutputDir = "tts"
)

// Manifest is the content of deck.toml
type Manifest struct {
	Name          string                 `toml:"name"`
	Description   string                 `toml:"description"`
	Back          string                 `toml:"back"`
	SourcePPI     int                    `toml:"source_ppi"`
	CatalogPrefix string                 `toml:"catalog_prefix"`
	Export        ExportSection          `toml:"export"`
	Cards         map[string]CardSection `toml:"cards"`
}

// ExportSection holds per-project overrides of the user configuration.
type ExportSection struct {
	Format     string `toml:"format"`
	Resolution int    `toml:"resolution"`
	CacheDir   string `toml:"cache_dir"`
}

// CardSection holds per-card metadata, keyed by card base name.
type CardSection struct {
	Name             string `toml:"name"`
	Description      string `toml:"description"`
	CollectionNumber int    `toml:"collection_number"`
	Exclude          bool   `toml:"exclude"`
}

// Project is a loaded card project
type Project struct {
	Dir      string
	Manifest Manifest
	Cards    []*FileSource
	Back     string // path of the shared back image, may be empty
}

// supported lists decodable image types
var supported = map[string]bool{"png": true, "jpg": true, "gif": true, "webp": true, "bmp": true}

// IsCardImage sniffs the file header, extensions are not trusted.
func IsCardImage(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	head := make([]byte, 262)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, err
	}
	kind, err := filetype.Match(head[:n])
	if err != nil || !filetype.IsImage(head[:n]) {
		return false, nil
	}
	return supported[kind.Extension], nil
}

// BaseName strips the extension of a card file name.
func BaseName(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func isBackFile(name string) bool {
	return strings.HasSuffix(BaseName(name), ".back")
}

// LoadManifest decodes deck.toml in dir, a missing file yields defaults.
func LoadManifest(dir string) (Manifest, error) {
	m := Manifest{SourcePPI: DefaultSourcePPI}
	if _, err := toml.DecodeFile(filepath.Join(dir, ManifestFile), &m); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Manifest{}, fmt.Errorf("error parsing %s: %w", ManifestFile, err)
	}
	if m.Name == "" {
		if abs, err := filepath.Abs(dir); err == nil {
			m.Name = filepath.Base(abs)
		}
	}
	if m.SourcePPI <= 0 {
		m.SourcePPI = DefaultSourcePPI
	}
	return m, nil
}

// Load reads the manifest and discovers card images in natural file name
// order. Directories, hidden files, per-card backs and the shared back are
// not cards.
func Load(dir string) (*Project, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("project directory not found: %s", dir)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	m, err := LoadManifest(dir)
	if err != nil {
		return nil, err
	}
	p := &Project{Dir: dir, Manifest: m}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("error reading project directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	backs := map[string]string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || name == ManifestFile || name == copies.FileName {
			continue
		}
		path := filepath.Join(dir, name)
		if ok, err := IsCardImage(path); err != nil || !ok {
			continue
		}
		switch {
		case m.Back != "" && filepath.Clean(m.Back) == name:
			p.Back = path
		case m.Back == "" && BaseName(name) == "back":
			p.Back = path
		case isBackFile(name):
			backs[strings.TrimSuffix(BaseName(name), ".back")] = path
		default:
			names = append(names, name)
		}
	}
	if m.Back != "" && p.Back == "" {
		// back may live outside the project directory
		p.Back = m.Back
		if !filepath.IsAbs(p.Back) {
			p.Back = filepath.Join(dir, p.Back)
		}
	}

	sort.Sort(natural.StringSlice(names))
	for _, name := range names {
		src, err := newFileSource(filepath.Join(dir, name), m.SourcePPI)
		if err != nil {
			return nil, err
		}
		src.back = p.Back
		if b, ok := backs[BaseName(name)]; ok {
			src.back = b
		}
		p.Cards = append(p.Cards, src)
	}
	return p, nil
}

// ExternalID builds the companion catalog id of a card, empty when the
// project has no catalog prefix or the card no collection number.
func (p *Project) ExternalID(baseName string) string {
	sec, ok := p.Manifest.Cards[baseName]
	if p.Manifest.CatalogPrefix == "" || !ok || sec.CollectionNumber <= 0 {
		return ""
	}
	return fmt.Sprintf("%s%03d", p.Manifest.CatalogPrefix, sec.CollectionNumber)
}

// Records wraps every non excluded card for export.
func (p *Project) Records(env *card.Env) []*card.Record {
	out := make([]*card.Record, 0, len(p.Cards))
	for _, src := range p.Cards {
		base := BaseName(src.Identity().Name)
		sec := p.Manifest.Cards[base]
		if sec.Exclude {
			continue
		}
		out = append(out, env.NewRecord(src, card.Meta{
			BaseName:    base,
			DisplayName: sec.Name,
			Description: sec.Description,
			ExternalID:  p.ExternalID(base),
		}))
	}
	return out
}

// Overrides returns the [export] section as configuration overrides.
func (p *Project) Overrides() config.Overrides {
	o := config.Overrides{
		Format:     p.Manifest.Export.Format,
		Resolution: p.Manifest.Export.Resolution,
		CacheDir:   p.Manifest.Export.CacheDir,
	}
	if o.CacheDir != "" && !filepath.IsAbs(o.CacheDir) {
		o.CacheDir = filepath.Join(p.Dir, o.CacheDir)
	}
	return o
}

// CopiesPath returns the location of the copies list.
func (p *Project) CopiesPath() string {
	return filepath.Join(p.Dir, copies.FileName)
}

// OutputDir returns where exported files go.
func (p *Project) OutputDir() string {
	return filepath.Join(p.Dir, OutputDir)
}
