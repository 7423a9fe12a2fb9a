package validator

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/maruel/natural"

	"github.com/arcanaland/ttsdeck/internal/config"
	"github.com/arcanaland/ttsdeck/internal/copies"
	"github.com/arcanaland/ttsdeck/internal/imageio"
	"github.com/arcanaland/ttsdeck/internal/project"
)

type ValidationResults struct {
	Errors   []string
	Warnings []string
}

type Validator struct {
	ProjectPath string
	Config      *config.Config // optional, export settings are checked when set
	Results     ValidationResults

	manifest project.Manifest
	project  *project.Project
}

func NewValidator(projectPath string, cfg *config.Config) *Validator {
	return &Validator{
		ProjectPath: projectPath,
		Config:      cfg,
		Results:     ValidationResults{},
	}
}

func (v *Validator) errorf(format string, args ...any) {
	v.Results.Errors = append(v.Results.Errors, fmt.Sprintf(format, args...))
}

func (v *Validator) warnf(format string, args ...any) {
	v.Results.Warnings = append(v.Results.Warnings, fmt.Sprintf(format, args...))
}

// Validate returns an error only when the project cannot be inspected at all.
func (v *Validator) Validate() (ValidationResults, error) {
	if err := v.validateManifest(); err != nil {
		return v.Results, err
	}

	p, err := project.Load(v.ProjectPath)
	if err != nil {
		return v.Results, err
	}
	v.project = p

	v.validateCards()
	v.validateBacks()
	v.validateCardSections()
	v.validateCopies()
	v.validateSettings()

	return v.Results, nil
}

func (v *Validator) validateManifest() error {
	path := filepath.Join(v.ProjectPath, project.ManifestFile)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		v.warnf("%s not found, deck name defaults to the directory name", project.ManifestFile)
		return nil
	}

	md, err := toml.DecodeFile(path, &v.manifest)
	if err != nil {
		return fmt.Errorf("error parsing %s: %v", project.ManifestFile, err)
	}
	for _, key := range md.Undecoded() {
		v.warnf("unknown key in %s: %s", project.ManifestFile, key)
	}

	if v.manifest.Name == "" {
		v.warnf("name is not set in %s, the directory name is used", project.ManifestFile)
	}
	if v.manifest.SourcePPI < 0 {
		v.errorf("source_ppi must be positive, got %d", v.manifest.SourcePPI)
	}
	if v.manifest.Export.Format != "" {
		if _, err := imageio.ParseFormat(v.manifest.Export.Format); err != nil {
			v.errorf("export.format: %v", err)
		}
	}
	if v.manifest.Export.Resolution < 0 {
		v.errorf("export.resolution must be positive, got %d", v.manifest.Export.Resolution)
	}
	return nil
}

// validateCards checks that the project has cards and that their images can be
// read. Differing sizes are allowed, such cards are scaled into their cell.
func (v *Validator) validateCards() {
	if len(v.project.Cards) == 0 {
		v.errorf("no card images found in %s", v.ProjectPath)
		return
	}

	v.warnDisguisedFiles()

	var first string
	var size image.Point
	for _, c := range v.project.Cards {
		s, err := imageio.Size(c.Path())
		if err != nil {
			v.errorf("unreadable card image %s: %v", c.Identity().Name, err)
			continue
		}
		if first == "" {
			first, size = c.Identity().Name, s
			continue
		}
		if s != size {
			v.warnf("card %s is %dx%d, %s is %dx%d, it will be scaled", c.Identity().Name, s.X, s.Y, first, size.X, size.Y)
		}
	}
}

// warnDisguisedFiles reports files named like images that are not.
func (v *Validator) warnDisguisedFiles() {
	entries, err := os.ReadDir(v.ProjectPath)
	if err != nil {
		v.errorf("error reading project directory: %v", err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp":
		default:
			continue
		}
		if ok, err := project.IsCardImage(filepath.Join(v.ProjectPath, entry.Name())); err == nil && !ok {
			v.warnf("%s is not a supported image, ignored", entry.Name())
		}
	}
}

func (v *Validator) validateBacks() {
	if v.project.Back != "" {
		if _, err := os.Stat(v.project.Back); err != nil {
			v.errorf("card back image not found: %s", v.project.Back)
			return
		}
		if ok, err := project.IsCardImage(v.project.Back); err != nil || !ok {
			v.errorf("card back is not a supported image: %s", v.project.Back)
		}
		return
	}

	// the deck back comes from the first exported card
	for _, c := range v.project.Cards {
		if v.manifest.Cards[project.BaseName(c.Identity().Name)].Exclude {
			continue
		}
		if c.BackPath() == "" {
			v.errorf("no card back found for %s (add back.png or set back in %s)", c.Identity().Name, project.ManifestFile)
		}
		return
	}
}

func (v *Validator) validateCardSections() {
	known := make(map[string]bool, len(v.project.Cards))
	for _, c := range v.project.Cards {
		known[project.BaseName(c.Identity().Name)] = true
	}

	names := make([]string, 0, len(v.manifest.Cards))
	for name := range v.manifest.Cards {
		names = append(names, name)
	}
	sort.Sort(natural.StringSlice(names))

	numbers := map[int]string{}
	exported := 0
	for _, name := range names {
		sec := v.manifest.Cards[name]
		if !known[name] {
			v.warnf("cards.%q in %s matches no card image", name, project.ManifestFile)
		}
		if sec.CollectionNumber < 0 {
			v.errorf("cards.%q.collection_number must be positive", name)
		}
		if sec.CollectionNumber > 0 {
			if v.manifest.CatalogPrefix == "" {
				v.warnf("cards.%q has a collection_number but catalog_prefix is not set", name)
			}
			if other, ok := numbers[sec.CollectionNumber]; ok {
				v.errorf("collection_number %d used by both %q and %q", sec.CollectionNumber, other, name)
			}
			numbers[sec.CollectionNumber] = name
		}
	}
	for name := range known {
		if !v.manifest.Cards[name].Exclude {
			exported++
		}
	}
	if len(known) > 0 && exported == 0 {
		v.errorf("every card is excluded, nothing to export")
	}
}

func (v *Validator) validateCopies() {
	list, err := copies.Load(v.project.CopiesPath())
	if err != nil {
		v.errorf("%v", err)
		return
	}

	known := make(map[string]bool, len(v.project.Cards))
	for _, c := range v.project.Cards {
		known[project.BaseName(c.Identity().Name)] = true
	}
	for _, name := range list.Names() {
		n, _ := list.Lookup(name)
		switch {
		case !known[name]:
			v.warnf("%s entry %q matches no card image", copies.FileName, name)
		case n < 0:
			v.warnf("%s entry %q has a negative count, treated as 0", copies.FileName, name)
		}
	}
}

func (v *Validator) validateSettings() {
	if v.Config == nil {
		return
	}
	if _, err := v.Config.Settings(v.project.Overrides()); err != nil {
		v.errorf("invalid export settings: %v", err)
	}
}
