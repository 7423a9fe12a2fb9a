package card

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/arcanaland/ttsdeck/internal/control"
	"github.com/arcanaland/ttsdeck/internal/copies"
	"github.com/arcanaland/ttsdeck/internal/imageio"
)

// Orientation selects the card face to render.
type Orientation int

const (
	Front Orientation = iota
	Back
)

func (o Orientation) String() string {
	if o == Back {
		return "back"
	}
	return "front"
}

// Identity identifies a card source and its freshness.
type Identity struct {
	Name       string // stable, unique within a deck (file name)
	ModifiedAt time.Time
	// Origin distinguishes equally named cards of different projects and
	// anything else the rendered pixels depend on. Empty for none.
	Origin string
}

// Source is anything able to render a card face at a resolution given in
// pixels per inch.
type Source interface {
	Identity() Identity
	Render(o Orientation, resolution int) (image.Image, error)
}

// BitmapCache stores rendered faces between runs.
type BitmapCache interface {
	// Get reports ok=false when the entry is absent or stale.
	Get(id Identity, f imageio.Format, resolution int) (img image.Image, ok bool, err error)
	Put(id Identity, f imageio.Format, resolution int, img image.Image) error
}

// Meta is the descriptive part of a record.
type Meta struct {
	BaseName    string // key into the copies source
	DisplayName string
	Description string
	ExternalID  string // optional companion catalog reference
}

// Env holds the collaborators shared by all records of one export run.
type Env struct {
	Cache         BitmapCache // may be nil, caching disabled
	Copies        copies.Source
	DefaultCopies int
	Control       *control.Control
	Log           *zap.Logger
}

// Record is one entry of the export sequence. It is read-only once created.
type Record struct {
	Meta
	src Source
	env *Env
}

// NewRecord wraps src. Empty BaseName defaults to the source name without
// extension, empty DisplayName to BaseName.
func (e *Env) NewRecord(src Source, m Meta) *Record {
	if m.BaseName == "" {
		name := src.Identity().Name
		m.BaseName = strings.TrimSuffix(name, filepath.Ext(name))
	}
	if m.DisplayName == "" {
		m.DisplayName = m.BaseName
	}
	return &Record{Meta: m, src: src, env: e}
}

func (r *Record) Identity() Identity {
	return r.src.Identity()
}

func (r *Record) String() string {
	return r.src.Identity().Name
}

// Render returns the requested face. With cached set a fresh cache entry is
// used when available, otherwise the source renders and the result is stored.
// Cache problems are reported and never fail the render.
func (r *Record) Render(o Orientation, f imageio.Format, resolution int, cached bool) (image.Image, error) {
	log := r.env.logger().With(zap.Stringer("card", r), zap.Stringer("face", o))
	id := r.src.Identity()

	// backs share the cache directory with fronts under their own key
	key := id
	if o == Back {
		key.Name += ".back"
	}

	useCache := cached && r.env.Cache != nil
	if useCache {
		img, ok, err := r.env.Cache.Get(key, f, resolution)
		switch {
		case err != nil:
			r.notify("unable to read cached image, regenerating", err)
			log.Warn("Unable to read cached image", zap.Error(err))
		case ok:
			log.Debug("Got cached image")
			return img, nil
		}
	}

	log.Debug("Generating image")
	img, err := r.src.Render(o, resolution)
	if err != nil {
		return nil, fmt.Errorf("unable to render %s of %s: %w", o, id.Name, err)
	}

	if useCache {
		if err := r.env.Cache.Put(key, f, resolution, img); err != nil {
			r.notify("unable to cache image", err)
			log.Warn("Unable to cache image", zap.Error(err))
		}
	}
	return img, nil
}

// CopyCount resolves the number of copies of this card. Names unknown to the
// copies source get the configured default, negative counts become 0.
func (r *Record) CopyCount() int {
	if r.env.Copies != nil {
		if n, found := r.env.Copies.Lookup(r.BaseName); found {
			return max(n, 0)
		}
	}
	return r.env.DefaultCopies
}

func (e *Env) logger() *zap.Logger {
	if e.Log == nil {
		return zap.NewNop()
	}
	return e.Log
}

func (r *Record) notify(msg string, err error) {
	if r.env.Control != nil {
		r.env.Control.Notify(control.Notice{Card: r.String(), Message: msg, Err: err})
	}
}
