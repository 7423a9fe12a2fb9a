// Package export runs a full deck export and writes its artifacts: one image
// per sheet, the shared back image and the save document.
package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gosimple/slug"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/arcanaland/ttsdeck/internal/cache"
	"github.com/arcanaland/ttsdeck/internal/card"
	"github.com/arcanaland/ttsdeck/internal/config"
	"github.com/arcanaland/ttsdeck/internal/control"
	"github.com/arcanaland/ttsdeck/internal/copies"
	"github.com/arcanaland/ttsdeck/internal/deck"
	"github.com/arcanaland/ttsdeck/internal/imageio"
	"github.com/arcanaland/ttsdeck/internal/project"
	"github.com/arcanaland/ttsdeck/internal/tts"
)

// ErrCancelled is returned when the user cancelled the export. Nothing is
// written in that case.
var ErrCancelled = errors.New("export cancelled")

// BackSuffix names the shared back image, it never collides with a page number.
const BackSuffix = "back"

// Result describes a finished export.
type Result struct {
	Deck     *deck.Deck
	Sheets   []string // sheet files in page order
	Back     string
	Document string
}

// Exporter writes decks into a directory.
type Exporter struct {
	Settings config.Settings
	Control  *control.Control
	Log      *zap.Logger
}

func New(s config.Settings, ctl *control.Control, log *zap.Logger) *Exporter {
	if ctl == nil {
		ctl = control.New()
	}
	return &Exporter{Settings: s, Control: ctl, Log: log.Named("export")}
}

// FileBase returns the file name stem of a deck's artifacts.
func FileBase(deckName string) string {
	if s := slug.Make(deckName); s != "" {
		return s
	}
	return "deck"
}

// SheetName returns the file name of page n (1-based) or of the back image
// when n is BackSuffix.
func SheetName(deckName, n string, f imageio.Format) string {
	return FileBase(deckName) + "_" + n + "." + f.Ext()
}

// DocumentName returns the file name of the save document.
func DocumentName(deckName string) string {
	return FileBase(deckName) + ".json"
}

type urls struct {
	dir    string
	name   string
	format imageio.Format
	prefix string
}

func (u urls) locate(file string) string {
	if u.prefix != "" {
		return strings.TrimSuffix(u.prefix, "/") + "/" + url.PathEscape(file)
	}
	path := filepath.Join(u.dir, file)
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	path = filepath.ToSlash(path)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return (&url.URL{Scheme: "file", Path: path}).String()
}

func (u urls) Face(n int) string {
	return u.locate(SheetName(u.name, strconv.Itoa(n), u.format))
}

func (u urls) Back() string {
	return u.locate(SheetName(u.name, BackSuffix, u.format))
}

// Export builds the deck from records and writes it into dir. A cancelled
// build returns the partial deck with ErrCancelled.
func (e *Exporter) Export(ctx context.Context, name, description string, records []*card.Record, dir string) (*Result, error) {
	defer e.Control.Watch(ctx)()

	e.Control.SetStatus("Processing cards")
	d, err := deck.NewAssembler(e.Settings, e.Control, e.Log).Build(name, description, records)
	if err != nil {
		return nil, err
	}
	res := &Result{Deck: d}
	if d.Partial {
		e.Log.Info("Export cancelled, nothing written", zap.Int("completed pages", len(d.Pages)))
		return res, ErrCancelled
	}

	if err := e.write(res, dir); err != nil {
		return nil, err
	}
	return res, nil
}

// write stages every image under a temporary name first. Only once all of
// them encoded is the previous document removed and are the images renamed
// into place, the new document goes last. A failure before that point leaves
// an earlier export untouched, a failure after it leaves no document.
func (e *Exporter) write(res *Result, dir string) (err error) {
	d := res.Deck
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}

	var staged []*imageio.Pending
	var committed []string
	defer func() {
		if err == nil {
			return
		}
		for _, p := range staged {
			if er := p.Discard(); er != nil {
				err = multierr.Append(err, fmt.Errorf("unable to remove temporary file of %s: %w", p.Path, er))
			}
		}
		// a failed run must not leave artifacts that look like a complete export
		for _, path := range committed {
			if er := os.Remove(path); er != nil && !errors.Is(er, os.ErrNotExist) {
				err = multierr.Append(err, fmt.Errorf("unable to remove %s: %w", path, er))
			}
		}
	}()

	stage := func(file string, img image.Image) (string, error) {
		path := filepath.Join(dir, file)
		e.Log.Debug("Encoding image", zap.String("file", path))
		p, err := imageio.StageImage(path, img, e.Settings.Format, e.Settings.JPEGQuality)
		if err != nil {
			return "", err
		}
		staged = append(staged, p)
		return path, nil
	}

	e.Control.SetStatus("Writing images")
	e.Control.SetMaximum(len(d.Pages) + 2)
	backBounds := d.Back.Bounds()
	for i, p := range d.Pages {
		e.Control.SetCurrent(i)
		var sheet image.Image = p.Sheet
		if p.Sheet == nil {
			// no card of the page rendered, keep the grid geometry consistent
			e.Log.Warn("Page has no rendered cards, writing blank sheet", zap.Int("page", p.Number))
			sheet = image.NewRGBA(image.Rect(0, 0, backBounds.Dx()*p.Columns, backBounds.Dy()*p.Rows))
		}
		path, err := stage(SheetName(d.Name, strconv.Itoa(p.Number), e.Settings.Format), sheet)
		if err != nil {
			return err
		}
		res.Sheets = append(res.Sheets, path)
	}

	e.Control.SetCurrent(len(d.Pages))
	if res.Back, err = stage(SheetName(d.Name, BackSuffix, e.Settings.Format), d.Back); err != nil {
		return err
	}

	// from here on the previous export is replaced
	res.Document = filepath.Join(dir, DocumentName(d.Name))
	if err := os.Remove(res.Document); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("unable to remove previous document: %w", err)
	}
	for len(staged) > 0 {
		p := staged[0]
		staged = staged[1:]
		if err := p.Commit(); err != nil {
			return err
		}
		committed = append(committed, p.Path)
	}
	e.Control.SetCurrent(len(d.Pages) + 1)

	// the document only exists when every image it references does
	e.Control.SetStatus("Writing JSON")
	doc := tts.Assemble(d, urls{dir: dir, name: d.Name, format: e.Settings.Format, prefix: e.Settings.URLPrefix}, d.Name)
	if err := imageio.WriteAtomic(res.Document, func(w io.Writer) error {
		return tts.Encode(w, doc)
	}); err != nil {
		return err
	}
	e.Control.SetCurrent(len(d.Pages) + 2)

	e.Log.Info("Deck exported", zap.String("document", res.Document), zap.Int("pages", len(d.Pages)),
		zap.Int("cards", d.Slots()), zap.Int("failed", d.Failed()))
	return nil
}

// CacheDir returns the bitmap cache directory of a project.
func CacheDir(s config.Settings, p *project.Project) string {
	if s.CacheDir != "" {
		return s.CacheDir
	}
	return filepath.Join(p.Dir, cache.DirName)
}

// Project exports a loaded project into its output directory, or into dir
// when not empty.
func (e *Exporter) Project(ctx context.Context, p *project.Project, dir string) (*Result, error) {
	list, err := copies.Load(p.CopiesPath())
	if err != nil {
		// one warning for the whole deck, every card falls back to the default
		e.Control.Notify(control.Notice{
			Message: fmt.Sprintf("unable to read copies list, using card count of %d for all files", e.Settings.DefaultCopies),
			Err:     err,
		})
		e.Log.Warn("Unable to read copies list", zap.Error(err))
		list = copies.Empty()
	}

	cacheDir := CacheDir(e.Settings, p)
	env := &card.Env{
		Cache:         cache.New(cacheDir, e.Log),
		Copies:        list,
		DefaultCopies: e.Settings.DefaultCopies,
		Control:       e.Control,
		Log:           e.Log,
	}

	records := p.Records(env)
	if dir == "" {
		dir = p.OutputDir()
	}
	e.Log.Debug("Exporting project", zap.String("project", p.Dir), zap.Int("cards", len(records)), zap.String("cache", cacheDir))
	return e.Export(ctx, p.Manifest.Name, p.Manifest.Description, records, dir)
}
