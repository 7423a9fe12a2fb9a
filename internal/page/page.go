// Package page lays out one sheet of cards and composites it.
package page

import (
	"fmt"
	"image"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/image/draw"

	"github.com/arcanaland/ttsdeck/internal/card"
	"github.com/arcanaland/ttsdeck/internal/config"
	"github.com/arcanaland/ttsdeck/internal/control"
)

// SlotEntry is one card object of the exported deck. Copies of a card are
// separate entries sharing id and cell.
type SlotEntry struct {
	ID          int
	DisplayName string
	Description string
	ExternalID  string
}

// Page is one composite sheet and its slots. Immutable once built.
type Page struct {
	Number   int // 1-based
	Rows     int
	Columns  int
	Sheet    *image.RGBA // nil when no card rendered
	Slots    []SlotEntry
	Cards    int   // cards assigned to the page
	Failed   int   // cards whose cell stayed blank because of an error
	Err      error // all per-card errors
	Complete bool  // false when building was cancelled
}

// CellSize returns the size of one grid cell, zero without a sheet.
func (p *Page) CellSize() (w, h int) {
	if p.Sheet == nil || p.Columns == 0 || p.Rows == 0 {
		return 0, 0
	}
	b := p.Sheet.Bounds()
	return b.Dx() / p.Columns, b.Dy() / p.Rows
}

// Builder builds pages with shared run settings.
type Builder struct {
	Settings config.Settings
	IDs      IDAllocator
	Control  *control.Control
	Log      *zap.Logger
}

func NewBuilder(s config.Settings, ctl *control.Control, log *zap.Logger) *Builder {
	if ctl == nil {
		ctl = control.New()
	}
	return &Builder{Settings: s, IDs: PageScheme{}, Control: ctl, Log: log.Named("page")}
}

// Build lays out records on page number. Failing cards are reported and left
// blank. When cancelled the partially built page is returned with Complete
// unset.
func (b *Builder) Build(number int, records []*card.Record) *Page {
	p := &Page{Number: number, Cards: len(records)}
	p.Rows, p.Columns = Layout(len(records), b.Settings.MaxRows)
	log := b.Log.With(zap.Int("page", number))
	log.Debug("Making page", zap.Int("cards", len(records)), zap.Int("rows", p.Rows), zap.Int("columns", p.Columns))

	for row := range p.Rows {
		for col := 0; col < p.Columns && row*p.Columns+col < len(records); col++ {
			if b.Control.Cancelled() {
				log.Debug("Page cancelled", zap.Int("row", row), zap.Int("column", col))
				return p
			}
			index := row*p.Columns + col
			rec := records[index]
			b.Control.SetStatus("Processing card " + rec.String())
			b.Control.SetCurrent((number-1)*b.Settings.CardsPerPage + index)

			if err := b.place(p, rec, index, row, col); err != nil {
				p.Failed++
				p.Err = multierr.Append(p.Err, err)
				b.Control.Notify(control.Notice{Card: rec.String(), Message: "error while processing card", Err: err})
				log.Warn("Error while processing card", zap.Stringer("card", rec), zap.Error(err))
			}
		}
		log.Debug("End of row", zap.Int("row", row))
	}
	p.Complete = true
	return p
}

func (b *Builder) place(p *Page, rec *card.Record, index, row, col int) error {
	copies := rec.CopyCount()
	if copies == 0 {
		if b.Settings.ZeroCopies == config.ZeroCopiesExclude {
			b.Log.Debug("Card excluded, zero copies", zap.Stringer("card", rec))
			return nil
		}
		copies = 1
	}

	id := b.IDs.SlotID(p.Number, index)
	for range copies {
		p.Slots = append(p.Slots, SlotEntry{
			ID:          id,
			DisplayName: rec.DisplayName,
			Description: rec.Description,
			ExternalID:  rec.ExternalID,
		})
	}

	img, err := rec.Render(card.Front, b.Settings.Format, b.Settings.Resolution, true)
	if err != nil {
		return err
	}
	bounds := img.Bounds()
	if bounds.Empty() {
		return fmt.Errorf("rendered image of %s is empty", rec)
	}

	if p.Sheet == nil {
		p.Sheet = image.NewRGBA(image.Rect(0, 0, bounds.Dx()*p.Columns, bounds.Dy()*p.Rows))
	}
	w, h := p.CellSize()
	cell := image.Rect(col*w, row*h, (col+1)*w, (row+1)*h)

	if bounds.Dx() == w && bounds.Dy() == h {
		draw.Draw(p.Sheet, cell, img, bounds.Min, draw.Src)
	} else {
		b.Log.Debug("Scaling card into cell", zap.Stringer("card", rec),
			zap.Int("width", bounds.Dx()), zap.Int("height", bounds.Dy()), zap.Int("cell width", w), zap.Int("cell height", h))
		draw.CatmullRom.Scale(p.Sheet, cell, img, bounds, draw.Src, nil)
	}
	return nil
}
