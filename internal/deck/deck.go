// Package deck splits an export sequence into pages and assembles the deck.
package deck

import (
	"errors"
	"fmt"
	"image"

	"go.uber.org/zap"

	"github.com/arcanaland/ttsdeck/internal/card"
	"github.com/arcanaland/ttsdeck/internal/config"
	"github.com/arcanaland/ttsdeck/internal/control"
	"github.com/arcanaland/ttsdeck/internal/page"
)

// Deck is the result of one export run.
type Deck struct {
	Name        string
	Description string
	Pages       []*page.Page
	Back        image.Image // shared back face, nil when Partial
	Partial     bool        // cancelled, Pages holds only completed pages
}

// Slots returns the number of slot entries over all pages.
func (d *Deck) Slots() int {
	n := 0
	for _, p := range d.Pages {
		n += len(p.Slots)
	}
	return n
}

// Failed returns the number of cards left blank over all pages.
func (d *Deck) Failed() int {
	n := 0
	for _, p := range d.Pages {
		n += p.Failed
	}
	return n
}

// Split cuts records into consecutive chunks of at most capacity records.
func Split(records []*card.Record, capacity int) [][]*card.Record {
	if capacity <= 0 {
		return nil
	}
	chunks := make([][]*card.Record, 0, (len(records)+capacity-1)/capacity)
	for start := 0; start < len(records); start += capacity {
		chunks = append(chunks, records[start:min(start+capacity, len(records))])
	}
	return chunks
}

// Assembler drives the page builder over a whole deck.
type Assembler struct {
	Settings config.Settings
	Builder  *page.Builder
	Control  *control.Control
	Log      *zap.Logger
}

func NewAssembler(s config.Settings, ctl *control.Control, log *zap.Logger) *Assembler {
	if ctl == nil {
		ctl = control.New()
	}
	return &Assembler{
		Settings: s,
		Builder:  page.NewBuilder(s, ctl, log),
		Control:  ctl,
		Log:      log.Named("deck"),
	}
}

// Build renders every page and the shared back face. Cancellation is not an
// error: the deck comes back Partial with the pages finished so far.
func (a *Assembler) Build(name, description string, records []*card.Record) (*Deck, error) {
	if len(records) == 0 {
		return nil, errors.New("deck has no cards")
	}

	d := &Deck{Name: name, Description: description}
	a.Control.SetMaximum(len(records))

	for i, chunk := range Split(records, a.Settings.CardsPerPage) {
		if a.Control.Cancelled() {
			d.Partial = true
			break
		}
		a.Log.Info("Making page", zap.Int("page", i+1), zap.Int("cards", len(chunk)))
		p := a.Builder.Build(i+1, chunk)
		if !p.Complete {
			d.Partial = true
			break
		}
		d.Pages = append(d.Pages, p)
	}
	if d.Partial {
		a.Log.Info("Deck building cancelled", zap.Int("completed pages", len(d.Pages)))
		return d, nil
	}

	// all cards share one back design
	a.Control.SetStatus("Processing card back")
	back, err := records[0].Render(card.Back, a.Settings.Format, a.Settings.Resolution, false)
	if err != nil {
		return nil, fmt.Errorf("unable to render card back: %w", err)
	}
	d.Back = back
	a.Control.SetCurrent(len(records))
	return d, nil
}
