// Package cardtest provides an in-memory card source for tests.
package cardtest

import (
	"fmt"
	"image"
	"image/color"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arcanaland/ttsdeck/internal/card"
)

// Source renders a solid colored card and counts renders.
type Source struct {
	Name     string
	Origin   string // unique per New, sources never share cache entries
	Modified time.Time
	Width    int // pixels at resolution 100
	Height   int
	Color    color.RGBA
	Err      error  // returned by Render when set
	OnRender func() // called on every render

	mu      sync.Mutex
	renders map[card.Orientation]int
}

var origins atomic.Int64

// New returns a 10x14 source (at resolution 100) modified an hour ago.
func New(name string, c color.RGBA) *Source {
	return &Source{
		Name:     name,
		Origin:   "cardtest/" + strconv.FormatInt(origins.Add(1), 10),
		Modified: time.Now().Add(-time.Hour),
		Width:    10,
		Height:   14,
		Color:    c,
	}
}

// Many returns n sources named card001, card002, ... with distinct colors.
func Many(n int) []*Source {
	out := make([]*Source, n)
	for i := range n {
		out[i] = New(fmt.Sprintf("card%03d.png", i+1), color.RGBA{uint8(i * 3), uint8(255 - i), uint8(i * 7), 255})
	}
	return out
}

func (s *Source) Identity() card.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return card.Identity{Name: s.Name, ModifiedAt: s.Modified, Origin: s.Origin}
}

// Touch moves the modification time to t.
func (s *Source) Touch(t time.Time) {
	s.mu.Lock()
	s.Modified = t
	s.mu.Unlock()
}

func (s *Source) Render(o card.Orientation, resolution int) (image.Image, error) {
	s.mu.Lock()
	if s.renders == nil {
		s.renders = make(map[card.Orientation]int)
	}
	s.renders[o]++
	s.mu.Unlock()

	if s.OnRender != nil {
		s.OnRender()
	}
	if s.Err != nil {
		return nil, s.Err
	}
	w, h := s.Width*resolution/100, s.Height*resolution/100
	c := s.Color
	if o == card.Back {
		c = color.RGBA{0, 0, 0, 255}
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetRGBA(x, y, c)
		}
	}
	return img, nil
}

// Renders returns how many times face o was rendered.
func (s *Source) Renders(o card.Orientation) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renders[o]
}
