package project

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/nfnt/resize"

	"github.com/arcanaland/ttsdeck/internal/card"
	"github.com/arcanaland/ttsdeck/internal/imageio"
)

// FileSource renders a card from image files drawn at a known resolution.
type FileSource struct {
	path string
	back string
	ppi  int
	id   card.Identity
}

func newFileSource(path string, ppi int) (*FileSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("error reading card %s: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return &FileSource{
		path: path,
		ppi:  ppi,
		id: card.Identity{
			Name:       filepath.Base(path),
			ModifiedAt: info.ModTime(),
			// renders scale by ppi, a changed source_ppi needs new bitmaps
			Origin: fmt.Sprintf("%s@%dppi", abs, ppi),
		},
	}, nil
}

func (s *FileSource) Identity() card.Identity {
	return s.id
}

// Path returns the front image file.
func (s *FileSource) Path() string {
	return s.path
}

// BackPath returns the back image file, empty when the card has none.
func (s *FileSource) BackPath() string {
	return s.back
}

// Render decodes the face and scales it from the source resolution to the
// requested one.
func (s *FileSource) Render(o card.Orientation, resolution int) (image.Image, error) {
	path := s.path
	if o == card.Back {
		if s.back == "" {
			return nil, errors.New("no card back image")
		}
		path = s.back
	}
	if resolution <= 0 {
		return nil, fmt.Errorf("invalid resolution %d", resolution)
	}

	img, err := imageio.Open(path)
	if err != nil {
		return nil, err
	}
	if resolution == s.ppi {
		return img, nil
	}

	b := img.Bounds()
	w := uint(max(1, b.Dx()*resolution/s.ppi))
	h := uint(max(1, b.Dy()*resolution/s.ppi))
	return resize.Resize(w, h, img, resize.Lanczos3), nil
}
