// Package imageio handles the two sheet formats the exporter produces and the
// file plumbing shared by the cache and the exporter.
package imageio

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Format is an output image format.
type Format string

const (
	// JPEG is lossy, small sheets, the default for TTS.
	JPEG Format = "jpg"
	// PNG is lossless.
	PNG Format = "png"
)

// DefaultJPEGQuality is used when no quality was configured.
const DefaultJPEGQuality = 90

// ParseFormat accepts the usual spellings of both formats.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "jpg", "jpeg":
		return JPEG, nil
	case "png":
		return PNG, nil
	}
	return "", fmt.Errorf("unsupported image format: %q (supported: jpg, png)", s)
}

// Ext returns the file extension without the leading dot.
func (f Format) Ext() string {
	return string(f)
}

func (f Format) imaging() imaging.Format {
	if f == PNG {
		return imaging.PNG
	}
	return imaging.JPEG
}

// Encode writes img to w in format f. quality is used for JPEG only, values
// outside 1..100 fall back to DefaultJPEGQuality.
func Encode(w io.Writer, img image.Image, f Format, quality int) error {
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	if err := imaging.Encode(w, img, f.imaging(), imaging.JPEGQuality(quality)); err != nil {
		return fmt.Errorf("unable to encode %s image: %w", f, err)
	}
	return nil
}

// Decode reads any registered format (png, jpeg, gif, webp, bmp).
func Decode(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("unable to decode image: %w", err)
	}
	return img, nil
}

// Open decodes the image stored in path.
func Open(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("unable to open image %s: %w", path, err)
	}
	return img, nil
}

// Size reads the dimensions of the image in path without decoding it.
func Size(path string) (image.Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return image.Point{}, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(bufio.NewReader(f))
	if err != nil {
		return image.Point{}, fmt.Errorf("unable to read image size of %s: %w", path, err)
	}
	return image.Pt(cfg.Width, cfg.Height), nil
}

// Pending is a file written under a temporary name next to its final path.
// Nothing exists at Path until Commit.
type Pending struct {
	Path string
	tmp  string
}

// Stage writes a pending file for path. A failed write leaves nothing behind.
func Stage(path string, write func(w io.Writer) error) (_ *Pending, err error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("unable to create temporary file for %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err = write(bw); err != nil {
		return nil, fmt.Errorf("unable to write %s: %w", path, err)
	}
	if err = bw.Flush(); err != nil {
		return nil, fmt.Errorf("unable to write %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return nil, fmt.Errorf("unable to close %s: %w", path, err)
	}
	return &Pending{Path: path, tmp: tmp.Name()}, nil
}

// StageImage encodes img into a pending file for path.
func StageImage(path string, img image.Image, f Format, quality int) (*Pending, error) {
	return Stage(path, func(w io.Writer) error {
		return Encode(w, img, f, quality)
	})
}

// Commit renames the temporary file over Path. The temporary file is removed
// when that fails.
func (p *Pending) Commit() error {
	if err := os.Rename(p.tmp, p.Path); err != nil {
		os.Remove(p.tmp)
		return fmt.Errorf("unable to rename into %s: %w", p.Path, err)
	}
	return nil
}

// Discard removes an uncommitted temporary file.
func (p *Pending) Discard() error {
	if err := os.Remove(p.tmp); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// WriteAtomic writes path through a temporary file in the same directory
// which is renamed over path only after write succeeded. A failed write never
// leaves a file at path.
func WriteAtomic(path string, write func(w io.Writer) error) error {
	p, err := Stage(path, write)
	if err != nil {
		return err
	}
	return p.Commit()
}

// WriteFile encodes img into path atomically.
func WriteFile(path string, img image.Image, f Format, quality int) error {
	return WriteAtomic(path, func(w io.Writer) error {
		return Encode(w, img, f, quality)
	})
}
