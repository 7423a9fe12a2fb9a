// Package cache keeps rendered card faces on disk between export runs.
//
// An entry is fresh only while its file is strictly newer than the card
// source it was rendered from. There is no eviction, entries are replaced
// when stale and removed only by Clear.
package cache

import (
	"crypto/md5"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/arcanaland/ttsdeck/internal/card"
	"github.com/arcanaland/ttsdeck/internal/imageio"
)

// DirName is the default cache directory inside a project.
const DirName = ".ttsdeck_cache"

type Cache struct {
	dir string
	log *zap.Logger
}

// New returns a cache rooted at dir. The directory is created on first Put.
func New(dir string, log *zap.Logger) *Cache {
	return &Cache{dir: dir, log: log.Named("cache")}
}

func (c *Cache) Dir() string {
	return c.dir
}

func (c *Cache) path(id card.Identity, f imageio.Format, resolution int) string {
	name := strings.NewReplacer("/", "_", `\`, "_").Replace(id.Name)
	if id.Origin != "" {
		// a shared cache directory holds cards of several projects
		name += "-" + fmt.Sprintf("%x", md5.Sum([]byte(id.Origin)))[:12]
	}
	return filepath.Join(c.dir, name+"@"+strconv.Itoa(resolution)+"."+f.Ext())
}

// Get returns the cached bitmap if present and fresh.
func (c *Cache) Get(id card.Identity, f imageio.Format, resolution int) (image.Image, bool, error) {
	path := c.path(id, f, resolution)

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("unable to access cache entry: %w", err)
	}
	if !info.ModTime().After(id.ModifiedAt) {
		c.log.Debug("Stale cache entry", zap.String("entry", path),
			zap.Time("cached", info.ModTime()), zap.Time("source", id.ModifiedAt))
		return nil, false, nil
	}

	img, err := imageio.Open(path)
	if err != nil {
		return nil, false, err
	}
	return img, true, nil
}

// Put stores img, the write time becomes the freshness marker.
func (c *Cache) Put(id card.Identity, f imageio.Format, resolution int, img image.Image) error {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	// cache entries are intermediate, keep them at full quality
	return imageio.WriteFile(c.path(id, f, resolution), img, f, 100)
}

// Clear removes every entry and reports how many files were deleted.
func (c *Cache) Clear() (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("error reading cache directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, entry.Name())); err != nil {
			return removed, fmt.Errorf("unable to remove cache entry: %w", err)
		}
		removed++
	}
	return removed, nil
}
