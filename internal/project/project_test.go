package project

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/arcanaland/ttsdeck/internal/card"
	"github.com/arcanaland/ttsdeck/internal/imageio"
)

func writeImage(t *testing.T, path string, w, h int, c color.RGBA) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetRGBA(x, y, c)
		}
	}
	require.NoError(t, imageio.WriteFile(path, img, imageio.PNG, 0))
}

func fixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	red := color.RGBA{255, 0, 0, 255}
	for _, name := range []string{"Card 10.png", "Card 2.png", "Card 1.png", "Hidden.png", "back.png", "Card 1.back.png", ".ignored.png"} {
		writeImage(t, filepath.Join(dir, name), 30, 42, red)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a card"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fake.png"), []byte("not a png"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, OutputDir), 0755))
	writeImage(t, filepath.Join(dir, OutputDir, "core_1.png"), 30, 42, red)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFile), []byte(`
name = "Core Set"
description = "The core set"
catalog_prefix = "01"

[export]
format = "png"
resolution = 100

[cards."Card 1"]
name = "Roland Banks"
collection_number = 1

[cards."Card 2"]
description = "weapon"

[cards.Hidden]
exclude = true
`), 0644))
	return dir
}

func TestLoad(t *testing.T) {
	dir := fixture(t)
	p, err := Load(dir)
	require.NoError(t, err)

	require.Equal(t, "Core Set", p.Manifest.Name)
	require.Equal(t, DefaultSourcePPI, p.Manifest.SourcePPI)
	require.Equal(t, filepath.Join(dir, "back.png"), p.Back)

	var names []string
	for _, c := range p.Cards {
		names = append(names, c.Identity().Name)
	}
	require.Equal(t, []string{"Card 1.png", "Card 2.png", "Card 10.png", "Hidden.png"}, names)

	require.Equal(t, filepath.Join(dir, "Card 1.back.png"), p.Cards[0].BackPath())
	require.Equal(t, p.Back, p.Cards[1].BackPath())

	o := p.Overrides()
	require.Equal(t, "png", o.Format)
	require.Equal(t, 100, o.Resolution)
}

func TestRecords(t *testing.T) {
	p, err := Load(fixture(t))
	require.NoError(t, err)

	recs := p.Records(&card.Env{Log: zaptest.NewLogger(t)})
	require.Len(t, recs, 3)

	require.Equal(t, "Card 1", recs[0].BaseName)
	require.Equal(t, "Roland Banks", recs[0].DisplayName)
	require.Equal(t, "01001", recs[0].ExternalID)

	require.Equal(t, "Card 2", recs[1].DisplayName)
	require.Equal(t, "weapon", recs[1].Description)
	require.Empty(t, recs[1].ExternalID)
}

func TestLoadWithoutManifest(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Night of the Zealot")
	require.NoError(t, os.MkdirAll(dir, 0755))
	writeImage(t, filepath.Join(dir, "a.png"), 3, 3, color.RGBA{A: 255})

	p, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, "Night of the Zealot", p.Manifest.Name)
	require.Len(t, p.Cards, 1)
	require.Empty(t, p.Back)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFile), []byte("name = "), 0644))
	_, err = Load(dir)
	require.Error(t, err)
}

func TestFileSourceRender(t *testing.T) {
	p, err := Load(fixture(t))
	require.NoError(t, err)
	src := p.Cards[0]

	img, err := src.Render(card.Front, DefaultSourcePPI)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 30, 42), img.Bounds())

	img, err = src.Render(card.Front, 100)
	require.NoError(t, err)
	require.Equal(t, 10, img.Bounds().Dx())
	require.Equal(t, 14, img.Bounds().Dy())

	img, err = src.Render(card.Back, 200)
	require.NoError(t, err)
	require.Equal(t, 20, img.Bounds().Dx())

	noBack, err := newFileSource(src.Path(), DefaultSourcePPI)
	require.NoError(t, err)
	_, err = noBack.Render(card.Back, 100)
	require.Error(t, err)
}

func TestIsCardImage(t *testing.T) {
	dir := fixture(t)
	ok, err := IsCardImage(filepath.Join(dir, "Card 1.png"))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = IsCardImage(filepath.Join(dir, "notes.txt"))
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = IsCardImage(filepath.Join(dir, "fake.png"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestIdentityTracksProjectAndResolution(t *testing.T) {
	dir := fixture(t)
	p, err := Load(dir)
	require.NoError(t, err)
	id := p.Cards[0].Identity()

	// same file name in another project
	other := t.TempDir()
	writeImage(t, filepath.Join(other, "Card 1.png"), 30, 42, color.RGBA{0, 0, 255, 255})
	q, err := Load(other)
	require.NoError(t, err)
	require.Equal(t, id.Name, q.Cards[0].Identity().Name)
	require.NotEqual(t, id.Origin, q.Cards[0].Identity().Origin)

	// a changed source_ppi renders different bitmaps
	manifest := filepath.Join(dir, ManifestFile)
	data, err := os.ReadFile(manifest)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(manifest, append([]byte("source_ppi = 600\n"), data...), 0644))
	p, err = Load(dir)
	require.NoError(t, err)
	require.Equal(t, 600, p.Manifest.SourcePPI)
	require.Equal(t, id.Name, p.Cards[0].Identity().Name)
	require.NotEqual(t, id.Origin, p.Cards[0].Identity().Origin)
}
