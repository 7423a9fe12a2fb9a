package export

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/arcanaland/ttsdeck/internal/card"
	"github.com/arcanaland/ttsdeck/internal/card/cardtest"
	"github.com/arcanaland/ttsdeck/internal/config"
	"github.com/arcanaland/ttsdeck/internal/control"
	"github.com/arcanaland/ttsdeck/internal/copies"
	"github.com/arcanaland/ttsdeck/internal/imageio"
	"github.com/arcanaland/ttsdeck/internal/project"
	"github.com/arcanaland/ttsdeck/internal/tts"
)

func testSettings() config.Settings {
	s := config.DefaultSettings()
	s.Format = imageio.PNG
	s.Resolution = 100
	return s
}

func newRecords(t *testing.T, ctl *control.Control, list copies.Source, sources []*cardtest.Source) []*card.Record {
	t.Helper()
	env := &card.Env{Copies: list, DefaultCopies: 1, Control: ctl, Log: zaptest.NewLogger(t)}
	out := make([]*card.Record, len(sources))
	for i, src := range sources {
		out[i] = env.NewRecord(src, card.Meta{})
	}
	return out
}

func readDocument(t *testing.T, path string) tts.SaveDocument {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	doc, err := tts.Decode(f)
	require.NoError(t, err)
	return doc
}

func TestFileNames(t *testing.T) {
	require.Equal(t, "core-set_1.jpg", SheetName("Core Set", "1", imageio.JPEG))
	require.Equal(t, "core-set_back.png", SheetName("Core Set", BackSuffix, imageio.PNG))
	require.Equal(t, "core-set.json", DocumentName("Core Set"))
	require.Equal(t, "deck.json", DocumentName("???"))
}

func TestExport(t *testing.T) {
	ctl := control.New()
	dir := t.TempDir()
	list := copies.FromMap(map[string]int{"card002": 2})
	s := testSettings()
	s.CardsPerPage = 2

	res, err := New(s, ctl, zaptest.NewLogger(t)).Export(context.Background(), "Core Set", "starter", newRecords(t, ctl, list, cardtest.Many(3)), dir)
	require.NoError(t, err)

	require.Equal(t, []string{filepath.Join(dir, "core-set_1.png"), filepath.Join(dir, "core-set_2.png")}, res.Sheets)
	require.Equal(t, filepath.Join(dir, "core-set_back.png"), res.Back)
	require.Equal(t, filepath.Join(dir, "core-set.json"), res.Document)

	sheet, err := imageio.Open(res.Sheets[0])
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 10, 28), sheet.Bounds())

	doc := readDocument(t, res.Document)
	require.Equal(t, "Core Set", doc.SaveName)
	obj := doc.ObjectStates[0]
	require.Equal(t, "starter", obj.Description)
	require.Equal(t, []int{100, 101, 101, 200}, obj.DeckIDs)
	require.Len(t, obj.ContainedObjects, 4)
	for i, c := range obj.ContainedObjects {
		require.Equal(t, obj.DeckIDs[i], c.CardID)
	}
	require.Len(t, obj.CustomDeck, 2)
	require.True(t, strings.HasPrefix(obj.CustomDeck["1"].FaceURL, "file:///"))
	require.True(t, strings.HasSuffix(obj.CustomDeck["2"].FaceURL, "/core-set_2.png"))
	require.True(t, strings.HasSuffix(obj.CustomDeck["1"].BackURL, "/core-set_back.png"))

	// no temporary files remain
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 4)
}

func TestExportURLPrefix(t *testing.T) {
	ctl := control.New()
	s := testSettings()
	s.URLPrefix = "https://example.com/decks/"

	res, err := New(s, ctl, zaptest.NewLogger(t)).Export(context.Background(), "Core Set", "", newRecords(t, ctl, copies.Empty(), cardtest.Many(1)), t.TempDir())
	require.NoError(t, err)

	deck := readDocument(t, res.Document).ObjectStates[0].CustomDeck["1"]
	require.Equal(t, "https://example.com/decks/core-set_1.png", deck.FaceURL)
	require.Equal(t, "https://example.com/decks/core-set_back.png", deck.BackURL)
}

func TestExportCancelledWritesNothing(t *testing.T) {
	ctl := control.New()
	dir := filepath.Join(t.TempDir(), "out")
	sources := cardtest.Many(70)
	sources[68].OnRender = ctl.Cancel

	res, err := New(testSettings(), ctl, zaptest.NewLogger(t)).Export(context.Background(), "Core", "", newRecords(t, ctl, copies.Empty(), sources), dir)
	require.ErrorIs(t, err, ErrCancelled)
	require.True(t, res.Deck.Partial)
	require.Len(t, res.Deck.Pages, 1)
	require.NoDirExists(t, dir)
}

func TestExportContextCancel(t *testing.T) {
	ctl := control.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(testSettings(), ctl, zaptest.NewLogger(t)).Export(ctx, "Core", "", newRecords(t, ctl, copies.Empty(), cardtest.Many(3)), t.TempDir())
	require.ErrorIs(t, err, ErrCancelled)
}

func TestExportWriteFailureRemovesArtifacts(t *testing.T) {
	ctl := control.New()
	dir := t.TempDir()
	// a non-empty directory where the document should go
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "core.json", "x"), 0755))

	_, err := New(testSettings(), ctl, zaptest.NewLogger(t)).Export(context.Background(), "Core", "", newRecords(t, ctl, copies.Empty(), cardtest.Many(2)), dir)
	require.Error(t, err)
	require.NoFileExists(t, filepath.Join(dir, "core_1.png"))
	require.NoFileExists(t, filepath.Join(dir, "core_back.png"))
}

func TestExportBlankSheetWhenAllCardsFail(t *testing.T) {
	ctl := control.New()
	sources := cardtest.Many(3)
	// the back comes from the first card, which must still render its back
	sources[1].Err = errors.New("broken")
	sources[2].Err = errors.New("broken")
	s := testSettings()
	s.CardsPerPage = 1

	res, err := New(s, ctl, zaptest.NewLogger(t)).Export(context.Background(), "Core", "", newRecords(t, ctl, copies.Empty(), sources), t.TempDir())
	require.NoError(t, err)
	require.Equal(t, 2, res.Deck.Failed())
	require.Len(t, ctl.Drain(), 2)

	sheet, err := imageio.Open(res.Sheets[2])
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 10, 14), sheet.Bounds())
}

func TestExportProject(t *testing.T) {
	dir := t.TempDir()
	for i, name := range []string{"Investigator1.png", "Guard Dog.png", "back.png"} {
		img := image.NewRGBA(image.Rect(0, 0, 30, 42))
		for y := range 42 {
			for x := range 30 {
				img.SetRGBA(x, y, color.RGBA{uint8(80 * i), 50, 50, 255})
			}
		}
		require.NoError(t, imageio.WriteFile(filepath.Join(dir, name), img, imageio.PNG, 0))
	}

	for _, def := range []int{1, 2} {
		// unreadable copies list, every card gets the default count
		require.NoError(t, os.WriteFile(filepath.Join(dir, copies.FileName), []byte("= broken"), 0644))
		p, err := project.Load(dir)
		require.NoError(t, err)

		ctl := control.New()
		s := testSettings()
		s.DefaultCopies = def
		res, err := New(s, ctl, zaptest.NewLogger(t)).Project(context.Background(), p, "")
		require.NoError(t, err)

		notices := ctl.Drain()
		require.Len(t, notices, 1)
		require.Contains(t, notices[0].Message, "unable to read copies list")

		doc := readDocument(t, res.Document)
		require.Len(t, doc.ObjectStates[0].DeckIDs, 2*def)
		require.DirExists(t, filepath.Join(dir, project.OutputDir))
		require.DirExists(t, filepath.Join(dir, ".ttsdeck_cache"))
	}

	// a valid list without an entry for the investigator
	require.NoError(t, copies.FromMap(map[string]int{"Guard Dog": 3}).Save(filepath.Join(dir, copies.FileName)))
	p, err := project.Load(dir)
	require.NoError(t, err)
	ctl := control.New()
	s := testSettings()
	s.DefaultCopies = 2
	res, err := New(s, ctl, zaptest.NewLogger(t)).Project(context.Background(), p, filepath.Join(t.TempDir(), "out"))
	require.NoError(t, err)
	require.Empty(t, ctl.Drain())

	objects := readDocument(t, res.Document).ObjectStates[0].ContainedObjects
	require.Len(t, objects, 5)
	require.Equal(t, "Guard Dog", objects[0].Nickname)
	require.Equal(t, "Investigator1", objects[4].Nickname)
}

func TestFailedReexportLeavesNoDocument(t *testing.T) {
	dir := t.TempDir()
	ctl := control.New()
	_, err := New(testSettings(), ctl, zaptest.NewLogger(t)).Export(context.Background(), "Core", "", newRecords(t, ctl, copies.Empty(), cardtest.Many(2)), dir)
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(dir, "core.json"))

	// the back can no longer be replaced
	back := filepath.Join(dir, "core_back.png")
	require.NoError(t, os.Remove(back))
	require.NoError(t, os.MkdirAll(filepath.Join(back, "x"), 0755))

	ctl = control.New()
	_, err = New(testSettings(), ctl, zaptest.NewLogger(t)).Export(context.Background(), "Core", "", newRecords(t, ctl, copies.Empty(), cardtest.Many(2)), dir)
	require.Error(t, err)
	require.NoFileExists(t, filepath.Join(dir, "core.json"))
	require.NoFileExists(t, filepath.Join(dir, "core_1.png"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestEncodeFailureKeepsPreviousExport(t *testing.T) {
	dir := t.TempDir()
	ctl := control.New()
	first, err := New(testSettings(), ctl, zaptest.NewLogger(t)).Export(context.Background(), "Core", "", newRecords(t, ctl, copies.Empty(), cardtest.Many(2)), dir)
	require.NoError(t, err)

	// zero sized renders cannot be encoded
	sources := cardtest.Many(3)
	for _, src := range sources {
		src.Width = 0
	}
	ctl = control.New()
	_, err = New(testSettings(), ctl, zaptest.NewLogger(t)).Export(context.Background(), "Core", "", newRecords(t, ctl, copies.Empty(), sources), dir)
	require.Error(t, err)

	doc := readDocument(t, first.Document)
	require.Len(t, doc.ObjectStates[0].DeckIDs, 2)
	sheet, err := imageio.Open(first.Sheets[0])
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 10, 28), sheet.Bounds())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 3)
}
