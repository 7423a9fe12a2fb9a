package copies

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(`
"Roland Banks" = 1
"Card 10" = 2
"Card 2" = 3
Excluded = 0
`), 0644))

	l, err := Load(path)
	require.NoError(t, err)

	n, ok := l.Lookup("Card 2")
	require.True(t, ok)
	require.Equal(t, 3, n)

	n, ok = l.Lookup("Excluded")
	require.True(t, ok)
	require.Equal(t, 0, n)

	_, ok = l.Lookup("Investigator1")
	require.False(t, ok)

	require.Equal(t, []string{"Card 2", "Card 10", "Excluded", "Roland Banks"}, l.Names())
}

func TestLoadMissingIsEmpty(t *testing.T) {
	l, err := Load(filepath.Join(t.TempDir(), FileName))
	require.NoError(t, err)
	require.Empty(t, l.Names())
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("this is = = not toml"), 0644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, FromMap(map[string]int{"Agent": 2}).Save(path))

	l, err := Load(path)
	require.NoError(t, err)
	n, ok := l.Lookup("Agent")
	require.True(t, ok)
	require.Equal(t, 2, n)
}
