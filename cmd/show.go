package cmd

import (
	"crypto/md5"
	"fmt"
	"image"
	"image/color"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/nfnt/resize"
	"golang.org/x/term"

	"github.com/arcanaland/ttsdeck/internal/config"
	"github.com/arcanaland/ttsdeck/internal/imageio"
	"github.com/arcanaland/ttsdeck/internal/tts"

	colorize "github.com/fatih/color"
	"github.com/spf13/cobra"
)

const previewCacheDir = "ansi_cache"

var showFlags struct {
	page  int
	width int
}

var showCmd = &cobra.Command{
	Use:   "show [file]",
	Short: "Preview an exported sheet with ANSI art",
	Long: `Show displays an exported deck sheet in the terminal.

The file is either a saved object JSON written by export, in which case the
sheet selected with --page is shown along with its grid, or any image.

Examples:
  ttsdeck show tts/core-set.json
  ttsdeck show --page 2 tts/core-set.json
  ttsdeck show tts/core-set_back.jpg`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return fmt.Errorf("file not found: %s", path)
		}

		info := []string{colorize.CyanString("File: ") + colorize.HiWhiteString("%s", filepath.Base(path))}
		imagePath := path
		if strings.EqualFold(filepath.Ext(path), ".json") {
			var err error
			imagePath, info, err = describeDocument(path, showFlags.page)
			if err != nil {
				return err
			}
		}

		img, err := imageio.Open(imagePath)
		if err != nil {
			return err
		}
		b := img.Bounds()
		info = append(info, colorize.CyanString("Size: ")+colorize.HiWhiteString("%dx%d", b.Dx(), b.Dy()))

		width := showFlags.width
		if width <= 0 {
			width = previewWidth()
		}
		// half blocks: one character cell covers two pixel rows
		height := max(1, width*b.Dy()/max(b.Dx(), 1)/2)

		ansiPath, err := findAnsiFile(imagePath, width, height)
		if err != nil {
			return fmt.Errorf("error preparing ANSI art: %v", err)
		}
		ansiArt, err := loadAnsiArt(ansiPath)
		if err != nil {
			return fmt.Errorf("error loading ANSI art: %v", err)
		}

		displaySheet(ansiArt, info)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(showCmd)

	showCmd.Flags().IntVarP(&showFlags.page, "page", "p", 1, "sheet to show when the file is a saved object")
	showCmd.Flags().IntVarP(&showFlags.width, "width", "w", 0, "preview width in characters (default half the terminal)")
}

// previewWidth leaves room for the info column.
func previewWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		width = 80 // Default if we can't get terminal width
	}
	return max(20, min(width/2, 80))
}

// describeDocument reads a saved object and returns the sheet image of page
// along with info lines about it.
func describeDocument(path string, page int) (string, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", nil, err
	}
	defer f.Close()

	doc, err := tts.Decode(f)
	if err != nil {
		return "", nil, err
	}
	if len(doc.ObjectStates) == 0 {
		return "", nil, fmt.Errorf("no deck in %s", path)
	}
	obj := doc.ObjectStates[0]

	sheet, ok := obj.CustomDeck[strconv.Itoa(page)]
	if !ok {
		return "", nil, fmt.Errorf("deck has no sheet %d (sheets: %v)", page, sortedSheets(obj))
	}
	imagePath, err := localPath(sheet.FaceURL, filepath.Dir(path))
	if err != nil {
		return "", nil, err
	}

	// cards of this sheet in slot order
	var names []string
	seen := map[int]bool{}
	for _, c := range obj.ContainedObjects {
		if c.CardID/100 != page || seen[c.CardID] {
			continue
		}
		seen[c.CardID] = true
		names = append(names, c.Nickname)
	}

	info := []string{
		colorize.CyanString("Deck:  ") + colorize.HiWhiteString("%s", obj.Nickname),
		colorize.CyanString("Sheet: ") + colorize.HiWhiteString("%d of %d", page, len(obj.CustomDeck)),
		colorize.CyanString("Grid:  ") + colorize.HiWhiteString("%d x %d", sheet.NumWidth, sheet.NumHeight),
		colorize.CyanString("Cards: ") + colorize.HiWhiteString("%d (%d in deck)", len(names), len(obj.DeckIDs)),
		"",
	}
	for i, name := range names {
		info = append(info, colorize.HiBlackString("%3d ", i+1)+name)
	}
	return imagePath, info, nil
}

// localPath maps a sheet URL to a file. Hosted sheets are looked up next to
// the document by file name.
func localPath(raw, dir string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid sheet URL %q: %w", raw, err)
	}
	if u.Scheme == "file" {
		return filepath.FromSlash(u.Path), nil
	}
	return filepath.Join(dir, filepath.Base(u.Path)), nil
}

// findAnsiFile returns cached ANSI art of the image, generating it when the
// cache has none for this image version and size.
func findAnsiFile(imagePath string, width, height int) (string, error) {
	info, err := os.Stat(imagePath)
	if err != nil {
		return "", err
	}

	cacheDir := filepath.Join(config.GetCacheDir(), previewCacheDir)
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create ANSI cache directory: %v", err)
	}

	abs, err := filepath.Abs(imagePath)
	if err != nil {
		abs = imagePath
	}
	key := fmt.Sprintf("%s|%d|%dx%d", abs, info.ModTime().UnixNano(), width, height)
	cachePath := filepath.Join(cacheDir, fmt.Sprintf("%x.ansi", md5.Sum([]byte(key))))

	// Check if we already have a cached version
	if _, err := os.Stat(cachePath); !os.IsNotExist(err) {
		return cachePath, nil
	}

	if err := generateAnsiArt(imagePath, cachePath, width, height); err != nil {
		return "", fmt.Errorf("failed to generate ANSI art: %v", err)
	}
	return cachePath, nil
}

// generateAnsiArt converts an image file to ANSI art and saves it to the specified output path
func generateAnsiArt(imagePath, outputPath string, width, height int) error {
	img, err := imageio.Open(imagePath)
	if err != nil {
		return err
	}

	ansiArt := imageToAnsi(img, width, height)
	if err := os.WriteFile(outputPath, []byte(ansiArt), 0644); err != nil {
		return fmt.Errorf("failed to write ANSI art to file: %v", err)
	}
	return nil
}

// imageToAnsi converts an image to true color ANSI art
func imageToAnsi(img image.Image, width, height int) string {
	// Resize image to desired dimensions (doubled for half-block characters)
	resized := resize.Resize(uint(width*2), uint(height*2), img, resize.Lanczos3)

	var buffer strings.Builder
	for y := 0; y < height*2; y += 2 {
		for x := 0; x < width*2; x += 2 {
			// Get the four pixels that will make up one character cell
			col1, _ := colorful.MakeColor(getColorAt(resized, x, y))
			col2, _ := colorful.MakeColor(getColorAt(resized, x+1, y))
			col3, _ := colorful.MakeColor(getColorAt(resized, x, y+1))
			col4, _ := colorful.MakeColor(getColorAt(resized, x+1, y+1))

			// Top pixels as foreground, bottom pixels as background
			fg := averageColor(col1, col2)
			bg := averageColor(col3, col4)
			buffer.WriteString(ansiColorString('▀', fg, bg))
		}
		buffer.WriteString("\n")
	}
	return buffer.String()
}

// getColorAt returns the color at a specific coordinate
func getColorAt(img image.Image, x, y int) color.Color {
	bounds := img.Bounds()
	x, y = x+bounds.Min.X, y+bounds.Min.Y
	if x < bounds.Max.X && y < bounds.Max.Y {
		return img.At(x, y)
	}
	return color.RGBA{0, 0, 0, 255} // Return black for out-of-bounds
}

// averageColor blends in linear RGB, averaging sRGB values darkens edges.
func averageColor(colors ...colorful.Color) colorful.Color {
	var r, g, b float64
	for _, c := range colors {
		lr, lg, lb := c.LinearRgb()
		r += lr
		g += lg
		b += lb
	}
	count := float64(len(colors))
	return colorful.LinearRgb(r/count, g/count, b/count).Clamped()
}

// ansiColorString formats a character with 24-bit ANSI color codes
func ansiColorString(char rune, fg, bg colorful.Color) string {
	r1, g1, b1 := fg.RGB255()
	r2, g2, b2 := bg.RGB255()
	return fmt.Sprintf("\x1b[38;2;%d;%d;%dm\x1b[48;2;%d;%d;%dm%c\x1b[0m",
		r1, g1, b1, r2, g2, b2, char)
}

// loadAnsiArt loads the ANSI art from a file
func loadAnsiArt(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// displaySheet prints the ANSI art with the info lines on its right
func displaySheet(ansiArt string, infoLines []string) {
	ansiLines := strings.Split(strings.TrimSuffix(ansiArt, "\n"), "\n")
	maxAnsiWidth := 0
	for _, line := range ansiLines {
		maxAnsiWidth = max(maxAnsiWidth, visibleWidth(line))
	}

	spacing := 4
	infoStartCol := maxAnsiWidth + spacing

	fmt.Println()
	maxLines := max(len(ansiLines), len(infoLines))
	for i := 0; i < maxLines; i++ {
		fmt.Print("  ")
		if i < len(ansiLines) {
			fmt.Print(ansiLines[i])
			fmt.Print(strings.Repeat(" ", infoStartCol-visibleWidth(ansiLines[i])))
		} else {
			fmt.Print(strings.Repeat(" ", infoStartCol))
		}
		if i < len(infoLines) {
			fmt.Print(infoLines[i])
		}
		fmt.Println()
	}
	fmt.Println()
}

// visibleWidth counts the characters of s outside ANSI escape sequences
func visibleWidth(s string) int {
	n := 0
	inEscape := false
	for _, c := range s {
		switch {
		case inEscape:
			if c == 'm' {
				inEscape = false
			}
		case c == '\033':
			inEscape = true
		default:
			n++
		}
	}
	return n
}

// sortedSheets lists the sheet numbers of a deck object.
func sortedSheets(obj tts.DeckObject) []int {
	pages := make([]int, 0, len(obj.CustomDeck))
	for k := range obj.CustomDeck {
		if n, err := strconv.Atoi(k); err == nil {
			pages = append(pages, n)
		}
	}
	sort.Ints(pages)
	return pages
}
