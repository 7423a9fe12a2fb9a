package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	colorize "github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arcanaland/ttsdeck/internal/config"
	"github.com/arcanaland/ttsdeck/internal/control"
	"github.com/arcanaland/ttsdeck/internal/export"
)

var exportFlags struct {
	format     string
	resolution int
	out        string
	cacheDir   string
}

var exportCmd = &cobra.Command{
	Use:   "export [project]",
	Short: "Export a card project as a Tabletop Simulator deck",
	Long: `Export renders every card of the project into sheets of at most
cards_per_page cards, writes the shared card back and a saved object JSON
file referencing them.

Output goes to <project>/tts unless --out is given. Interrupting the export
(Ctrl+C) stops after the current card and writes nothing.

Examples:
  ttsdeck export
  ttsdeck export ./core-set --format png --resolution 300
  ttsdeck export ./core-set --out ~/.local/share/Tabletop\ Simulator/Saves/Saved\ Objects`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, settings, err := loadProject(projectDir(args), config.Overrides{
			Format:     exportFlags.format,
			Resolution: exportFlags.resolution,
			CacheDir:   exportFlags.cacheDir,
		})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		ctl := control.New()
		exp := export.New(settings, ctl, log)

		// the export runs on its own goroutine, this one only displays progress
		var (
			res  *export.Result
			rerr error
		)
		done := make(chan struct{})
		go func() {
			defer close(done)
			res, rerr = exp.Project(ctx, p, exportFlags.out)
		}()
		newProgressDisplay(ctl).run(done)

		switch {
		case errors.Is(rerr, export.ErrCancelled):
			fmt.Println(colorize.YellowString("Export cancelled, nothing was written."))
			return rerr
		case rerr != nil:
			return fmt.Errorf("export failed: %w", rerr)
		}

		d := res.Deck
		fmt.Printf("%s %s\n", colorize.GreenString("Exported"), colorize.HiWhiteString(d.Name))
		fmt.Printf("  %s %d\n", colorize.CyanString("Cards:  "), d.Slots())
		fmt.Printf("  %s %d\n", colorize.CyanString("Sheets: "), len(res.Sheets))
		fmt.Printf("  %s %s\n", colorize.CyanString("Object: "), res.Document)
		if n := d.Failed(); n > 0 {
			fmt.Println(colorize.RedString("  %d card(s) could not be rendered, their cells are blank", n))
		}
		log.Debug("Export finished", zap.Strings("sheets", res.Sheets), zap.String("back", res.Back))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportFlags.format, "format", "f", "", "sheet image format: jpg or png")
	exportCmd.Flags().IntVarP(&exportFlags.resolution, "resolution", "r", 0, "render resolution in pixels per inch")
	exportCmd.Flags().StringVarP(&exportFlags.out, "out", "o", "", "output directory (default <project>/tts)")
	exportCmd.Flags().StringVar(&exportFlags.cacheDir, "cache-dir", "", "bitmap cache directory (default <project>/.ttsdeck_cache)")
}
