package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/arcanaland/ttsdeck/internal/cache"
	"github.com/arcanaland/ttsdeck/internal/config"
	"github.com/arcanaland/ttsdeck/internal/export"
)

var clearPreviews bool

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the rendered card cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [project]",
	Short: "Remove every cached card image of a project",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, settings, err := loadProject(projectDir(args))
		if err != nil {
			return err
		}

		c := cache.New(export.CacheDir(settings, p), log)
		n, err := c.Clear()
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d cached image(s) from %s\n", n, c.Dir())

		if clearPreviews {
			dir := filepath.Join(config.GetCacheDir(), previewCacheDir)
			if err := os.RemoveAll(dir); err != nil {
				return fmt.Errorf("error removing preview cache: %w", err)
			}
			fmt.Println("Removed preview cache", dir)
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheClearCmd)

	cacheClearCmd.Flags().BoolVar(&clearPreviews, "previews", false, "also remove the terminal preview cache")
}
