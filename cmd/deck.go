package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	colorize "github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arcanaland/ttsdeck/internal/card"
	"github.com/arcanaland/ttsdeck/internal/config"
	"github.com/arcanaland/ttsdeck/internal/copies"
	"github.com/arcanaland/ttsdeck/internal/project"
)

// deckCmd represents the deck command group
var deckCmd = &cobra.Command{
	Use:   "deck",
	Short: "Inspect and create card projects",
	Long:  `Commands for inspecting and creating card project directories.`,
}

// deckListCmd represents the deck ls command
var deckListCmd = &cobra.Command{
	Use:   "ls [project]",
	Short: "List the cards of a project as they will be exported",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, settings, err := loadProject(projectDir(args))
		if err != nil {
			return err
		}

		list, err := copies.Load(p.CopiesPath())
		if err != nil {
			fmt.Println(colorize.YellowString("warning: ") + err.Error())
			list = copies.Empty()
		}
		env := &card.Env{Copies: list, DefaultCopies: settings.DefaultCopies, Log: log}

		fmt.Printf("%s %s\n", colorize.CyanString("Deck:"), colorize.HiWhiteString(p.Manifest.Name))
		if p.Manifest.Description != "" {
			fmt.Printf("%s %s\n", colorize.CyanString("Description:"), p.Manifest.Description)
		}
		if p.Back != "" {
			fmt.Printf("%s %s\n", colorize.CyanString("Back:"), p.Back)
		}
		fmt.Println()

		records := p.Records(env)
		total := 0
		for _, r := range records {
			n := r.CopyCount()
			total += n

			line := fmt.Sprintf("  %2dx %s", n, r.DisplayName)
			if r.DisplayName != r.BaseName {
				line += colorize.HiBlackString(" (%s)", r.Identity().Name)
			}
			if r.ExternalID != "" {
				line += " " + colorize.CyanString("[%s]", r.ExternalID)
			}
			if n == 0 {
				if settings.ZeroCopies == config.ZeroCopiesExclude {
					line = colorize.HiBlackString("%s  excluded", line)
				} else {
					line += colorize.HiBlackString("  placeholder")
				}
			}
			fmt.Println(line)
		}

		pages := (len(records) + settings.CardsPerPage - 1) / settings.CardsPerPage
		fmt.Printf("\n%d card(s), %d object(s) on %d sheet(s)\n", len(records), total, pages)
		return nil
	},
}

const starterManifest = `# Deck manifest, every key is optional.
name = %q
description = ""

# Shared card back. back.png/back.jpg next to the cards is used when unset,
# a card can have its own back as "<card>.back.png".
# back = "back.png"

# Resolution the card images are drawn at.
source_ppi = %d

# Companion catalog ids are catalog_prefix + collection_number (3 digits).
# catalog_prefix = "01"

# [export]
# format = "png"
# resolution = 300

# [cards."Card File Name"]
# name = "Display Name"
# description = ""
# collection_number = 1
# exclude = false
`

// deckInitCmd represents the deck init command
var deckInitCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Initialize a card project",
	Long: `Init writes a starter deck.toml and a copies.toml listing every card image
found in the directory. Existing files are kept.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := projectDir(args)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("error creating project directory: %w", err)
		}

		manifestPath := filepath.Join(dir, project.ManifestFile)
		if _, err := os.Stat(manifestPath); errors.Is(err, fs.ErrNotExist) {
			m, err := project.LoadManifest(dir)
			if err != nil {
				return err
			}
			content := fmt.Sprintf(starterManifest, m.Name, project.DefaultSourcePPI)
			if err := os.WriteFile(manifestPath, []byte(content), 0644); err != nil {
				return fmt.Errorf("error writing %s: %w", project.ManifestFile, err)
			}
			fmt.Println("Manifest initialized at:", manifestPath)
		} else {
			fmt.Println("Manifest already exists:", manifestPath)
		}

		p, err := project.Load(dir)
		if err != nil {
			return err
		}
		copiesPath := p.CopiesPath()
		if _, err := os.Stat(copiesPath); errors.Is(err, fs.ErrNotExist) {
			counts := make(map[string]int, len(p.Cards))
			for _, c := range p.Cards {
				counts[project.BaseName(c.Identity().Name)] = cfg.DefaultCopies
			}
			if err := copies.FromMap(counts).Save(copiesPath); err != nil {
				return err
			}
			fmt.Printf("Copies list initialized at: %s (%d cards)\n", copiesPath, len(counts))
		} else {
			fmt.Println("Copies list already exists:", copiesPath)
		}

		fmt.Println("Config file:", config.GetConfigFilePath())
		return nil
	},
}

func init() {
	RootCmd.AddCommand(deckCmd)
	deckCmd.AddCommand(deckListCmd)
	deckCmd.AddCommand(deckInitCmd)
}
