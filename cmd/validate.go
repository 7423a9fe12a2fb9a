package cmd

import (
	"fmt"
	"os"

	"github.com/arcanaland/ttsdeck/internal/validator"
	"github.com/spf13/cobra"
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate [project]",
	Short: "Validate a card project directory",
	Long: `Validate checks a card project before export: the deck.toml manifest,
the card images and their backs, the copies list and the export settings.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectPath := projectDir(args)

		// Check if path exists
		if _, err := os.Stat(projectPath); os.IsNotExist(err) {
			return fmt.Errorf("project directory not found: %s", projectPath)
		}

		// Create validator and run validation
		v := validator.NewValidator(projectPath, cfg)
		results, err := v.Validate()
		if err != nil {
			return fmt.Errorf("validation error: %v", err)
		}

		// Display validation results
		fmt.Println("Validation Results:")
		fmt.Println("-------------------")

		if len(results.Errors) == 0 {
			fmt.Printf("✅ Project '%s' is ready for export.\n", projectPath)
		} else {
			fmt.Printf("❌ Project '%s' has %d validation errors:\n", projectPath, len(results.Errors))
			for i, err := range results.Errors {
				fmt.Printf("%d. %s\n", i+1, err)
			}
		}

		if len(results.Warnings) > 0 {
			fmt.Println("\nWarnings:")
			for i, warn := range results.Warnings {
				fmt.Printf("%d. %s\n", i+1, warn)
			}
		}

		if len(results.Errors) > 0 {
			return fmt.Errorf("validation failed")
		}
		return nil
	},
}
