package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arcanaland/ttsdeck/internal/config"
	"github.com/arcanaland/ttsdeck/internal/project"
)

var (
	configFile string
	debug      bool

	// set up by the root command before any subcommand runs
	cfg *config.Config
	log = zap.NewNop()
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "ttsdeck",
	Short: "Export card image projects as Tabletop Simulator decks",
	Long: `ttsdeck turns a directory of card images into a Tabletop Simulator custom deck:
card sheets, a shared back image and a saved object JSON file that can be
dropped into the TTS "Saved Objects" folder.

Card metadata lives in deck.toml, copy counts in copies.toml.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if configFile != "" {
			cfg, err = config.LoadConfigFile(configFile)
		} else {
			cfg, err = config.LoadConfig()
		}
		if err != nil {
			return err
		}

		if debug {
			cfg.Logging.Level = "debug"
		}
		l, err := cfg.Logging.Prepare()
		if err != nil {
			return err
		}
		log = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = log.Sync()
	},
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configFile, "config", "", "configuration file (default "+config.GetConfigFilePath()+")")
	RootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log debug messages")

	RootCmd.AddCommand(validateCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return RootCmd.Execute()
}

// projectDir returns the project argument, the current directory by default.
func projectDir(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

// loadProject loads the project in dir and resolves its run settings.
func loadProject(dir string, overrides ...config.Overrides) (*project.Project, config.Settings, error) {
	p, err := project.Load(dir)
	if err != nil {
		return nil, config.Settings{}, err
	}
	s, err := cfg.Settings(append([]config.Overrides{p.Overrides()}, overrides...)...)
	if err != nil {
		return nil, config.Settings{}, err
	}
	return p, s, nil
}
