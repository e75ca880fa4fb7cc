package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-mailrender"
	"github.com/goliatone/go-mailrender/pkg/config"
	"github.com/goliatone/go-mailrender/pkg/logging"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type app struct {
	verbosity  int
	configPath string

	cfg    config.Config
	logger zerolog.Logger
}

// NewRootCmd builds the mailrender command tree.
func NewRootCmd() *cobra.Command {
	a := &app{logger: zerolog.Nop()}

	rootCmd := &cobra.Command{
		Use:   "mailrender",
		Short: "Render email templates from a source and a model",
		Long: `mailrender compiles an email template with the configured engine and
renders it against a YAML or JSON model. It can also serve the same
renderer over HTTP for previews.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().CountVarP(&a.verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "path to a mailrender YAML config file")

	rootCmd.AddCommand(
		newRenderCmd(a),
		newServeCmd(a),
		newBackendsCmd(a),
		newVersionCmd(),
	)

	return rootCmd
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := cfg.Log.Level
	if a.verbosity > 0 {
		level = logging.LevelForVerbosity(a.verbosity)
	}
	a.logger = logging.Setup(logging.Options{
		Level:  level,
		Format: cfg.Log.Format,
		Out:    cmd.ErrOrStderr(),
	})
	a.logger.Debug().Str("command", cmd.Name()).Str("backend", cfg.Backend).Msg("Command started")
	return nil
}

func newBackendsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List the available template engines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := mailrender.NewRegistry(a.cfg)
			if err != nil {
				return err
			}
			for _, name := range registry.List() {
				marker := " "
				if name == a.cfg.Backend {
					marker = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, name)
			}
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "mailrender version %s\n", version)
			fmt.Fprintf(out, "  commit: %s\n", commit)
			fmt.Fprintf(out, "  built:  %s\n", date)
		},
	}
}
