package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-mailrender"
	"github.com/goliatone/go-mailrender/pkg/logging"
)

type renderFlags struct {
	template string
	model    string
	backend  string
	output   string
	text     bool
}

func newRenderCmd(a *app) *cobra.Command {
	var flags renderFlags

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a template file against a model",
		Long: `Render compiles the template with the configured engine and writes the
result to stdout or --output. Use "-" as the template to read it from stdin.
Model files may be YAML or JSON.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.render(cmd, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.template, "template", "t", "", "template file, or - for stdin")
	cmd.Flags().StringVarP(&flags.model, "model", "m", "", "YAML or JSON model file")
	cmd.Flags().StringVarP(&flags.backend, "backend", "b", "", "template engine (overrides config)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().BoolVar(&flags.text, "text", false, "render as plain text instead of HTML")
	_ = cmd.MarkFlagRequired("template")

	return cmd
}

func (a *app) render(cmd *cobra.Command, flags renderFlags) error {
	start := time.Now()
	defer logging.LogDuration(a.logger, start, "render")

	cfg := a.cfg
	if flags.backend != "" {
		cfg.Backend = flags.backend
	}

	source, err := readTemplate(cmd.InOrStdin(), flags.template)
	if err != nil {
		return err
	}

	model, err := loadModel(flags.model)
	if err != nil {
		return err
	}

	renderer, err := mailrender.NewFromConfig(cfg, a.logger)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	output, err := renderer.ParseAsync(ctx, source, model, !flags.text).Await(ctx)
	if err != nil {
		return err
	}

	if flags.output == "" {
		_, err = io.WriteString(cmd.OutOrStdout(), output)
		return err
	}
	if err := os.WriteFile(flags.output, []byte(output), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	a.logger.Info().Str("path", flags.output).Int("bytes", len(output)).Msg("Rendered template written")
	return nil
}

func readTemplate(stdin io.Reader, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read template from stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read template: %w", err)
	}
	return string(data), nil
}

// loadModel decodes a YAML or JSON document. No path means a nil model.
func loadModel(path string) (any, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	var model any
	if err := yaml.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("decode model %s: %w", path, err)
	}
	return model, nil
}
