package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	p "github.com/krew-solutions/ascetic-predicate-go/predicate/domain"
	"github.com/krew-solutions/ascetic-predicate-go/predicate/domain/operators"
	"github.com/krew-solutions/ascetic-predicate-go/predicate/spatial"
)

// RootOptions holds global flags and the state prepared from them before any
// subcommand runs.
type RootOptions struct {
	ConfigPath string
	Verbose    bool

	Config   *Config
	Logger   *slog.Logger
	Registry *operators.Registry
}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "predicate",
		Short: "Evaluate and render portable predicate trees",
		Long: `Work with predicate trees stored in their portable JSON or YAML form.

Trees can be validated, rendered as CQL, OGC filter XML or PostgreSQL,
and evaluated against newline delimited JSON documents.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.prepare(cmd)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "YAML config file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(NewAliasesCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewRenderCommand(opts))
	cmd.AddCommand(NewEvalCommand(opts))

	return cmd
}

func (o *RootOptions) prepare(cmd *cobra.Command) error {
	cfg, err := LoadConfig(o.ConfigPath)
	if err != nil {
		return err
	}
	if o.Verbose {
		cfg.Logger.Level = "debug"
	}
	logger, err := parseLoggerConfig(cfg.Logger, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	registry := spatial.NewRegistry()
	for alias, source := range cfg.Scripts {
		if _, err := registry.DefineScript(alias, source); err != nil {
			return fmt.Errorf("cannot define script %q: %w", alias, err)
		}
		logger.Debug("script operator defined", "alias", alias)
	}

	o.Config = cfg
	o.Logger = logger
	o.Registry = registry
	return nil
}

func (o *RootOptions) codecOptions() []p.CodecOption {
	opts := []p.CodecOption{
		p.WithCodecRegistry(o.Registry),
		p.WithCodecLogger(o.Logger),
	}
	if o.Config.Codec.AllowCodeReconstruction {
		opts = append(opts, p.AllowCodeReconstruction())
	}
	return opts
}

func (o *RootOptions) builderOptions() []p.BuilderOption {
	return []p.BuilderOption{
		p.WithRegistry(o.Registry),
		p.WithLogger(o.Logger),
		p.WithCodecOptions(o.codecOptions()...),
	}
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// loadTree reads a portable tree, as YAML if the file name says so and as
// JSON otherwise.
func (o *RootOptions) loadTree(path string) (*p.Builder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if isYAML(path) {
		return p.FromYAML(data, o.builderOptions()...)
	}
	return p.FromJSON(data, o.builderOptions()...)
}
