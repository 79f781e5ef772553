package main

import (
	"fmt"

	"github.com/spf13/cobra"

	p "github.com/krew-solutions/ascetic-predicate-go/predicate/domain"
	infra "github.com/krew-solutions/ascetic-predicate-go/predicate/infrastructure"
)

var ValidDialects = []string{"cql", "xml", "sql"}

type RenderOptions struct {
	Dialect string
}

func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{}

	cmd := &cobra.Command{
		Use:   "render <tree>",
		Short: "Render a portable tree in a query dialect",
		Long: `Render a portable tree as an OGC CQL filter, an OGC filter XML
document or a PostgreSQL boolean expression.

SQL parameters are listed after the expression, one per line.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Dialect, "dialect", "d", "cql", "output dialect (cql|xml|sql)")

	return cmd
}

func runRender(rootOpts *RootOptions, opts *RenderOptions, path string, cmd *cobra.Command) error {
	b, err := rootOpts.loadTree(path)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	switch opts.Dialect {
	case "cql":
		cql, err := infra.CompileCQL(b.Root())
		if err != nil {
			return err
		}
		fmt.Fprintln(out, cql)
	case "xml":
		xml, err := infra.CompileOGCXML(b.Root())
		if err != nil {
			return err
		}
		fmt.Fprintln(out, xml)
	case "sql":
		sql, params, err := infra.CompileSQL(b.Root())
		if err != nil {
			return err
		}
		fmt.Fprintln(out, sql)
		for i, param := range params {
			fmt.Fprintf(out, "-- $%d = %s\n", i+1, p.FormatValue(param))
		}
	default:
		return fmt.Errorf("invalid dialect %q: must be one of %v", opts.Dialect, ValidDialects)
	}
	return nil
}
