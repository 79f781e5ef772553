package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	p "github.com/krew-solutions/ascetic-predicate-go/predicate/domain"
)

func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <tree>",
		Short: "Check a portable tree against the registered operators",
		Long: `Check a portable tree without evaluating it.

Every problem found is reported, one per line, with the path of the
offending node.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var portable p.PortableNode
	if isYAML(path) {
		portable, err = p.ParsePortableYAML(data)
	} else {
		portable, err = p.ParsePortableJSON(data)
	}
	if err != nil {
		return err
	}

	codec := p.NewCodec(opts.codecOptions()...)
	err = codec.Validate(portable)
	if err == nil {
		_, err = codec.DecodeTree(portable)
	}
	if err != nil {
		var merr *multierror.Error
		if errors.As(err, &merr) {
			for _, e := range merr.Errors {
				fmt.Fprintln(cmd.OutOrStdout(), e)
			}
			return fmt.Errorf("%s: %d problem(s) found", path, len(merr.Errors))
		}
		fmt.Fprintln(cmd.OutOrStdout(), err)
		return fmt.Errorf("%s: invalid tree", path)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", path)
	return nil
}
