package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/valyala/fastjson"

	infra "github.com/krew-solutions/ascetic-predicate-go/predicate/infrastructure"
)

type EvalOptions struct {
	MetricsFile string
}

func NewEvalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EvalOptions{}

	cmd := &cobra.Command{
		Use:   "eval <tree> [subjects]",
		Short: "Print the JSON documents a tree matches",
		Long: `Evaluate a tree against newline delimited JSON documents read from
a file, or from standard input when no file or "-" is given. Matching
lines are printed unchanged.

Evaluation statistics are logged at the end and can be written to a
Prometheus text file.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(rootOpts, opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "write evaluation metrics to this file (overrides config)")

	return cmd
}

func runEval(rootOpts *RootOptions, opts *EvalOptions, args []string, cmd *cobra.Command) error {
	b, err := rootOpts.loadTree(args[0])
	if err != nil {
		return err
	}

	in := cmd.InOrStdin()
	if len(args) > 1 && args[1] != "-" {
		f, err := os.Open(args[1])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	total, matched, err := evalLines(b.Evaluate, in, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	report := b.Report()
	rootOpts.Logger.Info("evaluation finished",
		"tree", b.ID(),
		"documents", total,
		"matched", matched,
		"node_evaluations", report.Truths+report.Falses,
		"duration", report.Duration,
	)

	metricsFile := rootOpts.Config.Metrics.File
	if opts.MetricsFile != "" {
		metricsFile = opts.MetricsFile
	}
	if metricsFile == "" {
		return nil
	}
	collector := infra.NewReportCollector(rootOpts.Config.Metrics.Namespace)
	collector.Track(args[0], b.Root())
	registry := prometheus.NewRegistry()
	if err := registry.Register(collector); err != nil {
		return err
	}
	if err := prometheus.WriteToTextfile(metricsFile, registry); err != nil {
		return fmt.Errorf("cannot write metrics: %w", err)
	}
	rootOpts.Logger.Debug("metrics written", "file", metricsFile)
	return nil
}

// evalLines evaluates every non-blank line of in and copies the matching ones
// to out.
func evalLines(evaluate func(subject any) (bool, error), in io.Reader, out io.Writer) (total, matched int, err error) {
	var parser fastjson.Parser
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Bytes()
		if len(text) == 0 {
			continue
		}
		doc, err := parser.ParseBytes(text)
		if err != nil {
			return total, matched, fmt.Errorf("line %d: %w", line, err)
		}
		total++
		ok, err := evaluate(doc)
		if err != nil {
			return total, matched, fmt.Errorf("line %d: %w", line, err)
		}
		if ok {
			matched++
			if _, err := fmt.Fprintf(out, "%s\n", text); err != nil {
				return total, matched, err
			}
		}
	}
	return total, matched, scanner.Err()
}
