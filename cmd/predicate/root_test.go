package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin io.Reader, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	if stdin != nil {
		cmd.SetIn(stdin)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "predicate", cmd.Use)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"aliases", "validate", "render", "eval"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
	assert.Equal(t, "false", verbose.DefValue)

	config := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, config)
	assert.Equal(t, "", config.DefValue)
}

func TestAliases(t *testing.T) {
	out, err := execute(t, nil, "aliases", "--config", "testdata/config.yaml")
	require.NoError(t, err)

	aliases := strings.Split(strings.TrimSpace(out), "\n")
	for _, alias := range []string{"and", "or", "not", "eq", "like", "ilike", "intersects", "dwithin", "even"} {
		assert.Contains(t, aliases, alias)
	}
}

func TestRenderGolden(t *testing.T) {
	g := newGoldie(t)
	for _, dialect := range []string{"cql", "xml", "sql"} {
		t.Run(dialect, func(t *testing.T) {
			out, err := execute(t, nil, "render", "--dialect", dialect, "testdata/tree.json")
			require.NoError(t, err)
			g.Assert(t, "render_"+dialect, []byte(out))
		})
	}
}

func TestRenderYAMLTree(t *testing.T) {
	fromJSON, err := execute(t, nil, "render", "testdata/tree.json")
	require.NoError(t, err)
	fromYAML, err := execute(t, nil, "render", "testdata/tree.yaml")
	require.NoError(t, err)
	assert.Equal(t, fromJSON, fromYAML)
}

func TestRenderUnknownDialect(t *testing.T) {
	_, err := execute(t, nil, "render", "--dialect", "sparql", "testdata/tree.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid dialect")
}

func TestValidate(t *testing.T) {
	out, err := execute(t, nil, "validate", "testdata/tree.json")
	require.NoError(t, err)
	assert.Equal(t, "testdata/tree.json: ok\n", out)
}

func TestValidateReportsEveryProblem(t *testing.T) {
	out, err := execute(t, nil, "validate", "testdata/invalid.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 problem(s)")
	assert.Contains(t, out, `$.operators[0]: unknown operator "between"`)
	assert.Contains(t, out, `$.operators[1]: runtime operator "odd" carries source text`)
}

func TestEvalGolden(t *testing.T) {
	out, err := execute(t, nil, "eval", "testdata/tree.json", "testdata/subjects.ndjson")
	require.NoError(t, err)
	newGoldie(t).Assert(t, "eval", []byte(out))
}

func TestEvalStdin(t *testing.T) {
	in := strings.NewReader(`{"age":42,"name":"Mr Miyagi"}` + "\n" + `{"age":1}` + "\n")
	out, err := execute(t, in, "eval", "testdata/tree.json")
	require.NoError(t, err)
	assert.Equal(t, `{"age":42,"name":"Mr Miyagi"}`+"\n", out)
}

func TestEvalInvalidLine(t *testing.T) {
	in := strings.NewReader("{\"age\":42}\n{oops\n")
	_, err := execute(t, in, "eval", "testdata/tree.json", "-")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestEvalWritesMetrics(t *testing.T) {
	file := filepath.Join(t.TempDir(), "metrics.prom")
	_, err := execute(t, nil,
		"eval", "testdata/tree.json", "testdata/subjects.ndjson",
		"--config", "testdata/config.yaml",
		"--metrics-file", file,
	)
	require.NoError(t, err)

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	metrics := string(data)
	assert.Contains(t, metrics, "predicate_test_evaluations_true_total{")
	assert.Contains(t, metrics, "predicate_test_evaluations_false_total{")
	assert.Contains(t, metrics, `tree="testdata/tree.json"`)
	assert.Contains(t, metrics, `name="eq:age"`)
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig("testdata/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logger.Level)
	assert.Equal(t, "json", cfg.Logger.Type)
	assert.Equal(t, "predicate_test", cfg.Metrics.Namespace)
	assert.False(t, cfg.Codec.AllowCodeReconstruction)
	assert.Contains(t, cfg.Scripts, "even")

	defaults, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), defaults)
}

func TestParseLoggerConfig(t *testing.T) {
	for _, typ := range []string{"json", "text", "colored-text"} {
		logger, err := parseLoggerConfig(LoggerConfig{Level: "debug", Type: typ}, io.Discard)
		require.NoError(t, err, typ)
		assert.NotNil(t, logger)
	}

	_, err := parseLoggerConfig(LoggerConfig{Level: "loud", Type: "text"}, io.Discard)
	assert.Error(t, err)
	_, err = parseLoggerConfig(LoggerConfig{Level: "info", Type: "xml"}, io.Discard)
	assert.Error(t, err)
}
