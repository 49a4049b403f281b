// Package cli implements the gshade command-line interface.
//
// Commands compile persisted shader graphs to shader source, validate them,
// prune unreachable nodes, render them as diagrams and list or watch the
// function graphs they call. Project settings are read from gshade.toml.
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/soypat/gshade"
	"github.com/spf13/cobra"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath   string
	functionsDir string
	cfg          Config
}

// New creates a CLI logging to w at the argument level.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "gshade",
		Short:        "gshade compiles shader node graphs to shader source",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return c.loadConfig()
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "configuration file (default "+defaultConfigFile+")")
	root.PersistentFlags().StringVar(&c.functionsDir, "functions", "", "function graph directory, overrides functions_dir")

	root.AddCommand(c.compileCommand())
	root.AddCommand(c.checkCommand())
	root.AddCommand(c.cleanCommand())
	root.AddCommand(c.dotCommand())
	root.AddCommand(c.functionsCommand())
	root.AddCommand(c.watchCommand())
	return root
}

func (c *CLI) loadConfig() error {
	path, optional := c.configPath, false
	if path == "" {
		path, optional = defaultConfigFile, true
	}
	cfg, err := LoadConfig(path, optional)
	if err != nil {
		return err
	}
	if c.functionsDir != "" {
		cfg.FunctionsDir = c.functionsDir
	}
	c.cfg = cfg
	c.Logger.Debug("configuration loaded", "path", path, "functions", cfg.FunctionsDir)
	return nil
}

// newRegistry scans the configured function directory. A missing directory yields an empty registry.
func (c *CLI) newRegistry(ctx context.Context) (*gshade.Registry, error) {
	logger := loggerFromContext(ctx)
	reg, err := gshade.NewRegistry(gshade.RegistryConfig{Logger: logger})
	if err != nil {
		return nil, err
	}
	dir := c.cfg.FunctionsDir
	if dir == "" {
		return reg, nil
	}
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		logger.Debug("no function directory", "dir", dir)
		return reg, nil
	}
	n, err := reg.ScanDir(ctx, dir)
	if err != nil {
		logger.Warn("some function graphs failed to load", "err", err)
	}
	logger.Debug("functions loaded", "dir", dir, "count", n)
	return reg, nil
}

// loadGraph reads the graph at path, attaches the registry and applies configuration overrides.
func (c *CLI) loadGraph(path string, reg *gshade.Registry) (*gshade.Graph, error) {
	g, err := gshade.LoadFile(path)
	if err != nil {
		return nil, errors.WithHint(err, "graph files are written by the shader editor with the "+gshade.FileExt+" extension")
	}
	if reg != nil {
		g.Functions = reg
	}
	if rel, ok := c.functionPath(path); ok {
		if _, isFunc := g.Root().(*gshade.FunctionOutputNode); isFunc {
			// Name the function as call nodes resolving it through the registry do.
			g.Path = rel
		}
	}
	c.cfg.apply(g)
	return g, nil
}

// functionPath returns path relative to the function directory in slash form.
// ok is false if path is not inside the function directory.
func (c *CLI) functionPath(path string) (rel string, ok bool) {
	if c.cfg.FunctionsDir == "" {
		return "", false
	}
	dir, err := filepath.Abs(c.cfg.FunctionsDir)
	if err != nil {
		return "", false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	rel, err = filepath.Rel(dir, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func (c *CLI) compileGraph(g *gshade.Graph) (*gshade.Result, error) {
	return gshade.NewCompiler(c.cfg.CompilerConfig()).Compile(g)
}

// outputPath returns the generated shader path for the graph at path.
func (c *CLI) outputPath(path, outDir string) string {
	name := strings.TrimSuffix(path, filepath.Ext(path)) + c.cfg.OutputExt
	if outDir != "" {
		name = filepath.Join(outDir, filepath.Base(name))
	}
	return name
}
