package cli

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/soypat/gshade"
	"github.com/spf13/cobra"
)

type compileOpts struct {
	outDir string
	stdout bool
	force  bool
}

func (c *CLI) compileCommand() *cobra.Command {
	var opts compileOpts
	cmd := &cobra.Command{
		Use:   "compile <graph>...",
		Short: "Compile shader graphs to shader source",
		Long: `Compile reads each graph, generates its shader source and writes it next to the
graph with the configured output extension. Graphs with node errors are not written
unless --force is set.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCompile(cmd, args, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.outDir, "out", "o", "", "output directory")
	cmd.Flags().BoolVar(&opts.stdout, "stdout", false, "write generated source to standard output")
	cmd.Flags().BoolVar(&opts.force, "force", false, "write output even if nodes hold errors")
	return cmd
}

func (c *CLI) runCompile(cmd *cobra.Command, paths []string, opts compileOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	reg, err := c.newRegistry(ctx)
	if err != nil {
		return err
	}
	prog := newProgress(logger)
	failed := 0
	for _, path := range paths {
		ok, err := c.compileFile(cmd, path, reg, opts)
		if err != nil {
			return err
		} else if !ok {
			failed++
		}
	}
	prog.done("compilation finished")
	if failed > 0 {
		return errors.WithHint(errors.Newf("%d of %d graphs have node errors", failed, len(paths)),
			"fix the listed nodes in the shader editor or use --force to write the output anyway")
	}
	return nil
}

// compileFile compiles the graph at path and writes its source. ok is false if
// the graph holds node errors.
func (c *CLI) compileFile(cmd *cobra.Command, path string, reg *gshade.Registry, opts compileOpts) (ok bool, err error) {
	out := cmd.OutOrStdout()
	g, err := c.loadGraph(path, reg)
	if err != nil {
		return false, err
	}
	res, err := c.compileGraph(g)
	if err != nil {
		return false, errors.Wrapf(err, "compile %s", path)
	}
	ok = res.Valid()
	if !ok {
		printNodeErrors(cmd.ErrOrStderr(), path, res.Errors)
		if !opts.force {
			return false, nil
		}
	}
	if opts.stdout {
		_, err = out.Write(res.Source)
		return ok, err
	}
	dst := c.outputPath(path, opts.outDir)
	if opts.outDir != "" {
		if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
			return ok, err
		}
	}
	if err := os.WriteFile(dst, res.Source, 0o644); err != nil {
		return ok, errors.Wrapf(err, "writing %s", dst)
	}
	printSuccess(out, "compiled %s", filepath.ToSlash(path))
	printFile(out, filepath.ToSlash(dst))
	printResultSummary(out, res)
	return ok, nil
}
