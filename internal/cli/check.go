package cli

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/cockroachdb/errors"
	"github.com/soypat/gshade/glcheck"
	"github.com/spf13/cobra"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

type checkOpts struct {
	textureRoot string
	gl          bool
}

func (c *CLI) checkCommand() *cobra.Command {
	var opts checkOpts
	cmd := &cobra.Command{
		Use:   "check <graph>...",
		Short: "Validate shader graphs without writing output",
		Long: `Check compiles each graph and reports node errors, verifies every texture referenced
by sample nodes exists and decodes as an image and, with --gl, compiles the generated
code with the OpenGL driver.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCheck(cmd, args, opts)
		},
	}
	cmd.Flags().StringVar(&opts.textureRoot, "textures", ".", "directory texture paths are relative to")
	cmd.Flags().BoolVar(&opts.gl, "gl", false, "compile generated code with the OpenGL driver")
	return cmd
}

func (c *CLI) runCheck(cmd *cobra.Command, paths []string, opts checkOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	out := cmd.OutOrStdout()
	reg, err := c.newRegistry(ctx)
	if err != nil {
		return err
	}
	if opts.gl {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		terminate, err := glcheck.Init()
		if err != nil {
			return errors.WithHint(err, "run without --gl to skip driver validation")
		}
		defer terminate()
	}
	problems := 0
	for _, path := range paths {
		g, err := c.loadGraph(path, reg)
		if err != nil {
			return err
		}
		res, err := c.compileGraph(g)
		if err != nil {
			return errors.Wrapf(err, "compile %s", path)
		}
		if !res.Valid() {
			problems++
			printNodeErrors(out, path, res.Errors)
			continue
		}
		for _, tex := range res.Textures {
			err := checkTexture(filepath.Join(opts.textureRoot, filepath.FromSlash(tex)))
			if errors.Is(err, image.ErrFormat) {
				printWarning(out, "%s: cannot verify texture format of %s", path, tex)
			} else if err != nil {
				problems++
				printError(out, "%s: texture %s: %v", path, tex, err)
			}
		}
		if opts.gl {
			err = glcheck.Validate(res.Program())
			if err != nil {
				problems++
				printError(out, "%s: %v", path, err)
				logger.Debug("rejected program", "detail", errors.FlattenDetails(err))
				continue
			}
		}
		printSuccess(out, "%s", filepath.ToSlash(path))
	}
	if problems > 0 {
		return errors.Newf("%d problem(s) found", problems)
	}
	return nil
}

// checkTexture verifies the file at name decodes as an image header.
func checkTexture(name string) error {
	fp, err := os.Open(name)
	if err != nil {
		return err
	}
	defer fp.Close()
	cfg, _, err := image.DecodeConfig(io.LimitReader(fp, 1<<20))
	if err != nil {
		return err
	} else if cfg.Width == 0 || cfg.Height == 0 {
		return errors.New("empty image")
	}
	return nil
}
