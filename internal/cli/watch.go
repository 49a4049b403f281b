package cli

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/soypat/gshade"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type watchOpts struct {
	compileOpts
	debounce time.Duration
}

func (c *CLI) watchCommand() *cobra.Command {
	var opts watchOpts
	cmd := &cobra.Command{
		Use:   "watch <graph>...",
		Short: "Recompile shader graphs when they or their functions change",
		Long: `Watch compiles each graph once and then recompiles all of them whenever one of the
graphs, a function graph under the functions directory or the configuration file changes.
Runs until interrupted.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runWatch(cmd, args, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.outDir, "out", "o", "", "output directory")
	cmd.Flags().BoolVar(&opts.force, "force", false, "write output even if nodes hold errors")
	cmd.Flags().DurationVar(&opts.debounce, "debounce", 250*time.Millisecond, "quiet period before recompiling")
	return cmd
}

func (c *CLI) runWatch(cmd *cobra.Command, paths []string, opts watchOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	reg, err := c.newRegistry(ctx)
	if err != nil {
		return err
	}
	var reloadConfig, rescanFuncs atomic.Bool
	// Buffered so a pending rebuild absorbs further triggers.
	trigger := make(chan struct{}, 1)
	notify := func(reason string) {
		switch reason {
		case "config":
			reloadConfig.Store(true)
		case "functions":
			rescanFuncs.Store(true)
		}
		select {
		case trigger <- struct{}{}:
		default:
		}
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return c.watchGraphs(ctx, paths, opts.debounce, notify)
	})
	if dir := c.cfg.FunctionsDir; dir != "" && isDir(dir) {
		watchReg, err := gshade.NewRegistry(gshade.RegistryConfig{Logger: logger, Debounce: opts.debounce})
		if err != nil {
			return err
		}
		group.Go(func() error {
			return watchReg.Watch(ctx, dir, func([]string) { notify("functions") })
		})
	}
	group.Go(func() error {
		for {
			c.rebuild(cmd, paths, reg, opts.compileOpts)
			select {
			case <-ctx.Done():
				return nil
			case <-trigger:
			}
			if reloadConfig.Swap(false) {
				if err := c.loadConfig(); err != nil {
					printError(cmd.ErrOrStderr(), "%v", err)
				}
			}
			if rescanFuncs.Swap(false) {
				if _, err := reg.ScanDir(ctx, c.cfg.FunctionsDir); err != nil {
					logger.Warn("some function graphs failed to load", "err", err)
				}
			}
		}
	})
	printInfo(cmd.OutOrStdout(), "watching %d graph(s), press Ctrl+C to stop", len(paths))
	err = group.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (c *CLI) rebuild(cmd *cobra.Command, paths []string, reg *gshade.Registry, opts compileOpts) {
	logger := loggerFromContext(cmd.Context())
	failed := 0
	for _, path := range paths {
		ok, err := c.compileFile(cmd, path, reg, opts)
		if err != nil {
			printError(cmd.ErrOrStderr(), "%v", err)
			failed++
		} else if !ok {
			failed++
		}
	}
	if failed > 0 {
		logger.Warn("rebuild finished with errors", "failed", failed, "total", len(paths))
	} else {
		logger.Info("rebuild finished", "graphs", len(paths))
	}
}

// watchGraphs watches the directories holding paths and the configuration file and
// calls notify once changes to them settle.
func (c *CLI) watchGraphs(ctx context.Context, paths []string, debounce time.Duration, notify func(reason string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "creating fsnotify watcher")
	}
	defer watcher.Close()

	// Editors replace files on save so directories are watched instead of files.
	targets := make(map[string]string)
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		targets[abs] = "graph"
	}
	if cfgPath, err := filepath.Abs(c.configFile()); err == nil {
		targets[cfgPath] = "config"
	}
	watched := make(map[string]bool)
	for target := range targets {
		dir := filepath.Dir(target)
		if watched[dir] || !isDir(dir) {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			return errors.Wrapf(err, "watching %s", dir)
		}
		watched[dir] = true
	}

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()
	pending := ""
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			reason, ok := targets[filepath.Clean(event.Name)]
			if !ok {
				continue
			}
			// A configuration change supersedes a graph change since it rebuilds everything anyway.
			if pending != "config" {
				pending = reason
			}
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			loggerFromContext(ctx).Warn("watcher error", "err", err)

		case <-timer.C:
			notify(pending)
			pending = ""
		}
	}
}

// configFile returns the configuration file in use.
func (c *CLI) configFile() string {
	if c.configPath != "" {
		return c.configPath
	}
	return defaultConfigFile
}

func isDir(name string) bool {
	info, err := os.Stat(name)
	return err == nil && info.IsDir()
}
