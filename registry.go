package gshade

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	lru "github.com/hashicorp/golang-lru/v2"
)

// RegistryConfig configures a [Registry]. The zero value is usable.
type RegistryConfig struct {
	// CacheSize is the amount of decoded graphs kept in memory between scans. Defaults to 256.
	CacheSize int
	// Debounce is the quiet period after a file event before Watch rescans. Defaults to 250ms.
	Debounce time.Duration
	// Logger receives scan and watch events. May be nil.
	Logger *log.Logger
}

type cacheKey struct {
	path  string
	size  int64
	mtime int64
}

// Registry maps paths to function graphs loaded from a directory. It implements
// [FunctionResolver] and is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	funcs    map[string]*Graph
	cache    *lru.Cache[cacheKey, *Graph]
	debounce time.Duration
	log      *log.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(cfg RegistryConfig) (*Registry, error) {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 256
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 250 * time.Millisecond
	}
	cache, err := lru.New[cacheKey, *Graph](cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	return &Registry{
		funcs:    make(map[string]*Graph),
		cache:    cache,
		debounce: cfg.Debounce,
		log:      cfg.Logger,
	}, nil
}

// Function implements [FunctionResolver].
func (r *Registry) Function(path string) *Graph {
	g, _ := r.Lookup(path)
	return g
}

// Lookup returns the function graph registered at path.
func (r *Registry) Lookup(path string) (*Graph, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.funcs[filepath.ToSlash(path)]
	return g, ok
}

// Paths returns the sorted paths of all registered functions.
func (r *Registry) Paths() []string {
	r.mu.RLock()
	paths := make([]string, 0, len(r.funcs))
	for path := range r.funcs {
		paths = append(paths, path)
	}
	r.mu.RUnlock()
	slices.Sort(paths)
	return paths
}

// Add registers the function graph g at path. The graph's Path and Functions are set.
func (r *Registry) Add(path string, g *Graph) error {
	if _, ok := g.Root().(*FunctionOutputNode); !ok {
		return errors.Wrapf(ErrRootNode, "%s is not a function graph", path)
	}
	path = filepath.ToSlash(path)
	g.Path = path
	g.Functions = r
	r.mu.Lock()
	r.funcs[path] = g
	r.mu.Unlock()
	return nil
}

// ScanDir replaces the registered functions with the function graphs persisted
// under dir. Paths are relative to dir in slash form. Files that fail to decode
// are skipped and their errors combined in the returned error. Graphs whose
// root is not a function output are ignored.
func (r *Registry) ScanDir(ctx context.Context, dir string) (loaded int, err error) {
	funcs := make(map[string]*Graph)
	var loadErr error
	walkErr := filepath.WalkDir(dir, func(name string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		} else if ctx.Err() != nil {
			return ctx.Err()
		}
		if entry.IsDir() || filepath.Ext(name) != FileExt {
			return nil
		}
		rel, err := filepath.Rel(dir, name)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		g, err := r.load(name)
		if err != nil {
			r.logWarn("skipping graph", "path", rel, "err", err)
			loadErr = errors.CombineErrors(loadErr, err)
			return nil
		}
		if _, ok := g.Root().(*FunctionOutputNode); !ok {
			r.logDebug("not a function graph", "path", rel, "root", g.Root().Base().Kind)
			return nil
		}
		g.Path = rel
		g.Functions = r
		funcs[rel] = g
		return nil
	})
	if walkErr != nil {
		return 0, errors.Wrapf(walkErr, "scan %s", dir)
	}
	r.mu.Lock()
	r.funcs = funcs
	r.mu.Unlock()
	r.logDebug("scanned functions", "dir", dir, "count", len(funcs))
	return len(funcs), loadErr
}

// load decodes the graph at name, reusing the cached graph if the file's size and
// modification time did not change since it was last decoded.
func (r *Registry) load(name string) (*Graph, error) {
	info, err := os.Stat(name)
	if err != nil {
		return nil, err
	}
	key := cacheKey{path: name, size: info.Size(), mtime: info.ModTime().UnixNano()}
	if g, ok := r.cache.Get(key); ok {
		return g, nil
	}
	g, err := LoadFile(name)
	if err != nil {
		return nil, err
	}
	r.cache.Add(key, g)
	return g, nil
}

// Watch rescans dir whenever a persisted graph under it changes and calls onChange
// with the registered paths after each rescan. Watch blocks until ctx is done.
func (r *Registry) Watch(ctx context.Context, dir string, onChange func(paths []string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "creating fsnotify watcher")
	}
	defer watcher.Close()
	err = filepath.WalkDir(dir, func(name string, entry fs.DirEntry, err error) error {
		if err != nil || !entry.IsDir() {
			return err
		}
		return watcher.Add(name)
	})
	if err != nil {
		return errors.Wrapf(err, "watching %s", dir)
	}

	timer := time.NewTimer(r.debounce)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := watcher.Add(event.Name); err != nil {
						r.logWarn("watch subdirectory", "dir", event.Name, "err", err)
					}
					timer.Reset(r.debounce)
					continue
				}
			}
			if !strings.HasSuffix(event.Name, FileExt) {
				continue
			}
			r.logDebug("graph changed", "file", event.Name, "op", event.Op.String())
			timer.Reset(r.debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logWarn("watcher error", "err", err)

		case <-timer.C:
			n, err := r.ScanDir(ctx, dir)
			if err != nil {
				r.logWarn("rescan", "dir", dir, "err", err)
			}
			r.logInfo("functions reloaded", "count", n)
			if onChange != nil {
				onChange(r.Paths())
			}
		}
	}
}

func (r *Registry) logDebug(msg string, keyvals ...any) {
	if r.log != nil {
		r.log.Debug(msg, keyvals...)
	}
}

func (r *Registry) logInfo(msg string, keyvals ...any) {
	if r.log != nil {
		r.log.Info(msg, keyvals...)
	}
}

func (r *Registry) logWarn(msg string, keyvals ...any) {
	if r.log != nil {
		r.log.Warn(msg, keyvals...)
	}
}
