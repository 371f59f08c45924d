package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/leapstack-labs/replmode/internal/document"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// debounceInterval is how long a watched file must stay quiet before it is
// rendered again.
const debounceInterval = 100 * time.Millisecond

// RenderOptions holds options for the render command.
type RenderOptions struct {
	OutDir string
	Watch  bool
}

// NewRenderCommand creates the render command.
func NewRenderCommand() *cobra.Command {
	opts := &RenderOptions{}

	cmd := &cobra.Command{
		Use:   "render <file.md>...",
		Short: "Render session-mode blocks in Markdown files",
		Long: `Render every session-mode fenced block in the given Markdown files.

A fenced block is in session mode when its language is "repl" or its info
string carries repl-mode=true. Each block is replaced with the console
transcript of running it; everything else in the file is kept as is.
Blocks within one file share a session. Files are rendered concurrently,
each with a session of its own.

With a single file and no --out-dir the result goes to stdout.`,
		Example: `  # Render one file to stdout
  replmode render guide.md

  # Render a set of files into a directory
  replmode render docs/*.md --out-dir site

  # Re-render whenever a file changes
  replmode render docs/*.md --out-dir site --watch`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.OutDir, "out-dir", "o", "", "Directory to write rendered files to")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Re-render files when they change")

	return cmd
}

func runRender(cmd *cobra.Command, files []string, opts *RenderOptions) error {
	if opts.OutDir == "" && (len(files) > 1 || opts.Watch) {
		return errors.New("--out-dir is required when rendering several files or watching")
	}
	if opts.OutDir != "" {
		if err := checkDestinations(files); err != nil {
			return err
		}
	}

	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	proc, err := cmdCtx.NewProcessor()
	if err != nil {
		return err
	}

	r := &docRenderer{
		cmd:    cmd,
		cmdCtx: cmdCtx,
		proc:   proc,
		outDir: opts.OutDir,
	}
	if opts.OutDir != "" {
		if err := os.MkdirAll(opts.OutDir, 0o750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	ctx := cmd.Context()
	if err := r.renderAll(ctx, files); err != nil {
		return err
	}
	if !opts.Watch {
		return nil
	}
	return r.watch(ctx, files)
}

// checkDestinations rejects inputs that would be written to the same file
// in the output directory.
func checkDestinations(files []string) error {
	seen := make(map[string]string, len(files))
	for _, f := range files {
		base := filepath.Base(f)
		if prev, ok := seen[base]; ok && filepath.Clean(prev) != filepath.Clean(f) {
			return fmt.Errorf("%s and %s would both be written to %s", prev, f, base)
		}
		seen[base] = f
	}
	return nil
}

// docRenderer renders Markdown files through one processor.
type docRenderer struct {
	cmd    *cobra.Command
	cmdCtx *CommandContext
	proc   *document.Processor
	outDir string
}

// renderAll renders files concurrently, bounded by the configured job count.
func (r *docRenderer) renderAll(ctx context.Context, files []string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cmdCtx.Cfg.Jobs)
	for _, path := range files {
		g.Go(func() error {
			return r.renderFile(gctx, path)
		})
	}
	return g.Wait()
}

func (r *docRenderer) renderFile(ctx context.Context, path string) error {
	src, err := os.ReadFile(path) //nolint:gosec // path comes from the command line
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	start := time.Now()
	out, err := r.proc.RenderMarkdown(ctx, src)
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", path, err)
	}

	if r.outDir == "" {
		_, err := r.cmd.OutOrStdout().Write(out)
		return err
	}
	dest := filepath.Join(r.outDir, filepath.Base(path))
	if err := os.WriteFile(dest, out, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	r.cmdCtx.Logger.Info("rendered", "file", path, "out", dest, "duration", time.Since(start).Round(time.Millisecond))
	return nil
}

// watch re-renders files as they change until ctx is done.
func (r *docRenderer) watch(ctx context.Context, files []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Editors often replace files on save, so watch the directories.
	watched := make(map[string]bool, len(files))
	dirs := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return err
		}
		watched[abs] = true
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}

	r.cmdCtx.Logger.Info("watching for changes", "files", len(watched))
	r.watchLoop(ctx, watcher, watched)
	return nil
}

func (r *docRenderer) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, watched map[string]bool) {
	d := newDebouncer(debounceInterval)
	defer d.stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			path, err := filepath.Abs(event.Name)
			if err != nil || !watched[path] {
				continue
			}

			d.trigger(path, func() {
				r.cmdCtx.Logger.Info("change detected", "file", filepath.Base(path))
				if err := r.renderFile(ctx, path); err != nil {
					r.cmdCtx.Logger.Error("render failed", "file", path, "error", err)
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			r.cmdCtx.Logger.Warn("watcher error", "error", err)
		}
	}
}

// debouncer runs a function for a key once the key has been quiet for
// interval. Runs for the same key never overlap.
type debouncer struct {
	interval time.Duration

	mu     sync.Mutex
	wg     sync.WaitGroup
	timers map[string]*time.Timer
	locks  map[string]*sync.Mutex
}

func newDebouncer(interval time.Duration) *debouncer {
	return &debouncer{
		interval: interval,
		timers:   make(map[string]*time.Timer),
		locks:    make(map[string]*sync.Mutex),
	}
}

// trigger schedules fn for key, replacing a run that has not started yet.
func (d *debouncer) trigger(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.timers[key]; ok && t.Stop() {
		d.wg.Done()
	}
	lock, ok := d.locks[key]
	if !ok {
		lock = new(sync.Mutex)
		d.locks[key] = lock
	}

	d.wg.Add(1)
	d.timers[key] = time.AfterFunc(d.interval, func() {
		defer d.wg.Done()
		lock.Lock()
		defer lock.Unlock()
		fn()
	})
}

// stop cancels pending runs and waits for the ones already started.
// trigger must not be called after stop.
func (d *debouncer) stop() {
	d.mu.Lock()
	for key, t := range d.timers {
		if t.Stop() {
			d.wg.Done()
		}
		delete(d.timers, key)
	}
	d.mu.Unlock()
	d.wg.Wait()
}
