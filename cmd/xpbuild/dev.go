package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"xpbuild/internal/config"
	"xpbuild/internal/pipeline"
)

// debounce window between a filesystem event and the rebuild it triggers.
const devDebounce = 250 * time.Millisecond

var devCmd = &cobra.Command{
	Use:   "dev [entry]",
	Short: "Watch the source and rebuild + retest on change",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		entry := entryPath(cfg, args)

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return err
		}
		defer watcher.Close()

		dir := filepath.Dir(entry)
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// The pipeline survives across rebuilds so the compiled-program
		// cache stays warm.
		p := pipeline.New(cfg.DependencySet(), cfg.Registry, logger)

		runOnce(p, cfg, entry)
		fmt.Println(dimStyle.Render("watching " + dir + " (ctrl-c to stop)"))

		timer := time.NewTimer(0)
		if !timer.Stop() {
			<-timer.C
		}

		for {
			select {
			case <-ctx.Done():
				return nil
			case ev, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if sourceEvent(ev) {
					timer.Reset(devDebounce)
				}
			case werr, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				logger.Warn("watcher error: " + werr.Error())
			case <-timer.C:
				runOnce(p, cfg, entry)
			}
		}
	},
}

// sourceEvent reports whether ev concerns a source file we rebuild for.
func sourceEvent(ev fsnotify.Event) bool {
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	switch strings.ToLower(filepath.Ext(ev.Name)) {
	case ".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs":
		return true
	}
	return false
}

// runOnce runs a full build/test cycle and prints the result lines. Errors
// are reported but never stop the watch loop.
func runOnce(p *pipeline.Pipeline, cfg *config.Config, entry string) {
	_, summary, err := p.VerifyFile(entry)
	if err != nil {
		fmt.Println(failStyle.Render("build failed: " + err.Error()))
		return
	}
	for _, r := range summary.Results {
		if r.Passed {
			fmt.Println(passStyle.Render("PASS " + r.Name))
		} else {
			fmt.Println(failStyle.Render(fmt.Sprintf("FAIL %s: %s", r.Name, r.Message)))
		}
	}
	fmt.Printf("%d passed, %d failed, %d total\n", summary.Passed, summary.Failed, summary.Total())
}
