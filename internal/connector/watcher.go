package connector

import (
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/deixis/shellbridge/internal/relay"
)

const (
	// settleDelay gives a non-atomic writer a moment to finish before
	// the command file is read. Atomic (rename) writers never need it.
	settleDelay = 100 * time.Millisecond

	pollInterval = 500 * time.Millisecond
)

// watch dispatches command files until stop closes. Filesystem events
// are preferred; when the watcher cannot be created the loop degrades
// to polling, mirroring the same trigger semantics.
func (c *Connector) watch(stop <-chan struct{}) {
	defer c.wg.Done()

	w, err := fsnotify.NewWatcher()
	if err == nil {
		err = w.Add(c.workDir)
	}
	if err != nil {
		if w != nil {
			w.Close()
		}
		c.log.Warn("filesystem watcher unavailable, polling instead", zap.Error(err))
		c.pollLoop(stop)
		return
	}
	defer w.Close()
	c.log.Debug("watching work directory", zap.String("work_dir", c.workDir))

	// A command file may predate the watcher.
	c.dispatchPending()

	for {
		select {
		case <-stop:
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != relay.CommandFile {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			time.Sleep(settleDelay)
			c.processCommandFile()
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			c.log.Error("watcher error", zap.Error(err))
		}
	}
}

// pollLoop is the fallback trigger: check for the command file on a
// fixed cadence. Processing removes the file, so bare existence is the
// whole signal.
func (c *Connector) pollLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.dispatchPending()
		}
	}
}

func (c *Connector) dispatchPending() {
	if _, err := os.Stat(filepath.Join(c.workDir, relay.CommandFile)); err != nil {
		return
	}
	time.Sleep(settleDelay)
	c.processCommandFile()
}
