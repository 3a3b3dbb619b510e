package ui

import (
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/pathunfolds/unfold/internal/script"
)

type scriptReloadedMsg struct {
	script *script.Script
}

// scriptWatcher reloads the story script whenever it is written.
type scriptWatcher struct {
	path    string
	watcher *fsnotify.Watcher
}

func newScriptWatcher(path string) *scriptWatcher {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		log.Error("error creating fsnotify watcher", "error", err)
		return nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	dir := filepath.Dir(abs)
	if err := w.Add(dir); err != nil {
		log.Error("error adding dir to fsnotify watcher", "error", err)
		_ = w.Close()
		return nil
	}
	log.Info("fsnotify watching dir", "dir", dir)
	return &scriptWatcher{path: abs, watcher: w}
}

// wait blocks until the script changes and returns the reloaded script.
func (w *scriptWatcher) wait() tea.Msg {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			log.Debug("fsnotify event", "file", event.Name, "event", event.Op)
			s, err := script.Load(w.path)
			if err != nil {
				log.Warn("unable to reload script", "error", err)
				continue
			}
			return scriptReloadedMsg{script: s}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			log.Debug("fsnotify error", "path", w.path, "error", err)
		}
	}
}

func (w *scriptWatcher) close() {
	if err := w.watcher.Close(); err != nil {
		log.Error("fsnotify fail to close watcher", "error", err)
	}
}
