package alerting

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// OverridesFile is the on-disk shape of the rule override file:
//
//	rules:
//	  minor-delay-12h: false
//	  stuck-at-location: true
type OverridesFile struct {
	Rules map[string]bool `yaml:"rules"`
}

// LoadOverrides reads the override file and returns its toggles.
func LoadOverrides(path string) (map[string]bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read overrides file: %w", err)
	}

	var f OverridesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse overrides file: %w", err)
	}
	return f.Rules, nil
}

// OverrideWatcher applies rule enable/disable overrides from a YAML
// file and re-applies them whenever the file changes, so operators can
// silence a noisy rule without restarting the server.
type OverrideWatcher struct {
	path   string
	engine *Engine
	log    zerolog.Logger
}

// NewOverrideWatcher creates a watcher for the given override file.
func NewOverrideWatcher(path string, engine *Engine, log zerolog.Logger) *OverrideWatcher {
	return &OverrideWatcher{
		path:   path,
		engine: engine,
		log:    log.With().Str("component", "rule-overrides").Logger(),
	}
}

// Apply loads the file once and applies every toggle. Unknown rule ids
// are logged and skipped.
func (w *OverrideWatcher) Apply() error {
	overrides, err := LoadOverrides(w.path)
	if err != nil {
		return err
	}

	for id, enabled := range overrides {
		if !w.engine.SetEnabled(id, enabled) {
			w.log.Warn().Str("rule", id).Msg("override for unknown rule id ignored")
			continue
		}
		w.log.Info().Str("rule", id).Bool("enabled", enabled).Msg("rule override applied")
	}
	return nil
}

// Watch applies the file and then re-applies it on every write until
// done is closed. Editors replace files rather than writing in place,
// so the watch is on the parent directory filtered by name.
func (w *OverrideWatcher) Watch(done <-chan struct{}) error {
	if err := w.Apply(); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	go func() {
		defer watcher.Close()

		// Debounce bursts of events from a single save.
		var debounce *time.Timer
		reload := make(chan struct{}, 1)

		for {
			select {
			case <-done:
				return
			case <-reload:
				if err := w.Apply(); err != nil {
					w.log.Error().Err(err).Msg("failed to reload rule overrides")
				}
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(w.path) {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(200*time.Millisecond, func() {
					select {
					case reload <- struct{}{}:
					default:
					}
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				w.log.Error().Err(err).Msg("override watcher error")
			}
		}
	}()

	return nil
}
