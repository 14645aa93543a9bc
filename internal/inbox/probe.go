package inbox

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Probe tests whether fsnotify delivers events for dir. Network mounts often
// accept a watch but never report changes. It creates a hidden temporary
// file inside dir and reports whether the Create event arrives in time.
func Probe(dir string, timeout time.Duration) bool {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return false
	}
	defer w.Close() //nolint:errcheck

	if err := w.Add(dir); err != nil {
		return false
	}

	probeName := fmt.Sprintf(".cadence_probe_%d", rand.Int63()) //nolint:gosec // G404: not security-sensitive
	probePath := filepath.Join(dir, probeName)
	if err := os.WriteFile(probePath, nil, 0o600); err != nil {
		return false
	}
	defer os.Remove(probePath) //nolint:errcheck

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return false
			}
			if ev.Has(fsnotify.Create) && filepath.Base(ev.Name) == probeName {
				return true
			}
		case <-w.Errors:
			return false
		case <-timer.C:
			return false
		}
	}
}
