package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/jacekbilski/vulkan-christmas-tree/engine/core"
)

// Compiled SPIR-V file names expected under the shader directory.
const (
	vertexShaderFile   = "scene.vert.spv"
	fragmentShaderFile = "scene.frag.spv"
	computeShaderFile  = "snow.comp.spv"
)

// ShaderSet holds the compiled SPIR-V for all pipeline stages.
type ShaderSet struct {
	Vertex   []byte
	Fragment []byte
	Compute  []byte
}

// LoadShaders reads the full shader set from dir.
func LoadShaders(dir string) (*ShaderSet, error) {
	set := &ShaderSet{}
	for _, load := range []struct {
		name string
		dst  *[]byte
	}{
		{vertexShaderFile, &set.Vertex},
		{fragmentShaderFile, &set.Fragment},
		{computeShaderFile, &set.Compute},
	} {
		data, err := os.ReadFile(filepath.Join(dir, load.name))
		if err != nil {
			err := fmt.Errorf("failed to read shader %s: %w", load.name, err)
			core.LogError(err.Error())
			return nil, err
		}
		*load.dst = data
	}
	core.LogDebug("loaded shader set from %s", dir)
	return set, nil
}

// ShaderWatcher reloads the shader set whenever a compiled .spv under
// the watched directory changes.
type ShaderWatcher struct {
	watcher *fsnotify.Watcher
	dir     string

	// Reloaded receives a freshly loaded set after each change.
	Reloaded chan *ShaderSet
	done     chan struct{}
}

func NewShaderWatcher(dir string) (*ShaderWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		core.LogError("failed to create shader watcher: %v", err)
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		core.LogError("failed to watch shader directory %s: %v", dir, err)
		return nil, err
	}

	sw := &ShaderWatcher{
		watcher:  watcher,
		dir:      dir,
		Reloaded: make(chan *ShaderSet, 1),
		done:     make(chan struct{}),
	}
	go sw.run()

	core.LogInfo("watching %s for shader changes", dir)
	return sw, nil
}

func (sw *ShaderWatcher) run() {
	for {
		select {
		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, ".spv") {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			core.LogInfo("shader changed: %s", filepath.Base(event.Name))
			set, err := LoadShaders(sw.dir)
			if err != nil {
				// Half-written file during recompilation; the next
				// write event retries.
				continue
			}
			// Keep only the newest set if nobody consumed the last one.
			select {
			case <-sw.Reloaded:
			default:
			}
			sw.Reloaded <- set
		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			core.LogWarn("shader watcher: %v", err)
		case <-sw.done:
			return
		}
	}
}

func (sw *ShaderWatcher) Close() error {
	close(sw.done)
	return sw.watcher.Close()
}
