//go:build govips && cgo

package transcode

import (
	"errors"
	"runtime"
	"sync"

	"github.com/davidbyttow/govips/v2/vips"
)

// Backend names the compiled-in transcoder.
const Backend = "govips"

// libvips cannot be restarted in the same process once shut down.
var errVipsStopped = errors.New("libvips runtime already shut down")

type vipsRuntime struct {
	mu      sync.Mutex
	running bool
	stopped bool
}

var vipsRT vipsRuntime

// Startup initializes libvips once. Every request decodes a fresh buffer,
// so the operation cache is disabled and worker threads track the CPUs.
func Startup() error {
	vipsRT.mu.Lock()
	defer vipsRT.mu.Unlock()

	switch {
	case vipsRT.stopped:
		return errVipsStopped
	case vipsRT.running:
		return nil
	}

	vips.LoggingSettings(nil, vips.LogLevelWarning)
	vips.Startup(&vips.Config{
		ConcurrencyLevel: runtime.NumCPU(),
		MaxCacheFiles:    0,
		MaxCacheMem:      0,
		MaxCacheSize:     0,
	})
	vipsRT.running = true
	return nil
}

func Shutdown() {
	vipsRT.mu.Lock()
	defer vipsRT.mu.Unlock()

	if !vipsRT.running {
		return
	}
	vips.Shutdown()
	vipsRT.running = false
	vipsRT.stopped = true
}

func newTranscoder(opts Options) (Transcoder, error) {
	return govipsTranscoder{quality: opts.Quality}, nil
}
