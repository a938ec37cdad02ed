package scene

import "sync"

// Resource tracks the GPU-side counterpart of CPU data (buffers, textures).
// The renderer attaches a handle on first use; Dispose hands the handle to
// the release function registered with it and marks the resource dead.
// The zero value is ready to use and Dispose is idempotent.
type Resource struct {
	mu       sync.Mutex
	handle   any
	release  func(any)
	disposed bool
}

// GPU returns the attached backend handle, or nil before upload.
func (r *Resource) GPU() any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handle
}

// SetGPU attaches a backend handle. If the resource was disposed in the
// meantime the handle is released immediately.
func (r *Resource) SetGPU(handle any, release func(any)) {
	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		if release != nil {
			release(handle)
		}
		return
	}
	r.handle, r.release = handle, release
	r.mu.Unlock()
}

// Dispose releases the GPU handle, if any.
func (r *Resource) Dispose() {
	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		return
	}
	r.disposed = true
	h, rel := r.handle, r.release
	r.handle, r.release = nil, nil
	r.mu.Unlock()

	if h != nil && rel != nil {
		rel(h)
	}
}

// Disposed reports whether Dispose has been called.
func (r *Resource) Disposed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.disposed
}
