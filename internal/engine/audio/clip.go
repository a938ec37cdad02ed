package audio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
)

type clipState int

const (
	clipReady clipState = iota
	clipPlaying
	clipStopped
	clipEnded
	clipFailed
)

// Clip is one decoded narration clip. Its playback position is the clock
// the lip-sync sampler follows.
type Clip struct {
	mgr      *Manager
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	vol      *effects.Volume
	out      beep.Streamer

	mu    sync.Mutex
	state clipState
	err   error
	done  chan struct{}
}

func newClip(m *Manager, s beep.StreamSeekCloser, format beep.Format, rate beep.SampleRate) *Clip {
	c := &Clip{
		mgr:      m,
		streamer: s,
		format:   format,
		done:     make(chan struct{}),
	}

	var src beep.Streamer = s
	if format.SampleRate != rate {
		src = beep.Resample(4, format.SampleRate, rate, s)
	}
	c.ctrl = &beep.Ctrl{Streamer: src}
	c.vol = &effects.Volume{Streamer: c.ctrl, Base: 2}
	c.out = beep.Seq(c.vol, beep.Callback(c.drained))
	return c
}

// Duration returns the clip length.
func (c *Clip) Duration() time.Duration {
	return c.format.SampleRate.D(c.streamer.Len())
}

// DurationMs returns the clip length in whole milliseconds.
func (c *Clip) DurationMs() int {
	return int(c.Duration() / time.Millisecond)
}

// Start begins playback. A clip plays at most once.
func (c *Clip) Start() error {
	c.mu.Lock()
	if c.state != clipReady {
		c.mu.Unlock()
		return fmt.Errorf("%w: clip already started", ErrPlayback)
	}
	c.state = clipPlaying
	c.mu.Unlock()

	if err := c.mgr.play(c, c.out); err != nil {
		c.finish(clipFailed, err)
		return err
	}
	return nil
}

// drained runs on the output goroutine when the clip runs out of samples.
func (c *Clip) drained() {
	if err := c.streamer.Err(); err != nil {
		c.finish(clipFailed, fmt.Errorf("%w: %w", ErrPlayback, err))
		return
	}
	c.finish(clipEnded, nil)
}

func (c *Clip) finish(state clipState, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == clipStopped || c.state == clipEnded || c.state == clipFailed {
		return
	}
	c.state = state
	c.err = err
	close(c.done)
}

// Stop pauses the clip, rewinds it and resolves any Wait as finished.
func (c *Clip) Stop() {
	out := c.mgr.out
	out.Lock()
	c.ctrl.Paused = true
	_ = c.streamer.Seek(0)
	out.Unlock()

	c.finish(clipStopped, nil)
	c.mgr.release(c)
}

// Close stops the clip and releases its decoder.
func (c *Clip) Close() {
	c.Stop()
	c.streamer.Close()
}

// Done is closed when playback ends, fails or is stopped.
func (c *Clip) Done() <-chan struct{} {
	return c.done
}

// Err returns the playback error once Done is closed.
func (c *Clip) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Wait blocks until the clip ends or is stopped (nil), fails (an error
// wrapping ErrPlayback) or ctx is done.
func (c *Clip) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return c.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Position returns the playback position in seconds.
func (c *Clip) Position() float64 {
	out := c.mgr.out
	out.Lock()
	pos := c.streamer.Position()
	out.Unlock()
	return c.format.SampleRate.D(pos).Seconds()
}

// Playing reports whether the clip is audibly advancing.
func (c *Clip) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == clipPlaying
}

// Ended reports whether playback is over for any reason.
func (c *Clip) Ended() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == clipEnded || c.state == clipStopped || c.state == clipFailed
}

func (c *Clip) setVolume(vol float64) {
	out := c.mgr.out
	out.Lock()
	c.vol.Silent = vol <= 0
	c.vol.Volume = volumeToDb(vol) / 6 // Base 2: one step is ~6dB
	out.Unlock()
}
