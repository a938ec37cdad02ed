package viewer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/animation"
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/audio"
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/viseme"
)

// PlayNarration plays the audio at audioURL with frames as its lip-sync
// timeline and blocks until playback is over. It returns nil when the clip
// ends, is stopped or is replaced by another narration, an error wrapping
// audio.ErrPlayback when playback fails, and ctx.Err() when ctx ends
// first (the clip is stopped). Any narration in progress is stopped
// before this one is prepared.
func (v *Viewer) PlayNarration(ctx context.Context, audioURL string, frames []viseme.RawFrame) (err error) {
	v.mu.Lock()
	if v.disposed {
		v.mu.Unlock()
		return ErrDisposed
	}
	v.stopNarration()
	v.narration++
	id := v.narration
	v.mu.Unlock()

	ctx, span := v.tracer.Start(ctx, "viewer.narration",
		trace.WithAttributes(attribute.Int("visemes", len(frames))))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	clip, err := v.prepare(ctx, audioURL)
	if err != nil {
		return err
	}

	v.mu.Lock()
	if v.disposed || id != v.narration {
		v.mu.Unlock()
		clip.Close()
		return nil
	}
	v.player.Stage(frames)
	d := clip.Duration()
	v.playTalking(d, animation.NarrationTalkOptions)
	if v.player.Mesh() == nil && v.model != nil {
		v.wobble.Start(v.model.Root, d)
	}
	if err := clip.Start(); err != nil {
		v.stopTalking()
		v.wobble.Stop()
		v.player.Stop()
		v.mu.Unlock()
		clip.Close()
		return err
	}
	v.clip = clip
	v.script = frames
	v.player.Start(clip)
	v.metrics.narrations.Add(ctx, 1)
	v.log.Debug("narration started",
		zap.Duration("duration", d),
		zap.Int("frames", len(v.player.Frames())),
		zap.Bool("pending", v.player.Pending()),
	)
	v.mu.Unlock()

	err = clip.Wait(ctx)

	v.mu.Lock()
	if v.clip == clip {
		v.player.Stop()
		v.wobble.Stop()
		v.clip, v.script = nil, nil
	}
	v.mu.Unlock()
	clip.Close()

	if err != nil && !errors.Is(err, ctx.Err()) {
		v.log.Warn("narration playback failed", zap.Error(err))
	}
	return err
}

// prepare fetches and decodes the narration clip.
func (v *Viewer) prepare(ctx context.Context, audioURL string) (*audio.Clip, error) {
	if strings.TrimSpace(audioURL) == "" {
		return nil, fmt.Errorf("%w: empty audio url", audio.ErrPlayback)
	}
	data, err := v.fetcher.Fetch(ctx, audioURL)
	if err != nil {
		return nil, fmt.Errorf("fetching narration audio: %w", err)
	}
	clip, err := v.audio.Open(data)
	if err != nil {
		return nil, err
	}
	return clip, nil
}

// StopNarration stops the current narration, zeroes the mouth and ends
// the talking gesture. A PlayNarration waiting on it returns nil.
func (v *Viewer) StopNarration() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.narration++
	v.stopNarration()
}

func (v *Viewer) stopNarration() {
	v.player.Stop()
	v.wobble.Stop()
	v.stopTalking()
	if v.clip != nil {
		v.clip.Stop()
		v.clip, v.script = nil, nil
	}
}

// ApplyVisemes stages a lip-sync timeline without starting playback.
// Before a model with morph targets is attached the timeline is queued.
func (v *Viewer) ApplyVisemes(frames []viseme.RawFrame) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.player.Stage(frames)
}

// PlayTalking runs the model's talking gesture for about d (the default
// length when d is zero).
func (v *Viewer) PlayTalking(d time.Duration, opts animation.TalkOptions) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.playTalking(d, opts)
}

// StopTalking ends the talking gesture.
func (v *Viewer) StopTalking() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stopTalking()
}

func (v *Viewer) playTalking(d time.Duration, opts animation.TalkOptions) {
	if v.talking == nil {
		return
	}
	v.talkRemaining = animation.PlayTalking(v.talking, d, opts)
}

func (v *Viewer) stopTalking() {
	v.talkRemaining = 0
	animation.StopTalking(v.talking)
}

// advanceTalk stops the gesture once its timer runs out.
func (v *Viewer) advanceTalk(dt time.Duration) {
	if v.talkRemaining <= 0 {
		return
	}
	v.talkRemaining -= dt
	if v.talkRemaining <= 0 {
		v.stopTalking()
	}
}
