package animation

import (
	gomath "math"
	"time"
)

// Action is the playback state of one clip inside a Mixer.
type Action struct {
	clip *Clip

	Time      float32 // Seconds into the clip
	TimeScale float32
	Weight    float32
	Enabled   bool

	// Repetitions limits the number of loops; 0 repeats forever.
	Repetitions int

	running   bool
	loopCount int
}

// Clip returns the clip this action plays.
func (a *Action) Clip() *Clip {
	return a.clip
}

// Play starts the action from its current time.
func (a *Action) Play() {
	a.Enabled = true
	a.running = true
	a.loopCount = 0
}

// Stop halts the action and rewinds it.
func (a *Action) Stop() {
	a.running = false
	a.Time = 0
	a.loopCount = 0
}

// IsRunning reports whether the action is playing and not finished.
func (a *Action) IsRunning() bool {
	return a.running && a.Enabled
}

// SetLoop sets the repetition count (0 for forever).
func (a *Action) SetLoop(repetitions int) {
	a.Repetitions = max(repetitions, 0)
}

// effectiveWeight is the blend weight this frame.
func (a *Action) effectiveWeight() float32 {
	if !a.IsRunning() {
		return 0
	}
	return a.Weight
}

// advance moves the playhead by dt seconds, wrapping and counting loops.
func (a *Action) advance(dt float32) {
	if !a.IsRunning() {
		return
	}
	d := a.clip.Duration
	if d <= 0 {
		return
	}

	t := a.Time + dt*a.TimeScale
	if t >= d || t < 0 {
		loops := int(gomath.Floor(float64(t / d)))
		t -= d * float32(loops)
		if loops < 0 {
			loops = -loops
		}
		a.loopCount += loops
		if a.Repetitions > 0 && a.loopCount >= a.Repetitions {
			a.running = false
			a.Enabled = false
			a.Time = d
			return
		}
	}
	a.Time = t
}

// TalkOptions shape the talking gesture loop.
type TalkOptions struct {
	StartPhase float32 // 0..1 position in the clip to start from
	MinSpeed   float32
	MaxSpeed   float32
	Weight     float32
}

// DefaultTalkOptions are used when no options are given.
var DefaultTalkOptions = TalkOptions{StartPhase: 0.9, MinSpeed: 0.6, MaxSpeed: 3.0, Weight: 0.45}

// NarrationTalkOptions are used while narration audio plays.
var NarrationTalkOptions = TalkOptions{StartPhase: 0.7, MinSpeed: 0.8, MaxSpeed: 2.2, Weight: 0.45}

// DefaultTalkDuration applies when the desired duration is unknown.
const DefaultTalkDuration = 80 * time.Second

// PlayTalking fits the action's clip to desired by choosing a whole loop
// count and a clamped time scale, starts it at opts.StartPhase and returns
// how long the caller should let it run before StopTalking.
func PlayTalking(a *Action, desired time.Duration, opts TalkOptions) time.Duration {
	if a == nil {
		return 0
	}
	if desired <= 0 {
		desired = DefaultTalkDuration
	}
	a.Weight = opts.Weight

	clipSec := a.clip.Duration
	if clipSec > 0 {
		desiredSec := float32(desired.Seconds())
		loops := max(int(gomath.Round(float64(desiredSec/clipSec))), 1)
		speed := float32(loops) * clipSec / desiredSec
		speed = min(max(speed, opts.MinSpeed), opts.MaxSpeed)

		a.SetLoop(loops)
		a.TimeScale = speed
		a.Time = min(max(opts.StartPhase, 0), 1) * clipSec
	} else {
		a.SetLoop(0)
		a.TimeScale = 1
	}

	a.Play()
	return desired
}

// StopTalking stops a talking action and restores its loop defaults.
func StopTalking(a *Action) {
	if a == nil {
		return
	}
	a.Stop()
	a.Enabled = false
	a.TimeScale = 1
	a.SetLoop(0)
}
