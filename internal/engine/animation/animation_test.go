package animation

import (
	gomath "math"
	"testing"
	"time"

	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/scene"
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/pkg/math"
)

func approx(a, b float32) bool {
	return gomath.Abs(float64(a-b)) < 1e-4
}

func translationClip(node *scene.Node, name string) *Clip {
	return NewClip(name, []Channel{{
		Node:   node,
		Path:   PathTranslation,
		Times:  []float32{0, 1, 2},
		Values: []float32{0, 0, 0, 10, 0, 0, 20, 0, 0},
	}})
}

func TestNewClipDuration(t *testing.T) {
	c := translationClip(scene.NewNode("n"), "walk")
	if c.Duration != 2 {
		t.Errorf("duration = %f, want 2", c.Duration)
	}
}

func TestChannelSample(t *testing.T) {
	ch := Channel{
		Path:   PathTranslation,
		Times:  []float32{0, 1, 2},
		Values: []float32{0, 0, 0, 10, 0, 0, 20, 0, 0},
	}
	tests := []struct {
		name   string
		interp Interpolation
		t      float32
		want   float32
	}{
		{"before first", InterpolationLinear, -1, 0},
		{"linear mid", InterpolationLinear, 0.25, 2.5},
		{"linear second segment", InterpolationLinear, 1.5, 15},
		{"after last", InterpolationLinear, 5, 20},
		{"step holds previous", InterpolationStep, 1.9, 10},
	}
	out := make([]float32, 3)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch.Interpolation = tt.interp
			ch.Sample(tt.t, out)
			if !approx(out[0], tt.want) {
				t.Errorf("x = %f, want %f", out[0], tt.want)
			}
		})
	}
}

func TestChannelSampleCubicEndpoints(t *testing.T) {
	// in, value, out per key; zero tangents
	ch := Channel{
		Path:          PathTranslation,
		Interpolation: InterpolationCubicSpline,
		Times:         []float32{0, 1},
		Values: []float32{
			0, 0, 0, 1, 1, 1, 0, 0, 0,
			0, 0, 0, 3, 3, 3, 0, 0, 0,
		},
	}
	out := make([]float32, 3)
	ch.Sample(0.5, out)
	if !approx(out[0], 2) {
		t.Errorf("midpoint with flat tangents = %f, want 2", out[0])
	}
}

func TestChannelSampleRotationSlerp(t *testing.T) {
	q := math.QuatFromAxisAngle(math.Vec3{Y: 1}, gomath.Pi/2)
	ch := Channel{
		Path:   PathRotation,
		Times:  []float32{0, 1},
		Values: []float32{0, 0, 0, 1, q.X, q.Y, q.Z, q.W},
	}
	out := make([]float32, 4)
	ch.Sample(0.5, out)
	want := math.QuatFromAxisAngle(math.Vec3{Y: 1}, gomath.Pi/4)
	if !approx(out[1], want.Y) || !approx(out[3], want.W) {
		t.Errorf("half rotation = %v, want %+v", out, want)
	}
}

func TestMixerAppliesFullWeight(t *testing.T) {
	node := scene.NewNode("hips")
	m := NewMixer()
	a := m.ClipAction(translationClip(node, "idle"))
	a.Play()

	m.Update(0.5)
	if !approx(node.Translation.X, 5) {
		t.Errorf("x = %f, want 5", node.Translation.X)
	}
}

func TestMixerBlendsWithRestPose(t *testing.T) {
	node := scene.NewNode("hips")
	node.Translation = math.Vec3{X: 100}
	m := NewMixer()
	a := m.ClipAction(translationClip(node, "talk"))
	a.Weight = 0.35
	a.Time = 1
	a.Play()

	m.Update(0)
	// 0.35*10 + 0.65*100
	if !approx(node.Translation.X, 68.5) {
		t.Errorf("x = %f, want 68.5", node.Translation.X)
	}
}

func TestMixerRestoresRestWhenStopped(t *testing.T) {
	node := scene.NewNode("hips")
	node.Translation = math.Vec3{X: 7}
	m := NewMixer()
	a := m.ClipAction(translationClip(node, "talk"))
	a.Time = 1
	a.Play()
	m.Update(0)

	a.Stop()
	m.Update(0.1)
	if !approx(node.Translation.X, 7) {
		t.Errorf("x = %f, want rest 7", node.Translation.X)
	}
}

func TestMixerClipActionCached(t *testing.T) {
	m := NewMixer()
	c := translationClip(scene.NewNode("n"), "idle")
	if m.ClipAction(c) != m.ClipAction(c) {
		t.Error("ClipAction should return the same action for a clip")
	}
	if m.ClipAction(nil) != nil {
		t.Error("ClipAction(nil) should be nil")
	}
}

func TestMixerWeightsChannel(t *testing.T) {
	node := scene.NewNode("head")
	mesh := &scene.Mesh{Influences: make([]float32, 2)}
	node.Meshes = []*scene.Mesh{mesh}
	clip := NewClip("blink", []Channel{{
		Node:   node,
		Path:   PathWeights,
		Stride: 2,
		Times:  []float32{0, 1},
		Values: []float32{0, 0, 1, 0.5},
	}})

	m := NewMixer()
	m.ClipAction(clip).Play()
	m.Update(0.5)

	if !approx(mesh.Influences[0], 0.5) || !approx(mesh.Influences[1], 0.25) {
		t.Errorf("influences = %v", mesh.Influences)
	}
}

func TestActionRepetitionsFinish(t *testing.T) {
	m := NewMixer()
	a := m.ClipAction(translationClip(scene.NewNode("n"), "wave"))
	a.SetLoop(2)
	a.Play()

	m.Update(3) // one wrap
	if !a.IsRunning() {
		t.Fatal("action should still run after one loop")
	}
	if !approx(a.Time, 1) {
		t.Errorf("time = %f, want 1", a.Time)
	}
	m.Update(2) // second wrap
	if a.IsRunning() {
		t.Error("action should finish after two loops")
	}
}

func TestActionInfiniteLoopWraps(t *testing.T) {
	m := NewMixer()
	a := m.ClipAction(translationClip(scene.NewNode("n"), "idle"))
	a.Play()
	m.Update(5.5)
	if !a.IsRunning() || !approx(a.Time, 1.5) {
		t.Errorf("running=%v time=%f, want running at 1.5", a.IsRunning(), a.Time)
	}
}

func TestFindClips(t *testing.T) {
	clips := []*Clip{{Name: "Armature|Wave"}, {Name: "avaturn_animation"}, {Name: "EyesAnimation"}, {Name: "TalkingAnimation"}}

	if c := FindByName(clips, "TalkingAnimation"); c != clips[3] {
		t.Errorf("FindByName = %v", c)
	}
	if c := FindByNames(clips, "avaturn_animation", "idle"); c != clips[1] {
		t.Errorf("FindByNames idle = %v", c)
	}
	if c := FindByNames(clips, "eye", "blink"); c != clips[2] {
		t.Errorf("FindByNames eye = %v", c)
	}
	if c := FindByNames(clips, "dance"); c != nil {
		t.Errorf("FindByNames dance = %v, want nil", c)
	}
}

func TestPlayTalking(t *testing.T) {
	tests := []struct {
		name      string
		clipSec   float32
		desired   time.Duration
		wantLoops int
		wantSpeed float32
	}{
		{"fits whole loops", 2, 4 * time.Second, 2, 1},
		{"speeds up short narration", 2, 1 * time.Second, 1, 2},
		{"clamps to max speed", 4, 1 * time.Second, 1, 2.2},
		{"clamps to min speed", 1, 1400 * time.Millisecond, 1, 0.8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clip := &Clip{Name: "TalkingAnimation", Duration: tt.clipSec}
			a := NewMixer().ClipAction(clip)

			got := PlayTalking(a, tt.desired, NarrationTalkOptions)
			if got != tt.desired {
				t.Errorf("timer = %v, want %v", got, tt.desired)
			}
			if a.Repetitions != tt.wantLoops {
				t.Errorf("loops = %d, want %d", a.Repetitions, tt.wantLoops)
			}
			if !approx(a.TimeScale, tt.wantSpeed) {
				t.Errorf("speed = %f, want %f", a.TimeScale, tt.wantSpeed)
			}
			if !approx(a.Time, 0.7*tt.clipSec) {
				t.Errorf("start = %f, want %f", a.Time, 0.7*tt.clipSec)
			}
			if a.Weight != 0.45 || !a.IsRunning() {
				t.Errorf("weight=%f running=%v", a.Weight, a.IsRunning())
			}
		})
	}
}

func TestPlayTalkingDefaults(t *testing.T) {
	a := NewMixer().ClipAction(&Clip{Name: "talk", Duration: 1})
	if d := PlayTalking(a, 0, DefaultTalkOptions); d != DefaultTalkDuration {
		t.Errorf("default duration = %v", d)
	}
	if PlayTalking(nil, time.Second, DefaultTalkOptions) != 0 {
		t.Error("nil action should be a no-op")
	}

	StopTalking(a)
	if a.IsRunning() || a.TimeScale != 1 || a.Repetitions != 0 {
		t.Errorf("StopTalking left running=%v scale=%f reps=%d", a.IsRunning(), a.TimeScale, a.Repetitions)
	}
}
