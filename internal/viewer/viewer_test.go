package viewer

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"image"
	gomath "math"
	"sync"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/appearance"
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/audio"
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/camera"
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/color"
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/loader"
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/model"
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/scene"
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/viseme"
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/pkg/math"
)

const testRate = 8000

type fakeRenderer struct {
	mu      sync.Mutex
	renders int
	width   int
	height  int
}

func (r *fakeRenderer) Render(*scene.Scene, *camera.Perspective) {
	r.mu.Lock()
	r.renders++
	r.mu.Unlock()
}

func (r *fakeRenderer) Capture(_ *scene.Scene, _ *camera.Perspective, w, h int) (*image.RGBA, error) {
	return image.NewRGBA(image.Rect(0, 0, w, h)), nil
}

func (r *fakeRenderer) Resize(w, h int) {
	r.mu.Lock()
	r.width, r.height = w, h
	r.mu.Unlock()
}

// gatedSource completes each model load only when the test releases its
// URL, ignoring cancellation like a transfer that has already finished.
type gatedSource struct {
	mu     sync.Mutex
	gates  map[string]chan error
	built  map[string]*model.Model
	morphs bool
}

func newGatedSource(morphs bool) *gatedSource {
	return &gatedSource{
		gates:  make(map[string]chan error),
		built:  make(map[string]*model.Model),
		morphs: morphs,
	}
}

func (s *gatedSource) gate(url string) chan error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.gates[url]
	if !ok {
		g = make(chan error, 1)
		s.gates[url] = g
	}
	return g
}

func (s *gatedSource) release(url string, err error) {
	s.gate(url) <- err
}

func (s *gatedSource) model(url string) *model.Model {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.built[url]
}

func (s *gatedSource) Load(_ context.Context, url string) (*model.Model, error) {
	if err := <-s.gate(url); err != nil {
		return nil, err
	}
	m := avatarModel(url, s.morphs)
	s.mu.Lock()
	s.built[url] = m
	s.mu.Unlock()
	return m, nil
}

func avatarModel(url string, morphs bool) *model.Model {
	root := scene.NewNode("avatar")
	body := scene.NewNode("body")
	mesh := &scene.Mesh{
		Name:     "Wolf3D_Head",
		Geometry: scene.PlaneGeometry(1, 2),
		Material: scene.NewMaterial("avaturn_body"),
	}
	if morphs {
		mesh.MorphDict = map[string]int{"viseme_aa": 0, "viseme_pp": 1}
		mesh.Influences = make([]float32, 2)
	}
	body.Meshes = []*scene.Mesh{mesh}
	root.Add(body)
	return &model.Model{URL: url, Root: root}
}

func headMesh(m *model.Model) *scene.Mesh {
	return m.Root.Children[0].Meshes[0]
}

// pumpOutput mixes only when the test pumps it.
type pumpOutput struct {
	mu    sync.Mutex
	mixer beep.Mixer
}

func (o *pumpOutput) Play(s beep.Streamer) {
	o.mu.Lock()
	o.mixer.Add(s)
	o.mu.Unlock()
}

func (o *pumpOutput) Lock()   { o.mu.Lock() }
func (o *pumpOutput) Unlock() { o.mu.Unlock() }

func (o *pumpOutput) pump(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.mixer.Stream(make([][2]float64, n))
}

// wavBytes builds a mono 16-bit PCM WAV of n silent samples.
func wavBytes(n int) []byte {
	var b bytes.Buffer
	dataLen := n * 2
	b.WriteString("RIFF")
	binary.Write(&b, binary.LittleEndian, uint32(36+dataLen))
	b.WriteString("WAVEfmt ")
	binary.Write(&b, binary.LittleEndian, uint32(16))
	binary.Write(&b, binary.LittleEndian, uint16(1))
	binary.Write(&b, binary.LittleEndian, uint16(1))
	binary.Write(&b, binary.LittleEndian, uint32(testRate))
	binary.Write(&b, binary.LittleEndian, uint32(testRate*2))
	binary.Write(&b, binary.LittleEndian, uint16(2))
	binary.Write(&b, binary.LittleEndian, uint16(16))
	b.WriteString("data")
	binary.Write(&b, binary.LittleEndian, uint32(dataLen))
	b.Write(make([]byte, dataLen))
	return b.Bytes()
}

type harness struct {
	v   *Viewer
	src *gatedSource
	out *pumpOutput
	r   *fakeRenderer
}

func newHarness(t *testing.T, morphs bool, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		src: newGatedSource(morphs),
		out: &pumpOutput{},
		r:   &fakeRenderer{},
	}
	fetch := loader.FetchFunc(func(ctx context.Context, url string) ([]byte, error) {
		return wavBytes(4000), nil
	})
	base := []Option{
		WithModelSource(h.src),
		WithFetcher(fetch),
		WithAudio(audio.NewWithOutput(h.out, testRate, nil)),
	}
	h.v = New(append(base, opts...)...)
	t.Cleanup(h.v.Dispose)
	return h
}

// boot initialises the viewer with a and waits for the model to attach.
func (h *harness) boot(t *testing.T, a appearance.Appearance) *model.Model {
	t.Helper()
	p, err := h.v.Init(h.r, 640, 480, a)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	h.src.release(a.Normalize().ModelURL, nil)
	m, err := p.Wait(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return m
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func (h *harness) narrating() bool {
	h.v.mu.Lock()
	defer h.v.mu.Unlock()
	return h.v.clip != nil
}

func TestLatestAppearanceWins(t *testing.T) {
	h := newHarness(t, true)
	v := h.v

	first, err := v.Init(h.r, 640, 480, appearance.Appearance{Outfit: "traje"})
	if err != nil {
		t.Fatal(err)
	}
	second, err := v.UpdateAppearance(appearance.Appearance{Outfit: "casual"})
	if err != nil {
		t.Fatal(err)
	}
	if second == nil {
		t.Fatal("expected a reload for a different outfit")
	}

	h.src.release("models/vestido.glb", nil)
	if _, err := second.Wait(context.Background()); err != nil {
		t.Fatalf("second load: %v", err)
	}
	h.src.release("models/traje.glb", nil)
	if _, err := first.Wait(context.Background()); !errors.Is(err, loader.ErrSuperseded) {
		t.Fatalf("first load error = %v, want ErrSuperseded", err)
	}

	if got := v.ModelURL(); got != "models/vestido.glb" {
		t.Errorf("ModelURL = %q", got)
	}
	if !v.Ready() {
		t.Error("viewer should be ready")
	}
	if v.scene.Model() != h.src.model("models/vestido.glb").Root {
		t.Error("scene should hold the vestido model")
	}
	if !headMesh(h.src.model("models/traje.glb")).Geometry.Disposed() {
		t.Error("superseded model should be disposed")
	}
	if got := v.Appearance().Outfit; got != "vestido" {
		t.Errorf("applied outfit = %q", got)
	}
}

func TestLoadFailureLeavesNotReady(t *testing.T) {
	h := newHarness(t, true)
	p, err := h.v.Init(h.r, 640, 480, appearance.Appearance{})
	if err != nil {
		t.Fatal(err)
	}
	h.src.release("models/Avatar.glb", errors.New("404"))
	if _, err := p.Wait(context.Background()); err == nil {
		t.Fatal("expected load error")
	}
	if h.v.Ready() {
		t.Error("viewer should not be ready")
	}
	if got := h.v.ModelURL(); got != "" {
		t.Errorf("ModelURL = %q, want empty", got)
	}
	if h.v.scene.Model() != nil {
		t.Error("no model should be attached")
	}

	h.v.Dispose()
	h.v.Dispose()
}

func TestDisposeWithoutInit(t *testing.T) {
	v := New()
	v.Dispose()
	v.Dispose()

	if _, err := v.Init(&fakeRenderer{}, 10, 10, appearance.Appearance{}); !errors.Is(err, ErrDisposed) {
		t.Errorf("Init after Dispose = %v", err)
	}
	if _, err := v.UpdateAppearance(appearance.Appearance{}); !errors.Is(err, ErrDisposed) {
		t.Errorf("UpdateAppearance after Dispose = %v", err)
	}
	if err := v.PlayNarration(context.Background(), "x.wav", nil); !errors.Is(err, ErrDisposed) {
		t.Errorf("PlayNarration after Dispose = %v", err)
	}
	v.Tick(time.Millisecond)
}

func TestUpdateBeforeInit(t *testing.T) {
	v := New()
	defer v.Dispose()
	if _, err := v.UpdateAppearance(appearance.Appearance{}); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("err = %v", err)
	}
	if _, err := v.Screenshot(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Screenshot err = %v", err)
	}
}

func TestSameModelAppliesInPlace(t *testing.T) {
	h := newHarness(t, true)
	m := h.boot(t, appearance.Appearance{Outfit: "corporativo"})

	p, err := h.v.UpdateAppearance(appearance.Appearance{Outfit: "predeterminado", Background: "#ff0000"})
	if err != nil {
		t.Fatal(err)
	}
	if p != nil {
		t.Fatal("same model should not reload")
	}
	if got := h.v.scene.BackgroundColor; got != color.Hex(0xff0000) {
		t.Errorf("background = %v", got)
	}
	if h.v.scene.Model() != m.Root {
		t.Error("model should be unchanged")
	}
}

func TestAppearanceStagedDuringLoad(t *testing.T) {
	h := newHarness(t, true)
	p, err := h.v.Init(h.r, 640, 480, appearance.Appearance{Outfit: "traje"})
	if err != nil {
		t.Fatal(err)
	}
	again, err := h.v.UpdateAppearance(appearance.Appearance{Outfit: "ejecutivo", Background: "moderno"})
	if err != nil {
		t.Fatal(err)
	}
	if again != nil {
		t.Fatal("same URL in flight should not issue a new load")
	}
	h.src.release("models/traje.glb", nil)
	if _, err := p.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got, want := h.v.scene.BackgroundColor, appearance.PresetFor("moderno").Background; got != want {
		t.Errorf("background = %v, want %v", got, want)
	}
	if got := h.v.Appearance().Background; got != "moderno" {
		t.Errorf("applied background = %q", got)
	}
}

func TestInitTwiceUpdates(t *testing.T) {
	h := newHarness(t, true)
	h.boot(t, appearance.Appearance{})

	p, err := h.v.Init(h.r, 800, 600, appearance.Appearance{Background: "#000000"})
	if err != nil {
		t.Fatal(err)
	}
	if p != nil {
		t.Error("second Init with the same model should not reload")
	}
	if h.r.width != 800 || h.r.height != 600 {
		t.Errorf("renderer size = %dx%d", h.r.width, h.r.height)
	}
}

func TestNarrationDrivesMouth(t *testing.T) {
	h := newHarness(t, true)
	m := h.boot(t, appearance.Appearance{})
	mesh := headMesh(m)

	frames := []viseme.RawFrame{{ShapeKey: "viseme_aa", Time: 0}, {ShapeKey: "viseme_PP", Time: 300}}
	done := make(chan error, 1)
	go func() { done <- h.v.PlayNarration(context.Background(), "mem://turno.wav", frames) }()
	waitFor(t, "narration start", h.narrating)

	h.out.pump(0)
	h.v.Tick(0)
	if mesh.Influences[0] < 0.99 {
		t.Errorf("aa influence at 0s = %v", mesh.Influences[0])
	}

	h.out.pump(testRate * 3 / 10)
	h.v.Tick(0)
	if mesh.Influences[1] < 0.99 {
		t.Errorf("pp influence at 0.3s = %v", mesh.Influences[1])
	}
	if mesh.Influences[0] != 0 {
		t.Errorf("aa influence at 0.3s = %v", mesh.Influences[0])
	}

	h.out.pump(testRate)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("PlayNarration: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("narration did not finish")
	}
	h.v.Tick(0)
	for i, w := range mesh.Influences {
		if w != 0 {
			t.Errorf("influence %d = %v after narration", i, w)
		}
	}
}

func TestStopNarration(t *testing.T) {
	h := newHarness(t, true)
	m := h.boot(t, appearance.Appearance{})
	mesh := headMesh(m)

	frames := []viseme.RawFrame{{ShapeKey: "viseme_aa", Time: 0}}
	done := make(chan error, 1)
	go func() { done <- h.v.PlayNarration(context.Background(), "mem://turno.wav", frames) }()
	waitFor(t, "narration start", h.narrating)

	h.v.Tick(0)
	h.v.StopNarration()
	if err := <-done; err != nil {
		t.Fatalf("stopped narration returned %v", err)
	}
	if mesh.Influences[0] != 0 {
		t.Errorf("influence = %v after stop", mesh.Influences[0])
	}
}

func TestModelSwapDuringNarration(t *testing.T) {
	h := newHarness(t, true)
	h.boot(t, appearance.Appearance{})

	frames := []viseme.RawFrame{{ShapeKey: "viseme_aa", Time: 0}}
	done := make(chan error, 1)
	go func() { done <- h.v.PlayNarration(context.Background(), "mem://turno.wav", frames) }()
	waitFor(t, "narration start", h.narrating)

	p, err := h.v.UpdateAppearance(appearance.Appearance{Outfit: "casual"})
	if err != nil || p == nil {
		t.Fatalf("UpdateAppearance = %v, %v", p, err)
	}
	h.src.release("models/vestido.glb", nil)
	if _, err := p.Wait(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	mesh := headMesh(h.src.model("models/vestido.glb"))
	h.out.pump(0)
	h.v.Tick(0)
	if mesh.Influences[0] < 0.99 {
		t.Errorf("aa influence on new mesh = %v", mesh.Influences[0])
	}

	h.v.StopNarration()
	if err := <-done; err != nil {
		t.Fatalf("PlayNarration: %v", err)
	}
}

func TestNarrationEmptyURL(t *testing.T) {
	h := newHarness(t, true)
	h.boot(t, appearance.Appearance{})
	err := h.v.PlayNarration(context.Background(), " ", nil)
	if !errors.Is(err, audio.ErrPlayback) {
		t.Errorf("err = %v, want ErrPlayback", err)
	}
}

func TestNarrationContextCancel(t *testing.T) {
	h := newHarness(t, true)
	h.boot(t, appearance.Appearance{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.v.PlayNarration(ctx, "mem://turno.wav", nil) }()
	waitFor(t, "narration start", h.narrating)
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestWobbleWithoutMorphs(t *testing.T) {
	h := newHarness(t, false)
	m := h.boot(t, appearance.Appearance{})

	done := make(chan error, 1)
	go func() { done <- h.v.PlayNarration(context.Background(), "mem://turno.wav", nil) }()
	waitFor(t, "narration start", h.narrating)

	h.v.Tick(100 * time.Millisecond)
	if m.Root.Rotation == math.QuatIdentity() {
		t.Error("model should wobble while talking")
	}
	h.v.StopNarration()
	<-done
	if m.Root.Rotation != math.QuatIdentity() {
		t.Errorf("rotation = %+v after stop", m.Root.Rotation)
	}
}

func TestVisemesQueuedBeforeModel(t *testing.T) {
	h := newHarness(t, true)
	h.v.ApplyVisemes([]viseme.RawFrame{{ShapeKey: "viseme_aa", Time: 0}, {ShapeKey: "viseme_PP", Time: 100}})
	if !h.v.player.Pending() {
		t.Fatal("timeline should wait for a mesh")
	}
	h.boot(t, appearance.Appearance{})
	if h.v.player.Pending() {
		t.Error("timeline should resolve on attach")
	}
	if got := len(h.v.player.Frames()); got != 2 {
		t.Errorf("frames = %d, want 2", got)
	}
}

func TestTurntable(t *testing.T) {
	h := newHarness(t, true)
	m := h.boot(t, appearance.Appearance{})

	h.v.Turntable(time.Second)
	h.v.Tick(500 * time.Millisecond)
	if y := m.Root.Rotation.Y; gomath.Abs(float64(y)) < 0.99 {
		t.Errorf("half turn yaw component = %v", y)
	}
	h.v.Tick(500 * time.Millisecond)
	if m.Root.Rotation != math.QuatIdentity() {
		t.Errorf("rotation = %+v after a full turn", m.Root.Rotation)
	}
}

func TestModelFramedOnCommit(t *testing.T) {
	h := newHarness(t, true)
	h.boot(t, appearance.Appearance{})
	if h.v.camera.Target == camera.DefaultTarget {
		t.Error("camera should be refit to the model")
	}
}

func TestTickRenders(t *testing.T) {
	h := newHarness(t, true)
	h.v.Tick(time.Millisecond)
	if h.r.renders != 0 {
		t.Error("should not render before Init")
	}
	h.boot(t, appearance.Appearance{})
	h.v.Tick(time.Millisecond)
	h.v.Tick(time.Millisecond)
	if h.r.renders != 2 {
		t.Errorf("renders = %d", h.r.renders)
	}
}

func TestScreenshot(t *testing.T) {
	h := newHarness(t, true)
	h.boot(t, appearance.Appearance{})
	data, err := h.v.Screenshot()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Error("expected PNG data")
	}
}

func TestLoadMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	h := newHarness(t, true, WithMeter(provider.Meter("viewer-test")))

	first, _ := h.v.Init(h.r, 640, 480, appearance.Appearance{Outfit: "traje"})
	second, _ := h.v.UpdateAppearance(appearance.Appearance{Outfit: "vestido"})
	h.src.release("models/traje.glb", nil)
	first.Wait(context.Background())
	h.src.release("models/vestido.glb", nil)
	second.Wait(context.Background())

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatal(err)
	}
	counts := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					counts[m.Name] += dp.Value
				}
			}
		}
	}
	if counts["viewer.loads.issued"] != 2 {
		t.Errorf("issued = %d", counts["viewer.loads.issued"])
	}
	if counts["viewer.loads.discarded"] != 1 {
		t.Errorf("discarded = %d", counts["viewer.loads.discarded"])
	}
}
