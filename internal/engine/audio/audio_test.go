package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
)

const testRate = beep.SampleRate(8000)

// manualOutput mixes only when the test pumps it.
type manualOutput struct {
	mu    sync.Mutex
	mixer beep.Mixer
}

func (o *manualOutput) Play(s beep.Streamer) {
	o.mu.Lock()
	o.mixer.Add(s)
	o.mu.Unlock()
}

func (o *manualOutput) Lock()   { o.mu.Lock() }
func (o *manualOutput) Unlock() { o.mu.Unlock() }

func (o *manualOutput) pump(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.mixer.Stream(make([][2]float64, n))
}

// wavBytes builds a mono 16-bit PCM WAV of n samples.
func wavBytes(n int, rate int) []byte {
	var b bytes.Buffer
	dataLen := n * 2
	b.WriteString("RIFF")
	binary.Write(&b, binary.LittleEndian, uint32(36+dataLen))
	b.WriteString("WAVE")
	b.WriteString("fmt ")
	binary.Write(&b, binary.LittleEndian, uint32(16))
	binary.Write(&b, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&b, binary.LittleEndian, uint16(1)) // Mono
	binary.Write(&b, binary.LittleEndian, uint32(rate))
	binary.Write(&b, binary.LittleEndian, uint32(rate*2))
	binary.Write(&b, binary.LittleEndian, uint16(2))
	binary.Write(&b, binary.LittleEndian, uint16(16))
	b.WriteString("data")
	binary.Write(&b, binary.LittleEndian, uint32(dataLen))
	for i := 0; i < n; i++ {
		v := int16(8000 * math.Sin(2*math.Pi*440*float64(i)/float64(rate)))
		binary.Write(&b, binary.LittleEndian, v)
	}
	return b.Bytes()
}

func TestVolumeConversion(t *testing.T) {
	tests := []struct {
		vol float64
		min float64
		max float64
	}{
		{1.0, -1, 1},     // Full volume should be ~0dB
		{0.5, -8, -4},    // Half volume should be around -6dB
		{0.25, -14, -10}, // Quarter volume should be around -12dB
		{0.0, -200, -90}, // Zero volume should be very negative
	}

	for _, tt := range tests {
		db := volumeToDb(tt.vol)
		if db < tt.min || db > tt.max {
			t.Errorf("volumeToDb(%f) = %f, want between %f and %f", tt.vol, db, tt.min, tt.max)
		}
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		v, min, max, want float64
	}{
		{0.5, 0, 1, 0.5},
		{-1, 0, 1, 0},
		{2, 0, 1, 1},
		{0, 0, 1, 0},
		{1, 0, 1, 1},
	}

	for _, tt := range tests {
		got := clamp(tt.v, tt.min, tt.max)
		if got != tt.want {
			t.Errorf("clamp(%f, %f, %f) = %f, want %f", tt.v, tt.min, tt.max, got, tt.want)
		}
	}
}

func TestSetMasterVolume(t *testing.T) {
	m := New(nil)
	if m.GetMasterVolume() != 1.0 {
		t.Errorf("default master volume = %f, want 1.0", m.GetMasterVolume())
	}

	m.SetMasterVolume(0.5)
	if m.GetMasterVolume() != 0.5 {
		t.Errorf("master volume = %f, want 0.5", m.GetMasterVolume())
	}
	m.SetMasterVolume(2.0)
	if m.GetMasterVolume() != 1.0 {
		t.Errorf("master volume = %f, want 1.0 (clamped)", m.GetMasterVolume())
	}
	m.SetMasterVolume(-1.0)
	if m.GetMasterVolume() != 0.0 {
		t.Errorf("master volume = %f, want 0.0 (clamped)", m.GetMasterVolume())
	}
}

func TestSniff(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"wav", wavBytes(4, 8000), "wav"},
		{"id3 tagged mp3", []byte("ID3\x04\x00rest"), "mp3"},
		{"mpeg frame sync", []byte{0xFF, 0xFB, 0x90, 0x00}, "mp3"},
		{"riff but not wave", []byte("RIFF\x00\x00\x00\x00AVI LIST"), ""},
		{"empty", nil, ""},
		{"text", []byte("hello"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sniff(tt.data); got != tt.want {
				t.Errorf("sniff = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOpenRejectsGarbage(t *testing.T) {
	m := NewWithOutput(&manualOutput{}, testRate, nil)
	if _, err := m.Open([]byte("not audio")); !errors.Is(err, ErrPlayback) {
		t.Errorf("Open error = %v, want ErrPlayback", err)
	}
}

func TestClipPlaysToEnd(t *testing.T) {
	out := &manualOutput{}
	m := NewWithOutput(out, testRate, nil)

	clip, err := m.Open(wavBytes(4000, int(testRate)))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if clip.DurationMs() != 500 {
		t.Errorf("DurationMs = %d, want 500", clip.DurationMs())
	}
	if clip.Playing() || clip.Ended() {
		t.Error("fresh clip should be neither playing nor ended")
	}

	if err := clip.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := clip.Start(); !errors.Is(err, ErrPlayback) {
		t.Errorf("second Start error = %v, want ErrPlayback", err)
	}

	out.pump(2000)
	if got := clip.Position(); math.Abs(got-0.25) > 1e-3 {
		t.Errorf("Position = %v, want 0.25", got)
	}
	if !clip.Playing() {
		t.Error("clip should be playing mid-stream")
	}

	out.pump(3000)
	select {
	case <-clip.Done():
	default:
		t.Fatal("clip not done after draining")
	}
	if !clip.Ended() || clip.Playing() {
		t.Error("drained clip should report ended")
	}
	if err := clip.Wait(context.Background()); err != nil {
		t.Errorf("Wait = %v, want nil", err)
	}
}

func TestClipStopResolvesWait(t *testing.T) {
	out := &manualOutput{}
	m := NewWithOutput(out, testRate, nil)
	clip, err := m.Open(wavBytes(8000, int(testRate)))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := clip.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	out.pump(1000)

	errc := make(chan error, 1)
	go func() { errc <- clip.Wait(context.Background()) }()

	clip.Stop()
	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("Wait after Stop = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Stop")
	}
	if clip.Position() != 0 {
		t.Errorf("Position after Stop = %v, want 0", clip.Position())
	}
	if !clip.Ended() {
		t.Error("stopped clip should report ended")
	}
	clip.Stop()
}

func TestStartingClipStopsPrevious(t *testing.T) {
	out := &manualOutput{}
	m := NewWithOutput(out, testRate, nil)
	first, _ := m.Open(wavBytes(8000, int(testRate)))
	second, _ := m.Open(wavBytes(8000, int(testRate)))

	if err := first.Start(); err != nil {
		t.Fatalf("Start first: %v", err)
	}
	if err := second.Start(); err != nil {
		t.Fatalf("Start second: %v", err)
	}
	if !first.Ended() {
		t.Error("first clip still running after second started")
	}
	if !second.Playing() {
		t.Error("second clip not playing")
	}
	m.Close()
	if !second.Ended() {
		t.Error("Close should stop the current clip")
	}
}

func TestStartWithoutOutput(t *testing.T) {
	m := New(nil)
	clip, err := m.Open(wavBytes(100, int(testRate)))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := clip.Start(); !errors.Is(err, ErrPlayback) {
		t.Fatalf("Start = %v, want ErrPlayback", err)
	}
	if err := clip.Wait(context.Background()); !errors.Is(err, ErrPlayback) {
		t.Errorf("Wait = %v, want ErrPlayback", err)
	}
}

func TestWaitHonoursContext(t *testing.T) {
	m := NewWithOutput(&manualOutput{}, testRate, nil)
	clip, _ := m.Open(wavBytes(100, int(testRate)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := clip.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait = %v, want context.Canceled", err)
	}
}
