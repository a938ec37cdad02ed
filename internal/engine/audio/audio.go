// Package audio plays narration clips and exposes their playback position
// as a clock for lip-sync.
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"
	"go.uber.org/zap"
)

// DefaultSampleRate is the default sample rate for audio playback.
const DefaultSampleRate = beep.SampleRate(44100)

// ErrPlayback is returned when a clip cannot be decoded or fails while
// playing.
var ErrPlayback = errors.New("audio playback failed")

// Output is where clips are mixed. The speaker is the default; headless
// hosts and tests substitute their own.
type Output interface {
	Play(s beep.Streamer)
	// Lock and Unlock guard streamer state shared with the output's
	// goroutine.
	Lock()
	Unlock()
}

type speakerOutput struct{}

func (speakerOutput) Play(s beep.Streamer) { speaker.Play(s) }
func (speakerOutput) Lock()                { speaker.Lock() }
func (speakerOutput) Unlock()              { speaker.Unlock() }

// Manager owns the audio output and the narration clip playing on it.
type Manager struct {
	mu sync.RWMutex

	log         *zap.Logger
	out         Output
	initialized bool
	sampleRate  beep.SampleRate

	masterVolume float64
	muted        bool

	current *Clip
}

// New creates a manager that plays through the system speaker once Init
// succeeds.
func New(log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		log:          log,
		out:          speakerOutput{},
		sampleRate:   DefaultSampleRate,
		masterVolume: 1.0,
	}
}

// NewWithOutput creates an initialised manager mixing into out at rate.
func NewWithOutput(out Output, rate beep.SampleRate, log *zap.Logger) *Manager {
	m := New(log)
	m.out = out
	m.sampleRate = rate
	m.initialized = true
	return m
}

// Init initializes the speaker.
func (m *Manager) Init() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}
	if err := speaker.Init(m.sampleRate, m.sampleRate.N(time.Second/30)); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}
	m.initialized = true
	return nil
}

// Close stops the current clip and shuts the speaker down.
func (m *Manager) Close() {
	m.mu.Lock()
	cur := m.current
	m.current = nil
	_, isSpeaker := m.out.(speakerOutput)
	wasInit := m.initialized
	m.initialized = false
	m.mu.Unlock()

	if cur != nil {
		cur.Close()
	}
	if isSpeaker && wasInit {
		speaker.Clear()
	}
}

// IsInitialized returns whether the output is ready.
func (m *Manager) IsInitialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.initialized
}

// SetMasterVolume sets the master volume (0.0 to 1.0).
func (m *Manager) SetMasterVolume(vol float64) {
	m.mu.Lock()
	m.masterVolume = clamp(vol, 0, 1)
	cur := m.current
	m.mu.Unlock()
	if cur != nil {
		cur.setVolume(m.effectiveVolume())
	}
}

// GetMasterVolume returns the master volume.
func (m *Manager) GetMasterVolume() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.masterVolume
}

// SetMuted silences output without changing the volume level.
func (m *Manager) SetMuted(muted bool) {
	m.mu.Lock()
	m.muted = muted
	cur := m.current
	m.mu.Unlock()
	if cur != nil {
		cur.setVolume(m.effectiveVolume())
	}
}

func (m *Manager) effectiveVolume() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.muted {
		return 0
	}
	return m.masterVolume
}

// volumeToDb converts a 0-1 volume to decibel scale.
func volumeToDb(vol float64) float64 {
	if vol <= 0 {
		return -100 // Effectively silent
	}
	// vol=1 -> 0dB, vol=0.5 -> -6dB, vol=0.25 -> -12dB
	return 20 * math.Log10(vol)
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Open decodes an MP3 or WAV clip. The format is sniffed from the data.
// The clip does not play until Start.
func (m *Manager) Open(data []byte) (*Clip, error) {
	streamer, format, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPlayback, err)
	}

	m.mu.RLock()
	rate := m.sampleRate
	m.mu.RUnlock()

	c := newClip(m, streamer, format, rate)
	c.setVolume(m.effectiveVolume())
	return c, nil
}

func decode(data []byte) (beep.StreamSeekCloser, beep.Format, error) {
	switch sniff(data) {
	case "wav":
		s, f, err := wav.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, beep.Format{}, fmt.Errorf("decode wav: %w", err)
		}
		return s, f, nil
	case "mp3":
		s, f, err := mp3.Decode(io.NopCloser(bytes.NewReader(data)))
		if err != nil {
			return nil, beep.Format{}, fmt.Errorf("decode mp3: %w", err)
		}
		return s, f, nil
	default:
		return nil, beep.Format{}, fmt.Errorf("unrecognised audio format (%d bytes)", len(data))
	}
}

func sniff(data []byte) string {
	switch {
	case len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return "wav"
	case len(data) >= 3 && string(data[:3]) == "ID3":
		return "mp3"
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return "mp3"
	}
	return ""
}

// play makes c the manager's only playing clip.
func (m *Manager) play(c *Clip, s beep.Streamer) error {
	m.mu.Lock()
	if !m.initialized {
		m.mu.Unlock()
		return fmt.Errorf("%w: audio not initialized", ErrPlayback)
	}
	prev := m.current
	m.current = c
	out := m.out
	m.mu.Unlock()

	if prev != nil && prev != c {
		prev.Stop()
	}
	m.log.Debug("narration clip started", zap.Duration("duration", c.Duration()))
	out.Play(s)
	return nil
}

func (m *Manager) release(c *Clip) {
	m.mu.Lock()
	if m.current == c {
		m.current = nil
	}
	m.mu.Unlock()
}
