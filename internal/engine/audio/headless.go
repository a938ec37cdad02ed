package audio

import (
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
)

// Headless is an Output that consumes samples in real time without an
// audio device, so clip clocks still advance on machines with no sound
// card.
type Headless struct {
	mu    sync.Mutex
	mixer beep.Mixer
	rate  beep.SampleRate
	done  chan struct{}
	once  sync.Once
}

// NewHeadless starts a headless output at rate.
func NewHeadless(rate beep.SampleRate) *Headless {
	h := &Headless{rate: rate, done: make(chan struct{})}
	go h.run(time.Second / 30)
	return h
}

func (h *Headless) run(tick time.Duration) {
	buf := make([][2]float64, h.rate.N(tick))
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			h.mu.Lock()
			h.mixer.Stream(buf)
			h.mu.Unlock()
		case <-h.done:
			return
		}
	}
}

func (h *Headless) Play(s beep.Streamer) {
	h.mu.Lock()
	h.mixer.Add(s)
	h.mu.Unlock()
}

func (h *Headless) Lock()   { h.mu.Lock() }
func (h *Headless) Unlock() { h.mu.Unlock() }

// Close stops consuming samples.
func (h *Headless) Close() {
	h.once.Do(func() { close(h.done) })
}
