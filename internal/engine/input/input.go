// Package input translates SDL2 events into viewer gestures.
package input

import (
	"github.com/veandco/go-sdl2/sdl"
)

// EventType classifies a processed event.
type EventType int

const (
	EventNone EventType = iota
	EventQuit
	EventWindowResize
	EventKeyDown
	EventRotate // Left-button drag
	EventPan    // Right- or middle-button drag
	EventZoom   // Wheel
)

// Event represents a processed input event.
type Event struct {
	Type   EventType
	Key    sdl.Scancode
	Width  int
	Height int
	DX, DY float32
}

// Input handles all input processing.
type Input struct {
	events []Event
}

// New creates a new input handler.
func New() *Input {
	return &Input{
		events: make([]Event, 0, 16),
	}
}

// Update polls SDL events. Returns true if the viewer should quit.
func (i *Input) Update() bool {
	i.events = i.events[:0]
	quit := false
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		if e, ok := Translate(event); ok {
			i.events = append(i.events, e)
			if e.Type == EventQuit {
				quit = true
			}
		}
	}
	return quit
}

// Translate converts one SDL event. Events the viewer ignores report false.
func Translate(event sdl.Event) (Event, bool) {
	switch e := event.(type) {
	case *sdl.QuitEvent:
		return Event{Type: EventQuit}, true

	case *sdl.WindowEvent:
		if e.Event == sdl.WINDOWEVENT_SIZE_CHANGED || e.Event == sdl.WINDOWEVENT_RESIZED {
			return Event{Type: EventWindowResize, Width: int(e.Data1), Height: int(e.Data2)}, true
		}

	case *sdl.KeyboardEvent:
		if e.Type == sdl.KEYDOWN && e.Repeat == 0 {
			return Event{Type: EventKeyDown, Key: e.Keysym.Scancode}, true
		}

	case *sdl.MouseMotionEvent:
		switch {
		case e.State&sdl.ButtonLMask() != 0:
			return Event{Type: EventRotate, DX: float32(e.XRel), DY: float32(e.YRel)}, true
		case e.State&(sdl.ButtonRMask()|sdl.ButtonMMask()) != 0:
			return Event{Type: EventPan, DX: float32(e.XRel), DY: float32(e.YRel)}, true
		}

	case *sdl.MouseWheelEvent:
		dy := float32(e.Y)
		if e.Direction == sdl.MOUSEWHEEL_FLIPPED {
			dy = -dy
		}
		if dy != 0 {
			return Event{Type: EventZoom, DY: dy}, true
		}
	}
	return Event{}, false
}

// Events returns the events from the last Update.
func (i *Input) Events() []Event {
	return i.events
}

// IsKeyPressed checks if a specific key was pressed this frame.
func (i *Input) IsKeyPressed(scancode sdl.Scancode) bool {
	for _, e := range i.events {
		if e.Type == EventKeyDown && e.Key == scancode {
			return true
		}
	}
	return false
}
