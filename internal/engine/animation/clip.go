// Package animation samples keyframed clips and blends them onto scene
// nodes and morph weights, in the manner of a small animation mixer.
package animation

import (
	"sort"
	"strings"

	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/scene"
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/pkg/math"
)

// Path is the property a channel animates.
type Path int

const (
	PathTranslation Path = iota
	PathRotation
	PathScale
	PathWeights
)

// Interpolation is the keyframe interpolation mode.
type Interpolation int

const (
	InterpolationLinear Interpolation = iota
	InterpolationStep
	InterpolationCubicSpline
)

// Channel animates one property of one node. For PathWeights the target is
// every mesh on the node and Stride is the morph count.
//
// Values holds Stride floats per key, or 3*Stride for cubic splines laid
// out as in-tangent, value, out-tangent.
type Channel struct {
	Node          *scene.Node
	Path          Path
	Interpolation Interpolation
	Times         []float32
	Values        []float32
	Stride        int
}

// Clip is a named set of channels.
type Clip struct {
	Name     string
	Duration float32 // Seconds
	Channels []Channel
}

// NewClip builds a clip whose duration is the latest key time.
func NewClip(name string, channels []Channel) *Clip {
	c := &Clip{Name: name, Channels: channels}
	for _, ch := range channels {
		if n := len(ch.Times); n > 0 && ch.Times[n-1] > c.Duration {
			c.Duration = ch.Times[n-1]
		}
	}
	return c
}

// FindByName returns the clip named exactly name, or nil.
func FindByName(clips []*Clip, name string) *Clip {
	for _, c := range clips {
		if c != nil && c.Name == name {
			return c
		}
	}
	return nil
}

// FindByNames returns the first clip whose lower-cased name contains any
// of names, or nil.
func FindByNames(clips []*Clip, names ...string) *Clip {
	for _, c := range clips {
		if c == nil || c.Name == "" {
			continue
		}
		n := strings.ToLower(c.Name)
		for _, k := range names {
			if strings.Contains(n, strings.ToLower(k)) {
				return c
			}
		}
	}
	return nil
}

// components returns the width of one sampled value.
func (ch *Channel) components() int {
	switch ch.Path {
	case PathTranslation, PathScale:
		return 3
	case PathRotation:
		return 4
	default:
		return ch.Stride
	}
}

// Sample writes the channel value at time t into out, which must hold
// components() floats.
func (ch *Channel) Sample(t float32, out []float32) {
	n := len(ch.Times)
	stride := ch.components()
	if n == 0 || stride == 0 {
		return
	}

	if t <= ch.Times[0] || n == 1 {
		copy(out, ch.keyValue(0, stride))
		return
	}
	if t >= ch.Times[n-1] {
		copy(out, ch.keyValue(n-1, stride))
		return
	}

	// Keys are sorted; find the first key after t.
	next := sort.Search(n, func(i int) bool { return ch.Times[i] > t })
	prev := next - 1
	t0, t1 := ch.Times[prev], ch.Times[next]
	dt := t1 - t0
	u := float32(0)
	if dt > 0 {
		u = (t - t0) / dt
	}

	switch ch.Interpolation {
	case InterpolationStep:
		copy(out, ch.keyValue(prev, stride))
	case InterpolationCubicSpline:
		ch.hermite(prev, next, u, dt, stride, out)
	default:
		a, b := ch.keyValue(prev, stride), ch.keyValue(next, stride)
		if ch.Path == PathRotation {
			q := math.Quat{X: a[0], Y: a[1], Z: a[2], W: a[3]}.Slerp(math.Quat{X: b[0], Y: b[1], Z: b[2], W: b[3]}, u)
			out[0], out[1], out[2], out[3] = q.X, q.Y, q.Z, q.W
			return
		}
		for i := 0; i < stride; i++ {
			out[i] = a[i] + (b[i]-a[i])*u
		}
	}
}

func (ch *Channel) keyValue(k, stride int) []float32 {
	if ch.Interpolation == InterpolationCubicSpline {
		base := k*3*stride + stride
		return ch.Values[base : base+stride]
	}
	return ch.Values[k*stride : (k+1)*stride]
}

func (ch *Channel) hermite(prev, next int, u, dt float32, stride int, out []float32) {
	p0 := ch.keyValue(prev, stride)
	p1 := ch.keyValue(next, stride)
	m0 := ch.Values[prev*3*stride+2*stride : prev*3*stride+3*stride] // out-tangent
	m1 := ch.Values[next*3*stride : next*3*stride+stride]            // in-tangent

	u2, u3 := u*u, u*u*u
	h00 := 2*u3 - 3*u2 + 1
	h10 := u3 - 2*u2 + u
	h01 := -2*u3 + 3*u2
	h11 := u3 - u2
	for i := 0; i < stride; i++ {
		out[i] = h00*p0[i] + h10*dt*m0[i] + h01*p1[i] + h11*dt*m1[i]
	}
	if ch.Path == PathRotation {
		q := math.Quat{X: out[0], Y: out[1], Z: out[2], W: out[3]}.Normalize()
		out[0], out[1], out[2], out[3] = q.X, q.Y, q.Z, q.W
	}
}
