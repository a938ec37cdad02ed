package viseme

import (
	"sort"
	"strings"

	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/scene"
)

// canonical maps phoneme and viseme codes to the Oculus viseme set.
var canonical = map[string]string{
	"sil": "sil", "silence": "sil", "rest": "sil", "idle": "sil",
	"pp": "pp", "p": "pp", "b": "pp", "m": "pp",
	"ff": "ff", "f": "ff", "v": "ff",
	"th": "th", "dh": "th",
	"dd": "dd", "t": "dd", "d": "dd",
	"kk": "kk", "k": "kk", "g": "kk",
	"ch": "ch", "jh": "ch", "j": "ch",
	"ss": "ss", "s": "ss", "z": "ss", "sh": "ss", "zh": "ss",
	"nn": "nn", "n": "nn", "l": "nn",
	"rr": "rr", "r": "rr", "er": "rr",
	"aa": "aa", "a": "aa", "ah": "aa", "aw": "aa", "ae": "aa",
	"e": "e", "eh": "e", "ey": "e",
	"i": "i", "iy": "i", "ee": "i",
	"o": "o", "oh": "o", "ow": "o",
	"u": "u", "oo": "u", "uw": "u", "w": "u",
}

// Canonical lower-cases a viseme code and maps it through the
// canonicalization table. Unknown codes are returned lower-cased.
func Canonical(code string) string {
	lowered := strings.ToLower(strings.TrimSpace(code))
	if c, ok := canonical[lowered]; ok {
		return c
	}
	return lowered
}

func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Lookup resolves shape keys and viseme codes to morph indices of one
// mesh, tolerating case, punctuation and a "viseme_" prefix.
type Lookup struct {
	keys map[string]int
}

// NewLookup indexes a morph dictionary.
func NewLookup(dict map[string]int) *Lookup {
	l := &Lookup{keys: make(map[string]int, len(dict)*4)}

	// Colliding aliases resolve to the highest index.
	names := make([]string, 0, len(dict))
	for name := range dict {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if dict[names[i]] != dict[names[j]] {
			return dict[names[i]] < dict[names[j]]
		}
		return names[i] < names[j]
	})

	for _, name := range names {
		index := dict[name]
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		lowered := strings.ToLower(trimmed)
		l.keys[trimmed] = index
		l.keys[lowered] = index
		if s := sanitize(lowered); s != "" {
			l.keys[s] = index
		}
		if bare, ok := strings.CutPrefix(lowered, "viseme_"); ok && bare != "" {
			l.keys[bare] = index
			if s := sanitize(bare); s != "" {
				l.keys[s] = index
			}
		}
	}
	return l
}

// Index resolves a single key.
func (l *Lookup) Index(key string) (int, bool) {
	if l == nil {
		return 0, false
	}
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return 0, false
	}
	lowered := strings.ToLower(trimmed)
	sanitized := sanitize(lowered)

	candidates := []string{trimmed, lowered, sanitized}
	if !strings.HasPrefix(lowered, "viseme_") {
		candidates = append(candidates, "viseme_"+lowered, "viseme-"+lowered, "viseme"+lowered)
	}
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if idx, ok := l.keys[c]; ok {
			return idx, true
		}
	}
	return 0, false
}

// Resolve maps a raw frame to a morph index: the shape key first, then the
// canonicalized viseme code with its prefixed variants.
func (l *Lookup) Resolve(f RawFrame) (int, bool) {
	if f.ShapeKey != "" {
		if idx, ok := l.Index(f.ShapeKey); ok {
			return idx, true
		}
	}

	norm := Canonical(f.Viseme)
	if norm == "" {
		return 0, false
	}
	candidates := []string{f.Viseme, norm}
	if !strings.HasPrefix(norm, "viseme_") {
		candidates = append(candidates, "viseme_"+norm, "viseme-"+norm, "viseme"+norm)
	}
	if len(norm) == 1 {
		candidates = append(candidates, "viseme_"+norm+norm)
	}
	for _, c := range candidates {
		if idx, ok := l.Index(c); ok {
			return idx, true
		}
	}
	return 0, false
}

// mouthWords score a mesh's suitability for lip-sync.
var mouthWords = []string{"viseme", "mouth", "lip"}

// SelectMesh picks the primary lip-sync mesh under root: the mesh whose
// morph names mention the mouth vocabulary most often (first in traversal
// order on ties), else the first mesh with morph targets. Returns nil when
// no mesh has morphs.
func SelectMesh(root *scene.Node) *scene.Mesh {
	if root == nil {
		return nil
	}
	var chosen *scene.Mesh
	best := 0
	root.EachMesh(func(_ *scene.Node, m *scene.Mesh) {
		if !m.HasMorphs() {
			return
		}
		score := mouthScore(m)
		if chosen == nil || score > best {
			chosen, best = m, score
		}
	})
	return chosen
}

func mouthScore(m *scene.Mesh) int {
	score := 0
	for name := range m.MorphDict {
		n := strings.ToLower(name)
		for _, w := range mouthWords {
			if strings.Contains(n, w) {
				score++
				break
			}
		}
	}
	return score
}
