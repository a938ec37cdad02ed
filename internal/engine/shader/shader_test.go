package shader

import (
	"errors"
	"strings"
	"testing"
)

func TestPatchHairTint(t *testing.T) {
	out, err := PatchHairTint(MeshFragment)
	if err != nil {
		t.Fatalf("PatchHairTint: %v", err)
	}

	if !strings.HasPrefix(out, "#version 410 core\n") {
		t.Errorf("#version must stay the first line, got %q", out[:40])
	}
	if strings.Contains(out, TintAnchor) {
		t.Error("anchor statement still present")
	}
	for _, u := range []string{UniformHairTint, UniformHairStrength, UniformHairLift} {
		if !strings.Contains(out, u+";") {
			t.Errorf("uniform %s not declared", u)
		}
	}
	if !strings.Contains(out, "vec4 diffuseColor = vec4(lightened, opacity);") {
		t.Error("tinted diffuse statement missing")
	}
	if strings.Index(out, "uniform vec3  uHairTint;") > strings.Index(out, "void main()") {
		t.Error("uniforms must be declared before main")
	}

	again, err := PatchHairTint(out)
	if err != nil {
		t.Fatalf("second PatchHairTint: %v", err)
	}
	if again != out {
		t.Error("patching twice should be a no-op")
	}
	if !IsHairTinted(out) || IsHairTinted(MeshFragment) {
		t.Error("IsHairTinted mismatch")
	}
}

func TestPatchHairTintWithoutVersion(t *testing.T) {
	src := "uniform vec3 diffuse;\nuniform float opacity;\nvoid main() {\n\t" + TintAnchor + "\n}\n"
	out, err := PatchHairTint(src)
	if err != nil {
		t.Fatalf("PatchHairTint: %v", err)
	}
	if !strings.HasPrefix(out, "\nuniform vec3  uHairTint;") {
		t.Errorf("uniforms should lead a source without #version, got %q", out[:30])
	}
}

func TestPatchHairTintNoAnchor(t *testing.T) {
	if _, err := PatchHairTint(BackgroundFragment); !errors.Is(err, ErrNoTintAnchor) {
		t.Errorf("err = %v, want ErrNoTintAnchor", err)
	}
}
