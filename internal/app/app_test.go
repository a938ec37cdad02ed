package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/backend"
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/config"
)

func newTestApp(cfg *config.Config) *App {
	a := &App{
		cfg:      cfg,
		log:      zap.NewNop(),
		language: cfg.Backend.Language,
		voice:    cfg.Backend.Voice,
	}
	a.ctx, a.cancel = context.WithCancel(context.Background())
	if cfg.Backend.BaseURL != "" {
		a.backend = backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, nil)
	}
	return a
}

func TestInstanceID(t *testing.T) {
	tests := []struct {
		b    config.BackendConfig
		want string
	}{
		{config.BackendConfig{}, ""},
		{config.BackendConfig{Empresa: "acme", Sede: "centro"}, "acme/centro"},
	}
	for _, tt := range tests {
		if got := instanceID(tt.b); got != tt.want {
			t.Errorf("instanceID(%+v) = %q, want %q", tt.b, got, tt.want)
		}
	}
}

func TestResolveAppearanceLocal(t *testing.T) {
	cfg := config.Default()
	cfg.Viewer.Outfit = "ejecutivo"
	cfg.Viewer.Background = "#112233"
	cfg.Viewer.HairColor = "none"

	a := newTestApp(cfg)
	defer a.cancel()

	got, err := a.resolveAppearance()
	if err != nil {
		t.Fatal(err)
	}
	if got.Outfit != "ejecutivo" || got.Background != "#112233" {
		t.Errorf("appearance = %+v", got)
	}
	if !got.HairColor.IsReset() {
		t.Errorf("hair = %v, want reset", got.HairColor)
	}
}

func TestResolveAppearanceBadHair(t *testing.T) {
	cfg := config.Default()
	cfg.Viewer.HairColor = "not a colour"
	a := newTestApp(cfg)
	defer a.cancel()

	if _, err := a.resolveAppearance(); err == nil {
		t.Error("expected error for invalid hair colour")
	}
}

func TestResolveAppearanceFromBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("empresa") != "acme" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"vestimenta":"casual","fondo":"moderno","idioma":"en","voz":"en-US-Jenny","colorCabello":"#aa3300"}`))
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Backend.BaseURL = srv.URL
	cfg.Backend.Empresa = "acme"
	cfg.Backend.Sede = "centro"
	cfg.Backend.Timeout = time.Second

	a := newTestApp(cfg)
	defer a.cancel()

	got, err := a.resolveAppearance()
	if err != nil {
		t.Fatal(err)
	}
	if got.ModelURL != "models/vestido.glb" || got.Background != "moderno" {
		t.Errorf("appearance = %+v", got)
	}
	if got.HairColor.String() != "#aa3300" {
		t.Errorf("hair = %v", got.HairColor)
	}
	if a.language != "en" || a.voice != "en-US-Jenny" {
		t.Errorf("language/voice = %q/%q", a.language, a.voice)
	}
}

func TestResolveAppearanceBackendDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Backend.BaseURL = srv.URL
	cfg.Backend.Empresa = "acme"
	cfg.Backend.Sede = "norte"
	cfg.Viewer.Outfit = "traje"

	a := newTestApp(cfg)
	defer a.cancel()

	got, err := a.resolveAppearance()
	if err != nil {
		t.Fatal(err)
	}
	if got.Outfit != "traje" {
		t.Errorf("expected local fallback, got %+v", got)
	}
	if a.language != "es" {
		t.Errorf("language = %q", a.language)
	}
}
