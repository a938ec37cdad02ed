package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestAssetResolver(t *testing.T) {
	r := AssetResolver{BaseURL: "https://cdn.example.com/assets/"}
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"   ", ""},
		{"https://x.test/logo.png", "https://x.test/logo.png"},
		{"  HTTP://x.test/a.png ", "HTTP://x.test/a.png"},
		{"data:image/png;base64,AAAA", "data:image/png;base64,AAAA"},
		{"/acme/centro/logo.png", "https://cdn.example.com/assets/acme/centro/logo.png"},
		{"acme/fondo.jpg", "https://cdn.example.com/assets/acme/fondo.jpg"},
	}
	for _, tt := range tests {
		if got := r.Resolve(tt.in); got != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if got := (AssetResolver{}).Resolve("logo.png"); got != "/logo.png" {
		t.Errorf("Resolve without base = %q, want /logo.png", got)
	}
}

func TestRecordResolve(t *testing.T) {
	assets := AssetResolver{BaseURL: "http://api.local"}
	tests := []struct {
		name       string
		rec        Record
		model      string
		background string
		logo       string
		hair       string
		lang       string
	}{
		{
			name:       "defaults",
			rec:        Record{},
			model:      "models/Avatar.glb",
			background: "",
			hair:       "unset",
			lang:       "es",
		},
		{
			name:       "alias and fondo",
			rec:        Record{Vestimenta: "casual", Fondo: "moderno", Idioma: "en"},
			model:      "models/vestido.glb",
			background: "moderno",
			hair:       "unset",
			lang:       "en",
		},
		{
			name:       "uploaded background wins",
			rec:        Record{Fondo: "oficina", BackgroundPath: "acme/fondo.jpg", LogoPath: "/acme/logo.png"},
			model:      "models/Avatar.glb",
			background: "http://api.local/acme/fondo.jpg",
			logo:       "http://api.local/acme/logo.png",
			hair:       "unset",
			lang:       "es",
		},
		{
			name:       "hair colour",
			rec:        Record{Vestimenta: "traje", ColorCabello: "#aa3300"},
			model:      "models/traje.glb",
			hair:       "#aa3300",
			lang:       "es",
		},
		{
			name:  "hair reset",
			rec:   Record{ColorCabello: "default"},
			model: "models/Avatar.glb",
			hair:  "reset",
			lang:  "es",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := tt.rec.Resolve(assets)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			a := cfg.Appearance
			if a.ModelURL != tt.model {
				t.Errorf("ModelURL = %q, want %q", a.ModelURL, tt.model)
			}
			if a.Background != tt.background {
				t.Errorf("Background = %q, want %q", a.Background, tt.background)
			}
			if a.LogoURL != tt.logo {
				t.Errorf("LogoURL = %q, want %q", a.LogoURL, tt.logo)
			}
			if got := a.HairColor.String(); got != tt.hair {
				t.Errorf("HairColor = %s, want %s", got, tt.hair)
			}
			if cfg.Language != tt.lang {
				t.Errorf("Language = %q, want %q", cfg.Language, tt.lang)
			}
		})
	}
}

func TestRecordResolveBadHair(t *testing.T) {
	if _, err := (Record{ColorCabello: "not-a-colour"}).Resolve(AssetResolver{}); err == nil {
		t.Error("expected error for unparseable hair colour")
	}
}

func TestResolveConfig(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/avatar/config" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.URL.Query().Get("empresa") != "acme" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("sede") != "centro norte" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":7,"empresa":"acme","sede":"centro norte","vestimenta":"ejecutivo",
			"fondo":"naturaleza","voz":"es-CO-SalomeNeural","idioma":null,"logoPath":"/acme/logo.png",
			"backgroundPath":null,"colorCabello":null,"isActive":true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", time.Second, nil)
	ctx := context.Background()

	cfg, err := c.ResolveConfig(ctx, "acme", "centro norte")
	if err != nil {
		t.Fatalf("ResolveConfig: %v", err)
	}
	if cfg.Appearance.Outfit != "traje" || cfg.Appearance.Background != "naturaleza" {
		t.Errorf("appearance = %+v", cfg.Appearance)
	}
	if cfg.Appearance.LogoURL != srv.URL+"/acme/logo.png" {
		t.Errorf("LogoURL = %q", cfg.Appearance.LogoURL)
	}
	if !cfg.Appearance.HairColor.IsUnset() {
		t.Errorf("null colorCabello should leave hair unset, got %s", cfg.Appearance.HairColor)
	}
	if cfg.Voice != "es-CO-SalomeNeural" || cfg.Language != "es" || !cfg.Active {
		t.Errorf("cfg = %+v", cfg)
	}

	if _, err := c.ResolveConfig(ctx, "other", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing config error = %v, want ErrNotFound", err)
	}

	_, err = c.ResolveConfig(ctx, "acme", "sur")
	if err == nil || !strings.Contains(err.Error(), "500") || !strings.Contains(err.Error(), "boom") {
		t.Errorf("server error = %v", err)
	}
}

func TestAnnounce(t *testing.T) {
	var got AnnounceRequest
	var query, key string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/avatar/announce" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		query = r.URL.RawQuery
		key = r.Header.Get("X-Api-Key")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"empresa":"acme","sede":"centro","texto":"Turno A12, módulo 3",
			"audioUrl":"data:audio/mpeg;base64,AAAA",
			"visemas":[{"shapeKey":"viseme_aa","tiempo":0,"id":1},{"shapeKey":"viseme_PP","tiempo":300,"id":21}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, nil)
	c.APIKey = "secret"
	req := AnnounceRequest{Empresa: "acme", Sede: "centro", Modulo: "3", Turno: "A12", Nombre: "Ana"}

	out, err := c.Announce(context.Background(), req, "", "")
	if err != nil {
		t.Fatalf("Announce: %v", err)
	}
	if got != req {
		t.Errorf("body = %+v, want %+v", got, req)
	}
	if query != "idioma=es" {
		t.Errorf("query = %q, want idioma=es", query)
	}
	if key != "secret" {
		t.Errorf("X-Api-Key = %q", key)
	}
	if out.AudioURL != "data:audio/mpeg;base64,AAAA" || len(out.Visemas) != 2 {
		t.Fatalf("announcement = %+v", out)
	}
	if out.Visemas[1].ShapeKey != "viseme_PP" || out.Visemas[1].Time != 300 {
		t.Errorf("second frame = %+v", out.Visemas[1])
	}

	if _, err := c.Announce(context.Background(), req, "en", "en-US-Jenny"); err != nil {
		t.Fatalf("Announce with voice: %v", err)
	}
	if query != "idioma=en&voz=en-US-Jenny" {
		t.Errorf("query = %q", query)
	}
}

func TestAPIKeySentOnEveryCall(t *testing.T) {
	keys := make(map[string]string)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		keys[r.URL.Path] = r.Header.Get("X-Api-Key")
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/api/avatar/config" {
			w.Write([]byte(`{"empresa":"acme","sede":"centro","vestimenta":"casual","isActive":true}`))
			return
		}
		w.Write([]byte(`{"audioUrl":"/audio/a1.mp3","visemas":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, nil)
	c.APIKey = "secret"
	ctx := context.Background()

	if _, err := c.FetchConfig(ctx, "acme", "centro"); err != nil {
		t.Fatalf("FetchConfig: %v", err)
	}
	if _, err := c.Announce(ctx, AnnounceRequest{Turno: "A1"}, "es", ""); err != nil {
		t.Fatalf("Announce: %v", err)
	}
	for _, path := range []string{"/api/avatar/config", "/api/avatar/announce"} {
		if got := keys[path]; got != "secret" {
			t.Errorf("%s X-Api-Key = %q, want secret", path, got)
		}
	}

	c.APIKey = ""
	if _, err := c.FetchConfig(ctx, "acme", "centro"); err != nil {
		t.Fatalf("FetchConfig without key: %v", err)
	}
	if got := keys["/api/avatar/config"]; got != "" {
		t.Errorf("X-Api-Key = %q without a configured key", got)
	}
}

func TestAnnounceFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"No fue posible generar la locución."}`, http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, nil)
	_, err := c.Announce(context.Background(), AnnounceRequest{Turno: "1"}, "es", "")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.HasPrefix(err.Error(), "announce failed (502)") {
		t.Errorf("error = %v", err)
	}
}
