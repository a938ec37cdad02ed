// Package backend talks to the avatar configuration and announcement
// service.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/appearance"
	"github.com/pepelepew13/Avatar-3D-Sentry-sub000/internal/engine/viseme"
)

// ErrNotFound is returned when no configuration exists for an empresa/sede.
var ErrNotFound = errors.New("backend: configuration not found")

// DefaultLanguage is used when no language is configured.
const DefaultLanguage = "es"

const apiKeyHeader = "X-Api-Key"

// errorBodyLimit caps how much of an error response is quoted.
const errorBodyLimit = 512

// Client is an HTTP client for the backend.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
	Assets  AssetResolver

	log *zap.Logger
}

// NewClient creates a client for baseURL.
func NewClient(baseURL string, timeout time.Duration, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	return &Client{
		BaseURL: base,
		HTTP:    &http.Client{Timeout: timeout},
		Assets:  AssetResolver{BaseURL: base},
		log:     log,
	}
}

// Record is the configuration row served for an empresa/sede pair.
type Record struct {
	ID             int    `json:"id"`
	Empresa        string `json:"empresa"`
	Sede           string `json:"sede"`
	Vestimenta     string `json:"vestimenta"`
	Fondo          string `json:"fondo"`
	Voz            string `json:"voz"`
	Idioma         string `json:"idioma"`
	LogoPath       string `json:"logoPath"`
	BackgroundPath string `json:"backgroundPath"`
	ColorCabello   string `json:"colorCabello"`
	IsActive       bool   `json:"isActive"`
}

// ViewerConfig is a resolved configuration ready for the viewer.
type ViewerConfig struct {
	Appearance appearance.Appearance
	Language   string
	Voice      string
	Active     bool
}

// Resolve maps the record onto an appearance. An uploaded background
// image wins over the fondo key. A missing or null hair colour leaves the
// outfit default in place; "default" or "none" resets it.
func (r Record) Resolve(assets AssetResolver) (ViewerConfig, error) {
	app := appearance.Appearance{
		Outfit:     r.Vestimenta,
		Background: r.Fondo,
		LogoURL:    assets.Resolve(r.LogoPath),
	}
	if bg := assets.Resolve(r.BackgroundPath); bg != "" {
		app.Background = bg
	}
	hair, err := appearance.ParseHairColor(r.ColorCabello)
	if err != nil {
		return ViewerConfig{}, err
	}
	app.HairColor = hair

	lang := strings.TrimSpace(r.Idioma)
	if lang == "" {
		lang = DefaultLanguage
	}
	return ViewerConfig{
		Appearance: app.Normalize(),
		Language:   lang,
		Voice:      strings.TrimSpace(r.Voz),
		Active:     r.IsActive,
	}, nil
}

// FetchConfig fetches the raw configuration record.
func (c *Client) FetchConfig(ctx context.Context, empresa, sede string) (*Record, error) {
	q := url.Values{}
	q.Set("empresa", empresa)
	q.Set("sede", sede)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/avatar/config?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	c.authorize(req)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("config request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s/%s: %w", empresa, sede, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("config failed (%d): %s", resp.StatusCode, readError(resp.Body))
	}

	var rec Record
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &rec, nil
}

// ResolveConfig fetches and resolves the configuration for empresa/sede.
func (c *Client) ResolveConfig(ctx context.Context, empresa, sede string) (ViewerConfig, error) {
	rec, err := c.FetchConfig(ctx, empresa, sede)
	if err != nil {
		return ViewerConfig{}, err
	}
	cfg, err := rec.Resolve(c.Assets)
	if err != nil {
		return ViewerConfig{}, fmt.Errorf("resolving config %s/%s: %w", empresa, sede, err)
	}
	c.log.Info("configuration resolved",
		zap.String("empresa", empresa),
		zap.String("sede", sede),
		zap.String("outfit", cfg.Appearance.Outfit),
		zap.String("background", cfg.Appearance.Background),
		zap.Stringer("hair", cfg.Appearance.HairColor),
	)
	return cfg, nil
}

// AnnounceRequest names the turn to announce.
type AnnounceRequest struct {
	Empresa string `json:"empresa"`
	Sede    string `json:"sede"`
	Modulo  string `json:"modulo"`
	Turno   string `json:"turno"`
	Nombre  string `json:"nombre"`
}

// Announcement is the synthesized narration for a turn.
type Announcement struct {
	Empresa  string            `json:"empresa"`
	Sede     string            `json:"sede"`
	Texto    string            `json:"texto"`
	AudioURL string            `json:"audioUrl"`
	Visemas  []viseme.RawFrame `json:"visemas"`
}

// Announce asks the backend to synthesize the announcement. language
// defaults to DefaultLanguage; an empty voice lets the backend choose.
func (c *Client) Announce(ctx context.Context, ar AnnounceRequest, language, voice string) (*Announcement, error) {
	body, err := json.Marshal(ar)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(language) == "" {
		language = DefaultLanguage
	}
	q := url.Values{}
	q.Set("idioma", language)
	if voice != "" {
		q.Set("voz", voice)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/avatar/announce?"+q.Encode(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("announce request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("announce failed (%d): %s", resp.StatusCode, readError(resp.Body))
	}

	var out Announcement
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding announcement: %w", err)
	}
	c.log.Debug("announcement synthesized",
		zap.String("turno", ar.Turno),
		zap.Int("visemas", len(out.Visemas)),
		zap.Duration("took", time.Since(start)),
	)
	return &out, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.APIKey != "" {
		req.Header.Set(apiKeyHeader, c.APIKey)
	}
}

func readError(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, errorBodyLimit))
	return strings.TrimSpace(string(b))
}

// AssetResolver turns stored asset paths into fetchable URLs. Results are
// not cached: signed URLs may expire.
type AssetResolver struct {
	BaseURL string
}

// Resolve returns absolute http(s) and data: URLs unchanged, joins other
// paths onto BaseURL and maps blank input to "".
func (r AssetResolver) Resolve(path string) string {
	p := strings.TrimSpace(path)
	if p == "" {
		return ""
	}
	lower := strings.ToLower(p)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "data:") {
		return p
	}
	rel := strings.TrimLeft(p, "/")
	if r.BaseURL == "" {
		return "/" + rel
	}
	return strings.TrimRight(r.BaseURL, "/") + "/" + rel
}
