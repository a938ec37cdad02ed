// Package config handles viewer configuration loading and management.
package config

import "time"

// Config holds all viewer settings.
type Config struct {
	Graphics  GraphicsConfig  `yaml:"graphics"`
	Audio     AudioConfig     `yaml:"audio"`
	Viewer    ViewerConfig    `yaml:"viewer"`
	Backend   BackendConfig   `yaml:"backend"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// GraphicsConfig holds display and rendering settings.
type GraphicsConfig struct {
	Width          int  `yaml:"width"`
	Height         int  `yaml:"height"`
	Fullscreen     bool `yaml:"fullscreen"`
	VSync          bool `yaml:"vsync"`
	FPSLimit       int  `yaml:"fps_limit"`
	MaxTextureSize int  `yaml:"max_texture_size"` // Larger images are downscaled on decode
}

// AudioConfig holds narration playback settings.
type AudioConfig struct {
	MasterVolume float32 `yaml:"master_volume"`
	Muted        bool    `yaml:"muted"`
}

// ViewerConfig holds the initial appearance of the avatar.
type ViewerConfig struct {
	AssetBase         string                  `yaml:"asset_base"` // Prefix for relative model paths
	ModelURL          string                  `yaml:"model_url"`  // Overrides the outfit's model
	Outfit            string                  `yaml:"outfit"`
	Background        string                  `yaml:"background"` // Colour, image URL or preset key
	LogoURL           string                  `yaml:"logo_url"`
	HairColor         string                  `yaml:"hair_color"`
	FieldOfView       float32                 `yaml:"field_of_view"` // Degrees
	BackgroundOptions BackgroundOptionsConfig `yaml:"background_options"`
}

// BackgroundOptionsConfig mirrors the viewer's background options.
type BackgroundOptionsConfig struct {
	Blur         float32 `yaml:"blur"`
	Intensity    float32 `yaml:"intensity"`
	EnvIntensity float32 `yaml:"env_intensity"`
	RotationDeg  float32 `yaml:"rotation_deg"`
}

// BackendConfig holds the configuration/TTS service connection.
type BackendConfig struct {
	BaseURL  string        `yaml:"base_url"`
	APIKey   string        `yaml:"api_key"` // Sent as X-Api-Key on announce
	Empresa  string        `yaml:"empresa"`
	Sede     string        `yaml:"sede"`
	Language string        `yaml:"language"`
	Voice    string        `yaml:"voice"`
	Timeout  time.Duration `yaml:"timeout"`
}

// TelemetryConfig holds metrics export settings.
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name"`
	PrometheusBind string `yaml:"prometheus_bind"` // Empty disables the endpoint
	OTLPEndpoint   string `yaml:"otlp_endpoint"`   // Traces go to stdout when empty and TraceStdout is set
	OTLPInsecure   bool   `yaml:"otlp_insecure"`
	TraceStdout    bool   `yaml:"trace_stdout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
	Format  string `yaml:"format"` // console or json, for the log file
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Graphics: GraphicsConfig{
			Width:          1280,
			Height:         720,
			Fullscreen:     false,
			VSync:          true,
			FPSLimit:       0,
			MaxTextureSize: 4096,
		},
		Audio: AudioConfig{
			MasterVolume: 1.0,
			Muted:        false,
		},
		Viewer: ViewerConfig{
			AssetBase:   "./assets",
			Outfit:      "predeterminado",
			Background:  "oficina",
			FieldOfView: 35,
			BackgroundOptions: BackgroundOptionsConfig{
				Blur:         0,
				Intensity:    1,
				EnvIntensity: 1,
				RotationDeg:  0,
			},
		},
		Backend: BackendConfig{
			BaseURL:  "",
			Language: "es",
			Timeout:  15 * time.Second,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "avatar-viewer",
			PrometheusBind: "",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
			Format:  "console",
		},
	}
}
