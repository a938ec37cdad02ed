package config

import "flag"

var (
	flagConfig     = flag.String("config", "", "Path to config file")
	flagDebug      = flag.Bool("debug", false, "Enable debug logging")
	flagWindowed   = flag.Bool("windowed", false, "Run in windowed mode")
	flagFullscreen = flag.Bool("fullscreen", false, "Run in fullscreen mode")
	flagWidth      = flag.Int("width", 0, "Window width")
	flagHeight     = flag.Int("height", 0, "Window height")
	flagOutfit     = flag.String("outfit", "", "Outfit key (predeterminado, traje, vestido or alias)")
	flagBackground = flag.String("background", "", "Background colour, image URL or preset key")
	flagEmpresa    = flag.String("empresa", "", "Empresa to resolve the viewer configuration for")
	flagSede       = flag.String("sede", "", "Sede to resolve the viewer configuration for")
	flagBackend    = flag.String("backend", "", "Backend base URL")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagWindowed {
		cfg.Graphics.Fullscreen = false
	}
	if *flagFullscreen {
		cfg.Graphics.Fullscreen = true
	}
	if *flagWidth > 0 {
		cfg.Graphics.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Graphics.Height = *flagHeight
	}
	if *flagOutfit != "" {
		cfg.Viewer.Outfit = *flagOutfit
	}
	if *flagBackground != "" {
		cfg.Viewer.Background = *flagBackground
	}
	if *flagEmpresa != "" {
		cfg.Backend.Empresa = *flagEmpresa
	}
	if *flagSede != "" {
		cfg.Backend.Sede = *flagSede
	}
	if *flagBackend != "" {
		cfg.Backend.BaseURL = *flagBackend
	}
}
