package config

import (
	"time"

	"github.com/rovista/listingflow/internal/session"
)

// Default settings values.
const (
	DefaultListenAddr  = ":8080"
	DefaultCallTimeout = 30 * time.Second
	DefaultTextModel   = "gpt-4o"
	DefaultImageModel  = "dall-e-3"
	DefaultAssetDir    = "assets"
	DefaultDestination = "facebook"
)

// Settings is the typed view of the orchestrator configuration.
// Secrets (API keys, signing keys, publish tokens) never live here; they
// are read from the environment at startup.
type Settings struct {
	// ListenAddr is the HTTP listen address for the WebSocket endpoint.
	ListenAddr string

	// SessionTTL is the idle lifetime of a session before the sweeper
	// removes it.
	SessionTTL time.Duration

	// SweepInterval is how often expired sessions are collected.
	SweepInterval time.Duration

	// CallTimeout bounds each outbound collaborator call.
	CallTimeout time.Duration

	// VisualAssets enables the image-generation steps of the graph.
	VisualAssets bool

	// Identities lists the client identities allowed to connect. Empty
	// means any identity with a valid token is accepted.
	Identities []string

	// Destination is the social channel posts are published to.
	Destination string

	// PublishEndpoint is the social publish API base URL. Empty disables
	// real publishing.
	PublishEndpoint string

	// TextModel and ImageModel select the generation models.
	TextModel  string
	ImageModel string

	// AssetDir is where generated images are written.
	AssetDir string

	// HistoryPath is the SQLite file for the turn-record trail. Empty
	// keeps history in memory.
	HistoryPath string

	// Metrics and Tracing toggle OpenTelemetry instrumentation.
	Metrics bool
	Tracing bool

	// LogLevel is one of debug, info, warn, error.
	LogLevel string
}

// Defaults returns Settings with every field at its default value.
func Defaults() Settings {
	return Settings{
		ListenAddr:    DefaultListenAddr,
		SessionTTL:    session.DefaultTTL,
		SweepInterval: session.DefaultSweepInterval,
		CallTimeout:   DefaultCallTimeout,
		VisualAssets:  true,
		Destination:   DefaultDestination,
		TextModel:     DefaultTextModel,
		ImageModel:    DefaultImageModel,
		AssetDir:      DefaultAssetDir,
		LogLevel:      "info",
	}
}

// SettingsFrom extracts typed Settings from a Config, falling back to
// defaults for missing keys.
func SettingsFrom(c Config) Settings {
	d := Defaults()
	return Settings{
		ListenAddr:      c.String("listen_addr", d.ListenAddr),
		SessionTTL:      c.Duration("session_ttl", d.SessionTTL),
		SweepInterval:   c.Duration("sweep_interval", d.SweepInterval),
		CallTimeout:     c.Duration("call_timeout", d.CallTimeout),
		VisualAssets:    c.Bool("visual_assets", d.VisualAssets),
		Identities:      c.StringSlice("identities", nil),
		Destination:     c.String("destination", d.Destination),
		PublishEndpoint: c.String("publish_endpoint", ""),
		TextModel:       c.String("text_model", d.TextModel),
		ImageModel:      c.String("image_model", d.ImageModel),
		AssetDir:        c.String("asset_dir", d.AssetDir),
		HistoryPath:     c.String("history_path", ""),
		Metrics:         c.Bool("metrics", false),
		Tracing:         c.Bool("tracing", false),
		LogLevel:        c.String("log_level", d.LogLevel),
	}
}

// SettingsFromFile loads a config file and extracts typed Settings.
// An empty path returns defaults.
func SettingsFromFile(path string) (Settings, error) {
	if path == "" {
		return Defaults(), nil
	}
	c, err := FromFile(path)
	if err != nil {
		return Settings{}, err
	}
	return SettingsFrom(c), nil
}
