package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/oauth2"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Server      ServerConfig      `toml:"server"`
	Spotify     APIConfig         `toml:"spotify"`
	Batch       BatchConfig       `toml:"batch"`
	Cache       CacheConfig       `toml:"cache"`
	Export      ExportConfig      `toml:"export"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials and the stored user token, if any.
type SpotifyConfig struct {
	ClientID     string    `toml:"client_id"`
	ClientSecret string    `toml:"client_secret"`
	RedirectURI  string    `toml:"redirect_uri"`
	AccessToken  string    `toml:"access_token"`
	RefreshToken string    `toml:"refresh_token"`
	TokenExpiry  time.Time `toml:"token_expiry"`
}

// Map returns the credentials in the shape expected by services.NewSpotifyService.
func (s SpotifyConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     s.ClientID,
		"client_secret": s.ClientSecret,
		"redirect_uri":  s.RedirectURI,
	}
}

// HasClient reports whether an application client id and secret are configured.
func (s SpotifyConfig) HasClient() bool {
	return s.ClientID != "" && s.ClientSecret != ""
}

// Token returns the stored user token, or nil when the user has not authorized the app.
func (s SpotifyConfig) Token() *oauth2.Token {
	if s.AccessToken == "" && s.RefreshToken == "" {
		return nil
	}
	return &oauth2.Token{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       s.TokenExpiry,
	}
}

// Update stores token in the config. A refreshed token without a refresh token keeps the previous one.
func (s *SpotifyConfig) Update(token *oauth2.Token) error {
	if token == nil {
		return fmt.Errorf("%w: nil token", ErrInvalidArgument)
	}
	s.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		s.RefreshToken = token.RefreshToken
	}
	s.TokenExpiry = token.Expiry
	return nil
}

// ServerConfig contains settings for the local OAuth callback server.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// APIConfig controls how the Spotify Web API is called.
type APIConfig struct {
	BaseURL           string  `toml:"base_url"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
}

// Timeout returns the HTTP client timeout.
func (a APIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// BatchConfig holds per-endpoint batch sizes. The remote endpoints have different limits.
type BatchConfig struct {
	Tracks        int `toml:"tracks"`
	AudioFeatures int `toml:"audio_features"`
	Artists       int `toml:"artists"`
}

// CacheConfig bounds the in-process artist genre cache.
type CacheConfig struct {
	MaxEntries int `toml:"max_entries"`
	TTLMinutes int `toml:"ttl_minutes"`
}

// TTL returns the cache entry lifetime.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

// ExportConfig contains defaults for export commands.
type ExportConfig struct {
	OutputDir string `toml:"output_dir"`
	Workers   int    `toml:"workers"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// Validate rejects values the export pipeline cannot work with.
func (c *Config) Validate() error {
	switch {
	case c.Batch.Tracks < 1 || c.Batch.Tracks > 50:
		return fmt.Errorf("%w: batch.tracks must be between 1 and 50", ErrInvalidConfig)
	case c.Batch.AudioFeatures < 1 || c.Batch.AudioFeatures > 100:
		return fmt.Errorf("%w: batch.audio_features must be between 1 and 100", ErrInvalidConfig)
	case c.Batch.Artists < 1 || c.Batch.Artists > 50:
		return fmt.Errorf("%w: batch.artists must be between 1 and 50", ErrInvalidConfig)
	case c.Spotify.RequestsPerSecond < 0:
		return fmt.Errorf("%w: spotify.requests_per_second must not be negative", ErrInvalidConfig)
	case c.Cache.MaxEntries < 0:
		return fmt.Errorf("%w: cache.max_entries must not be negative", ErrInvalidConfig)
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// SaveConfig writes config to path as TOML.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
