package dashboard

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/farmdash/geometry"
)

// Config holds all dashboard configuration.
type Config struct {
	DBPath string `yaml:"db_path"`

	// PagePath or PageURL point at the server-rendered farm dashboard.
	// PageURL wins when both are set.
	PagePath string `yaml:"page_path"`
	PageURL  string `yaml:"page_url"`

	Viewport geometry.Viewport `yaml:"viewport"`
	// Card is the card size assumed when no browser measures it.
	Card geometry.Size `yaml:"card"`
	Grid GridConfig    `yaml:"grid"`

	// ExchangeURL serves the Flower exchange table. Empty disables fiat
	// conversion.
	ExchangeURL string `yaml:"exchange_url"`
	Listen      string `yaml:"listen"`

	Browser BrowserConfig `yaml:"browser"`

	// Prices, IslandType and VIP override what the page publishes.
	Prices     map[string]string `yaml:"prices"`
	IslandType string            `yaml:"island_type"`
	VIP        *bool             `yaml:"vip"`

	// Timezone formats card dates. Default: America/Sao_Paulo.
	Timezone string `yaml:"timezone"`

	FetchTimeout time.Duration `yaml:"fetch_timeout"`
}

// GridConfig maps data-grid-* coordinates to pixels.
type GridConfig struct {
	CellSize float64 `yaml:"cell_size"`
	OriginX  float64 `yaml:"origin_x"`
	OriginY  float64 `yaml:"origin_y"`
}

// BrowserConfig enables live measurement through Chrome.
type BrowserConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Remote       string `yaml:"remote"`
	CardSelector string `yaml:"card_selector"`
}

func (c *Config) defaults() {
	if c.DBPath == "" {
		c.DBPath = "farmdash.db"
	}
	if c.Viewport.Width <= 0 || c.Viewport.Height <= 0 {
		c.Viewport = geometry.Viewport{Width: 1366, Height: 768}
	}
	if c.Card.Width <= 0 || c.Card.Height <= 0 {
		c.Card = geometry.Size{Width: 320, Height: 280}
	}
	if c.Listen == "" {
		c.Listen = ":8085"
	}
	if c.Browser.CardSelector == "" {
		c.Browser.CardSelector = "#resource-summary-card"
	}
	if c.Timezone == "" {
		c.Timezone = "America/Sao_Paulo"
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 15 * time.Second
	}
}

// LoadConfigFile reads a YAML config file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
