package config

import "github.com/hyperjump/textfilter/internal/filters"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Filters.HighlightClass == "" {
		cfg.Filters.HighlightClass = filters.DefaultHighlightClass
	}
	if cfg.Templates.Extensions == nil {
		cfg.Templates.Extensions = []string{".html", ".tmpl"}
	}
}
