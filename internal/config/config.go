// Package config parses and validates the command-line surface: upstream
// address, local port, blocklist path, and the verbose flag.
package config

import (
	"flag"
	"fmt"
	"net"
)

// Config holds the validated startup configuration.
type Config struct {
	Upstream  string // Upstream resolver: dotted-quad IPv4 or hostname.
	Port      int    // Local UDP port to listen on.
	Blocklist string // Path to the blocklist file.
	Verbose   bool   // Enable per-request debug logging.
}

// Parse reads args (excluding the program name) into a Config. It does not
// validate the result; call Validate separately so a caller can distinguish
// a flag-parsing error from a semantic one.
func Parse(args []string) (*Config, error) {
	fs := flag.NewFlagSet("dnsfilter", flag.ContinueOnError)

	cfg := &Config{}
	fs.StringVar(&cfg.Upstream, "upstream", "", "upstream DNS resolver address (IPv4 or hostname), required")
	fs.IntVar(&cfg.Port, "port", 53, "local UDP port to listen on")
	fs.StringVar(&cfg.Blocklist, "blocklist", "", "path to the blocklist file, required")
	fs.BoolVar(&cfg.Verbose, "v", false, "enable verbose per-request logging")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "enable verbose per-request logging")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration is complete and internally consistent.
func (c *Config) Validate() error {
	if c.Upstream == "" {
		return fmt.Errorf("-upstream is required")
	}
	if net.ParseIP(c.Upstream) == nil {
		if _, err := net.LookupHost(c.Upstream); err != nil {
			return fmt.Errorf("cannot resolve upstream %q: %w", c.Upstream, err)
		}
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("-port must be between 1 and 65535, got %d", c.Port)
	}

	if c.Blocklist == "" {
		return fmt.Errorf("-blocklist is required")
	}

	return nil
}
