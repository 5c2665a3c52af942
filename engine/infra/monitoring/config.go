package monitoring

import (
	"fmt"
	"strings"
)

type Config struct {
	Enabled bool
	Path    string
}

func DefaultConfig() *Config {
	return &Config{
		Enabled: true,
		Path:    "/metrics",
	}
}

func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if !strings.HasPrefix(c.Path, "/") {
		return fmt.Errorf("monitoring path must start with '/', got %q", c.Path)
	}
	return nil
}
