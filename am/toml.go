package am

import (
	"github.com/pelletier/go-toml/v2"

	"github.com/teranos/scribe/errors"
)

// ToTOML renders the configuration as a TOML document
func (c *Config) ToTOML() (string, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal config to TOML")
	}
	return string(data), nil
}
