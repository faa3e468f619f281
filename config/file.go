package config

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

const redactedValue = "[redacted]"

// Redacted returns a copy with keys, secrets and the database URL masked.
func (c Config) Redacted() Config {
	for _, s := range []*string{
		&c.SupabaseKey,
		&c.SupabaseServiceKey,
		&c.SupabaseJWTSecret,
		&c.S3AccessKey,
		&c.S3SecretKey,
		&c.DatabaseURL,
	} {
		if *s != "" {
			*s = redactedValue
		}
	}
	return c
}

// WriteYAML writes the redacted configuration in the format CONFIG_FILE accepts.
func (c Config) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c.Redacted()); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}
