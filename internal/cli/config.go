package cli

import (
	"os"
	"path/filepath"
	"strings"
)

// Config holds CLI configuration
type Config struct {
	ServerURL    string
	Identity     string
	IdentityFile string
	Output       string
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL:    getEnvOrDefault("TALLY_SERVER", "http://localhost:8080"),
		Identity:     os.Getenv("TALLY_IDENTITY"),
		IdentityFile: getEnvOrDefault("TALLY_IDENTITY_FILE", defaultIdentityFile()),
		Output:       "text",
	}
}

// LoadIdentity loads the identity from file if not already set
func (c *Config) LoadIdentity() error {
	if c.Identity != "" {
		return nil
	}

	data, err := os.ReadFile(c.IdentityFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // No identity yet is fine
		}
		return err
	}

	c.Identity = strings.TrimSpace(string(data))
	return nil
}

// SaveIdentity saves the identity to the identity file
func (c *Config) SaveIdentity(identity string) error {
	c.Identity = identity

	dir := filepath.Dir(c.IdentityFile)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	return os.WriteFile(c.IdentityFile, []byte(identity+"\n"), 0600)
}

func defaultIdentityFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tallyctl/identity"
	}
	return filepath.Join(home, ".tallyctl", "identity")
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
