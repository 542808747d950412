// Package vault loads operational secrets (JWT signing key, SMTP
// credentials) from HashiCorp Vault when enabled. With Vault disabled the
// values from local configuration are used as-is.
package vault

import (
	"context"
	"fmt"

	"github.com/hashicorp/vault/api"
)

// Config holds Vault configuration
type Config struct {
	Enabled    bool   `json:"enabled"`
	Address    string `json:"address"`
	Token      string `json:"token"`
	SecretPath string `json:"secret_path"`
	TLSEnabled bool   `json:"tls_enabled"`
	CACert     string `json:"ca_cert"`
}

// DefaultConfig returns default Vault configuration
func DefaultConfig() Config {
	return Config{
		Enabled:    false,
		Address:    "http://localhost:8200",
		SecretPath: "secret/data/profitbliss",
	}
}

// Secrets are the operational secrets the server needs at startup
type Secrets struct {
	JWTSecret    string
	SMTPPassword string
}

// Client wraps the HashiCorp Vault client
type Client struct {
	client *api.Client
	config Config
}

// NewClient creates a new Vault client
func NewClient(cfg Config) (*Client, error) {
	if !cfg.Enabled {
		return &Client{config: cfg}, nil
	}

	vaultConfig := api.DefaultConfig()
	vaultConfig.Address = cfg.Address

	if cfg.TLSEnabled && cfg.CACert != "" {
		tlsConfig := &api.TLSConfig{
			CACert: cfg.CACert,
		}
		if err := vaultConfig.ConfigureTLS(tlsConfig); err != nil {
			return nil, fmt.Errorf("failed to configure TLS: %w", err)
		}
	}

	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(cfg.Token)

	return &Client{client: client, config: cfg}, nil
}

// LoadSecrets reads the operational secrets from Vault. Returns nil, nil
// when Vault is disabled so callers fall back to local configuration.
func (c *Client) LoadSecrets(ctx context.Context) (*Secrets, error) {
	if !c.config.Enabled {
		return nil, nil
	}

	secret, err := c.client.Logical().ReadWithContext(ctx, c.config.SecretPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read secrets from vault: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("no secrets found at %s", c.config.SecretPath)
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		// KV v1 stores fields at the top level.
		data = secret.Data
	}

	return &Secrets{
		JWTSecret:    getString(data, "jwt_secret"),
		SMTPPassword: getString(data, "smtp_password"),
	}, nil
}

func getString(data map[string]interface{}, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}
