// Package secrets loads credentials from a Vault KV secret into the process
// environment before configuration is read.
package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	apperrors "github.com/zatekoja/facilitycollector/pkg/errors"
	"github.com/zatekoja/facilitycollector/pkg/retry"
)

// VaultConfig locates the secret. Only keys listed in Keys are exported;
// an empty Keys exports every key of the secret.
type VaultConfig struct {
	Enabled   bool
	Addr      string
	Token     string
	Namespace string
	Mount     string
	Path      string
	KVVersion int
	Timeout   time.Duration
	Overwrite bool
	Keys      []string
}

// VaultResult summarizes what was exported
type VaultResult struct {
	Loaded  int
	Skipped int
}

// DefaultKeys are the credentials the collector reads from the environment
var DefaultKeys = []string{"DB_PASSWORD", "DB_USER", "REDIS_PASSWORD", "AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY"}

// VaultConfigFromEnv reads VAULT_* variables
func VaultConfigFromEnv() VaultConfig {
	cfg := VaultConfig{
		Enabled:   strings.EqualFold(os.Getenv("VAULT_ENABLED"), "true"),
		Addr:      os.Getenv("VAULT_ADDR"),
		Token:     os.Getenv("VAULT_TOKEN"),
		Namespace: os.Getenv("VAULT_NAMESPACE"),
		Mount:     "secret",
		Path:      os.Getenv("VAULT_PATH"),
		KVVersion: 2,
		Timeout:   5 * time.Second,
		Overwrite: strings.EqualFold(os.Getenv("VAULT_OVERWRITE"), "true"),
		Keys:      DefaultKeys,
	}
	if v := os.Getenv("VAULT_MOUNT"); v != "" {
		cfg.Mount = v
	}
	if v, err := strconv.Atoi(os.Getenv("VAULT_KV_VERSION")); err == nil {
		cfg.KVVersion = v
	}
	if v, err := time.ParseDuration(os.Getenv("VAULT_TIMEOUT")); err == nil {
		cfg.Timeout = v
	}
	if v := os.Getenv("VAULT_KEYS"); v != "" {
		cfg.Keys = strings.Split(v, ",")
	}
	return cfg
}

func (c VaultConfig) url() (string, error) {
	addr := strings.TrimRight(c.Addr, "/")
	mount := strings.Trim(c.Mount, "/")
	path := strings.Trim(c.Path, "/")
	if addr == "" || mount == "" || path == "" || c.Token == "" {
		return "", apperrors.NewValidationError("vault configuration incomplete (VAULT_ADDR, VAULT_TOKEN, VAULT_PATH)", nil)
	}
	if c.KVVersion == 1 {
		return fmt.Sprintf("%s/v1/%s/%s", addr, mount, path), nil
	}
	return fmt.Sprintf("%s/v1/%s/data/%s", addr, mount, path), nil
}

// kv1 is {"data": {...}}; kv2 nests it once more under data.data
type kvResponse struct {
	Data json.RawMessage `json:"data"`
}

type kv2Data struct {
	Data map[string]any `json:"data"`
}

// ApplyVault exports the configured secret keys as environment variables.
// Variables already set are kept unless Overwrite is true.
func ApplyVault(ctx context.Context, cfg VaultConfig, logger zerolog.Logger) (VaultResult, error) {
	if !cfg.Enabled {
		return VaultResult{}, nil
	}
	url, err := cfg.url()
	if err != nil {
		return VaultResult{}, err
	}

	var data map[string]any
	client := &http.Client{Timeout: cfg.Timeout}
	err = retry.Do(ctx, retry.FeedConfig(), "Vault", func(ctx context.Context) error {
		d, err := fetchSecret(ctx, client, url, cfg)
		if err != nil {
			return err
		}
		data = d
		return nil
	}, func(attempt int, err error, next time.Duration) {
		logger.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", next).Msg("Vault fetch failed")
	})
	if err != nil {
		return VaultResult{}, apperrors.NewExternalError(fmt.Sprintf("read vault secret %s", cfg.Path), err)
	}

	wanted := make(map[string]bool, len(cfg.Keys))
	for _, k := range cfg.Keys {
		if k = strings.TrimSpace(k); k != "" {
			wanted[k] = true
		}
	}

	var res VaultResult
	for key, value := range data {
		if len(wanted) > 0 && !wanted[key] {
			continue
		}
		if !cfg.Overwrite && os.Getenv(key) != "" {
			res.Skipped++
			continue
		}
		if err := os.Setenv(key, stringify(value)); err != nil {
			return res, err
		}
		res.Loaded++
	}
	logger.Info().Str("path", cfg.Path).Int("loaded", res.Loaded).Int("skipped", res.Skipped).Msg("Loaded secrets from Vault")
	return res, nil
}

func fetchSecret(ctx context.Context, client *http.Client, url string, cfg VaultConfig) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, retry.Stop(err)
	}
	req.Header.Set("X-Vault-Token", cfg.Token)
	if cfg.Namespace != "" {
		req.Header.Set("X-Vault-Namespace", cfg.Namespace)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("vault returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
		if resp.StatusCode < http.StatusInternalServerError {
			return nil, retry.Stop(err)
		}
		return nil, err
	}

	var outer kvResponse
	if err := json.Unmarshal(body, &outer); err != nil || len(outer.Data) == 0 {
		return nil, retry.Stop(fmt.Errorf("vault response has no data"))
	}
	if cfg.KVVersion == 1 {
		var data map[string]any
		if err := json.Unmarshal(outer.Data, &data); err != nil {
			return nil, retry.Stop(err)
		}
		return data, nil
	}
	var inner kv2Data
	if err := json.Unmarshal(outer.Data, &inner); err != nil || inner.Data == nil {
		return nil, retry.Stop(fmt.Errorf("vault response has no KV v2 data"))
	}
	return inner.Data, nil
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(encoded)
	}
}
