package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// Keys lists every key a config file may set.
var Keys = []string{
	"network",
	"wallet.private_key",
	"wallet.smart_account",
	"space.id",
	"endpoints.api_url",
	"endpoints.graphql_url",
	"endpoints.rpc_url",
	"endpoints.sponsor_url",
	"repo.data_dir",
	"repo.database_url",
	"telemetry.enabled",
	"telemetry.endpoint",
	"telemetry.insecure",
}

func IsKey(key string) bool {
	return slices.Contains(Keys, strings.ToLower(key))
}

// Redact hides the value of secret keys and the password of database URLs.
func Redact(key string, value any) any {
	s, ok := value.(string)
	if !ok || s == "" {
		return value
	}
	switch strings.ToLower(key) {
	case "wallet.private_key":
		return "<redacted>"
	case "repo.database_url":
		if u, err := url.Parse(s); err == nil {
			return u.Redacted()
		}
	}
	return value
}

// WriteFile merges values into the YAML config file at path, creating it when
// it does not exist. The file is readable only by its owner because it may
// hold a private key.
func WriteFile(fsys afero.Fs, path string, values map[string]any) error {
	for k := range values {
		if !IsKey(k) {
			return fmt.Errorf("unknown config key %q", k)
		}
	}

	v := viper.New()
	v.SetFs(fsys)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	exists, err := afero.Exists(fsys, path)
	if err != nil {
		return err
	}
	if exists {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
	} else if err := fsys.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	for k, val := range values {
		v.Set(k, val)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return fsys.Chmod(path, 0o600)
}
