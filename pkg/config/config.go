package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/kgcourse/geopub/pkg/ids"
	"github.com/kgcourse/geopub/pkg/presets"
	"github.com/kgcourse/geopub/pkg/wallet"
)

type Config struct {
	Network   string          `mapstructure:"network" validate:"omitempty,oneofci=TESTNET MAINNET"`
	Wallet    WalletConfig    `mapstructure:"wallet"`
	Space     SpaceConfig     `mapstructure:"space"`
	Endpoints EndpointsConfig `mapstructure:"endpoints"`
	Repo      RepoConfig      `mapstructure:"repo"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type WalletConfig struct {
	PrivateKey   string `mapstructure:"private_key"`
	SmartAccount bool   `mapstructure:"smart_account"`
}

type SpaceConfig struct {
	ID string `mapstructure:"id"`
}

type TelemetryConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
}

// Validatable is implemented by every config that Load can produce.
type Validatable interface {
	Validate() error
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func validateConfig(c any) error {
	err := validate.Struct(c)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = fmt.Sprintf("%s: failed %q check on %q", fe.Namespace(), fe.Tag(), fe.Value())
	}
	return errors.New(strings.Join(msgs, "; "))
}

func (c Config) Validate() error {
	if err := validateConfig(c); err != nil {
		return err
	}
	if c.Wallet.PrivateKey != "" {
		if _, err := wallet.ParsePrivateKey(c.Wallet.PrivateKey); err != nil {
			return fmt.Errorf("wallet.private_key: %w", err)
		}
	}
	if c.Space.ID != "" {
		if _, err := ids.Parse(c.Space.ID); err != nil {
			return fmt.Errorf("space.id: %w", err)
		}
	}
	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		return errors.New("telemetry.endpoint is required when telemetry is enabled")
	}
	return c.Repo.Validate()
}

// Load reads the configuration assembled by viper from flags, environment
// and config file.
func Load[T Validatable]() (T, error) {
	var out T
	if err := viper.Unmarshal(&out); err != nil {
		return out, fmt.Errorf("unable to decode config, %w", err)
	}
	if err := out.Validate(); err != nil {
		return out, fmt.Errorf("invalid config, %w", err)
	}
	return out, nil
}

// EnvPrefix prefixes the environment variable of every key, so that
// repo.data_dir is read from GEOPUB_REPO_DATA_DIR.
const EnvPrefix = "GEOPUB"

// legacyEnv are unprefixed variables accepted for compatibility with other
// tools.
var legacyEnv = map[string]string{
	"wallet.private_key": "PRIVATE_KEY",
	"space.id":           "SPACE_ID",
}

// EnvName is the environment variable a key is read from.
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// SetDefaults registers defaults for keys that are not bound to a flag, and
// binds every key to its environment variables so that Load sees keys set
// only in the environment.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("network", string(presets.DefaultNetwork.Name))
	v.SetDefault("wallet.smart_account", true)
	v.SetDefault("telemetry.enabled", false)

	for _, k := range Keys {
		names := []string{k, EnvName(k)}
		if legacy, ok := legacyEnv[k]; ok {
			names = append(names, legacy)
		}
		// Only fails when no key is given.
		_ = v.BindEnv(names...)
	}
}

var ErrNoPrivateKey = errors.New("no private key configured: set wallet.private_key, GEOPUB_WALLET_PRIVATE_KEY or PRIVATE_KEY")

func (c Config) PrivateKey() (wallet.PrivateKey, error) {
	if c.Wallet.PrivateKey == "" {
		return wallet.PrivateKey{}, ErrNoPrivateKey
	}
	return wallet.ParsePrivateKey(c.Wallet.PrivateKey)
}

// DefaultSpace is the configured target space, or ids.Nil when none is set.
func (c Config) DefaultSpace() (ids.ID, error) {
	if c.Space.ID == "" {
		return ids.Nil, nil
	}
	return ids.Parse(c.Space.ID)
}
