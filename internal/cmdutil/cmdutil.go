// Package cmdutil assembles the clients the CLI commands share and holds the
// helpers they have in common.
package cmdutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/kgcourse/geopub/internal/telemetry"
	"github.com/kgcourse/geopub/pkg/api"
	"github.com/kgcourse/geopub/pkg/bus"
	"github.com/kgcourse/geopub/pkg/chain"
	"github.com/kgcourse/geopub/pkg/config"
	"github.com/kgcourse/geopub/pkg/directory"
	"github.com/kgcourse/geopub/pkg/ids"
	"github.com/kgcourse/geopub/pkg/journal"
	"github.com/kgcourse/geopub/pkg/presets"
	"github.com/kgcourse/geopub/pkg/publisher"
	"github.com/kgcourse/geopub/pkg/router"
	"github.com/kgcourse/geopub/pkg/spaces"
	"github.com/kgcourse/geopub/pkg/wallet"
)

// Env is every client bound to the configured network.
type Env struct {
	Config    config.Config
	Network   presets.NetworkConfig
	HTTP      *http.Client
	Chain     *chain.Client
	Directory *directory.Client
	API       *api.Client
	Wallets   *wallet.Resolver
	Spaces    *spaces.Ensurer
	Publisher *publisher.Publisher
}

type EnvOption func(*Env)

// WithHTTPClient replaces the traced default client.
func WithHTTPClient(c *http.Client) EnvOption {
	return func(e *Env) {
		e.HTTP = c
	}
}

func NewEnv(cfg config.Config, opts ...EnvOption) (*Env, error) {
	network, err := cfg.NetworkConfig()
	if err != nil {
		return nil, fmt.Errorf("getting network configuration: %w", err)
	}
	e := &Env{Config: cfg, Network: network, HTTP: telemetry.HTTPClient()}
	for _, opt := range opts {
		opt(e)
	}

	e.Chain, err = chain.New(network.RPCURL, chain.WithHTTPClient(e.HTTP))
	if err != nil {
		return nil, err
	}
	e.Directory = directory.New(network.GraphQLURL, directory.WithHTTPClient(e.HTTP))
	e.API = api.New(network.APIURL, api.WithHTTPClient(e.HTTP))
	e.Wallets = wallet.NewResolver(e.Chain, network.SponsorURL, wallet.WithHTTPClient(e.HTTP))
	e.Spaces = spaces.NewEnsurer(e.Directory, e.API, e.Chain)
	// The configured endpoints win over the preset for the selected network.
	e.Publisher = publisher.New(
		publisher.WithHTTPClient(e.HTTP),
		publisher.WithAPI(network.Name, e.API),
	)
	return e, nil
}

// LoadEnv loads the configuration and builds an Env from it.
func LoadEnv(opts ...EnvOption) (*Env, error) {
	cfg, err := config.Load[config.Config]()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return NewEnv(cfg, opts...)
}

// Options builds router options from the configuration.
func (e *Env) Options() (router.Options, error) {
	key, err := e.Config.PrivateKey()
	if err != nil {
		return router.Options{}, err
	}
	space, err := e.Config.DefaultSpace()
	if err != nil {
		return router.Options{}, fmt.Errorf("parsing space.id: %w", err)
	}
	return router.Options{
		PrivateKey:      key,
		UseSmartAccount: e.Config.Wallet.SmartAccount,
		Network:         e.Network.Name,
		SpaceID:         space,
	}, nil
}

// Router builds a publish router that reports its progress on b.
func (e *Env) Router(b bus.Publisher) (*router.Router, error) {
	opts, err := e.Options()
	if err != nil {
		return nil, err
	}
	return router.New(opts, router.Deps{
		Wallets:   e.Wallets,
		Spaces:    e.Spaces,
		Directory: e.Directory,
		Personal:  e.Publisher,
		DAO:       e.Publisher,
		Chain:     e.Chain,
		Bus:       b,
	})
}

// Wallet resolves the configured signing wallet.
func (e *Env) Wallet(ctx context.Context) (wallet.Wallet, error) {
	key, err := e.Config.PrivateKey()
	if err != nil {
		return nil, err
	}
	return e.Wallets.Resolve(ctx, key, e.Config.Wallet.SmartAccount)
}

// OpenJournal opens the publish history configured by repo.
func OpenJournal(ctx context.Context, repo config.RepoConfig) (*journal.Journal, error) {
	j, err := journal.Open(ctx, repo.Dir, repo.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	return j, nil
}

// ParseSpaceID accepts either the dashless form of a space id or a dashed
// UUID.
func ParseSpaceID(s string) (ids.ID, error) {
	if id, err := ids.Parse(s); err == nil {
		return id, nil
	}
	id, err := ids.FromUUID(s)
	if err != nil {
		return ids.Nil, fmt.Errorf("invalid space id %q: expected 32 lowercase hex characters", s)
	}
	return id, nil
}

func NewHandledCliError(err error) HandledCliError {
	return HandledCliError{err}
}

// HandledCliError is an error which has already been presented to the user. If
// a HandledCliError is returned from a command, the process should exit with
// a non-zero exit code, but no further error message should be printed.
type HandledCliError struct {
	error
}

func (e HandledCliError) Unwrap() error {
	return e.error
}

// TranslateError adds a hint for the errors a user can fix.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}
	var handled HandledCliError
	if errors.As(err, &handled) {
		return err
	}
	if hint := Hint(err); hint != "" {
		return fmt.Errorf("%w\nhint: %s", err, hint)
	}
	return err
}

// Hint returns what the user can do about err, or "" if nothing.
func Hint(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, config.ErrNoPrivateKey):
		return "run `geopub config init` or export PRIVATE_KEY"
	case errors.Is(err, wallet.ErrInvalidKey):
		return "the key must be 32 bytes of hex, optionally prefixed with 0x"
	case errors.Is(err, router.ErrNotAuthorized):
		return "ask an editor of the space to add your personal space as a member"
	case errors.Is(err, router.ErrNoPersonalSpace):
		return "run `geopub space ensure` to create your personal space"
	case errors.Is(err, spaces.ErrNotIndexed):
		return "the space exists on chain; retry once the indexer catches up"
	}
	return ""
}
