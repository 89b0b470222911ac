package config

import (
	"fmt"
	"net/url"

	"github.com/kgcourse/geopub/pkg/presets"
)

// EndpointsConfig overrides individual endpoints of the selected network
// preset. All fields are optional.
type EndpointsConfig struct {
	// APIURL is the edit upload and calldata API.
	APIURL string `mapstructure:"api_url" validate:"omitempty,url"`
	// GraphQLURL is the space directory.
	GraphQLURL string `mapstructure:"graphql_url" validate:"omitempty,url"`
	// RPCURL is the chain's JSON-RPC endpoint.
	RPCURL string `mapstructure:"rpc_url" validate:"omitempty,url"`
	// SponsorURL is the relay for sponsored smart account transactions.
	SponsorURL string `mapstructure:"sponsor_url" validate:"omitempty,url"`
}

// IsEmpty returns true if no endpoint is overridden.
func (e EndpointsConfig) IsEmpty() bool {
	return e.APIURL == "" && e.GraphQLURL == "" && e.RPCURL == "" && e.SponsorURL == ""
}

// NetworkConfig resolves the configured network preset and applies endpoint
// overrides on top of it.
func (c Config) NetworkConfig() (presets.NetworkConfig, error) {
	name, err := presets.ParseNetwork(c.Network)
	if err != nil {
		return presets.NetworkConfig{}, err
	}
	network, err := presets.GetNetworkConfig(name)
	if err != nil {
		return presets.NetworkConfig{}, err
	}

	overrides := []struct {
		key   string
		value string
		dst   *url.URL
	}{
		{"endpoints.api_url", c.Endpoints.APIURL, &network.APIURL},
		{"endpoints.graphql_url", c.Endpoints.GraphQLURL, &network.GraphQLURL},
		{"endpoints.rpc_url", c.Endpoints.RPCURL, &network.RPCURL},
		{"endpoints.sponsor_url", c.Endpoints.SponsorURL, &network.SponsorURL},
	}
	for _, o := range overrides {
		if o.value == "" {
			continue
		}
		u, err := url.Parse(o.value)
		if err != nil {
			return presets.NetworkConfig{}, fmt.Errorf("parsing %s: %w", o.key, err)
		}
		*o.dst = *u
	}
	return network, nil
}
