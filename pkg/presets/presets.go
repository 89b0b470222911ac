package presets

import (
	"fmt"
	"net/url"
	"strings"

	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("pkg/presets")

// Network selects which deployment of the knowledge graph to talk to.
type Network string

const (
	Testnet Network = "TESTNET"
	Mainnet Network = "MAINNET"
)

// ParseNetwork accepts either spelling case-insensitively. An empty string
// selects the default network.
func ParseNetwork(s string) (Network, error) {
	if s == "" {
		return DefaultNetwork.Name, nil
	}
	switch n := Network(strings.ToUpper(s)); n {
	case Testnet, Mainnet:
		return n, nil
	default:
		return "", fmt.Errorf("unknown network: %q", s)
	}
}

var (
	testnetAPIURL, _     = url.Parse("https://hypergraph-v2-testnet.up.railway.app")
	testnetGraphQLURL, _ = url.Parse("https://hypergraph-v2-testnet.up.railway.app/graphql")
	testnetRPCURL, _     = url.Parse("https://rpc-geo-test-zc16z3tcvf.t.conduit.xyz")
	testnetSponsorURL, _ = url.Parse("https://sponsor-testnet.up.railway.app")
	mainnetAPIURL, _     = url.Parse("https://hypergraph-v2.up.railway.app")
	mainnetGraphQLURL, _ = url.Parse("https://hypergraph-v2.up.railway.app/graphql")
	mainnetRPCURL, _     = url.Parse("https://rpc-geo-genesis-h0q2s21xx8.t.conduit.xyz")
	mainnetSponsorURL, _ = url.Parse("https://sponsor.up.railway.app")
)

type NetworkConfig struct {
	Name       Network
	APIURL     url.URL // Edit upload and calldata API.
	GraphQLURL url.URL // Space directory.
	RPCURL     url.URL // Chain JSON-RPC endpoint.
	SponsorURL url.URL // Relay for sponsored smart-account transactions.
	ChainID    uint64
}

// Known network configurations.
var Networks = []NetworkConfig{
	{
		Name:       Testnet,
		APIURL:     *testnetAPIURL,
		GraphQLURL: *testnetGraphQLURL,
		RPCURL:     *testnetRPCURL,
		SponsorURL: *testnetSponsorURL,
		ChainID:    19411,
	},
	{
		Name:       Mainnet,
		APIURL:     *mainnetAPIURL,
		GraphQLURL: *mainnetGraphQLURL,
		RPCURL:     *mainnetRPCURL,
		SponsorURL: *mainnetSponsorURL,
		ChainID:    80451,
	},
}

var DefaultNetwork = Networks[0]

// GetNetworkConfig returns the preset for the passed network, or the default
// network if it is empty.
func GetNetworkConfig(name Network) (NetworkConfig, error) {
	if name == "" {
		log.Debugw("using default network config", "name", DefaultNetwork.Name)
		return DefaultNetwork, nil
	}
	for _, n := range Networks {
		if n.Name == name {
			log.Debugw("using network", "name", name)
			return n, nil
		}
	}
	return NetworkConfig{}, fmt.Errorf("unknown network: %q", name)
}
