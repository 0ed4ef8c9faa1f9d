package rpcclient

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// RPC represents a single RPC endpoint of a node.
type RPC struct {
	Name string
	// URL is an http(s) or ws(s) endpoint.
	URL string
}

// ToEndpoint validates the URL and returns it.
func (r RPC) ToEndpoint() (string, error) {
	if r.URL == "" {
		return "", fmt.Errorf("rpc %q has no URL", r.Name)
	}

	u, err := url.Parse(r.URL)
	if err != nil {
		return "", fmt.Errorf("rpc %q has an invalid URL: %w", r.Name, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https", "ws", "wss":
		return r.URL, nil
	default:
		return "", fmt.Errorf("rpc %q: no known transport for URL scheme %q", r.Name, u.Scheme)
	}
}

// RPCConfig lists the endpoints of one chain. The first endpoint is the primary, the rest are
// backups.
type RPCConfig struct {
	// ChainName is used in log lines only.
	ChainName string
	RPCs      []RPC
}

// NewRPCConfig builds a config naming the endpoints by position.
func NewRPCConfig(chainName string, urls []string) (RPCConfig, error) {
	if len(urls) == 0 {
		return RPCConfig{}, errors.New("no RPC URLs provided")
	}

	rpcs := make([]RPC, 0, len(urls))
	for i, u := range urls {
		rpcs = append(rpcs, RPC{Name: fmt.Sprintf("rpc-%d", i), URL: strings.TrimSpace(u)})
	}

	return RPCConfig{ChainName: chainName, RPCs: rpcs}, nil
}
