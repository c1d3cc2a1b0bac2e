package web3

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// NetworkDefinitions models configs/networks.yaml.
type NetworkDefinitions struct {
	Networks map[string]NetworkDefinition `yaml:"networks"`
}

// NetworkDefinition describes the endpoints of a single network.
type NetworkDefinition struct {
	RESTURL     string `yaml:"rest_url"`
	FaucetURL   string `yaml:"faucet_url"`
	ChainID     uint8  `yaml:"chain_id"`
	Description string `yaml:"description"`
}

// DefaultNetworks returns the public networks known without any file.
// Devnet is reset regularly so its chain id is left unknown (0).
func DefaultNetworks() NetworkDefinitions {
	return NetworkDefinitions{Networks: map[string]NetworkDefinition{
		"mainnet": {
			RESTURL:     "https://fullnode.mainnet.aptoslabs.com/v1",
			ChainID:     1,
			Description: "production network, no faucet",
		},
		"testnet": {
			RESTURL:     "https://fullnode.testnet.aptoslabs.com/v1",
			FaucetURL:   "https://faucet.testnet.aptoslabs.com",
			ChainID:     2,
			Description: "long lived test network",
		},
		"devnet": {
			RESTURL:     "https://fullnode.devnet.aptoslabs.com/v1",
			FaucetURL:   "https://faucet.devnet.aptoslabs.com",
			Description: "weekly reset development network",
		},
		"local": {
			RESTURL:     "http://127.0.0.1:8080/v1",
			FaucetURL:   "http://127.0.0.1:8081",
			ChainID:     4,
			Description: "local testnet started by the CLI",
		},
	}}
}

// LoadNetworkDefinitions parses the YAML file and overlays it on the
// defaults. An empty path yields the defaults.
func LoadNetworkDefinitions(path string) (NetworkDefinitions, error) {
	defs := DefaultNetworks()
	if strings.TrimSpace(path) == "" {
		return defs, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return NetworkDefinitions{}, fmt.Errorf("读取网络配置失败: %w", err)
	}

	var loaded NetworkDefinitions
	if err := yaml.Unmarshal(content, &loaded); err != nil {
		return NetworkDefinitions{}, fmt.Errorf("解析网络配置失败: %w", err)
	}
	for name, def := range loaded.Networks {
		defs.Networks[strings.ToLower(strings.TrimSpace(name))] = def
	}
	return defs, nil
}

// Lookup finds a network by case-insensitive name.
func (d NetworkDefinitions) Lookup(name string) (NetworkDefinition, bool) {
	def, ok := d.Networks[strings.ToLower(strings.TrimSpace(name))]
	return def, ok
}

// Names returns the sorted network names.
func (d NetworkDefinitions) Names() []string {
	names := make([]string, 0, len(d.Networks))
	for name := range d.Networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
