package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"aptos-playground/internal/web3"
	"aptos-playground/internal/web3/aptos"
)

// Options tune the clients created by the registry.
type Options struct {
	HTTPTimeout  time.Duration
	PollInterval time.Duration
	WaitTimeout  time.Duration
}

// Registry manages a set of node clients keyed by network name.
type Registry struct {
	defaultNetwork string
	definitions    web3.NetworkDefinitions
	clients        map[string]web3.Client
}

// NewRegistry instantiates a client for every network definition.
func NewRegistry(defs web3.NetworkDefinitions, defaultNetwork string, opts Options) (*Registry, error) {
	clients := make(map[string]web3.Client)
	for name, def := range defs.Networks {
		if strings.TrimSpace(def.RESTURL) == "" {
			continue
		}
		client, err := aptos.NewClient(aptos.Config{
			Name:         name,
			RESTURL:      def.RESTURL,
			Timeout:      opts.HTTPTimeout,
			PollInterval: opts.PollInterval,
			WaitTimeout:  opts.WaitTimeout,
		})
		if err != nil {
			closeAll(clients)
			return nil, fmt.Errorf("初始化网络 %s 失败: %w", name, err)
		}
		clients[name] = client
	}

	if len(clients) == 0 {
		return nil, errors.New("未配置任何网络的 REST 端点")
	}

	defaultNetwork = strings.ToLower(strings.TrimSpace(defaultNetwork))
	if defaultNetwork == "" {
		names := make([]string, 0, len(clients))
		for name := range clients {
			names = append(names, name)
		}
		sort.Strings(names)
		defaultNetwork = names[0]
	}
	if _, ok := clients[defaultNetwork]; !ok {
		closeAll(clients)
		return nil, fmt.Errorf("默认网络 %s 未在配置中找到", defaultNetwork)
	}

	return &Registry{defaultNetwork: defaultNetwork, definitions: defs, clients: clients}, nil
}

// DefaultClient returns the client configured as default network.
func (r *Registry) DefaultClient() (web3.Client, error) {
	if r == nil {
		return nil, errors.New("未初始化的网络客户端注册表")
	}
	client, ok := r.clients[r.defaultNetwork]
	if !ok {
		return nil, fmt.Errorf("默认网络 %s 未在注册表中", r.defaultNetwork)
	}
	return client, nil
}

// Close releases all clients managed by the registry.
func (r *Registry) Close() {
	if r == nil {
		return
	}
	closeAll(r.clients)
}

func closeAll(clients map[string]web3.Client) {
	for name, client := range clients {
		if client != nil {
			client.Close()
		}
		delete(clients, name)
	}
}

// Networks returns the list of registered network names.
func (r *Registry) Networks() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Status is the result of probing one network.
type Status struct {
	Network         string
	RESTURL         string
	ExpectedChainID uint8
	ChainID         uint8
	LedgerVersion   uint64
	Err             error
}

// Mismatch reports whether the node answered with a chain id other than the
// configured one. Networks without a configured chain id never mismatch.
func (s Status) Mismatch() bool {
	return s.Err == nil && s.ExpectedChainID != 0 && s.ExpectedChainID != s.ChainID
}

// Probe queries the ledger info of every network in name order.
func (r *Registry) Probe(ctx context.Context) []Status {
	names := r.Networks()
	statuses := make([]Status, 0, len(names))
	for _, name := range names {
		def, _ := r.definitions.Lookup(name)
		status := Status{Network: name, RESTURL: def.RESTURL, ExpectedChainID: def.ChainID}
		info, err := r.clients[name].LedgerInfo(ctx)
		if err != nil {
			status.Err = err
		} else {
			status.ChainID = uint8(info.ChainID)
			status.LedgerVersion = info.LedgerVersion
		}
		statuses = append(statuses, status)
	}
	return statuses
}
