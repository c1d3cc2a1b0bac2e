// Package faucet funds accounts on test networks through the faucet's mint
// endpoint.
package faucet

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	xerrors "aptos-playground/internal/errors"
	"aptos-playground/internal/move"
	"aptos-playground/pkg/logger"
)

// DefaultHTTPTimeout bounds a single mint request.
const DefaultHTTPTimeout = 30 * time.Second

// Config describes a faucet endpoint.
type Config struct {
	URL        string
	HTTPClient *http.Client
	Timeout    time.Duration
	// AuthToken is sent as a bearer token when set.
	AuthToken string
	Logger    *slog.Logger
}

// Client wraps the HTTP interactions with a faucet.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger
	authToken  string
}

// NewClient validates the faucet URL.
func NewClient(cfg Config) (*Client, error) {
	rawURL := strings.TrimSpace(cfg.URL)
	if rawURL == "" {
		return nil, xerrors.New(xerrors.CodeConfig, "未配置 faucet 地址", xerrors.WithOperation("create faucet client"))
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		if err == nil {
			err = fmt.Errorf("missing scheme or host")
		}
		return nil, xerrors.Wrap(xerrors.CodeConfig, err, fmt.Sprintf("faucet 地址无效: %s", rawURL), xerrors.WithOperation("create faucet client"))
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultHTTPTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Named("faucet")
	}
	return &Client{baseURL: parsed, httpClient: httpClient, logger: log, authToken: strings.TrimSpace(cfg.AuthToken)}, nil
}

// Fund asks the faucet to mint amount octas to addr. The returned hashes are
// the funding transactions, which the caller should wait for before relying
// on the balance.
func (c *Client) Fund(ctx context.Context, addr move.AccountAddress, amount uint64) ([]string, error) {
	const op = "fund account"
	if amount == 0 {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "充值金额必须大于 0", xerrors.WithOperation(op))
	}

	rel := &url.URL{Path: path.Join(c.baseURL.Path, "mint")}
	u := c.baseURL.ResolveReference(rel)
	query := u.Query()
	query.Set("amount", strconv.FormatUint(amount, 10))
	query.Set("address", addr.String())
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), nil)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "构建请求失败", xerrors.WithOperation(op))
	}
	req.Header.Set("Accept", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeNetwork, err, "请求 faucet 失败", xerrors.WithOperation(op))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeNetwork, err, "读取 faucet 响应失败", xerrors.WithOperation(op))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, xerrors.New(xerrors.CodeFunding,
			fmt.Sprintf("faucet 返回状态 %d: %s", resp.StatusCode, strings.TrimSpace(string(data))),
			xerrors.WithOperation(op),
			xerrors.WithMetadata("address", addr.String()))
	}

	hashes, err := decodeHashes(data)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeProtocol, err, "解析 faucet 响应失败", xerrors.WithOperation(op))
	}
	c.logger.Debug("account funded", "address", addr.ShortString(), "amount", amount, "txns", len(hashes))
	return hashes, nil
}

// decodeHashes accepts the legacy JSON array and the newer
// {"txn_hashes": [...]} object.
func decodeHashes(data []byte) ([]string, error) {
	var hashes []string
	if err := json.Unmarshal(data, &hashes); err == nil {
		return normalize(hashes), nil
	}
	var wrapped struct {
		TxnHashes []string `json:"txn_hashes"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, err
	}
	return normalize(wrapped.TxnHashes), nil
}

func normalize(hashes []string) []string {
	out := make([]string, 0, len(hashes))
	for _, h := range hashes {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if !strings.HasPrefix(h, "0x") {
			h = "0x" + h
		}
		out = append(out, h)
	}
	return out
}
