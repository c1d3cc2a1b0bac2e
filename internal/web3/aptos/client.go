// Package aptos implements web3.Client against the REST API of an Aptos
// full node.
package aptos

import (
	"bytes"
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
	"aptos-playground/internal/txn"
	"aptos-playground/internal/web3"
	"aptos-playground/pkg/logger"
)

const (
	// DefaultHTTPTimeout bounds a single REST round trip.
	DefaultHTTPTimeout = 15 * time.Second
	// DefaultPollInterval is the pause between two status lookups.
	DefaultPollInterval = 500 * time.Millisecond
	// DefaultWaitTimeout bounds WaitForTransaction.
	DefaultWaitTimeout = 60 * time.Second

	signedTransactionContentType = "application/x.aptos.signed_transaction+bcs"
	headerLedgerTimestampUsec    = "X-Aptos-Ledger-TimestampUsec"
	maxResponseBytes             = 4 << 20
)

// Config describes how to construct a node client.
type Config struct {
	Name         string
	RESTURL      string
	HTTPClient   *http.Client
	Timeout      time.Duration
	PollInterval time.Duration
	WaitTimeout  time.Duration
	Logger       *slog.Logger
}

// Client implements web3.Client for Aptos full nodes.
type Client struct {
	name         string
	baseURL      *url.URL
	httpClient   *http.Client
	pollInterval time.Duration
	waitTimeout  time.Duration
	logger       *slog.Logger
}

// NewClient validates the endpoint and returns a ready-to-use client. The
// /v1 API prefix is appended when the URL does not carry it.
func NewClient(cfg Config) (*Client, error) {
	rawURL := strings.TrimSpace(cfg.RESTURL)
	if rawURL == "" {
		return nil, xerrors.New(xerrors.CodeConfig, "未配置节点 REST 地址", xerrors.WithOperation("create node client"))
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		if err == nil {
			err = fmt.Errorf("missing scheme or host")
		}
		return nil, xerrors.Wrap(xerrors.CodeConfig, err, fmt.Sprintf("节点 REST 地址无效: %s", rawURL), xerrors.WithOperation("create node client"))
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/")
	if !strings.HasSuffix(parsed.Path, "/v1") {
		parsed.Path += "/v1"
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultHTTPTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	wait := cfg.WaitTimeout
	if wait <= 0 {
		wait = DefaultWaitTimeout
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Named("aptos")
	}
	name := cfg.Name
	if name == "" {
		name = parsed.Host
	}

	return &Client{
		name:         name,
		baseURL:      parsed,
		httpClient:   httpClient,
		pollInterval: poll,
		waitTimeout:  wait,
		logger:       log.With("node", name),
	}, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	c.httpClient.CloseIdleConnections()
}

// BaseURL returns the resolved API root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

func (c *Client) String() string {
	return fmt.Sprintf("aptos.Client{name: %s, url: %s}", c.name, c.baseURL)
}

// LedgerInfo reads the index endpoint.
func (c *Client) LedgerInfo(ctx context.Context) (web3.LedgerInfo, error) {
	const op = "fetch ledger info"
	resp, err := c.get(ctx, op, "")
	if err != nil {
		return web3.LedgerInfo{}, err
	}
	if resp.status != http.StatusOK {
		return web3.LedgerInfo{}, resp.protocolError(op)
	}
	var index indexResponse
	if err := resp.decode(op, &index); err != nil {
		return web3.LedgerInfo{}, err
	}
	if index.ChainID == 0 {
		return web3.LedgerInfo{}, xerrors.New(xerrors.CodeProtocol, "响应缺少 chain_id", xerrors.WithOperation(op))
	}
	return web3.LedgerInfo{
		ChainID:             txn.ChainID(index.ChainID),
		Epoch:               uint64(index.Epoch),
		LedgerVersion:       uint64(index.LedgerVersion),
		OldestLedgerVersion: uint64(index.OldestLedgerVersion),
		BlockHeight:         uint64(index.BlockHeight),
		LedgerTimestampUsec: uint64(index.LedgerTimestamp),
		NodeRole:            index.NodeRole,
	}, nil
}

// ChainID resolves the network identifier. Every call is a fresh round trip.
func (c *Client) ChainID(ctx context.Context) (txn.ChainID, error) {
	info, err := c.LedgerInfo(ctx)
	if err != nil {
		return 0, err
	}
	return info.ChainID, nil
}

// EstimateGasPrice returns the node's current gas unit price estimate.
func (c *Client) EstimateGasPrice(ctx context.Context) (uint64, error) {
	const op = "estimate gas price"
	resp, err := c.get(ctx, op, "estimate_gas_price")
	if err != nil {
		return 0, err
	}
	if resp.status != http.StatusOK {
		return 0, resp.protocolError(op)
	}
	var estimate gasEstimateResponse
	if err := resp.decode(op, &estimate); err != nil {
		return 0, err
	}
	if estimate.GasEstimate == 0 {
		return 0, xerrors.New(xerrors.CodeProtocol, "响应缺少 gas_estimate", xerrors.WithOperation(op))
	}
	return uint64(estimate.GasEstimate), nil
}

// Account reads the account's sequence number and authentication key.
func (c *Client) Account(ctx context.Context, addr move.AccountAddress) (web3.AccountInfo, error) {
	const op = "fetch account"
	resp, err := c.get(ctx, op, "accounts/"+addr.String())
	if err != nil {
		return web3.AccountInfo{}, err
	}
	if resp.notFound(errorCodeAccountNotFound) {
		return web3.AccountInfo{}, xerrors.Wrap(xerrors.CodeNotFound, resp.apiError(), fmt.Sprintf("账户 %s 不存在", addr.ShortString()), xerrors.WithOperation(op))
	}
	if resp.status != http.StatusOK {
		return web3.AccountInfo{}, resp.protocolError(op)
	}
	var account accountResponse
	if err := resp.decode(op, &account); err != nil {
		return web3.AccountInfo{}, err
	}
	if account.SequenceNumber == nil {
		return web3.AccountInfo{}, xerrors.New(xerrors.CodeProtocol, "响应缺少 sequence_number", xerrors.WithOperation(op))
	}
	return web3.AccountInfo{
		SequenceNumber:    uint64(*account.SequenceNumber),
		AuthenticationKey: account.AuthenticationKey,
	}, nil
}

// CoinBalance reads the CoinStore resource for coinType.
func (c *Client) CoinBalance(ctx context.Context, addr move.AccountAddress, coinType move.TypeTag) (uint64, error) {
	const op = "fetch coin balance"
	resource := "0x1::coin::CoinStore<" + coinType.String() + ">"
	resp, err := c.get(ctx, op, "accounts/"+addr.String()+"/resource/"+resource)
	if err != nil {
		return 0, err
	}
	if resp.notFound(errorCodeAccountNotFound, errorCodeResourceNotFound) {
		return 0, xerrors.Wrap(xerrors.CodeNotFound, resp.apiError(), fmt.Sprintf("账户 %s 没有 %s", addr.ShortString(), resource), xerrors.WithOperation(op))
	}
	if resp.status != http.StatusOK {
		return 0, resp.protocolError(op)
	}
	var store coinStoreResponse
	if err := resp.decode(op, &store); err != nil {
		return 0, err
	}
	if store.Data.Coin.Value == nil {
		return 0, xerrors.New(xerrors.CodeProtocol, "响应缺少 coin.value", xerrors.WithOperation(op))
	}
	return uint64(*store.Data.Coin.Value), nil
}

// Submit posts the BCS encoded transaction. Any 4xx answer means the node
// refused it and is reported as a validation failure with the node's detail.
func (c *Client) Submit(ctx context.Context, signed *txn.SignedTransaction) (web3.PendingTransaction, error) {
	const op = "submit transaction"
	if signed == nil {
		return web3.PendingTransaction{}, xerrors.New(xerrors.CodeInvalidArgument, "签名交易为空", xerrors.WithOperation(op))
	}
	localHash := signed.Hash()
	resp, err := c.do(ctx, op, http.MethodPost, "transactions", bytes.NewReader(signed.Bytes()), signedTransactionContentType)
	if err != nil {
		return web3.PendingTransaction{}, err
	}
	if resp.status >= http.StatusBadRequest {
		apiErr := resp.apiError()
		opts := []xerrors.Option{
			xerrors.WithOperation(op),
			xerrors.WithMetadata("hash", localHash),
			xerrors.WithMetadata("error_code", apiErr.ErrorCode),
		}
		if apiErr.VMErrorCode != nil {
			opts = append(opts, xerrors.WithMetadata("vm_error_code", strconv.FormatUint(*apiErr.VMErrorCode, 10)))
		}
		return web3.PendingTransaction{}, xerrors.Wrap(xerrors.CodeValidation, apiErr, "节点拒绝交易", opts...)
	}
	if resp.status != http.StatusAccepted && resp.status != http.StatusOK {
		return web3.PendingTransaction{}, resp.protocolError(op)
	}

	var pending pendingResponse
	if err := resp.decode(op, &pending); err != nil {
		return web3.PendingTransaction{}, err
	}
	raw := signed.RawTransaction()
	hash := pending.Hash
	if hash == "" {
		hash = localHash
	} else if !strings.EqualFold(hash, localHash) {
		c.logger.Warn("node hash differs from local hash", "node_hash", hash, "local_hash", localHash)
	}
	c.logger.Debug("transaction submitted", "hash", hash, "sequence_number", raw.SequenceNumber)
	return web3.PendingTransaction{
		Hash:                    hash,
		Sender:                  raw.Sender,
		SequenceNumber:          raw.SequenceNumber,
		ExpirationTimestampSecs: raw.ExpirationTimestampSecs,
	}, nil
}

type response struct {
	status int
	header http.Header
	body   []byte
}

func (c *Client) get(ctx context.Context, op, endpoint string) (*response, error) {
	return c.do(ctx, op, http.MethodGet, endpoint, nil, "")
}

func (c *Client) do(ctx context.Context, op, method, endpoint string, body io.Reader, contentType string) (*response, error) {
	rel := &url.URL{Path: path.Join(c.baseURL.Path, endpoint)}
	u := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "构建请求失败", xerrors.WithOperation(op))
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeNetwork, err, "请求节点失败", xerrors.WithOperation(op))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeNetwork, err, "读取节点响应失败", xerrors.WithOperation(op))
	}
	c.logger.Debug("node request", "method", method, "path", rel.Path, "status", resp.StatusCode, "elapsed", time.Since(started))

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, xerrors.New(xerrors.CodeNetwork,
			fmt.Sprintf("节点返回错误状态 %d: %s", resp.StatusCode, strings.TrimSpace(string(data))),
			xerrors.WithOperation(op))
	}
	return &response{status: resp.StatusCode, header: resp.Header, body: data}, nil
}

func (r *response) decode(op string, out any) error {
	if err := json.Unmarshal(r.body, out); err != nil {
		return xerrors.Wrap(xerrors.CodeProtocol, err, "解析节点响应失败", xerrors.WithOperation(op))
	}
	return nil
}

func (r *response) apiError() *APIError {
	apiErr := &APIError{StatusCode: r.status}
	if len(r.body) > 0 {
		if err := json.Unmarshal(r.body, apiErr); err != nil {
			apiErr.Message = string(bytes.TrimSpace(r.body))
		}
	}
	return apiErr
}

// notFound reports a 404 whose error_code, when present, is one of codes.
func (r *response) notFound(codes ...string) bool {
	if r.status != http.StatusNotFound {
		return false
	}
	apiErr := r.apiError()
	if apiErr.ErrorCode == "" {
		return true
	}
	for _, code := range codes {
		if apiErr.ErrorCode == code {
			return true
		}
	}
	return false
}

func (r *response) protocolError(op string) error {
	return xerrors.Wrap(xerrors.CodeProtocol, r.apiError(), fmt.Sprintf("意外的响应状态 %d", r.status), xerrors.WithOperation(op))
}

func (r *response) ledgerTimestampUsec() (uint64, bool) {
	raw := r.header.Get(headerLedgerTimestampUsec)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
