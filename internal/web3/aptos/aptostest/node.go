// Package aptostest provides an in-memory Aptos node and faucet served over
// httptest for exercising REST clients end to end.
package aptostest

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/crypto/sha3"

	"aptos-playground/internal/move"
)

// Outcome decides how a submitted transaction ends.
type Outcome int

const (
	// Succeed commits the transaction with success=true.
	Succeed Outcome = iota
	// Abort commits the transaction with success=false.
	Abort
	// NeverCommit keeps the transaction pending forever.
	NeverCommit
	// Vanish drops the transaction so lookups answer 404.
	Vanish
)

// Node is a fake full node.
type Node struct {
	chainID      uint8
	gasEstimate  uint64
	pendingPolls int
	outcome      Outcome
	vmStatus     string
	failIndex    bool

	server *httptest.Server

	mu        sync.Mutex
	clock     func() time.Time
	sequences map[move.AccountAddress]uint64
	balances  map[string]uint64
	txns      map[string]*txnState
	submitted []Submission
	mints     []Mint
}

// Option customises a Node before it starts serving.
type Option func(*Node)

// WithChainID sets the chain id reported by the index endpoint.
func WithChainID(id uint8) Option {
	return func(n *Node) { n.chainID = id }
}

// WithGasEstimate sets the gas unit price estimate.
func WithGasEstimate(price uint64) Option {
	return func(n *Node) { n.gasEstimate = price }
}

// WithPendingPolls sets how many lookups report pending before a submitted
// transaction reaches its outcome.
func WithPendingPolls(polls int) Option {
	return func(n *Node) { n.pendingPolls = polls }
}

// WithOutcome decides how submitted transactions end.
func WithOutcome(outcome Outcome) Option {
	return func(n *Node) { n.outcome = outcome }
}

// WithVMStatus sets the vm_status reported for aborted transactions.
func WithVMStatus(status string) Option {
	return func(n *Node) { n.vmStatus = status }
}

// WithMalformedIndex makes the index endpoint answer with invalid JSON.
func WithMalformedIndex() Option {
	return func(n *Node) { n.failIndex = true }
}

// Submission records one accepted or rejected submit call.
type Submission struct {
	Hash           string
	Sender         move.AccountAddress
	SequenceNumber uint64
	ContentType    string
	Body           []byte
}

// Mint records one faucet call.
type Mint struct {
	Address string
	Amount  uint64
	// Authorization is the raw Authorization header, if any.
	Authorization string
}

type txnState struct {
	polls   int
	version uint64
	outcome Outcome

	// set for transactions parked in the mempool behind a sequence gap
	sender move.AccountAddress
	seq    uint64
	parked bool
}

// NewNode starts a fake node. Without options it reports chain id 4 and a
// gas estimate of 100 and commits every transaction on the first lookup.
func NewNode(opts ...Option) *Node {
	n := &Node{
		chainID:     4,
		gasEstimate: 100,
		vmStatus:    "Move abort in 0x1::coin: ECOIN_STORE_ALREADY_PUBLISHED(0x80004)",
		clock:       time.Now,
		sequences:   make(map[move.AccountAddress]uint64),
		balances:    make(map[string]uint64),
		txns:        make(map[string]*txnState),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(n)
		}
	}
	n.server = httptest.NewServer(http.HandlerFunc(n.serve))
	return n
}

// URL is the node root, without the /v1 prefix.
func (n *Node) URL() string { return n.server.URL }

// FaucetURL points at the same server, which also answers /mint.
func (n *Node) FaucetURL() string { return n.server.URL }

// Close shuts the server down.
func (n *Node) Close() { n.server.Close() }

// SetLedgerClock replaces the clock behind X-Aptos-Ledger-TimestampUsec.
func (n *Node) SetLedgerClock(clock func() time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.clock = clock
}

func (n *Node) now() time.Time {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.clock()
}

// SetAccount creates an account with the given on-chain sequence number.
func (n *Node) SetAccount(addr move.AccountAddress, seq uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sequences[addr] = seq
}

// Sequence returns the on-chain sequence number of addr.
func (n *Node) Sequence(addr move.AccountAddress) uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sequences[addr]
}

// SetBalance sets the coin balance of addr for coinType.
func (n *Node) SetBalance(addr move.AccountAddress, coinType move.TypeTag, amount uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.balances[balanceKey(addr.String(), coinType.String())] = amount
}

// Submissions returns every submit call seen so far.
func (n *Node) Submissions() []Submission {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Submission(nil), n.submitted...)
}

// Balance returns the balance of addr for coinType.
func (n *Node) Balance(addr move.AccountAddress, coinType move.TypeTag) uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.balances[balanceKey(addr.String(), coinType.String())]
}

// Mints returns every faucet call seen so far.
func (n *Node) Mints() []Mint {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Mint(nil), n.mints...)
}

// AptosCoin is the coin credited by the faucet.
const AptosCoin = "0x1::aptos_coin::AptosCoin"

func balanceKey(addr, coinType string) string {
	return strings.ToLower(addr) + "/" + strings.ToLower(strings.ReplaceAll(coinType, " ", ""))
}

func (n *Node) serve(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Aptos-Ledger-TimestampUsec", strconv.FormatInt(n.now().UnixMicro(), 10))
	p := r.URL.Path
	switch {
	case r.Method == http.MethodPost && p == "/mint":
		n.mint(w, r)
	case r.Method == http.MethodGet && (p == "/v1" || p == "/v1/"):
		n.index(w)
	case r.Method == http.MethodGet && p == "/v1/estimate_gas_price":
		writeJSON(w, http.StatusOK, map[string]any{
			"deprioritized_gas_estimate": n.gasEstimate,
			"gas_estimate":               n.gasEstimate,
			"prioritized_gas_estimate":   n.gasEstimate * 2,
		})
	case r.Method == http.MethodPost && p == "/v1/transactions":
		n.submit(w, r)
	case r.Method == http.MethodGet && strings.HasPrefix(p, "/v1/transactions/by_hash/"):
		n.byHash(w, strings.TrimPrefix(p, "/v1/transactions/by_hash/"))
	case r.Method == http.MethodGet && strings.HasPrefix(p, "/v1/accounts/"):
		n.account(w, strings.TrimPrefix(p, "/v1/accounts/"))
	default:
		writeError(w, http.StatusNotFound, "web_framework_error", "route not found", nil)
	}
}

func (n *Node) index(w http.ResponseWriter) {
	if n.failIndex {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "{not json")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"chain_id":              n.chainID,
		"epoch":                 "1",
		"ledger_version":        "100",
		"oldest_ledger_version": "0",
		"ledger_timestamp":      strconv.FormatInt(n.now().UnixMicro(), 10),
		"node_role":             "full_node",
		"block_height":          "50",
	})
}

func (n *Node) account(w http.ResponseWriter, rest string) {
	addrPart, resource, hasResource := strings.Cut(rest, "/resource/")
	addr, err := move.ParseAddress(addrPart)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	seq, exists := n.sequences[addr]
	if !exists {
		writeError(w, http.StatusNotFound, "account_not_found", "Account not found by Address("+addr.String()+")", nil)
		return
	}
	if !hasResource {
		writeJSON(w, http.StatusOK, map[string]any{
			"sequence_number":    strconv.FormatUint(seq, 10),
			"authentication_key": addr.String(),
		})
		return
	}

	const prefix = "0x1::coin::CoinStore<"
	if !strings.HasPrefix(resource, prefix) || !strings.HasSuffix(resource, ">") {
		writeError(w, http.StatusNotFound, "resource_not_found", "Resource not found: "+resource, nil)
		return
	}
	coinType := strings.TrimSuffix(strings.TrimPrefix(resource, prefix), ">")
	balance, ok := n.balances[balanceKey(addr.String(), coinType)]
	if !ok {
		writeError(w, http.StatusNotFound, "resource_not_found", "Resource not found: "+resource, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"type": resource,
		"data": map[string]any{"coin": map[string]any{"value": strconv.FormatUint(balance, 10)}},
	})
}

func (n *Node) mint(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	amount, err := strconv.ParseUint(query.Get("amount"), 10, 64)
	if err != nil {
		http.Error(w, "invalid amount", http.StatusBadRequest)
		return
	}
	addr, err := move.ParseAddress(query.Get("address"))
	if err != nil {
		http.Error(w, "invalid address", http.StatusBadRequest)
		return
	}

	n.mu.Lock()
	n.mints = append(n.mints, Mint{Address: addr.String(), Amount: amount, Authorization: r.Header.Get("Authorization")})
	if _, ok := n.sequences[addr]; !ok {
		n.sequences[addr] = 0
	}
	n.balances[balanceKey(addr.String(), AptosCoin)] += amount
	hash := hexutil.Encode(hashBytes([]byte(fmt.Sprintf("mint/%s/%d/%d", addr, amount, len(n.mints)))))
	n.txns[hash] = &txnState{version: uint64(len(n.txns) + 1), outcome: Succeed, polls: -1}
	n.mu.Unlock()

	writeJSON(w, http.StatusOK, []string{hash})
}

func (n *Node) submit(w http.ResponseWriter, r *http.Request) {
	contentType := r.Header.Get("Content-Type")
	if contentType != "application/x.aptos.signed_transaction+bcs" {
		writeError(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "unexpected content type "+contentType, nil)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil || len(body) < move.AddressLength+8 {
		writeError(w, http.StatusBadRequest, "invalid_input", "failed to deserialize input into SignedTransaction", nil)
		return
	}

	var sender move.AccountAddress
	copy(sender[:], body[:move.AddressLength])
	seq := binary.LittleEndian.Uint64(body[move.AddressLength : move.AddressLength+8])
	hash := transactionHash(body)

	n.mu.Lock()
	defer n.mu.Unlock()
	n.submitted = append(n.submitted, Submission{Hash: hash, Sender: sender, SequenceNumber: seq, ContentType: contentType, Body: body})

	onChain, exists := n.sequences[sender]
	if !exists {
		writeError(w, http.StatusBadRequest, "vm_error", "Invalid transaction: Type: Validation Code: SENDING_ACCOUNT_DOES_NOT_EXIST", uint64Ptr(7))
		return
	}
	if seq < onChain {
		writeError(w, http.StatusBadRequest, "vm_error", "Invalid transaction: Type: Validation Code: SEQUENCE_NUMBER_TOO_OLD", uint64Ptr(3))
		return
	}

	state := &txnState{outcome: n.outcome}
	if seq > onChain {
		state.sender, state.seq, state.parked = sender, seq, true
	}
	n.txns[hash] = state
	writeJSON(w, http.StatusAccepted, map[string]any{
		"hash":                      hash,
		"sender":                    sender.String(),
		"sequence_number":           strconv.FormatUint(seq, 10),
		"max_gas_amount":            "10000",
		"gas_unit_price":            strconv.FormatUint(n.gasEstimate, 10),
		"expiration_timestamp_secs": "0",
	})
}

func (n *Node) byHash(w http.ResponseWriter, hash string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	state, ok := n.txns[strings.ToLower(hash)]
	if !ok || state.outcome == Vanish {
		writeError(w, http.StatusNotFound, "transaction_not_found", "Transaction not found by Transaction hash("+hash+")", nil)
		return
	}
	if state.parked && n.sequences[state.sender] < state.seq {
		writeJSON(w, http.StatusOK, map[string]any{"type": "pending_transaction", "hash": hash})
		return
	}
	state.parked = false
	if state.polls >= 0 && (state.polls < n.pendingPolls || state.outcome == NeverCommit) {
		state.polls++
		writeJSON(w, http.StatusOK, map[string]any{"type": "pending_transaction", "hash": hash})
		return
	}

	if state.version == 0 {
		state.version = uint64(len(n.txns) + 100)
		if sub, found := n.findSubmission(hash); found {
			n.sequences[sub.Sender] = sub.SequenceNumber + 1
		}
	}
	success := state.outcome != Abort
	vmStatus := "Executed successfully"
	if !success {
		vmStatus = n.vmStatus
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"type":      "user_transaction",
		"hash":      hash,
		"version":   strconv.FormatUint(state.version, 10),
		"success":   success,
		"vm_status": vmStatus,
		"gas_used":  "457",
		"timestamp": strconv.FormatInt(n.clock().UnixMicro(), 10),
	})
}

func (n *Node) findSubmission(hash string) (Submission, bool) {
	for _, sub := range n.submitted {
		if sub.Hash == hash {
			return sub, true
		}
	}
	return Submission{}, false
}

func transactionHash(signed []byte) string {
	prefix := hashBytes([]byte("APTOS::Transaction"))
	buf := make([]byte, 0, len(prefix)+1+len(signed))
	buf = append(buf, prefix...)
	buf = append(buf, 0)
	buf = append(buf, signed...)
	return hexutil.Encode(hashBytes(buf))
}

func hashBytes(b []byte) []byte {
	sum := sha3.Sum256(b)
	return sum[:]
}

func uint64Ptr(v uint64) *uint64 { return &v }

func writeError(w http.ResponseWriter, status int, code, message string, vmErrorCode *uint64) {
	body := map[string]any{"message": message, "error_code": code}
	if vmErrorCode != nil {
		body["vm_error_code"] = *vmErrorCode
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
