package faucet

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	xerrors "aptos-playground/internal/errors"
	"aptos-playground/internal/move"
	"aptos-playground/internal/web3/aptos/aptostest"
)

func TestFundPostsMintQuery(t *testing.T) {
	node := aptostest.NewNode()
	defer node.Close()

	client, err := NewClient(Config{URL: node.FaucetURL()})
	require.NoError(t, err)

	addr := move.MustParseAddress("0xa1")
	hashes, err := client.Fund(context.Background(), addr, 100_000_000)
	require.NoError(t, err)
	require.Len(t, hashes, 1)

	mints := node.Mints()
	require.Len(t, mints, 1)
	require.Equal(t, addr.String(), mints[0].Address)
	require.EqualValues(t, 100_000_000, mints[0].Amount)
	require.EqualValues(t, 100_000_000, node.Balance(addr, move.MustParseTypeTag(aptostest.AptosCoin)))
}

func TestFundSendsBearerToken(t *testing.T) {
	var auth, method string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		method = r.Method
		_, _ = w.Write([]byte(`{"txn_hashes":["abc"]}`))
	}))
	defer server.Close()

	client, err := NewClient(Config{URL: server.URL, AuthToken: "secret"})
	require.NoError(t, err)

	hashes, err := client.Fund(context.Background(), move.AddressOne, 1)
	require.NoError(t, err)
	require.Equal(t, []string{"0xabc"}, hashes)
	require.Equal(t, "Bearer secret", auth)
	require.Equal(t, http.MethodPost, method)
}

func TestFundFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	client, err := NewClient(Config{URL: server.URL})
	require.NoError(t, err)

	_, err = client.Fund(context.Background(), move.AddressOne, 1)
	require.Equal(t, xerrors.CodeFunding, xerrors.CodeOf(err))
	require.Contains(t, err.Error(), "rate limited")

	_, err = client.Fund(context.Background(), move.AddressOne, 0)
	require.Equal(t, xerrors.CodeInvalidArgument, xerrors.CodeOf(err))

	server.Close()
	_, err = client.Fund(context.Background(), move.AddressOne, 1)
	require.Equal(t, xerrors.CodeNetwork, xerrors.CodeOf(err))
}

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := NewClient(Config{})
	require.Equal(t, xerrors.CodeConfig, xerrors.CodeOf(err))

	_, err = NewClient(Config{URL: "::not a url"})
	require.Equal(t, xerrors.CodeConfig, xerrors.CodeOf(err))
}
