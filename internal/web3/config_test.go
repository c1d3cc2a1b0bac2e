package web3

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadNetworkDefinitionsOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "networks.yaml")
	content := `networks:
  Local:
    rest_url: http://127.0.0.1:18080/v1
    faucet_url: http://127.0.0.1:18081
    chain_id: 4
  staging:
    rest_url: https://staging.example.org/v1
    chain_id: 40
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write networks: %v", err)
	}

	defs, err := LoadNetworkDefinitions(path)
	if err != nil {
		t.Fatalf("LoadNetworkDefinitions returned error: %v", err)
	}
	local, ok := defs.Lookup("local")
	if !ok || local.RESTURL != "http://127.0.0.1:18080/v1" {
		t.Fatalf("local not overridden: %+v", local)
	}
	if _, ok := defs.Lookup("MAINNET"); !ok {
		t.Fatal("defaults should remain available")
	}
	names := defs.Names()
	if len(names) != 5 || names[len(names)-1] != "testnet" {
		t.Fatalf("unexpected names: %v", names)
	}
}

func TestLoadNetworkDefinitionsEmptyPath(t *testing.T) {
	defs, err := LoadNetworkDefinitions("")
	if err != nil {
		t.Fatalf("LoadNetworkDefinitions returned error: %v", err)
	}
	if def, _ := defs.Lookup("testnet"); def.ChainID != 2 {
		t.Fatalf("unexpected testnet definition: %+v", def)
	}
	if _, err := LoadNetworkDefinitions(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestTransactionRecordCommitted(t *testing.T) {
	for status, want := range map[TransactionStatus]bool{
		StatusPending:         false,
		StatusSuccess:         true,
		StatusExecutionFailed: true,
		StatusExpired:         false,
	} {
		if got := (TransactionRecord{Status: status}).Committed(); got != want {
			t.Fatalf("Committed() for %s = %v, want %v", status, got, want)
		}
	}
}
