package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	xerrors "aptos-playground/internal/errors"
	"aptos-playground/internal/journal"
	"aptos-playground/internal/move"
	"aptos-playground/internal/web3"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "injoy.json", `{"profile":{"path":"profiles/config.yaml"},"journal":{"driver":"file"}}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Profile.Path != filepath.Join(dir, "profiles/config.yaml") {
		t.Fatalf("profile path not resolved: %s", cfg.Profile.Path)
	}
	if cfg.Profile.Name != "default" {
		t.Fatalf("unexpected profile name: %s", cfg.Profile.Name)
	}
	if cfg.Transaction.MaxGasAmount != 10_000 || cfg.ExpirationWindow().Seconds() != 300 {
		t.Fatalf("unexpected transaction defaults: %+v", cfg.Transaction)
	}
	if !cfg.SyncSequenceNumber() {
		t.Fatal("sequence sync should default to true")
	}
	if cfg.PollInterval().Milliseconds() != 500 || cfg.WaitTimeout().Seconds() != 60 {
		t.Fatalf("unexpected confirmation defaults: %+v", cfg.Confirmation)
	}
	if cfg.Journal.File.Path != filepath.Join(dir, journal.DefaultFilePath) {
		t.Fatalf("journal path not resolved: %s", cfg.Journal.File.Path)
	}
}

func TestLoadKeepsExplicitValues(t *testing.T) {
	path := writeFile(t, t.TempDir(), "injoy.json", `{
		"transaction": {"max_gas_amount": 2000, "sync_sequence_number": false, "gas_unit_price": 150},
		"coin": {"owner": "0xb2", "module": "other_coin", "struct": "Other"}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Transaction.MaxGasAmount != 2000 || cfg.Transaction.GasUnitPrice != 150 {
		t.Fatalf("explicit values overwritten: %+v", cfg.Transaction)
	}
	if cfg.SyncSequenceNumber() {
		t.Fatal("explicit false for sync_sequence_number ignored")
	}
	coin, err := cfg.CoinType(move.MustParseAddress("0xa1"))
	if err != nil {
		t.Fatalf("CoinType returned error: %v", err)
	}
	if coin.String() != "0xb2::other_coin::Other" {
		t.Fatalf("unexpected coin type: %s", coin)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"coin.module":    `{"coin":{"module":"9bad"}}`,
		"coin.owner":     `{"coin":{"owner":"0xzz"}}`,
		"journal.driver": `{"journal":{"driver":"kafka"}}`,
	}
	for field, body := range cases {
		_, err := Load(writeFile(t, dir, "bad.json", body))
		if xerrors.CodeOf(err) != xerrors.CodeConfig {
			t.Fatalf("%s: expected config error, got %v", field, err)
		}
		e, _ := xerrors.From(err)
		if e.Metadata()["field"] != field {
			t.Fatalf("expected field %s, got %v", field, e.Metadata())
		}
	}

	if _, err := Load(writeFile(t, dir, "broken.json", `{`)); xerrors.CodeOf(err) != xerrors.CodeConfig {
		t.Fatalf("expected config error for malformed json, got %v", err)
	}
	if _, err := Load(filepath.Join(dir, "missing.json")); xerrors.CodeOf(err) != xerrors.CodeConfig {
		t.Fatalf("expected config error for missing file, got %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	path := writeFile(t, t.TempDir(), "injoy.json", `{"profile":{"name":"testnet"}}`)
	t.Setenv(EnvConfigPath, path)

	cfg, used, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv returned error: %v", err)
	}
	if used != path || cfg.Profile.Name != "testnet" {
		t.Fatalf("unexpected result: %s %+v", used, cfg.Profile)
	}
}

func TestDefaultCoinTypeUsesAccount(t *testing.T) {
	coin, err := Default().CoinType(move.MustParseAddress("0xA1"))
	if err != nil {
		t.Fatalf("CoinType returned error: %v", err)
	}
	if coin.String() != "0xa1::injoy_coin::InJoyCoin" {
		t.Fatalf("unexpected coin type: %s", coin)
	}
}

const profileYAML = `---
profiles:
  default:
    network: Local
    private_key: "0x1111111111111111111111111111111111111111111111111111111111111111"
    public_key: "0xd04ab232742bb4ab3a1368bd4615e4e6d0224ab71a016baf8520a332c9778737"
    account: a1
    rest_url: "http://localhost:8080"
    faucet_url: "http://localhost:8081"
    faucet_auth_token: mint-secret
  partial:
    network: Testnet
    account: b2
`

func TestLoadProfile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", profileYAML)

	profile, err := LoadProfile(path, "")
	if err != nil {
		t.Fatalf("LoadProfile returned error: %v", err)
	}
	if profile.Name != "default" || profile.RESTURL != "http://localhost:8080" || profile.Account != "a1" || profile.FaucetAuthToken != "mint-secret" {
		t.Fatalf("unexpected profile: %+v", profile)
	}
	if err := profile.Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}

	if _, err := LoadProfile(path, "mainnet"); xerrors.CodeOf(err) != xerrors.CodeConfig {
		t.Fatalf("expected config error for unknown profile, got %v", err)
	}
}

func TestProfileValidateNamesMissingField(t *testing.T) {
	profile, err := ParseProfile([]byte(profileYAML), "partial")
	if err != nil {
		t.Fatalf("ParseProfile returned error: %v", err)
	}

	profile = profile.WithNetworkDefaults(web3.DefaultNetworks())
	if profile.RESTURL != "https://fullnode.testnet.aptoslabs.com/v1" {
		t.Fatalf("rest_url not filled from network: %s", profile.RESTURL)
	}

	err = profile.Validate()
	if xerrors.CodeOf(err) != xerrors.CodeConfig {
		t.Fatalf("expected config error, got %v", err)
	}
	e, _ := xerrors.From(err)
	if e.Metadata()["field"] != "profiles.partial.private_key" {
		t.Fatalf("unexpected field: %v", e.Metadata())
	}
}

func TestProfileLogValueHidesKey(t *testing.T) {
	profile, err := ParseProfile([]byte(profileYAML), "default")
	if err != nil {
		t.Fatalf("ParseProfile returned error: %v", err)
	}
	for _, attr := range profile.LogValue().Group() {
		if attr.Key == "private_key" {
			t.Fatal("private key must not be logged")
		}
		if strings.Contains(attr.Value.String(), "mint-secret") {
			t.Fatal("faucet token must not be logged")
		}
	}
}
