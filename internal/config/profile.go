package config

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	xerrors "aptos-playground/internal/errors"
	"aptos-playground/internal/web3"
)

// Profile 对应 CLI 配置文件中的一个 profile。
type Profile struct {
	Name       string `yaml:"-"`
	Network    string `yaml:"network"`
	RESTURL    string `yaml:"rest_url"`
	FaucetURL  string `yaml:"faucet_url"`
	Account    string `yaml:"account"`
	PrivateKey string `yaml:"private_key"`
	PublicKey  string `yaml:"public_key"`
	// FaucetAuthToken 是访问受限 faucet 时使用的 bearer token。
	FaucetAuthToken string `yaml:"faucet_auth_token"`
}

type profileFile struct {
	Profiles map[string]Profile `yaml:"profiles"`
}

// LoadProfile 读取 YAML 文件中名为 name 的 profile 并校验必填字段。
func LoadProfile(path, name string) (Profile, error) {
	const op = "load profile"
	if name == "" {
		name = DefaultProfileName
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, xerrors.Wrap(xerrors.CodeConfig, err, fmt.Sprintf("读取 profile 文件失败: %s", path), xerrors.WithOperation(op))
	}
	return ParseProfile(content, name)
}

// ParseProfile 从 YAML 内容中解析 profile。
func ParseProfile(content []byte, name string) (Profile, error) {
	const op = "load profile"
	var file profileFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return Profile{}, xerrors.Wrap(xerrors.CodeConfig, err, "解析 profile 文件失败", xerrors.WithOperation(op))
	}
	profile, ok := file.Profiles[name]
	if !ok {
		names := make([]string, 0, len(file.Profiles))
		for n := range file.Profiles {
			names = append(names, n)
		}
		sort.Strings(names)
		return Profile{}, xerrors.New(xerrors.CodeConfig,
			fmt.Sprintf("profile %q 不存在 (可用: %s)", name, strings.Join(names, ", ")),
			xerrors.WithOperation(op), xerrors.WithMetadata("field", "profiles."+name))
	}
	profile.Name = name
	return profile, nil
}

// WithNetworkDefaults 在 rest_url 或 faucet_url 缺失时按 network 名称补全。
func (p Profile) WithNetworkDefaults(defs web3.NetworkDefinitions) Profile {
	if p.Network == "" || (p.RESTURL != "" && p.FaucetURL != "") {
		return p
	}
	def, ok := defs.Lookup(p.Network)
	if !ok {
		return p
	}
	if p.RESTURL == "" {
		p.RESTURL = def.RESTURL
	}
	if p.FaucetURL == "" {
		p.FaucetURL = def.FaucetURL
	}
	return p
}

// Validate 检查必填字段，错误信息中包含缺失字段名。faucet_url 可以为空，此时跳过充值。
func (p Profile) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"rest_url", p.RESTURL},
		{"account", p.Account},
		{"private_key", p.PrivateKey},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			field := fmt.Sprintf("profiles.%s.%s", p.Name, r.field)
			return xerrors.New(xerrors.CodeConfig, fmt.Sprintf("缺少必填字段 %s", field),
				xerrors.WithOperation("validate profile"), xerrors.WithMetadata("field", field))
		}
	}
	return nil
}

// LogValue 实现 slog.LogValuer，不输出私钥。
func (p Profile) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("name", p.Name),
		slog.String("network", p.Network),
		slog.String("rest_url", p.RESTURL),
		slog.String("faucet_url", p.FaucetURL),
		slog.String("account", p.Account),
		slog.Bool("faucet_auth", p.FaucetAuthToken != ""),
	)
}
