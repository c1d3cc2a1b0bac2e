package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"aptos-playground/internal/account"
	"aptos-playground/internal/config"
	xerrors "aptos-playground/internal/errors"
	"aptos-playground/internal/web3"
	"aptos-playground/internal/web3/provider"
	"aptos-playground/pkg/logger"
)

// app 保存各子命令共享的配置与参数。
type app struct {
	configPath  string
	profilePath string
	profileName string
	logLevel    string

	cfg *config.Config
	log *slog.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "injoy",
		Short:         "Register the InJoyCoin managed coin for an Aptos account",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
	}
	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "runtime config file (default $INJOY_CONFIG or configs/injoy.json)")
	flags.StringVar(&a.profilePath, "profile-file", "", "CLI profile file (default .aptos/config.yaml)")
	flags.StringVarP(&a.profileName, "profile", "p", "", "profile name inside the profile file")
	flags.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error")

	root.AddCommand(
		newRegisterCommand(a),
		newAccountCommand(a),
		newNetworksCommand(a),
		newHistoryCommand(a),
	)
	return root
}

func (a *app) init() error {
	var err error
	if a.configPath != "" {
		a.cfg, err = config.Load(a.configPath)
	} else {
		a.cfg, _, err = config.LoadFromEnv()
	}
	if err != nil {
		return err
	}
	if a.profilePath != "" {
		a.cfg.Profile.Path = a.profilePath
	}
	if a.profileName != "" {
		a.cfg.Profile.Name = a.profileName
	}
	if a.logLevel != "" {
		a.cfg.Log.Level = a.logLevel
	}

	if err := logger.Init(logger.Config{
		Level:       a.cfg.Log.Level,
		Format:      a.cfg.Log.Format,
		OutputPaths: a.cfg.Log.Outputs,
	}); err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}
	a.log = logger.Named("cli")
	return nil
}

func (a *app) networks() (web3.NetworkDefinitions, error) {
	return web3.LoadNetworkDefinitions(a.cfg.Network.Definitions)
}

// profile 读取并校验 profile，缺失的端点按网络名补全。
func (a *app) profile() (config.Profile, error) {
	profile, err := config.LoadProfile(a.cfg.Profile.Path, a.cfg.Profile.Name)
	if err != nil {
		return config.Profile{}, err
	}
	defs, err := a.networks()
	if err != nil {
		return config.Profile{}, err
	}
	profile = profile.WithNetworkDefaults(defs)
	if err := profile.Validate(); err != nil {
		return config.Profile{}, err
	}
	a.log.Debug("profile loaded", "profile", profile)
	return profile, nil
}

func (a *app) account(profile config.Profile) (*account.LocalAccount, error) {
	acct, err := account.New(profile.Account, profile.PrivateKey, 0)
	if err != nil {
		return nil, err
	}
	a.log.Debug("account loaded", "account", acct)
	return acct, nil
}

// client 以 profile 的端点覆盖同名网络定义，并返回 profile 所在网络的客户端。
// 调用方负责关闭返回的注册表。
func (a *app) client(profile config.Profile) (*provider.Registry, web3.Client, error) {
	defs, err := a.networks()
	if err != nil {
		return nil, nil, err
	}
	name := networkName(profile)
	def, _ := defs.Lookup(name)
	def.RESTURL = profile.RESTURL
	def.FaucetURL = profile.FaucetURL
	defs.Networks[name] = def

	registry, err := provider.NewRegistry(defs, name, provider.Options{
		HTTPTimeout:  a.cfg.HTTPTimeout(),
		PollInterval: a.cfg.PollInterval(),
		WaitTimeout:  a.cfg.WaitTimeout(),
	})
	if err != nil {
		return nil, nil, xerrors.Wrap(xerrors.CodeConfig, err, "初始化网络客户端失败", xerrors.WithOperation("create node client"))
	}
	client, err := registry.DefaultClient()
	if err != nil {
		registry.Close()
		return nil, nil, err
	}
	a.log.Debug("node client ready", "client", client, "networks", registry.Networks())
	return registry, client, nil
}

func networkName(profile config.Profile) string {
	if profile.Network != "" {
		return strings.ToLower(strings.TrimSpace(profile.Network))
	}
	return strings.ToLower(profile.Name)
}
