package main

import (
	"context"
	"fmt"

	"github.com/dalemusser/userz/internal/app/accounts"
	"github.com/dalemusser/userz/internal/app/bootstrap"
	"github.com/dalemusser/userz/internal/app/system/timeouts"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// runtime is what a command needs once config is loaded. deps and accounts
// are only set for commands that touch the database.
type runtime struct {
	cfg      bootstrap.AppConfig
	log      *zap.Logger
	deps     bootstrap.DBDeps
	accounts *accounts.Service
}

type cli struct {
	v          *viper.Viper
	configFile string
}

func newRootCmd() *cobra.Command {
	c := &cli{v: bootstrap.NewViper()}

	root := &cobra.Command{
		Use:           "userz",
		Short:         "Manage user accounts, names, passwords and contacts",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&c.configFile, "config", "", "Path to a config file (yaml, toml or json)")
	if err := bootstrap.BindFlags(root.PersistentFlags(), c.v); err != nil {
		panic(err)
	}

	root.AddCommand(
		c.migrateCmd(),
		c.createCmd(),
		c.showCmd(),
		c.renameCmd(),
		c.emailCmd(),
		c.verifyCmd(),
		c.passwdCmd(),
		c.deleteCmd(),
		c.contactsCmd(),
		c.formatCmd(),
	)
	return root
}

// load resolves and validates config and builds the logger.
func (c *cli) load() (*runtime, error) {
	cfg, err := bootstrap.LoadConfig(c.v, c.configFile, zap.NewNop())
	if err != nil {
		return nil, err
	}
	logger, err := bootstrap.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)

	if err := bootstrap.ValidateConfig(cfg, logger); err != nil {
		return nil, err
	}
	timeouts.Configure(timeouts.Config{Short: cfg.TimeoutShort, Long: cfg.TimeoutLong})

	return &runtime{cfg: cfg, log: logger}, nil
}

// withDB wraps a command body with config loading, a database connection
// and the account service, and tears them down afterwards.
func (c *cli) withDB(fn func(ctx context.Context, rt *runtime, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		rt, err := c.load()
		if err != nil {
			return err
		}
		defer func() { _ = rt.log.Sync() }()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		deps, err := bootstrap.ConnectDB(ctx, rt.cfg, rt.log)
		if err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), timeouts.Short())
			defer cancel()
			_ = bootstrap.Shutdown(sctx, deps, rt.log)
		}()
		rt.deps = deps

		rt.accounts, err = bootstrap.BuildAccounts(rt.cfg, deps, rt.log)
		if err != nil {
			return fmt.Errorf("build services: %w", err)
		}
		return fn(ctx, rt, args)
	}
}
