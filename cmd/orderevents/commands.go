package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nsridhar76/go-orderevents/internal/adapter/postgres"
	"github.com/nsridhar76/go-orderevents/internal/app"
	"github.com/nsridhar76/go-orderevents/internal/auth"
	"github.com/nsridhar76/go-orderevents/internal/config"
)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "orderevents",
		Short:         "Order service with a retrying event pipeline",
		Version:       app.BuildVersion(),
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if configPath != "" {
				return os.Setenv("CONFIG_PATH", configPath)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to the YAML config (overrides CONFIG_PATH)")

	root.AddCommand(newServeCmd(), newMigrateCmd(), newPublishCmd(), newTokenCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and gRPC servers and the order consumers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := app.NewLogger(cfg.Log)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return app.Run(ctx, cfg, logger)
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := app.NewLogger(cfg.Log)

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			return postgres.Migrate(ctx, cfg.Database.DSN, logger)
		},
	}
}

func newPublishCmd() *cobra.Command {
	var topic, payload string

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish one message to an order topic",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := app.NewLogger(cfg.Log)

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			if err := app.Publish(ctx, cfg, logger, topic, payload); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published to %s\n", topic)
			return nil
		},
	}
	cmd.Flags().StringVar(&topic, "topic", "", "destination topic, e.g. order-created")
	cmd.Flags().StringVar(&payload, "payload", "", "message text")
	_ = cmd.MarkFlagRequired("topic")
	_ = cmd.MarkFlagRequired("payload")
	return cmd
}

func newTokenCmd() *cobra.Command {
	var (
		userID int64
		role   string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token for local testing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			tok, err := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer).GenerateAccessToken(userID, role, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "user id placed in the subject claim")
	cmd.Flags().StringVar(&role, "role", "USER", "role claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
