package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ovaphlow/pitchfork/service-storefront-go/internal/config"
	"github.com/ovaphlow/pitchfork/service-storefront-go/internal/profile/repo"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "storefront",
		Short:         "Storefront profile service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}

	indexesCmd := &cobra.Command{
		Use:   "indexes",
		Short: "Create indexes and tables for the configured store, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(cmd.Context(), func(ctx context.Context, s *stores) error {
				if err := s.ensure(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "ok")
				return nil
			})
		},
	}

	adminCmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrative operations",
	}
	claimCmd := &cobra.Command{
		Use:   "claim <subjectId>",
		Short: "Mark a subject as the single admin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(cmd.Context(), func(ctx context.Context, s *stores) error {
				if err := s.ensure(ctx); err != nil {
					return err
				}
				err := s.claimer.ClaimAdmin(ctx, args[0])
				if errors.Is(err, repo.ErrAdminClaimed) {
					return errors.New("admin already claimed")
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "admin claimed by %s\n", args[0])
				return nil
			})
		},
	}
	adminCmd.AddCommand(claimCmd)
	root.AddCommand(serveCmd, indexesCmd, adminCmd)
	return root
}

// withStores opens the configured backend for a one-shot maintenance command.
func withStores(ctx context.Context, fn func(context.Context, *stores) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := config.ConfigFromEnv()
	if err := cfg.ValidateStore(); err != nil {
		return err
	}
	s, err := openStores(cfg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	defer s.close(context.Background())
	return fn(ctx, s)
}
