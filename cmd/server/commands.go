package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/application/identity"
	"github.com/rcarvalho-pb/payment_orchestrator-go/internal/infrastructure/outbox"
)

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			// newApp migrates while opening the store.
			a, err := newApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			a.logger.Info("schema up to date", map[string]any{"driver": a.cfg.Database.Driver})
			return nil
		},
	}
}

func syncCmd(configPath *string) *cobra.Command {
	var window string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile every ledger entry touched within the window",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			span := a.cfg.Reconcile.Window
			if window != "" {
				if span, err = parseWindow(window); err != nil {
					return err
				}
			}

			queued, err := a.reconciler.Sweep(ctx, span)
			if err != nil {
				return err
			}

			// One pass, no retries: the next sync or a running server picks
			// up whatever fails here.
			bus, closeBus, err := a.newBus(false)
			if err != nil {
				return err
			}
			defer closeBus()

			dispatcher := &outbox.Dispatcher{Repo: a.outbox, EventBus: bus, Logger: a.logger, BatchSize: a.cfg.Outbox.BatchSize}
			for {
				if sent := dispatcher.DispatchOnce(ctx); sent == 0 {
					break
				}
			}

			snap := a.metrics.Snapshot()
			fmt.Fprintf(cmd.OutOrStdout(), "queued %d, reconciled %d, failed %d\n",
				queued, snap["reconciles_processed"]-snap["reconciles_failed"], snap["reconciles_failed"])

			backlog, err := a.outbox.CountUnpublished(ctx)
			if err != nil {
				return err
			}
			for typ, n := range backlog {
				fmt.Fprintf(cmd.OutOrStdout(), "undelivered %s: %d\n", typ, n)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&window, "window", "w", "", "how far back to look, e.g. 72h or 30d (default reconcile.window)")
	return cmd
}

func purgeProfilesCmd(configPath *string) *cobra.Command {
	var (
		organizationID int64
		confirm        bool
	)

	cmd := &cobra.Command{
		Use:   "purge-profiles",
		Short: "Delete every billing profile of an organization at the gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			if organizationID <= 0 {
				return errors.New("--organization is required")
			}
			if !confirm {
				return errors.New("refusing to purge without --yes")
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			client, err := a.gateways.ForOrganization(ctx, organizationID)
			if err != nil {
				return err
			}

			repos := a.store.Repos()
			deleted, err := identity.PurgeProfiles(ctx, client, repos.Customers, repos.PaymentMethods, organizationID)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d billing profiles\n", deleted)
			return nil
		},
	}

	cmd.Flags().Int64VarP(&organizationID, "organization", "o", 0, "organization id")
	cmd.Flags().BoolVar(&confirm, "yes", false, "confirm the purge")
	return cmd
}
