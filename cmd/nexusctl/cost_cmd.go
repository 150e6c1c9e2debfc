package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/nexus-ai/nexus-gateway/internal/audit"
	"github.com/nexus-ai/nexus-gateway/internal/cost"
)

func newCostCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cost",
		Short: "Inspect tenant spend counters",
	}
	cmd.AddCommand(newCostReportCmd())
	return cmd
}

func newCostReportCmd() *cobra.Command {
	var dsn string
	var postgres bool
	var tenant string
	var auditDSN string
	var auditPostgres bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a tenant's daily, month-to-date, and per-model spend",
		RunE: func(cmd *cobra.Command, args []string) error {
			if tenant == "" {
				return fmt.Errorf("--tenant is required")
			}

			var store *cost.CounterStore
			var err error
			if postgres {
				store, err = cost.NewPostgresCounterStore(dsn)
			} else {
				store, err = cost.NewSQLiteCounterStore(dsn)
			}
			if err != nil {
				return err
			}
			defer store.Close()

			var auditStore *audit.Store
			if auditDSN != "" {
				auditStore, err = openAuditStore(auditDSN, auditPostgres)
				if err != nil {
					return fmt.Errorf("open audit store: %w", err)
				}
				defer auditStore.Close()
			}

			tracker := cost.NewTracker(store, auditStore)
			ctx := context.Background()

			breakdown, err := tracker.GetCostBreakdown(ctx, tenant)
			if err != nil {
				return fmt.Errorf("cost breakdown: %w", err)
			}

			fmt.Printf("tenant:  %s\n", tenant)
			fmt.Printf("today:   $%.4f\n", breakdown.TodayUSD)
			fmt.Printf("mtd:     $%.4f\n", breakdown.MTDUSD)
			if len(breakdown.ByModel) == 0 {
				fmt.Println("by_model: (none; pass --audit-dsn to populate)")
				return nil
			}
			models := make([]string, 0, len(breakdown.ByModel))
			for m := range breakdown.ByModel {
				models = append(models, m)
			}
			sort.Strings(models)
			fmt.Println("by_model:")
			for _, m := range models {
				fmt.Printf("  %-40s $%.4f\n", m, breakdown.ByModel[m])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dsn, "dsn", "nexus-cost.db", "cost store DSN")
	cmd.Flags().BoolVar(&postgres, "postgres", false, "treat dsn as a Postgres connection string")
	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant id to report on")
	cmd.Flags().StringVar(&auditDSN, "audit-dsn", "", "audit store DSN; when set, populates the per-model breakdown")
	cmd.Flags().BoolVar(&auditPostgres, "audit-postgres", false, "treat audit-dsn as a Postgres connection string")
	return cmd
}
