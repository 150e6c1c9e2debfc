package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nexus-ai/nexus-gateway/internal/audit"
)

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the hash-chained audit log",
	}
	cmd.AddCommand(newAuditVerifyCmd())
	return cmd
}

func newAuditVerifyCmd() *cobra.Command {
	var dsn string
	var postgres bool

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Walk the audit chain and report the first tampered entry, if any",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openAuditStore(dsn, postgres)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.Sequence(context.Background())
			if err != nil {
				return fmt.Errorf("load audit sequence: %w", err)
			}

			ok, bad := audit.Verify(entries)
			if ok {
				fmt.Printf("OK: %d entries verified\n", len(entries))
				return nil
			}
			fmt.Printf("TAMPERED: chain broke at index %d (of %d entries)\n", bad, len(entries))
			return fmt.Errorf("audit chain verification failed")
		},
	}
	cmd.Flags().StringVar(&dsn, "dsn", "nexus-audit.db", "audit store DSN")
	cmd.Flags().BoolVar(&postgres, "postgres", false, "treat dsn as a Postgres connection string")
	return cmd
}

func openAuditStore(dsn string, postgres bool) (*audit.Store, error) {
	if postgres {
		return audit.NewPostgresStore(dsn)
	}
	return audit.NewSQLiteStore(dsn)
}
