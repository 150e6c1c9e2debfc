// Command nexusctl is the operator CLI for a Nexus deployment: verifying
// the audit chain, reporting tenant spend, validating policy documents,
// and printing the static model catalog.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nexus-ai/nexus-gateway/internal/version"
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "nexusctl",
		Short: "Operate a Nexus inference gateway",
	}

	root.AddCommand(newVersionCmd())
	root.AddCommand(newAuditCmd())
	root.AddCommand(newCostCmd())
	root.AddCommand(newPolicyCmd())
	root.AddCommand(newCatalogCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print nexusctl version info",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(version.String())
			return nil
		},
	}
}
