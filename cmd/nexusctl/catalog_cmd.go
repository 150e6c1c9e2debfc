package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/nexus-ai/nexus-gateway/internal/router"
)

func newCatalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "Print the static model registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]string, 0, len(router.Registry))
			for id := range router.Registry {
				ids = append(ids, id)
			}
			sort.Strings(ids)

			for _, id := range ids {
				d := router.Registry[id]
				fmt.Printf("%-30s provider=%-10s latency=%-6s cost=%-10s strengths=%v\n",
					d.ID, d.Provider, d.Latency, d.CostTier, d.Strength)
			}
			return nil
		},
	}
}
