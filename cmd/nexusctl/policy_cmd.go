package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nexus-ai/nexus-gateway/internal/policy"
)

func newPolicyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Validate and inspect policy documents",
	}
	cmd.AddCommand(newPolicyValidateCmd())
	return cmd
}

func newPolicyValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <policy-file>",
		Short: "Validate a policy document against the embedded schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := policy.Load(args[0])
			if err != nil {
				return err
			}

			fmt.Println("OK: policy document is valid")
			fmt.Printf("  max_tokens_per_call: %d\n", cfg.MaxTokensPerCall)
			fmt.Printf("  disallowed_topics:   %s\n", strings.Join(cfg.DisallowedTopics, ", "))
			for plan, models := range cfg.AllowedModelsPerTenant {
				fmt.Printf("  plan %-12s allowed: %s\n", plan, strings.Join(models, ", "))
			}
			return nil
		},
	}
}
