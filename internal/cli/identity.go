package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newIdentityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identity",
		Short: "Identity management commands",
	}

	cmd.AddCommand(newIdentityNewCmd())
	cmd.AddCommand(newIdentityShowCmd())

	return cmd
}

func newIdentityNewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Mint a new anonymous identity and save it locally",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Identity

			if err := client.Post("/api/v1/identity", nil, &result); err != nil {
				return err
			}

			if err := cfg.SaveIdentity(result.ID); err != nil {
				return fmt.Errorf("failed to save identity: %w", err)
			}
			client.SetIdentity(result.ID)

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newIdentityShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Identity == "" {
				return fmt.Errorf("no identity configured; run 'tallyctl identity new'")
			}

			out := NewOutput(cfg.Output)
			out.Print(Identity{ID: cfg.Identity})
			return nil
		},
	}
}
