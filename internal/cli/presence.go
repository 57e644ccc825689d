package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPresenceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presence",
		Short: "Presence commands",
	}

	cmd.AddCommand(newPresenceGetCmd())
	cmd.AddCommand(newPresenceSetCmd())

	return cmd
}

func newPresenceGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [id]",
		Short: "Show an identity's presence (defaults to your own)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := cfg.Identity
			if len(args) == 1 {
				id = args[0]
			}
			if id == "" {
				return fmt.Errorf("no identity given; run 'tallyctl identity new' or pass an id")
			}

			var result Presence
			if err := client.Get("/api/v1/presence/"+id, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newPresenceSetCmd() *cobra.Command {
	var state string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Publish your own presence marker",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireIdentity(); err != nil {
				return err
			}
			if state != "online" && state != "offline" {
				return fmt.Errorf("--state must be online or offline")
			}

			var result Presence
			if err := client.Put("/api/v1/presence/"+cfg.Identity+"?state="+state, nil, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&state, "state", "online", "Presence state: online, offline")

	return cmd
}
