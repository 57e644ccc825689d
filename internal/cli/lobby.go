package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newLobbyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lobby",
		Short: "Lobby lifecycle commands",
	}

	cmd.AddCommand(newLobbyCreateCmd())
	cmd.AddCommand(newLobbyGetCmd())
	cmd.AddCommand(newLobbyJoinCmd())
	cmd.AddCommand(newLobbyLeaveCmd())
	cmd.AddCommand(newLobbyPresenceCmd())

	return cmd
}

func requireIdentity() error {
	if cfg.Identity == "" {
		return fmt.Errorf("no identity configured; run 'tallyctl identity new'")
	}
	return nil
}

func newLobbyCreateCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new lobby",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireIdentity(); err != nil {
				return err
			}

			req := map[string]string{"name": name}
			var result Lobby

			if err := client.Post("/api/v1/lobbies", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name in the lobby")

	return cmd
}

func newLobbyGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <code>",
		Short: "Show a lobby's current state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Lobby

			if err := client.Get("/api/v1/lobbies/"+normalizeArg(args[0]), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newLobbyJoinCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "join <code>",
		Short: "Join a lobby",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireIdentity(); err != nil {
				return err
			}

			req := map[string]string{"name": name}
			var result Lobby

			if err := client.Post("/api/v1/lobbies/"+normalizeArg(args[0])+"/join", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name in the lobby")

	return cmd
}

func newLobbyLeaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leave <code>",
		Short: "Leave a lobby",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireIdentity(); err != nil {
				return err
			}

			if err := client.Post("/api/v1/lobbies/"+normalizeArg(args[0])+"/leave", nil, nil); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage("Left lobby " + normalizeArg(args[0]))
			return nil
		},
	}
}

func newLobbyPresenceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presence <code>",
		Short: "Show the presence of every lobby member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result RosterPresence

			if err := client.Get("/api/v1/lobbies/"+normalizeArg(args[0])+"/presence", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

// normalizeArg uppercases a user-typed lobby code for friendlier URLs.
// The server normalizes again regardless.
func normalizeArg(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
