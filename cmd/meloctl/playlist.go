package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

type playlistEntry struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name,omitempty"`
	CanPlay     bool   `json:"can_play"`
	CanRemove   bool   `json:"can_remove"`
}

type playlistContent struct {
	Items   []playlistEntry `json:"items"`
	Current string          `json:"current,omitempty"`
}

func playlistCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "playlist",
		Short: "Inspect and control playlists",
	}
	cmd.AddCommand(
		playlistListCommand(),
		playlistPlayCommand(),
		playlistRemoveCommand(),
	)
	return cmd
}

func playlistListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list <playlist>",
		Short: "List the entries of a playlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, a *app) error {
				var content playlistContent
				params := map[string]any{"id": args[0]}
				if err := a.client.call(ctx, "playlist.get_list", params, &content); err != nil {
					return err
				}
				if a.json {
					return printJSON(content)
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, " \tNAME\tTITLE")
				for _, it := range content.Items {
					marker := " "
					if it.Name == content.Current {
						marker = "*"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\n", marker, it.Name, it.DisplayName)
				}
				return w.Flush()
			})
		},
	}
}

func playlistPlayCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "play <playlist> <name>",
		Short: "Play a playlist entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, a *app) error {
				params := map[string]any{"id": args[0], "name": args[1]}
				return a.client.call(ctx, "playlist.play", params, nil)
			})
		},
	}
}

func playlistRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <playlist> <name>",
		Short: "Remove a playlist entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, a *app) error {
				params := map[string]any{"id": args[0], "name": args[1]}
				return a.client.call(ctx, "playlist.remove", params, nil)
			})
		},
	}
}
