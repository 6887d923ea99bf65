package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

type playerStatus struct {
	State         string  `json:"state"`
	Name          string  `json:"name"`
	DurationMS    int64   `json:"duration_ms"`
	PosMS         int64   `json:"pos_ms"`
	Volume        float64 `json:"volume"`
	Mute          bool    `json:"mute"`
	BufferPercent int     `json:"buffer_percent"`
	Error         string  `json:"error,omitempty"`
	HasPrev       bool    `json:"has_prev"`
	HasNext       bool    `json:"has_next"`
}

// playerParams builds the params object for player methods, omitting the
// id so the server picks the only player when none is given.
func playerParams(id string, extra map[string]any) map[string]any {
	params := map[string]any{}
	if id != "" {
		params["id"] = id
	}
	for k, v := range extra {
		params[k] = v
	}
	return params
}

func optionalID(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

func statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status [player]",
		Short: "Show player status",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, a *app) error {
				var st playerStatus
				if err := a.client.call(ctx, "player.get_status", playerParams(optionalID(args), nil), &st); err != nil {
					return err
				}
				if a.json {
					return printJSON(st)
				}
				fmt.Printf("State:    %s\n", st.State)
				if st.Name != "" {
					fmt.Printf("Playing:  %s\n", st.Name)
				}
				if st.DurationMS > 0 {
					fmt.Printf("Position: %s / %s\n", formatMS(st.PosMS), formatMS(st.DurationMS))
				}
				mute := ""
				if st.Mute {
					mute = " (muted)"
				}
				fmt.Printf("Volume:   %d%%%s\n", int(st.Volume*100), mute)
				if st.BufferPercent > 0 && st.BufferPercent < 100 {
					fmt.Printf("Buffer:   %d%%\n", st.BufferPercent)
				}
				if st.Error != "" {
					fmt.Printf("Error:    %s\n", st.Error)
				}
				return nil
			})
		},
	}
}

func formatMS(ms int64) string {
	secs := ms / 1000
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

func setStateCommand(use, short, state string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [player]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, a *app) error {
				params := playerParams(optionalID(args), map[string]any{"state": state})
				return a.client.call(ctx, "player.set_state", params, nil)
			})
		},
	}
}

func playCommand() *cobra.Command {
	return setStateCommand("play", "Resume playback", "playing")
}

func pauseCommand() *cobra.Command {
	return setStateCommand("pause", "Pause playback", "paused")
}

func stopCommand() *cobra.Command {
	return setStateCommand("stop", "Stop playback", "stopped")
}

func stepCommand(use, short, method string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [player]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, a *app) error {
				return a.client.call(ctx, method, playerParams(optionalID(args), nil), nil)
			})
		},
	}
}

func prevCommand() *cobra.Command {
	return stepCommand("prev", "Play the previous playlist entry", "player.prev")
}

func nextCommand() *cobra.Command {
	return stepCommand("next", "Play the next playlist entry", "player.next")
}

func volumeCommand() *cobra.Command {
	var playerID string
	cmd := &cobra.Command{
		Use:   "volume <0-100>",
		Short: "Set playback volume",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pct, err := strconv.ParseFloat(args[0], 64)
			if err != nil || pct < 0 || pct > 100 {
				return fmt.Errorf("volume must be between 0 and 100")
			}
			return run(cmd, func(ctx context.Context, a *app) error {
				params := playerParams(playerID, map[string]any{"volume": pct / 100})
				return a.client.call(ctx, "player.set_volume", params, nil)
			})
		},
	}
	cmd.Flags().StringVarP(&playerID, "player", "p", "", "player id")
	return cmd
}

func muteCommand() *cobra.Command {
	var playerID string
	var unmute bool
	cmd := &cobra.Command{
		Use:   "mute",
		Short: "Mute or unmute playback",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, a *app) error {
				params := playerParams(playerID, map[string]any{"mute": !unmute})
				return a.client.call(ctx, "player.set_mute", params, nil)
			})
		},
	}
	cmd.Flags().StringVarP(&playerID, "player", "p", "", "player id")
	cmd.Flags().BoolVar(&unmute, "off", false, "unmute instead of muting")
	return cmd
}
