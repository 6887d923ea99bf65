package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func rawCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "raw <method> [params-json]",
		Short: "Issue an arbitrary JSON-RPC call",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var params any
			if len(args) > 1 {
				if err := json.Unmarshal([]byte(args[1]), &params); err != nil {
					return fmt.Errorf("bad params: %w", err)
				}
			}
			return run(cmd, func(ctx context.Context, a *app) error {
				var result any
				if err := a.client.call(ctx, args[0], params, &result); err != nil {
					return err
				}
				return printJSON(result)
			})
		},
	}
}
