package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

type moduleEntry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type browserItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
	Tags *struct {
		Artist string `json:"artist,omitempty"`
		Album  string `json:"album,omitempty"`
	} `json:"tags,omitempty"`
}

type browserList struct {
	Path  string        `json:"path"`
	Items []browserItem `json:"items"`
	Count int           `json:"count"`
}

func modulesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "modules",
		Short: "List registered modules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(ctx context.Context, a *app) error {
				var modules []moduleEntry
				if err := a.client.call(ctx, "module.get_list", nil, &modules); err != nil {
					return err
				}
				if a.json {
					return printJSON(modules)
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION")
				for _, m := range modules {
					fmt.Fprintf(w, "%s\t%s\t%s\n", m.ID, m.Name, m.Description)
				}
				return w.Flush()
			})
		},
	}
}

func browsersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "browsers <module>",
		Short: "List the browsers of a module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, a *app) error {
				var ids []string
				params := map[string]any{"id": args[0]}
				if err := a.client.call(ctx, "module.get_browser_list", params, &ids); err != nil {
					return err
				}
				if a.json {
					return printJSON(ids)
				}
				for _, id := range ids {
					fmt.Println(id)
				}
				return nil
			})
		},
	}
}

func printItems(list browserList) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tNAME\tARTIST")
	for _, it := range list.Items {
		artist := ""
		if it.Tags != nil {
			artist = it.Tags.Artist
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", it.ID, it.Type, it.Name, artist)
	}
	return w.Flush()
}

func lsCommand() *cobra.Command {
	var (
		offset int
		count  int
		tags   bool
	)
	cmd := &cobra.Command{
		Use:   "ls <browser> [path]",
		Short: "List the content of a browser path",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/"
			if len(args) > 1 {
				path = args[1]
			}
			return run(cmd, func(ctx context.Context, a *app) error {
				params := map[string]any{
					"id":     args[0],
					"path":   path,
					"offset": offset,
					"count":  count,
				}
				if tags {
					params["tags_mode"] = "full"
				}
				var list browserList
				if err := a.client.call(ctx, "browser.get_list", params, &list); err != nil {
					return err
				}
				if a.json {
					return printJSON(list)
				}
				return printItems(list)
			})
		},
	}
	cmd.Flags().IntVar(&offset, "offset", 0, "skip the first N items")
	cmd.Flags().IntVarP(&count, "count", "n", -1, "maximum items to list")
	cmd.Flags().BoolVar(&tags, "tags", false, "include media tags")
	return cmd
}

func searchCommand() *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "search <browser> <input>",
		Short: "Search a browser",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, a *app) error {
				params := map[string]any{
					"id":    args[0],
					"input": args[1],
					"count": count,
				}
				var list browserList
				if err := a.client.call(ctx, "browser.search", params, &list); err != nil {
					return err
				}
				if a.json {
					return printJSON(list)
				}
				return printItems(list)
			})
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 50, "maximum items to list")
	return cmd
}
