package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

type app struct {
	client  *client
	json    bool
	timeout time.Duration
}

type contextKey struct{}

func main() {
	root := &cobra.Command{
		Use:          "meloctl",
		Short:        "Melo remote control",
		SilenceUsage: true,
	}

	var (
		url     string
		user    string
		pass    string
		timeout time.Duration
		jsonOut bool
	)

	root.PersistentFlags().StringVarP(&url, "url", "u", "http://127.0.0.1:8080", "melod base URL")
	root.PersistentFlags().StringVar(&user, "user", "", "basic auth username")
	root.PersistentFlags().StringVar(&pass, "pass", "", "basic auth password")
	root.PersistentFlags().DurationVarP(&timeout, "timeout", "t", 5*time.Second, "command timeout")
	root.PersistentFlags().BoolVarP(&jsonOut, "json", "j", false, "output json")

	root.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		a := &app{
			client:  newClient(url, user, pass),
			json:    jsonOut,
			timeout: timeout,
		}
		cmd.SetContext(withApp(cmd.Context(), a))
	}

	root.AddCommand(
		modulesCommand(),
		browsersCommand(),
		lsCommand(),
		searchCommand(),
		statusCommand(),
		playCommand(),
		pauseCommand(),
		stopCommand(),
		prevCommand(),
		nextCommand(),
		volumeCommand(),
		muteCommand(),
		playlistCommand(),
		rawCommand(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
