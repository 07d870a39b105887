// Command wampcli is the operator CLI for a running router's admin API:
// global server/token/timeout flags wired through PersistentPreRunE into
// a shared adminclient.Client, with sessions/realms/topics/registrations/
// health subcommands reading it back out.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/CHOUAiB/wampcore/pkg/adminclient"
)

var (
	serverURL string
	token     string
	timeout   = 10 * time.Second

	client *adminclient.Client
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "wampcli",
		Short: "Command line interface for a wampcore router's admin API",
		Long: `wampcli operates a running wampcore router: list connected
sessions, inspect live topics and registrations per realm, and check
router health. It does not speak the WAMP protocol itself.`,
		PersistentPreRunE: initializeClient,
	}

	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8081", "router admin API URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "admin bearer token")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "request timeout")

	rootCmd.AddCommand(newSessionsCommand())
	rootCmd.AddCommand(newRealmsCommand())
	rootCmd.AddCommand(newTopicsCommand())
	rootCmd.AddCommand(newRegistrationsCommand())
	rootCmd.AddCommand(newHealthCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func initializeClient(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "help" || cmd.Parent() == nil {
		return nil
	}

	c, err := adminclient.NewClient(adminclient.Config{
		ServerURL: serverURL,
		Token:     token,
		Timeout:   timeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	client = c
	return nil
}
