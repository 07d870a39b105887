package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check router health",
		Long:  "Check the liveness of a running router via its admin API",
		RunE:  runHealth,
	}
}

func runHealth(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	fmt.Printf("Checking health of %s...\n", serverURL)

	health, err := client.Health(ctx)
	if err != nil {
		return fmt.Errorf("failed to check health: %w", err)
	}

	if health.Healthy {
		fmt.Println("router is healthy")
	} else {
		fmt.Println("router is not healthy")
	}
	fmt.Printf("sessions: %d\n", health.Sessions)
	fmt.Printf("realms: %d\n", health.Realms)
	if health.Message != "" {
		fmt.Printf("message: %s\n", health.Message)
	}

	return nil
}
