package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newTopicsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "topics <realm>",
		Short: "List live topics in a realm",
		Args:  cobra.ExactArgs(1),
		RunE:  runTopics,
	}
}

func runTopics(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	resp, err := client.Topics(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to list topics: %w", err)
	}

	if len(resp.Topics) == 0 {
		fmt.Printf("no live topics in realm %q\n", resp.Realm)
		return nil
	}

	fmt.Printf("%-40s %-10s %-12s\n", "URI", "POLICY", "SUBSCRIBERS")
	for _, t := range resp.Topics {
		fmt.Printf("%-40s %-10s %-12d\n", t.URI, t.Policy, t.Subscribers)
	}
	return nil
}

func newRegistrationsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "registrations <realm>",
		Short: "List live procedure registrations in a realm",
		Args:  cobra.ExactArgs(1),
		RunE:  runRegistrations,
	}
}

func runRegistrations(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	resp, err := client.Registrations(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to list registrations: %w", err)
	}

	if len(resp.Registrations) == 0 {
		fmt.Printf("no live registrations in realm %q\n", resp.Realm)
		return nil
	}

	fmt.Printf("%-40s %-10s %-20s %-8s\n", "URI", "POLICY", "SESSION", "PENDING")
	for _, r := range resp.Registrations {
		fmt.Printf("%-40s %-10s %-20d %-8d\n", r.URI, r.Policy, r.SessionID, r.Pending)
	}
	return nil
}
