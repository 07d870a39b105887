package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newSessionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List connected sessions",
		RunE:  runSessions,
	}
}

func runSessions(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	resp, err := client.Sessions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	if len(resp.Sessions) == 0 {
		fmt.Println("no connected sessions")
		return nil
	}

	fmt.Printf("%-20s %-20s %-10s\n", "ID", "REALM", "STATE")
	for _, s := range resp.Sessions {
		fmt.Printf("%-20d %-20s %-10s\n", s.ID, s.Realm, s.State)
	}
	return nil
}

func newRealmsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "realms",
		Short: "List known realms",
		RunE:  runRealms,
	}
}

func runRealms(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	resp, err := client.Realms(ctx)
	if err != nil {
		return fmt.Errorf("failed to list realms: %w", err)
	}

	if len(resp.Realms) == 0 {
		fmt.Println("no realms seen yet")
		return nil
	}

	for _, r := range resp.Realms {
		fmt.Println(r)
	}
	return nil
}
