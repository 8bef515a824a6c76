package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the agent's session status",
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	if err := requireAuthentication(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	status, err := client.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}

	fmt.Printf("Agent Status:\n")
	fmt.Printf("  Host:          %s\n", status.Hostname)
	fmt.Printf("  Version:       %s\n", status.Version)
	fmt.Printf("  Session:       %s\n", status.State)
	fmt.Printf("  Uptime:        %s\n", (time.Duration(status.UptimeSeconds) * time.Second).String())
	fmt.Printf("  Subscriptions: %d\n", status.Subscriptions)

	return nil
}
