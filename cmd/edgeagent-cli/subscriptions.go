package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newSubscriptionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "subscriptions",
		Short: "List the agent's subscription table",
		RunE:  runSubscriptions,
	}
}

func runSubscriptions(cmd *cobra.Command, args []string) error {
	if err := requireAuthentication(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	resp, err := client.Subscriptions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list subscriptions: %w", err)
	}

	if len(resp.Subscriptions) == 0 {
		fmt.Println("No subscriptions.")
		return nil
	}

	fmt.Printf("Subscriptions (%d):\n", len(resp.Subscriptions))
	for _, sub := range resp.Subscriptions {
		fmt.Printf("  %s (qos %d)\n", sub.Filter, sub.QoS)
	}

	return nil
}
