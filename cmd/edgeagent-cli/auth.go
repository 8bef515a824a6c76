package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newAuthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with the agent's admin API",
		Long: `Authenticate with the agent's admin API using your client ID.
This generates a bearer token usable for subsequent requests.`,
		RunE: runAuth,
	}
}

func runAuth(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	fmt.Printf("Authenticating with %s as client %s...\n", serverURL, clientID)

	if err := client.Authenticate(ctx); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	token := client.Token()
	fmt.Printf("Authentication successful.\n")
	fmt.Printf("Token: %s\n", token)
	fmt.Printf("\nSave the token for future use:\n")
	fmt.Printf("  export EDGEAGENT_TOKEN=\"%s\"\n", token)
	fmt.Printf("  edgeagent-cli --token \"$EDGEAGENT_TOKEN\" status\n")

	return nil
}
