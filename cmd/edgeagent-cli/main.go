package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/plantops/edgeagent-go/pkg/httpclient"
)

var (
	serverURL string
	clientID  string
	token     string
	timeout   time.Duration
	noAuth    bool

	client *httpclient.Client
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "edgeagent-cli",
		Short: "Admin command line interface for a running edge agent",
		Long: `edgeagent-cli talks to the admin HTTP API of a running edge agent.
It provides commands for authentication, session status, subscription
inspection, and publishing messages through the agent's broker session.`,
		PersistentPreRunE: initializeClient,
	}

	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8081", "Agent admin API URL")
	rootCmd.PersistentFlags().StringVar(&clientID, "client-id", "", "Client ID for authentication")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "Bearer token (if already authenticated)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")
	rootCmd.PersistentFlags().BoolVar(&noAuth, "no-auth", false, "Skip authentication (for agents running with HTTP_API_NO_AUTH)")

	rootCmd.AddCommand(newAuthCommand())
	rootCmd.AddCommand(newStatusCommand())
	rootCmd.AddCommand(newSubscriptionsCommand())
	rootCmd.AddCommand(newPublishCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// initializeClient sets up the HTTP client from the global flags.
func initializeClient(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "help" || cmd.Parent() == nil {
		return nil
	}

	if !noAuth && token == "" && clientID == "" {
		return fmt.Errorf("client-id is required (unless using --token or --no-auth)")
	}

	effectiveClientID := clientID
	if noAuth && effectiveClientID == "" {
		effectiveClientID = "dev-client"
	}

	var err error
	client, err = httpclient.NewClient(httpclient.Config{
		ServerURL: serverURL,
		ClientID:  effectiveClientID,
		Timeout:   timeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	if token != "" {
		client.SetToken(token)
	} else if noAuth {
		// Dummy token so client-side auth checks pass; the server in
		// no-auth mode accepts any bearer value.
		client.SetToken("no-auth-mode")
	}

	return nil
}

// requireAuthentication ensures a token is present before an
// authenticated call.
func requireAuthentication() error {
	if client == nil {
		return fmt.Errorf("client not initialized")
	}
	if noAuth {
		return nil
	}
	if !client.IsAuthenticated() {
		return fmt.Errorf("not authenticated - run 'edgeagent-cli auth' first or provide --token")
	}
	return nil
}
