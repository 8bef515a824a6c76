package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plantops/edgeagent-go/pkg/httpclient"
)

func newPublishCommand() *cobra.Command {
	var (
		topic   string
		payload string
		qos     int
		retain  bool
	)

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish a message through the agent's broker session",
		Long: `Publish a message to a topic through the agent's live broker
session. The payload is sent as-is; an empty payload publishes a bare
trigger message.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(cmd, topic, payload, qos, retain)
		},
	}

	cmd.Flags().StringVar(&topic, "topic", "", "Topic to publish to (required)")
	cmd.Flags().StringVar(&payload, "payload", "", "Message payload")
	cmd.Flags().IntVar(&qos, "qos", -1, "QoS level 0-2 (default: agent's default)")
	cmd.Flags().BoolVar(&retain, "retain", false, "Set the retain flag")
	if err := cmd.MarkFlagRequired("topic"); err != nil {
		panic(fmt.Sprintf("Failed to mark topic as required: %v", err))
	}

	return cmd
}

func runPublish(cmd *cobra.Command, topic, payload string, qos int, retain bool) error {
	if err := requireAuthentication(); err != nil {
		return err
	}

	if qos > 2 {
		return fmt.Errorf("qos must be 0, 1 or 2, got %d", qos)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req := httpclient.PublishRequest{
		Topic:   topic,
		Payload: payload,
		Retain:  retain,
	}
	if qos >= 0 {
		q := byte(qos)
		req.QoS = &q
	}

	fmt.Printf("Publishing to topic '%s'...\n", topic)

	resp, err := client.Publish(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to publish: %w", err)
	}

	fmt.Printf("Published successfully at %s.\n", resp.Timestamp.Format("2006-01-02 15:04:05"))

	return nil
}
