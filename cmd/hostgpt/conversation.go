package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newNewConversationCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "new-conversation",
		Short: "Abandon the current conversation and start over",
		Long:  "Clears the persisted conversation pointer (the guest identity is kept) and reserves a fresh conversation for the next session.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNewConversation(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "hostgpt.yaml", "path to HostGPT config file")
	return cmd
}

func runNewConversation(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	engine, _, err := buildEngine(configPath, nil)
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx := context.Background()
	if err := engine.Load(ctx); err != nil {
		return err
	}
	if err := engine.StartNewConversation(ctx); err != nil {
		return err
	}

	if convID := engine.ConversationID(); convID != "" {
		fmt.Fprintf(out, "Reserved conversation %s\n", convID)
	} else {
		fmt.Fprintln(out, "Conversation cleared; identify to start a new one.")
	}
	return nil
}
