package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current session state",
		Long:  "Prints the session state, guest identity, conversation pointers, and the moderation lock verdict.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "hostgpt.yaml", "path to HostGPT config file")
	return cmd
}

func runStatus(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	engine, cfg, err := buildEngine(configPath, nil)
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx := context.Background()
	if err := engine.Load(ctx); err != nil {
		return err
	}

	fmt.Fprintf(out, "Property:      %s\n", cfg.PropertyID)
	fmt.Fprintf(out, "State:         %s\n", engine.State())
	if guest := engine.Guest(); guest.ID != "" {
		fmt.Fprintf(out, "Guest:         %s\n", guest.ID)
	} else {
		fmt.Fprintf(out, "Guest:         (not identified)\n")
	}
	if convID := engine.ConversationID(); convID != "" {
		fmt.Fprintf(out, "Conversation:  %s\n", convID)
	}
	if threadID := engine.ThreadID(); threadID != "" {
		fmt.Fprintf(out, "Thread:        %s\n", threadID)
	}
	fmt.Fprintf(out, "Messages:      %d\n", len(engine.Messages()))
	if s := engine.Suspension(); s.Locked {
		fmt.Fprintf(out, "Moderation:    locked (%s)\n", s.Reason)
	} else {
		fmt.Fprintf(out, "Moderation:    clear\n")
	}
	return nil
}
