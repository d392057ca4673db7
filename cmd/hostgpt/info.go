package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simoncinid/hostgpt-sub000/internal/api"
	"github.com/simoncinid/hostgpt-sub000/internal/config"
)

func newInfoCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show the property chatbot details",
		Long:  "Fetches the chatbot's public details: name, welcome message, house rules, and wifi information.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "hostgpt.yaml", "path to HostGPT config file")
	return cmd
}

func runInfo(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	client, err := api.NewHTTPClient(api.HTTPClientOpts{
		BaseURL:    cfg.BaseURL,
		PropertyID: cfg.PropertyID,
	})
	if err != nil {
		return err
	}

	info, err := client.GetChatInfo(context.Background())
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Chatbot:   %s\n", info.Name)
	fmt.Fprintf(out, "Property:  %s\n", info.PropertyName)
	if info.WelcomeMessage != "" {
		fmt.Fprintf(out, "Welcome:   %s\n", info.WelcomeMessage)
	}
	if info.HouseRules != "" {
		fmt.Fprintf(out, "Rules:     %s\n", info.HouseRules)
	}
	if info.WifiInfo != "" {
		fmt.Fprintf(out, "Wifi:      %s\n", info.WifiInfo)
	}
	return nil
}
