package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simoncinid/hostgpt-sub000/internal/session"
)

func newIdentifyCmd() *cobra.Command {
	var (
		configPath string
		ident      session.Identity
	)

	cmd := &cobra.Command{
		Use:   "identify",
		Short: "Identify the guest without starting a chat",
		Long:  "Resolves the guest's contact details against the backend and persists the identity, so the next chat or serve session starts active.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIdentify(cmd, configPath, ident)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "hostgpt.yaml", "path to HostGPT config file")
	cmd.Flags().StringVar(&ident.Phone, "phone", "", "guest phone number")
	cmd.Flags().StringVar(&ident.Email, "email", "", "guest email address")
	cmd.Flags().StringVar(&ident.FirstName, "first-name", "", "guest first name")
	cmd.Flags().StringVar(&ident.LastName, "last-name", "", "guest last name")
	return cmd
}

func runIdentify(cmd *cobra.Command, configPath string, ident session.Identity) error {
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
	if !engine.GateVisible() {
		fmt.Fprintln(out, "Already identified with an active conversation.")
		return nil
	}
	if err := engine.SubmitIdentity(ctx, ident); err != nil {
		return err
	}

	guest := engine.Guest()
	fmt.Fprintf(out, "Identified as guest %s\n", guest.ID)
	fmt.Fprintf(out, "Conversation %s ready\n", engine.ConversationID())
	return nil
}
