package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/simoncinid/hostgpt-sub000/internal/chaterr"
	"github.com/simoncinid/hostgpt-sub000/internal/session"
)

func newChatCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long:  "Opens an interactive terminal chat with the property assistant, resuming a previous conversation when one exists.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "hostgpt.yaml", "path to HostGPT config file")
	return cmd
}

func runChat(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	engine, _, err := buildEngine(configPath, nil)
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(out, "\nBye.")
		cancel()
	}()

	if err := engine.Load(ctx); err != nil {
		return err
	}

	if info := engine.Info(); info != nil && info.WelcomeMessage != "" && engine.State() == session.StateActive {
		fmt.Fprintf(out, "%s\n\n", info.WelcomeMessage)
	}
	for _, msg := range engine.Messages() {
		printMessage(out, msg.Role, msg.Content)
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())

	if engine.GateVisible() {
		if err := promptIdentity(ctx, engine, out, scanner); err != nil {
			return err
		}
	}

	fmt.Fprintln(out, "Type a message, or /new, /status, /voice, /quit.")
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "/quit":
			return nil
		case "/new":
			if err := engine.StartNewConversation(ctx); err != nil {
				printError(out, err)
				continue
			}
			fmt.Fprintln(out, "Started over.")
			if engine.GateVisible() {
				if err := promptIdentity(ctx, engine, out, scanner); err != nil {
					return err
				}
			}
		case "/status":
			s := engine.Suspension()
			if s.Locked {
				fmt.Fprintf(out, "Conversation locked: %s\n", s.Reason)
			} else {
				fmt.Fprintln(out, "Conversation active.")
			}
		case "/voice":
			sendVoice(ctx, engine, out, scanner)
		default:
			reply, err := engine.Send(ctx, line)
			if err != nil {
				printError(out, err)
				continue
			}
			printMessage(out, reply.Role, reply.Content)
		}
	}
}

// promptIdentity walks the identification gate on the terminal.
func promptIdentity(ctx context.Context, engine *session.Engine, out io.Writer, scanner *bufio.Scanner) error {
	fmt.Fprintln(out, "Please introduce yourself (phone or email is required).")
	for {
		ident := session.Identity{
			Phone:     promptField(out, scanner, "Phone"),
			Email:     promptField(out, scanner, "Email"),
			FirstName: promptField(out, scanner, "First name"),
			LastName:  promptField(out, scanner, "Last name"),
		}
		err := engine.SubmitIdentity(ctx, ident)
		if err == nil {
			if info := engine.Info(); info != nil && info.WelcomeMessage != "" {
				fmt.Fprintf(out, "\n%s\n", info.WelcomeMessage)
			}
			for _, msg := range engine.Messages() {
				printMessage(out, msg.Role, msg.Content)
			}
			return nil
		}

		var identityErr *chaterr.IdentityError
		if errors.As(err, &identityErr) {
			fmt.Fprintf(out, "%s\n", identityErr.Reason)
			continue
		}
		return err
	}
}

func promptField(out io.Writer, scanner *bufio.Scanner, label string) string {
	fmt.Fprintf(out, "%s: ", label)
	if !scanner.Scan() {
		return ""
	}
	return strings.TrimSpace(scanner.Text())
}

// sendVoice records until Enter is pressed, then sends the recording.
func sendVoice(ctx context.Context, engine *session.Engine, out io.Writer, scanner *bufio.Scanner) {
	capture, err := engine.StartVoiceCapture(ctx)
	if err != nil {
		printError(out, err)
		return
	}
	fmt.Fprint(out, "Recording... press Enter to send.")
	scanner.Scan()

	reply, err := engine.SendVoice(ctx, capture)
	if err != nil {
		printError(out, err)
		return
	}
	printMessage(out, reply.Role, reply.Content)
}

func printMessage(out io.Writer, role, content string) {
	switch role {
	case "user":
		fmt.Fprintf(out, "you: %s\n", content)
	default:
		fmt.Fprintf(out, "assistant: %s\n", content)
	}
}

// printError renders a protocol error as guest-facing text.
func printError(out io.Writer, err error) {
	var (
		billingErr *chaterr.BillingError
		quotaErr   *chaterr.QuotaError
		lockErr    *chaterr.LockError
		mediaErr   *chaterr.MediaError
	)
	switch {
	case errors.Is(err, session.ErrSendInFlight):
		fmt.Fprintln(out, "Still sending the previous message, hold on.")
	case errors.As(err, &billingErr):
		fmt.Fprintf(out, "The assistant is unavailable: %s\n", billingErr.Message)
	case errors.As(err, &quotaErr):
		fmt.Fprintf(out, "Cannot start another conversation: %s\n", quotaErr.Message)
	case errors.As(err, &lockErr):
		fmt.Fprintf(out, "This conversation is locked: %s\n", lockErr.Reason)
	case errors.As(err, &mediaErr):
		switch mediaErr.Kind {
		case chaterr.MediaEmptyRecording:
			fmt.Fprintln(out, "Nothing was recorded.")
		case chaterr.MediaPermissionDenied:
			fmt.Fprintln(out, "Microphone access was denied.")
		case chaterr.MediaNoDevice:
			fmt.Fprintln(out, "No microphone found.")
		default:
			fmt.Fprintf(out, "Voice messages are unavailable: %s\n", mediaErr.Error())
		}
	default:
		fmt.Fprintf(out, "Something went wrong: %v\n", err)
	}
}
