package main

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/simoncinid/hostgpt-sub000/internal/api"
)

func newCheckinCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "checkin <file>...",
		Short: "Submit check-in documents",
		Long:  "Uploads identity documents (passport or ID card scans) for online check-in. The guest must be identified first.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheckin(cmd, configPath, args)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "hostgpt.yaml", "path to HostGPT config file")
	return cmd
}

func runCheckin(cmd *cobra.Command, configPath string, paths []string) error {
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

	files := make([]api.CheckinFile, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		mimeType := mime.TypeByExtension(filepath.Ext(path))
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		files = append(files, api.CheckinFile{
			Name:     filepath.Base(path),
			MimeType: mimeType,
			Data:     data,
		})
	}

	if err := engine.SubmitCheckin(ctx, files); err != nil {
		return err
	}
	fmt.Fprintf(out, "Submitted %d document(s)\n", len(files))
	return nil
}
