package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dswarm/dswarm/internal/gateway/config"
	"github.com/dswarm/dswarm/internal/transport"
)

func newPushCmd(root *rootOptions) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "push FILE",
		Short: "Upload a schema or instance document to the configured S3 bucket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			s3cfg := config.S3FromEnv()
			if !s3cfg.Enabled {
				return fmt.Errorf("DOCUMENT_S3_ENDPOINT is not set")
			}
			root.dump(cmd.ErrOrStderr(), "s3", s3cfg.Redacted())

			src, err := transport.NewS3Source(s3cfg.Source())
			if err != nil {
				return err
			}
			content, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read document: %w", err)
			}
			key := name
			if key == "" {
				key = filepath.Base(args[0])
			}
			if err := src.Put(cmd.Context(), key, content); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "uploaded %s (%d bytes)\n", key, len(content))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "object key (default: the file name)")
	return cmd
}
