package main

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringP("account", "a", "", "Account the statement belongs to (required)")
	scanCmd.Flags().String("mime", "", "MIME type; guessed from the extension when empty")
	scanCmd.Flags().Bool("commit", false, "Import selected lines that matched a category rule")
	scanCmd.Flags().Bool("upload", false, "Keep a copy of a local statement in the GCS bucket")
	_ = scanCmd.MarkFlagRequired("account")
}

var scanCmd = &cobra.Command{
	Use:   "scan FILE|gs://BUCKET/OBJECT",
	Short: "Extract transactions from a statement screenshot or PDF",
	Long: `Extract transactions from a statement screenshot or PDF with the configured
model. Category rules and duplicate detection are applied. Lines are printed
as JSON; with --commit the selected, categorised ones are imported.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		accountID, _ := cmd.Flags().GetString("account")
		mimeType, _ := cmd.Flags().GetString("mime")
		commit, _ := cmd.Flags().GetBool("commit")
		upload, _ := cmd.Flags().GetBool("upload")
		src := args[0]

		if mimeType == "" {
			mimeType = mime.TypeByExtension(strings.ToLower(filepath.Ext(src)))
		}
		if mimeType == "" {
			return fmt.Errorf("cannot guess MIME type of %s, pass --mime", src)
		}

		var data []byte
		var err error
		if strings.HasPrefix(src, "gs://") {
			if ledgerApp.Fetcher == nil {
				return fmt.Errorf("gs:// sources need REMOTE_GCS_BUCKET to be configured")
			}
			data, err = ledgerApp.Fetcher.Fetch(ctx, src)
		} else {
			data, err = os.ReadFile(src)
		}
		if err != nil {
			return err
		}

		if upload && !strings.HasPrefix(src, "gs://") {
			if ledgerApp.Uploader == nil {
				return fmt.Errorf("--upload needs REMOTE_GCS_BUCKET to be configured")
			}
			uri, err := ledgerApp.Uploader.Upload(ctx, src, mimeType, data)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Uploaded to %s\n", uri)
		}

		lines, err := ledgerApp.Importer.Scan(ctx, accountID, data, mimeType)
		if err != nil {
			return err
		}
		if err := printJSON(lines); err != nil {
			return err
		}

		if !commit {
			return nil
		}
		created, err := ledgerApp.Importer.Commit(ctx, accountID, lines)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Imported %d of %d lines.\n", len(created), len(lines))
		return nil
	},
}
