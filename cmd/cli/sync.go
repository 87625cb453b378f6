package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(pushCmd, pullCmd, syncCmd, connectCmd, disconnectCmd, statusCmd)
}

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Upload the local ledger to the remote document",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ledgerApp.Service.PushToRemote(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Pushed.")
		return nil
	},
}

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Replace local entities with the remote document",
	RunE: func(cmd *cobra.Command, args []string) error {
		found, err := ledgerApp.Service.PullFromRemote(cmd.Context())
		if err != nil {
			return err
		}
		if !found {
			fmt.Println("No remote document yet; local data unchanged.")
			return nil
		}
		fmt.Println("Pulled.")
		return nil
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pull the remote document, then push the result back",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ledgerApp.Service.SyncNow(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Synced.")
		return nil
	},
}

var connectCmd = &cobra.Command{
	Use:   "connect TOKEN",
	Short: "Store the bearer token used for the remote document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ledgerApp.Service.Connect(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Println("Connected.")
		return nil
	},
}

var disconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "Forget the stored token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ledgerApp.Service.Disconnect(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Disconnected.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show storage mode and remote connection",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := ledgerApp.Service
		fmt.Printf("Mode:       %s\n", svc.Mode())
		fmt.Printf("Database:   %s\n", ledgerApp.Config.DBPath())
		fmt.Printf("Relational: %s\n", ledgerApp.Config.RelationalKind())
		fmt.Printf("Remote:     %s\n", ledgerApp.Config.RemoteKind())
		fmt.Printf("Connected:  %t\n", svc.Connected())
		return nil
	},
}
