package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-viewas/controller"
	"github.com/goliatone/go-viewas/store"
	"github.com/goliatone/go-viewas/view"
)

type recordOutput struct {
	Token     string         `json:"token"`
	View      map[string]any `json:"view"`
	ExpiresAt time.Time      `json:"expires_at"`
	Expired   bool           `json:"expired"`
}

func newViewsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "views",
		Short: "List, reset and clean up persisted view records",
	}
	cmd.AddCommand(newViewsListCmd(opts))
	cmd.AddCommand(newViewsResetCmd(opts))
	cmd.AddCommand(newViewsCleanupCmd(opts))
	return cmd
}

func newViewsListCmd(opts *rootOptions) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the view records of a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx, cmd, opts)
			if err != nil {
				return err
			}
			defer e.Close()

			records, err := controller.Records(ctx, e.store, userID)
			if err != nil {
				return err
			}
			now := e.engine.Now()
			out := make([]recordOutput, 0, len(records))
			for _, token := range controller.Tokens(records) {
				record := records[token]
				out = append(out, recordOutput{
					Token:     token,
					View:      record.View.Map(),
					ExpiresAt: record.ExpiresAt().UTC(),
					Expired:   record.Expired(now),
				})
			}
			return printJSON(cmd, out)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user ID")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newViewsResetCmd(opts *rootOptions) *cobra.Command {
	var (
		userID string
		token  string
	)
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Remove the view record of one session, or every session of a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx, cmd, opts)
			if err != nil {
				return err
			}
			defer e.Close()

			removed, err := controller.RemoveRecords(ctx, e.store, userID, func(t string, _ view.Record) bool {
				return token == "" || t == token
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d record(s) for user %s\n", removed, userID)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user ID")
	cmd.Flags().StringVar(&token, "token", "", "session token; empty resets every session")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newViewsCleanupCmd(opts *rootOptions) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove expired view records of one user or of every user",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx, cmd, opts)
			if err != nil {
				return err
			}
			defer e.Close()

			users := []string{userID}
			if userID == "" {
				if users, err = e.store.Users(ctx, store.Key); err != nil {
					return err
				}
			}
			total := 0
			for _, id := range users {
				removed, err := controller.CleanupExpired(ctx, e.store, id, e.engine.Now())
				if err != nil {
					return err
				}
				total += removed
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired record(s) across %d user(s)\n", total, len(users))
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user ID; empty sweeps every user")
	return cmd
}
