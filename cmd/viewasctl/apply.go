package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-viewas/engine"
)

type checkOutput struct {
	Active       bool            `json:"active"`
	Title        string          `json:"title,omitempty"`
	UserID       string          `json:"user_id,omitempty"`
	LoggedIn     bool            `json:"logged_in"`
	Roles        []string        `json:"roles,omitempty"`
	Locale       string          `json:"locale,omitempty"`
	Capabilities map[string]bool `json:"capabilities,omitempty"`
}

func newApplyCmd(opts *rootOptions) *cobra.Command {
	var (
		operatorID string
		token      string
		raw        string
	)
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply a change-set for an operator session",
		Example: `  viewasctl apply --directory dir.yaml --operator 1 --token tok --changes '{"role":"editor"}'
  viewasctl apply --directory dir.yaml --operator 1 --token tok --changes '{"reset":true}'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			changes := map[string]any{}
			if err := json.Unmarshal([]byte(raw), &changes); err != nil {
				return fmt.Errorf("invalid --changes: %w", err)
			}
			ctx := cmd.Context()
			e, err := openEnv(ctx, cmd, opts)
			if err != nil {
				return err
			}
			defer e.Close()

			op, err := e.fixture.Operator(operatorID, token)
			if err != nil {
				return err
			}
			req, err := e.engine.Begin(ctx, op, engine.Input{})
			if err != nil {
				return err
			}
			res, err := req.Update(ctx, changes, req.Nonce())
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
	cmd.Flags().StringVar(&operatorID, "operator", "", "operator user ID")
	cmd.Flags().StringVar(&token, "token", "cli", "session token")
	cmd.Flags().StringVar(&raw, "changes", "", "JSON change-set")
	_ = cmd.MarkFlagRequired("operator")
	_ = cmd.MarkFlagRequired("changes")
	return cmd
}

func newCheckCmd(opts *rootOptions) *cobra.Command {
	var (
		operatorID string
		token      string
	)
	cmd := &cobra.Command{
		Use:   "check [capability...]",
		Short: "Show the identity an operator session presents and check capabilities",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx, cmd, opts)
			if err != nil {
				return err
			}
			defer e.Close()

			op, err := e.fixture.Operator(operatorID, token)
			if err != nil {
				return err
			}
			req, err := e.engine.Begin(ctx, op, engine.Input{})
			if err != nil {
				return err
			}
			id := req.Identity()
			out := checkOutput{
				Active:   req.Active(),
				UserID:   id.UserID,
				LoggedIn: id.LoggedIn,
				Roles:    id.Roles,
				Locale:   id.Locale,
			}
			if out.Active {
				out.Title = req.Title(ctx, nil)
			}
			if len(args) > 0 {
				out.Capabilities = make(map[string]bool, len(args))
				for _, capability := range args {
					out.Capabilities[capability] = req.Can(capability)
				}
			}
			return printJSON(cmd, out)
		},
	}
	cmd.Flags().StringVar(&operatorID, "operator", "", "operator user ID")
	cmd.Flags().StringVar(&token, "token", "cli", "session token")
	_ = cmd.MarkFlagRequired("operator")
	return cmd
}
