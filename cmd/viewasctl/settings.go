package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-viewas/settings"
	"github.com/goliatone/go-viewas/store"
)

func newSettingsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Read and update global or per-user settings",
	}
	cmd.AddCommand(newSettingsGetCmd(opts))
	cmd.AddCommand(newSettingsSetCmd(opts))
	return cmd
}

func settingsScope(userID string) store.Scope {
	if strings.TrimSpace(userID) == "" {
		return store.Global()
	}
	return store.User(userID)
}

func newSettingsGetCmd(opts *rootOptions) *cobra.Command {
	var (
		userID    string
		namespace string
	)
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Print the validated settings of a namespace",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEnv(ctx, cmd, opts)
			if err != nil {
				return err
			}
			defer e.Close()

			values, err := e.engine.Settings().Get(ctx, settingsScope(userID), namespace)
			if err != nil {
				return err
			}
			return printJSON(cmd, values)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user ID; empty reads global settings")
	cmd.Flags().StringVar(&namespace, "namespace", settings.NamespaceCore, "settings namespace")
	return cmd
}

func newSettingsSetCmd(opts *rootOptions) *cobra.Command {
	var (
		userID    string
		namespace string
	)
	cmd := &cobra.Command{
		Use:   "set key=value...",
		Short: "Update settings; invalid keys and values are ignored",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			changes, err := parseAssignments(args)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			e, err := openEnv(ctx, cmd, opts)
			if err != nil {
				return err
			}
			defer e.Close()

			after, changed, err := e.engine.Settings().Update(ctx, settingsScope(userID), namespace, changes)
			if err != nil {
				return err
			}
			if !changed {
				return fmt.Errorf("no valid setting in %v", args)
			}
			return printJSON(cmd, after)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user ID; empty updates global settings")
	cmd.Flags().StringVar(&namespace, "namespace", settings.NamespaceCore, "settings namespace")
	return cmd
}

// parseAssignments reads key=value pairs; true and false become booleans.
func parseAssignments(args []string) (map[string]any, error) {
	out := make(map[string]any, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid assignment %q, want key=value", arg)
		}
		value = strings.TrimSpace(value)
		if b, err := strconv.ParseBool(value); err == nil && (value == "true" || value == "false") {
			out[key] = b
			continue
		}
		out[key] = value
	}
	return out, nil
}
