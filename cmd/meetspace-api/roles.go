package main

import (
	"fmt"
	"io"
	"strings"

	"meetspace-api/internal/access"

	"github.com/spf13/cobra"
)

var rolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "Print the role permission matrix",
	Long:  `Print every defined role with its permission patterns. --file extends the built-in roles with a YAML file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		registry := access.NewDefaultRegistry()
		if path, _ := cmd.Flags().GetString("file"); path != "" {
			if err := access.LoadRolesFile(registry, path); err != nil {
				return err
			}
		}
		return printRoles(cmd.OutOrStdout(), registry)
	},
}

func init() {
	rolesCmd.Flags().String("file", "", "YAML roles file")
	rootCmd.AddCommand(rolesCmd)
}

func printRoles(w io.Writer, registry *access.Registry) error {
	for _, role := range registry.Roles() {
		perms, err := registry.PermissionsForRole(role)
		if err != nil {
			return err
		}
		patterns := make([]string, 0, perms.Len())
		for _, p := range perms.Patterns() {
			patterns = append(patterns, string(p))
		}
		if _, err := fmt.Fprintf(w, "%-8s %s\n", role, strings.Join(patterns, ", ")); err != nil {
			return err
		}
	}
	return nil
}
