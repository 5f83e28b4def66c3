package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iliyamo/property-listings/internal/model"
)

// operator is the part of service.UserService the commands need.
type operator interface {
	CreateAdmin(ctx context.Context, name, email, password string) (*model.User, error)
	SetRoleByEmail(ctx context.Context, email string, role model.Role) (*model.User, error)
	DeleteByEmail(ctx context.Context, email string) error
}

type openFunc func(ctx context.Context) (operator, func(), error)

func createAdminCmd(open openFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create a verified ADMIN account",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			name, _ := cmd.Flags().GetString("name")

			op, closeFn, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			u, err := op.CreateAdmin(cmd.Context(), name, email, password)
			if err != nil {
				return fmt.Errorf("create admin: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created ADMIN %s (%s)\n", u.Email, u.ID)
			return nil
		},
	}
	cmd.Flags().String("email", "", "email of the new admin")
	cmd.Flags().String("password", "", "password of the new admin")
	cmd.Flags().String("name", "", "display name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func setRoleCmd(open openFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-role",
		Short: "Change the role of an account (CLIENT, AGENT or ADMIN)",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			role, _ := cmd.Flags().GetString("role")

			op, closeFn, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			u, err := op.SetRoleByEmail(cmd.Context(), email, model.Role(strings.ToUpper(strings.TrimSpace(role))))
			if err != nil {
				return fmt.Errorf("set role: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", u.Email, u.Role)
			return nil
		},
	}
	cmd.Flags().String("email", "", "email of the account")
	cmd.Flags().String("role", "", "new role")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func deleteUserCmd(open openFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete-user",
		Short: "Delete an account together with its listings",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			yes, _ := cmd.Flags().GetBool("yes")

			if !yes {
				fmt.Fprintf(cmd.OutOrStdout(), "Delete %s and all of their listings? [y/N]: ", email)
				answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}
			}

			op, closeFn, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			if err := op.DeleteByEmail(cmd.Context(), email); err != nil {
				return fmt.Errorf("delete user: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", email)
			return nil
		},
	}
	cmd.Flags().String("email", "", "email of the account")
	cmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
