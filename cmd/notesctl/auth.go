package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"notes-client/internal/di"
	"notes-client/internal/gateway"
	"notes-client/internal/model"
)

// passwordEnv переменная окружения с паролем, если флаг не задан
const passwordEnv = "NOTES_PASSWORD"

func passwordOrEnv(flag string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv(passwordEnv)
}

func printUser(u *model.User) {
	if u == nil {
		fmt.Println("not logged in")
		return
	}
	fmt.Printf("%s <%s>\n", u.Username, u.Email)
	if name := u.FullName(); name != "" {
		fmt.Printf("  name:    %s\n", name)
	}
	fmt.Printf("  id:      %s\n", u.ID)
	fmt.Printf("  since:   %s\n", u.CreatedAt.Format("2006-01-02"))
}

func init() {
	var email, password string
	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, false, func(ctx context.Context, s *di.Stores) error {
				if err := s.Session.Login(ctx, email, passwordOrEnv(password)); err != nil {
					return err
				}
				printUser(s.Session.State().User)
				return nil
			})
		},
	}
	loginCmd.Flags().StringVarP(&email, "email", "e", "", "Email (required)")
	loginCmd.Flags().StringVarP(&password, "password", "p", "", "Password (or "+passwordEnv+")")
	_ = loginCmd.MarkFlagRequired("email")
	rootCmd.AddCommand(loginCmd)

	var req gateway.RegisterRequest
	registerCmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Password = passwordOrEnv(req.Password)
			return run(cmd, false, func(ctx context.Context, s *di.Stores) error {
				if err := s.Session.Register(ctx, req); err != nil {
					return err
				}
				printUser(s.Session.State().User)
				return nil
			})
		},
	}
	registerCmd.Flags().StringVarP(&req.Email, "email", "e", "", "Email (required)")
	registerCmd.Flags().StringVarP(&req.Username, "username", "u", "", "Username (required)")
	registerCmd.Flags().StringVarP(&req.Password, "password", "p", "", "Password (or "+passwordEnv+")")
	registerCmd.Flags().StringVar(&req.FirstName, "first-name", "", "First name")
	registerCmd.Flags().StringVar(&req.LastName, "last-name", "", "Last name")
	_ = registerCmd.MarkFlagRequired("email")
	_ = registerCmd.MarkFlagRequired("username")
	rootCmd.AddCommand(registerCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "logout",
		Short: "Close the session and forget the token",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, false, func(ctx context.Context, s *di.Stores) error {
				// Локальная сессия закрывается даже при ошибке сервера
				if err := s.Session.Logout(ctx); err != nil {
					fmt.Fprintln(os.Stderr, "warning:", describe(err))
				}
				fmt.Println("logged out")
				return nil
			})
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "whoami",
		Short: "Show the current user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, false, func(ctx context.Context, s *di.Stores) error {
				printUser(s.Session.State().User)
				return nil
			})
		},
	})

	var current, next string
	passwdCmd := &cobra.Command{
		Use:   "passwd",
		Short: "Change the password",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, false, func(ctx context.Context, s *di.Stores) error {
				if err := requireSession(s); err != nil {
					return err
				}
				if err := s.Session.ChangePassword(ctx, current, next); err != nil {
					return err
				}
				fmt.Println("password changed")
				return nil
			})
		},
	}
	passwdCmd.Flags().StringVar(&current, "current", "", "Current password (required)")
	passwdCmd.Flags().StringVar(&next, "new", "", "New password (required)")
	_ = passwdCmd.MarkFlagRequired("current")
	_ = passwdCmd.MarkFlagRequired("new")
	rootCmd.AddCommand(passwdCmd)

	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Update profile fields",
		RunE: func(cmd *cobra.Command, args []string) error {
			var upd gateway.ProfileUpdate
			for flag, dst := range map[string]**string{
				"username":   &upd.Username,
				"first-name": &upd.FirstName,
				"last-name":  &upd.LastName,
				"avatar-url": &upd.AvatarURL,
			} {
				if cmd.Flags().Changed(flag) {
					v, _ := cmd.Flags().GetString(flag)
					*dst = &v
				}
			}
			if upd == (gateway.ProfileUpdate{}) {
				return errors.New("nothing to update")
			}

			return run(cmd, false, func(ctx context.Context, s *di.Stores) error {
				if err := requireSession(s); err != nil {
					return err
				}
				if err := s.Session.UpdateProfile(ctx, upd); err != nil {
					return err
				}
				printUser(s.Session.State().User)
				return nil
			})
		},
	}
	profileCmd.Flags().String("username", "", "New username")
	profileCmd.Flags().String("first-name", "", "First name")
	profileCmd.Flags().String("last-name", "", "Last name")
	profileCmd.Flags().String("avatar-url", "", "Avatar URL")
	rootCmd.AddCommand(profileCmd)

	var confirm bool
	deleteAccountCmd := &cobra.Command{
		Use:   "delete-account",
		Short: "Delete the account and all its notes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm {
				return errors.New("refusing to delete the account without --yes")
			}
			return run(cmd, false, func(ctx context.Context, s *di.Stores) error {
				if err := requireSession(s); err != nil {
					return err
				}
				if err := s.Session.DeleteAccount(ctx); err != nil {
					return err
				}
				fmt.Println("account deleted")
				return nil
			})
		},
	}
	deleteAccountCmd.Flags().BoolVar(&confirm, "yes", false, "Confirm deletion")
	rootCmd.AddCommand(deleteAccountCmd)
}
