// user.go implements the "payd user" command group for account
// administration from the terminal: creating the first admin account,
// listing users, resetting passwords.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/payd-dev/payd/internal/auth"
	"github.com/payd-dev/payd/internal/store"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	userFirstName string
	userLastName  string
	userAdmin     bool
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var userCreateCmd = &cobra.Command{
	Use:   "create <email>",
	Short: "Create a user account",
	Long: `Creates a user, prompting for the password on the terminal.
Use --admin to grant the admin role; the first account of a fresh
deployment is normally created this way.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		email := strings.TrimSpace(strings.ToLower(args[0]))

		password, err := promptPassword()
		if err != nil {
			return err
		}
		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		role := "customer"
		if userAdmin {
			role = "admin"
		}
		id, err := st.CreateUser(cmd.Context(), &store.User{
			FirstName: userFirstName,
			LastName:  userLastName,
			Email:     email,
			Password:  hash,
			Role:      role,
			IsActive:  true,
		})
		if err != nil {
			return err
		}

		if JSON() {
			return PrintJSON(map[string]any{"id": id, "email": email, "role": role})
		}
		fmt.Fprintf(Out(), "created %s user %s (id %d)\n", role, email, id)
		return nil
	},
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List user accounts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		users, err := st.ListUsers(cmd.Context())
		if err != nil {
			return err
		}

		if JSON() {
			return PrintJSON(users)
		}
		for _, u := range users {
			active := "active"
			if !u.IsActive {
				active = "disabled"
			}
			fmt.Fprintf(Out(), "%d\t%s\t%s\t%s\n", u.ID, u.Email, u.Role, active)
		}
		return nil
	},
}

var userPasswordCmd = &cobra.Command{
	Use:   "password <email>",
	Short: "Reset a user's password",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := promptPassword()
		if err != nil {
			return err
		}
		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		user, err := st.GetUserByEmail(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := st.SetUserPassword(cmd.Context(), user.ID, hash); err != nil {
			return err
		}
		fmt.Fprintf(Out(), "password updated for %s\n", user.Email)
		return nil
	},
}

// openStore opens and initialises the configured database.
func openStore() (*store.Store, error) {
	st, err := store.Open(cfg.DatabasePath())
	if err != nil {
		return nil, err
	}
	if err := st.Init(); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

// promptPassword reads a password from the terminal without echo, with
// confirmation. Falls back to PAYD_PASSWORD for non-interactive use.
func promptPassword() (string, error) {
	if env := os.Getenv("PAYD_PASSWORD"); env != "" {
		return env, nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("no terminal for password prompt (set PAYD_PASSWORD for scripted use)")
	}

	fmt.Fprint(os.Stderr, "Password: ")
	first, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	fmt.Fprint(os.Stderr, "Confirm:  ")
	second, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	if string(first) != string(second) {
		return "", fmt.Errorf("passwords do not match")
	}
	if len(first) < 8 {
		return "", fmt.Errorf("password must be at least 8 characters")
	}
	return string(first), nil
}

func init() {
	userCreateCmd.Flags().StringVar(&userFirstName, "first-name", "", "First name")
	userCreateCmd.Flags().StringVar(&userLastName, "last-name", "", "Last name")
	userCreateCmd.Flags().BoolVar(&userAdmin, "admin", false, "Grant the admin role")

	userCmd.AddCommand(userCreateCmd, userListCmd, userPasswordCmd)
	rootCmd.AddCommand(userCmd)
}
