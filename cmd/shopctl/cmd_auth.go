package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	nameFlag     string
	passwordFlag string
)

func password() (string, error) {
	if passwordFlag != "" {
		return passwordFlag, nil
	}
	if p := os.Getenv("SHOPCTL_PASSWORD"); p != "" {
		return p, nil
	}
	return "", errors.New("password required: use --password or SHOPCTL_PASSWORD")
}

var loginCmd = &cobra.Command{
	Use:   "login [email]",
	Short: "Sign in and merge the guest cart into your account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pw, err := password()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext()
		defer cancel()
		view, err := session.Login(ctx, args[0], pw)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", session.User().Email)
		return printCart(cmd.OutOrStdout(), view)
	},
}

var signupCmd = &cobra.Command{
	Use:   "signup [email]",
	Short: "Create an account; the guest cart moves into it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pw, err := password()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext()
		defer cancel()
		view, err := session.Signup(ctx, nameFlag, args[0], pw)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Welcome, %s\n", session.User().Name)
		return printCart(cmd.OutOrStdout(), view)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the session token; the guest cart is kept",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := session.Logout(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Check the stored session against the API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()
		ok, err := session.Restore(ctx)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "Not logged in (guest)")
			return nil
		}
		u := session.User()
		fmt.Fprintf(cmd.OutOrStdout(), "%s <%s>\n", u.Name, u.Email)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{loginCmd, signupCmd} {
		c.Flags().StringVar(&passwordFlag, "password", "", "Password (or SHOPCTL_PASSWORD)")
	}
	signupCmd.Flags().StringVar(&nameFlag, "name", "", "Display name")
	_ = signupCmd.MarkFlagRequired("name")
}
