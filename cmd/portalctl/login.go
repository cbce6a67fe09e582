package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh/terminal"
)

func newLoginCmd() *cobra.Command {
	var (
		email    string
		password string
		remember bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the portal backend",
		Long: `Sign in to the portal backend.

Without --remember the session lives only for this process, mirroring a
browser tab; pass --remember to keep it for later invocations (30 days
unless the server says otherwise).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}

			// Already signed in? Same bounce the web login page does.
			if res := app.anon.Resolve(); res.RedirectTo != "" {
				fmt.Printf("Already signed in as %s (%s). Landing route: %s\n", res.User.Name, res.User.Role, res.RedirectTo)
				return nil
			}

			if email == "" {
				email, err = promptEmail(app.sessions.RememberedEmail())
				if err != nil {
					return err
				}
			}
			if password == "" {
				password, err = promptPassword()
				if err != nil {
					return err
				}
			}

			user, err := app.sessions.Login(cmd.Context(), email, password, remember)
			if err != nil {
				return errors.Wrap(err, "sign in failed")
			}

			fmt.Printf("Signed in as %s (%s)\n", user.Name, user.Role)
			fmt.Printf("Landing route: %s\n", app.sessions.PostLoginRoute(user))
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "login email (prompted when omitted)")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted, hidden, when omitted)")
	cmd.Flags().BoolVar(&remember, "remember", false, "keep the session across invocations")
	return cmd
}

func promptEmail(remembered string) (string, error) {
	if remembered != "" {
		fmt.Printf("Email [%s]: ", remembered)
	} else {
		fmt.Print("Email: ")
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", errors.Wrap(err, "read email")
	}
	email := strings.TrimSpace(line)
	if email == "" {
		email = remembered
	}
	if email == "" {
		return "", errors.New("email is required")
	}
	return email, nil
}

func promptPassword() (string, error) {
	fmt.Print("Password: ")
	raw, err := terminal.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", errors.Wrap(err, "read password")
	}
	if len(raw) == 0 {
		return "", errors.New("password is required")
	}
	return string(raw), nil
}
