package main

import (
	"fmt"
	"sort"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/meridianhms/portal-client/credentials"
)

func newWhoamiCmd() *cobra.Command {
	var showClaims bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in profile from the cached session",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}

			if !app.sessions.IsAuthenticated() {
				return errors.New("not signed in")
			}
			user := app.sessions.CurrentUser()
			if user == nil {
				return errors.New("not signed in")
			}

			fmt.Printf("%s <%s>\n", user.Name, user.Email)
			fmt.Printf("Role:       %s\n", user.Role)
			fmt.Printf("Home route: %s\n", app.sessions.DefaultRoute(user.Role))

			if showClaims {
				return printTokenClaims(app.keeper)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showClaims, "claims", false, "decode the bearer token's claims for display (signature not checked)")
	return cmd
}

// printTokenClaims decodes the token as a JWT for display only. The token is
// treated as opaque everywhere else; validity is always the server's call.
func printTokenClaims(keeper *credentials.Keeper) error {
	raw, ok := keeper.GetAuth(credentials.KeyToken)
	if !ok || raw == "" {
		return errors.New("no token stored")
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return errors.Wrap(err, "token is not a decodable JWT")
	}

	names := make([]string, 0, len(claims))
	for name := range claims {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("Claims:")
	for _, name := range names {
		fmt.Printf("  %-10s %v\n", name, claims[name])
	}
	return nil
}
