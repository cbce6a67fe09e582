package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/meridianhms/portal-client/routeguard"
	"github.com/meridianhms/portal-client/users"
)

func newRouteCmd() *cobra.Command {
	var requires string

	cmd := &cobra.Command{
		Use:   "route <path>",
		Short: "Resolve what the route guard would do for a path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}

			route := routeguard.Route{Path: args[0]}
			if requires != "" {
				role, err := users.ParseRole(requires)
				if err != nil {
					return errors.Wrapf(err, "--requires %q", requires)
				}
				route.RequiredRole = role
			}

			res := app.guard.Resolve(cmd.Context(), route)
			switch {
			case res.Render():
				fmt.Printf("ALLOW %s for %s (%s)\n", route.Path, res.User.Name, res.User.Role)
			case res.RedirectTo != "":
				fmt.Printf("REDIRECT %s -> %s\n", route.Path, res.RedirectTo)
			default:
				fmt.Printf("DISCARDED (request cancelled while checking)\n")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&requires, "requires", "", "role the route is restricted to (admin|billing|admitting)")
	return cmd
}
