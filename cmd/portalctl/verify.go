package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/meridianhms/portal-client/session"
)

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check the stored token against the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}

			if !app.sessions.IsAuthenticated() {
				return errors.New("not signed in")
			}

			switch app.sessions.VerifyToken(cmd.Context()) {
			case session.VerifyOK:
				fmt.Println("Token confirmed by server.")
			case session.VerifyRejected:
				fmt.Println("Token rejected by server; session cleared.")
			case session.VerifyUnavailable:
				fmt.Println("Server unreachable; cached session remains trusted.")
			}
			return nil
		},
	}
}
