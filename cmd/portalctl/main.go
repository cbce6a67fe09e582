// portalctl is a terminal client for the hospital admitting/billing portal
// backend. It drives the same session machinery the web portal uses: sign in
// with or without "remember me", inspect and verify the stored session, and
// resolve what a given route would do for the signed-in role.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/meridianhms/portal-client/apiclient"
	"github.com/meridianhms/portal-client/credentials"
	"github.com/meridianhms/portal-client/internal/config"
	"github.com/meridianhms/portal-client/routeguard"
	"github.com/meridianhms/portal-client/session"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("PORTAL_DEBUG") != "" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if err := newRootCmd().Execute(); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

// app wires the SDK together the way the SPA shell does: one credential
// keeper, one API client, one session service, and the two gates on top.
type app struct {
	cfg      *config.Config
	keeper   *credentials.Keeper
	api      *apiclient.Client
	sessions *session.Service
	guard    *routeguard.Guard
	anon     *routeguard.AnonymousGate
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	fileStore, err := credentials.NewFileStore(cfg.CredentialsFile)
	if err != nil {
		return nil, err
	}
	keeper, err := credentials.New(fileStore, credentials.NewMemoryStore())
	if err != nil {
		return nil, err
	}

	api, err := apiclient.New(cfg.BaseURL, keeper,
		apiclient.WithTimeout(cfg.HTTPTimeout),
		apiclient.WithLogger(log.Logger),
	)
	if err != nil {
		return nil, err
	}

	sessions, err := session.NewService(keeper, api,
		session.WithLogger(log.Logger),
		session.WithNavigator(func(route string) {
			fmt.Printf("Signed out. Sign in again at %s\n", route)
		}),
	)
	if err != nil {
		return nil, err
	}

	// Global 401 hook: a previously valid session died mid-use. The login
	// endpoint is exempt inside the client, so wrong credentials never land
	// here.
	api.SetUnauthorizedHandler(func() {
		log.Warn().Msg("session expired, please sign in again")
		_ = sessions.Logout(context.Background(), false)
	})

	guard, err := routeguard.NewGuard(sessions, routeguard.WithLogger(log.Logger))
	if err != nil {
		return nil, err
	}
	anon, err := routeguard.NewAnonymousGate(sessions)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		keeper:   keeper,
		api:      api,
		sessions: sessions,
		guard:    guard,
		anon:     anon,
	}, nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "portalctl",
		Short:         "Terminal client for the hospital portal backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			displayAppName(cfg.AppName)
			return cmd.Help()
		},
	}

	root.AddCommand(
		newLoginCmd(),
		newLogoutCmd(),
		newWhoamiCmd(),
		newVerifyCmd(),
		newRouteCmd(),
	)
	return root
}

func displayAppName(appName string) {
	banner := figure.NewFigure(appName, "cybermedium", true)
	banner.Print()
	fmt.Println()
}
