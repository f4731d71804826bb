package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/stagstation/stagsync/internal/config"
	"github.com/stagstation/stagsync/internal/service"
)

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with Google Drive using the device code flow",
		Long: `Authenticate with Google Drive.

Prints a verification URL and a short code. Open the URL on any device,
enter the code, and approve access; login finishes on its own once you do.
The token is saved and reused by every other command.`,
		Args: cobra.NoArgs,
		RunE: runLogin,
	}

	cmd.Flags().String("credentials", "", "OAuth client secret JSON (env "+config.EnvCredentials+")")

	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the saved authentication token",
		Args:  cobra.NoArgs,
		RunE:  runLogout,
	}
}

func runLogin(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	creds := cc.Cfg.CredentialsPath

	cc.Logger.Info("login started", slog.String("credentials", creds))

	res := cc.Svc.Authenticate(cmd.Context(), creds)
	if !res.Success {
		return cc.finish(res, nil)
	}

	status, ok := res.Data.(*service.AuthStatus)
	if ok && status.DeviceCode != nil {
		// Device code prompts must always be visible, even with --quiet.
		fmt.Fprintf(cc.Err, "To sign in, visit: %s\n", status.DeviceCode.VerificationURL)
		fmt.Fprintf(cc.Err, "Enter code: %s\n", cc.Styles.code.Render(status.DeviceCode.UserCode))

		ctx, stop := shutdownContext(cmd.Context(), cc.Logger)
		res = cc.Svc.CompleteAuth(ctx, creds)

		stop()
	}

	if res.Success {
		created, err := config.EnsureConfigFile(cc.Cfg.ConfigPath, creds)
		if err != nil {
			cc.Logger.Warn("could not write config file",
				slog.String("path", cc.Cfg.ConfigPath),
				slog.String("error", err.Error()),
			)
		} else if created {
			cc.Logger.Info("created config file", slog.String("path", cc.Cfg.ConfigPath))
		}

		cc.Logger.Info("login successful")
	}

	return cc.finish(res, func() error {
		cc.Statusf("Login successful.\n")
		return nil
	})
}

func runLogout(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	cc.Logger.Info("logout started", slog.String("token", cc.Cfg.TokenPath))

	return cc.finish(cc.Svc.Logout(cmd.Context()), func() error {
		cc.Statusf("Logged out.\n")
		return nil
	})
}
