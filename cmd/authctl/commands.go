package main

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/jrsteele09/go-auth-client/authapi"
	"github.com/jrsteele09/go-auth-client/internal/config"
	"github.com/jrsteele09/go-auth-client/session"
	"github.com/spf13/cobra"
)

// ssoTimeout bounds the whole browser round-trip.
const ssoTimeout = 5 * time.Minute

func newRootCmd(c config.Config, manager *session.Manager) *cobra.Command {
	root := &cobra.Command{
		Use:           "authctl",
		Short:         "Manage platform sign-in sessions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newLoginCmd(c, manager),
		newSSOCmd(c, manager),
		newWhoamiCmd(manager),
		newTenantCmd(manager),
		newLogoutCmd(manager),
	)
	return root
}

func newLoginCmd(c config.Config, manager *session.Manager) *cobra.Command {
	var username, password, tenantKey string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with username and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			displayAppName(c.GetAppName())
			ctx := cmd.Context()

			tenant, err := manager.LookupTenant(ctx, tenantKey)
			if err != nil {
				return err
			}
			if err := manager.Login(ctx, username, password, tenantKey); err != nil {
				return err
			}

			state := manager.Current()
			fmt.Printf("Signed in to %s as %s\n", tenant.Name, state.User.DisplayName())
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "account username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	cmd.Flags().StringVarP(&tenantKey, "tenant", "t", "", "tenant key")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func newSSOCmd(c config.Config, manager *session.Manager) *cobra.Command {
	var tenantKey string

	cmd := &cobra.Command{
		Use:   "sso",
		Short: "Sign in through the identity provider (PKCE)",
		RunE: func(cmd *cobra.Command, args []string) error {
			displayAppName(c.GetAppName())
			ctx, cancel := context.WithTimeout(cmd.Context(), ssoTimeout)
			defer cancel()

			redirect, err := url.Parse(c.GetOAuthRedirectURI())
			if err != nil {
				return fmt.Errorf("parse redirect URI: %w", err)
			}

			callback := authapi.NewCallbackServer(redirect.Host, redirect.Path)
			if _, err := callback.Start(ctx); err != nil {
				return err
			}

			authURL, err := manager.LoginSSO(ctx, tenantKey)
			if err != nil {
				return err
			}

			fmt.Println("Opening your browser to complete sign-in...")
			if err := authapi.OpenBrowser(authURL); err != nil {
				fmt.Printf("Could not open a browser. Visit this URL to continue:\n\n%s\n\n", authURL)
			}

			result, err := callback.WaitForCallback(ctx)
			if err != nil {
				return fmt.Errorf("waiting for sign-in: %w", err)
			}
			if result.IsError() {
				return fmt.Errorf("authorization failed: %s (%s)", result.Error, result.ErrorDescription)
			}

			if err := manager.HandleCallback(ctx, result.Code); err != nil {
				return err
			}

			state := manager.Current()
			fmt.Printf("Signed in as %s\n", state.User.DisplayName())
			return nil
		},
	}

	cmd.Flags().StringVarP(&tenantKey, "tenant", "t", "", "tenant key")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func newWhoamiCmd(manager *session.Manager) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !manager.IsAuthenticated() {
				fmt.Println("Not signed in.")
				return nil
			}

			state := manager.Current()
			fmt.Printf("User:    %s\n", state.User.DisplayName())
			if state.User.Email != "" {
				fmt.Printf("Email:   %s\n", state.User.Email)
			}
			if len(state.User.Roles) > 0 {
				fmt.Printf("Roles:   %v\n", state.User.Roles)
			}
			if state.Tenant != nil {
				fmt.Printf("Tenant:  %s (%s)\n", state.Tenant.Name, state.Tenant.Key)
			}
			fmt.Printf("Expires: %s\n", time.Unix(state.User.Exp, 0).Format(time.RFC1123))
			return nil
		},
	}
}

func newTenantCmd(manager *session.Manager) *cobra.Command {
	return &cobra.Command{
		Use:   "tenant <key>",
		Short: "Look up a tenant by its key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, err := manager.LookupTenant(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Name:  %s\n", tenant.Name)
			fmt.Printf("Key:   %s\n", tenant.Key)
			if tenant.DBType != "" {
				fmt.Printf("DB:    %s\n", tenant.DBType)
			}
			return nil
		},
	}
}

func newLogoutCmd(manager *session.Manager) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := manager.Logout(); err != nil {
				return err
			}
			fmt.Println("Signed out.")
			return nil
		},
	}
}
