package main

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	sessionpkg "github.com/sitefront/tenant-gateway/internal/session"
)

func loginCmd() *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Complete sign-in with a one-time token",
		Long: `Exchanges the one-time token from a sign-in link for a session,
using: login --token TOKEN`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			res := s.Auth.HandleCallback(cmd.Context(), url.Values{"token": {token}})
			if res.State != sessionpkg.StateSuccess {
				return errors.New(res.Message)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s\n", res.Blob.User.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "one-time sign-in token")
	cmd.MarkFlagRequired("token")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.Auth.SignOut(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "signed out")
			return nil
		},
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			blob, err := s.Auth.Current(cmd.Context())
			if err != nil {
				return err
			}
			if blob == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "not signed in")
				return nil
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s <%s>\n", blob.User.Name, blob.User.Email)
			if !blob.Session.ExpiresAt.IsZero() {
				fmt.Fprintf(out, "session expires %s\n", blob.Session.ExpiresAt.Format("2006-01-02 15:04 MST"))
			}
			return nil
		},
	}
}
