package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sitefront/tenant-gateway/internal/analytics"
	"github.com/sitefront/tenant-gateway/internal/domain"
	"github.com/sitefront/tenant-gateway/internal/theme"
)

func favoritesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "favorites",
		Short: "List or toggle saved listings",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list [home|community|floorplan]",
		Short: "List favorites, optionally of one type",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			var t domain.FavoriteType
			if len(args) == 1 {
				t = domain.FavoriteType(args[0])
			}
			list, err := s.Favorites.List(cmd.Context(), t)
			if err != nil {
				return err
			}
			for _, f := range list {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", f.Type, f.ItemID())
			}
			return nil
		},
	}, &cobra.Command{
		Use:   "toggle TYPE ITEM_ID",
		Short: "Add a listing to favorites, or remove it when already saved",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			token, err := s.Auth.Token(cmd.Context())
			if err != nil {
				return err
			}
			if token == "" {
				return fmt.Errorf("not signed in")
			}
			on, err := s.Favorites.Toggle(cmd.Context(), domain.FavoriteType(args[0]), args[1])
			if err != nil {
				return err
			}
			state := "removed"
			if on {
				state = "saved"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", args[0], args[1], state)
			return nil
		},
	})
	return cmd
}

func themeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "theme [HOST]",
		Short: "Print the tenant's theme stylesheet and homepage sections",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				if err := cmd.Flags().Set(hostFlagName, args[0]); err != nil {
					return err
				}
			}
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			t := s.Tenant(cmd.Context())
			var page theme.Page
			theme.Apply(&page, theme.Resolve(t))

			out := cmd.OutOrStdout()
			if t != nil {
				fmt.Fprintf(out, "/* %s (%s) */\n", t.Name, t.Slug)
			} else {
				fmt.Fprintln(out, "/* tenant unavailable, default theme */")
			}
			fmt.Fprintln(out, page.CSS())
			fmt.Fprintf(out, "/* template: %s */\n", theme.Template(t))
			fmt.Fprintf(out, "/* sections: %s */\n", strings.Join(theme.Sections(t), ", "))

			s.Tracker.Start(cmd.Context(), analytics.Page{Path: "/", Title: "sitectl theme", UserAgent: "sitectl"}).
				Unload(cmd.Context())
			return nil
		},
	}
}

func bannersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "banners",
		Short: "List active flyout banners",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			active, err := s.ActiveBanners(cmd.Context(), s.Tenant(cmd.Context()))
			if err != nil {
				return err
			}
			for _, b := range active {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", b.ID, b.Title)
			}
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "dismiss BANNER_ID",
		Short: "Hide a banner for the dismissal window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()
			return s.Banners.Dismiss(cmd.Context(), args[0])
		},
	})
	return cmd
}

func searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search QUERY",
		Short: "Search the tenant's communities, homes and floorplans",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			resp, err := s.Search.Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(resp.Results) == 0 {
				fmt.Fprintln(out, "no results")
			}
			for _, r := range resp.Results {
				fmt.Fprintf(out, "%s\t%s\t%s\n", r.Type, r.Title, r.Href)
			}
			return nil
		},
	}
}
