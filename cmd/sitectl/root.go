package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sitefront/tenant-gateway/internal/client"
	"github.com/sitefront/tenant-gateway/internal/storage/sqlite"
)

const (
	gatewayFlagName = "gateway"
	stateFlagName   = "state"
	hostFlagName    = "host"
	verboseFlagName = "verbose"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "sitectl",
		Short:         "Visitor-side client for the tenant gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String(gatewayFlagName, envOr("SITECTL_GATEWAY", "http://localhost:3000"),
		"gateway origin serving /api")
	rootCmd.PersistentFlags().String(stateFlagName, envOr("SITECTL_STATE", "sitectl.db"),
		"SQLite file holding local and session storage")
	rootCmd.PersistentFlags().String(hostFlagName, "",
		"Host header to send, selecting the tenant")
	rootCmd.PersistentFlags().BoolP(verboseFlagName, "v", false, "log to stderr")

	rootCmd.AddCommand(
		loginCmd(),
		logoutCmd(),
		whoamiCmd(),
		favoritesCmd(),
		themeCmd(),
		bannersCmd(),
		searchCmd(),
	)
	return rootCmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// hostTransport pins the Host header so one gateway can serve any tenant.
type hostTransport struct {
	host string
	next http.RoundTripper
}

func (t *hostTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Host = t.host
	return t.next.RoundTrip(req)
}

// session bundles an open client runtime with its state file.
type session struct {
	*client.Context
	db *sqlite.DB
}

func (s *session) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Context.Close(ctx)
	s.db.Close()
}

// openSession builds the client runtime from the persistent flags.
func openSession(cmd *cobra.Command) (*session, error) {
	flags := cmd.Flags()
	gatewayURL, _ := flags.GetString(gatewayFlagName)
	statePath, _ := flags.GetString(stateFlagName)
	host, _ := flags.GetString(hostFlagName)
	verbose, _ := flags.GetBool(verboseFlagName)

	logger := slog.New(slog.DiscardHandler)
	if verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	var transport http.RoundTripper = http.DefaultTransport
	if host != "" {
		transport = &hostTransport{host: host, next: transport}
	}

	db, err := sqlite.Open(statePath)
	if err != nil {
		return nil, fmt.Errorf("open state %s: %w", statePath, err)
	}
	c, err := client.New(client.Config{
		GatewayURL: gatewayURL,
		Local:      db.Area(sqlite.AreaLocal),
		Session:    db.Area(sqlite.AreaSession),
		HTTPClient: &http.Client{
			Transport: otelhttp.NewTransport(transport),
			Timeout:   15 * time.Second,
		},
		Logger: logger,
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &session{Context: c, db: db}, nil
}
