// Package gateway provides the public API for embedding the tenant gateway.
// This is the stable API for external consumers.
package gateway

import (
	"github.com/sitefront/tenant-gateway/internal/runtime"
)

// Gateway is the main entry point for running the tenant gateway.
// See internal/runtime.Gateway for full documentation.
type Gateway = runtime.Gateway

// Option is a functional option for configuring a Gateway.
type Option = runtime.Option

// New creates a new Gateway with the given options.
// Example:
//
//	gw, err := gateway.New(
//	    gateway.WithLogger(logger),
//	    gateway.WithFileConfig("config.yaml"),
//	)
var New = runtime.New

// Configuration options
var (
	// Config sources
	WithFileConfig = runtime.WithFileConfig
	WithConfig     = runtime.WithConfig

	// Advanced options
	WithLogger         = runtime.WithLogger
	WithMetrics        = runtime.WithMetrics
	WithHTTPClient     = runtime.WithHTTPClient
	WithTenantIDCache  = runtime.WithTenantIDCache
	WithEventPublisher = runtime.WithEventPublisher
	WithEnvLookup      = runtime.WithEnvLookup
)
