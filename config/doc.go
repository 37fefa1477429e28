// Package config provides application configuration management.
//
// The config package loads the service configuration from an optional YAML
// file, EXECBOX_* environment variables and a local .env file, applies
// defaults and validates the result. It covers the transport, container
// sandbox limits, request limits, the execution record store and the
// per-language image overrides.
//
// Usage:
//
//	cfg, err := config.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Store backend: %s\n", cfg.Store.Backend)
package config
