// Package cli implements the portctl command-line interface.
//
// The root command loads .portctl.yaml (see config.Find for the search
// order), applies the persistent flag overrides and opens the configured
// message bus. Subcommands:
//
//	portctl widget [service]          - Interactive port widget
//	portctl serve [service]           - Run the serial service on the bus
//	portctl ports                     - List serial ports on this machine
//	portctl services                  - List services registered on the bus
//	portctl call <service> <method>   - Send one request to a service
//	portctl init                      - Create .portctl.yaml
//	portctl version                   - Print version information
//	portctl completion <shell>        - Generate shell completions
//
// With the memory bus, widget starts an embedded serial service so the
// widget has something to talk to; with Redis it expects a separate
// 'portctl serve'.
package cli
