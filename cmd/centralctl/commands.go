package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/andreweacott/central-client/pkg/auth"
	"github.com/andreweacott/central-client/pkg/central"
	"github.com/andreweacott/central-client/pkg/config"
	"github.com/andreweacott/central-client/pkg/logger"
)

// app carries the settings shared by every subcommand
type app struct {
	cfg          *config.Config
	outputFormat string
	limit        int
	offset       int
}

func newRootCmd() *cobra.Command {
	a := &app{cfg: config.FromEnv()}

	rootCmd := &cobra.Command{
		Use:   "centralctl",
		Short: "Query the network management cloud API",
		Long: `A command line client for the network management cloud API.

Reads access point status, template assignments, template sync state and the
SSID allow list from the cloud API gateway, and LLDP neighbours directly from
a switch. Results are printed as YAML (default) or JSON.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// Connection flags are shared with the exporter
	goFlags := flag.NewFlagSet("central", flag.ContinueOnError)
	config.RegisterFlags(goFlags, a.cfg)
	rootCmd.PersistentFlags().AddGoFlagSet(goFlags)
	rootCmd.PersistentFlags().StringVarP(&a.outputFormat, "output", "o", "yaml", "Output format (yaml, json)")

	rootCmd.AddCommand(
		a.apStatusCmd(),
		a.templateCmd(),
		a.templatesCmd(),
		a.syncStatusCmd(),
		a.ssidsCmd(),
		a.lldpCmd(),
	)

	return rootCmd
}

func (a *app) apStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ap-status <mac>",
		Short: "Show whether an access point is up",
		Example: `  centralctl ap-status aa:bb:cc:dd:ee:ff
  centralctl ap-status AA-BB-CC-DD-EE-FF -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mac, err := central.ParseMacAddress(args[0])
			if err != nil {
				return err
			}
			return a.run(cmd, func(ctx context.Context, c *central.Client) (any, error) {
				return c.GetDeviceStatus(ctx, mac)
			})
		},
	}
}

func (a *app) templateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "template <serial>...",
		Short: "Show the template assigned to one or more devices",
		Example: `  centralctl template CN12345678
  centralctl template CN12345678 CN87654321`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			serials, err := parseSerials(args)
			if err != nil {
				return err
			}
			return a.run(cmd, func(ctx context.Context, c *central.Client) (any, error) {
				return c.GetTemplateAssignments(ctx, serials...)
			})
		},
	}
}

func (a *app) templatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List templates in the configured group",
		Example: `  centralctl templates
  centralctl templates --template-group branch --limit 50 --offset 50`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, c *central.Client) (any, error) {
				return c.GetTemplateCatalog(ctx, a.limit, a.offset)
			})
		},
	}
	a.pageFlags(cmd)
	return cmd
}

func (a *app) syncStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "sync-status <serial>",
		Short:   "Show whether a device is in sync with its template",
		Example: `  centralctl sync-status CN12345678`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			serial, err := central.ParseSerialNumber(args[0])
			if err != nil {
				return err
			}
			return a.run(cmd, func(ctx context.Context, c *central.Client) (any, error) {
				return c.GetTemplateSyncStatus(ctx, serial)
			})
		},
	}
}

func (a *app) ssidsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ssids",
		Short:   "List the SSID allow list with broadcast flags",
		Example: `  centralctl ssids --limit 100`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, c *central.Client) (any, error) {
				return c.GetBroadcastSsids(ctx, a.limit, a.offset)
			})
		},
	}
	a.pageFlags(cmd)
	return cmd
}

func (a *app) lldpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lldp <switch-ip> <port>",
		Short: "List LLDP neighbours on a switch port",
		Long: `List LLDP neighbours on a switch port.

The request goes straight to the switch's REST API, not through the cloud
gateway. Use --verify-tls=false for switches with self-signed certificates.`,
		Example: `  centralctl lldp 10.0.0.2 1/1/1
  centralctl lldp 10.0.0.2:8443 1/1/48 --verify-tls=false`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runLocal(cmd, func(ctx context.Context, c *central.Client) (any, error) {
				return c.GetLldpNeighbors(ctx, args[0], args[1])
			})
		},
	}
}

func (a *app) pageFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&a.limit, "limit", 20, fmt.Sprintf("Page size (1-%d)", central.MaxPageSize))
	cmd.Flags().IntVar(&a.offset, "offset", 0, "Number of entries to skip")
}

type operation func(context.Context, *central.Client) (any, error)

// run builds a cloud client, invokes op and prints its result
func (a *app) run(cmd *cobra.Command, op operation) error {
	return a.execute(cmd, op, true)
}

// runLocal is run for operations that only talk to switches; no cloud settings are required
func (a *app) runLocal(cmd *cobra.Command, op operation) error {
	return a.execute(cmd, op, false)
}

func (a *app) execute(cmd *cobra.Command, op operation, cloud bool) error {
	if a.outputFormat != "yaml" && a.outputFormat != "json" {
		return fmt.Errorf("invalid output format %q (must be yaml or json)", a.outputFormat)
	}

	client, err := a.newClient(cmd, cloud)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(a.cfg.RequestTimeout)*time.Second)
	defer cancel()

	result, err := op(ctx, client)
	if err != nil {
		return err
	}

	return writeResult(cmd.OutOrStdout(), a.outputFormat, result)
}

func (a *app) newClient(cmd *cobra.Command, cloud bool) (*central.Client, error) {
	validate := a.cfg.ValidateLocal
	if cloud {
		validate = a.cfg.Validate
	}
	if err := validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	log, err := logger.NewWithWriter(a.cfg.LogLevel, a.cfg.LogFormat, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	timeout := time.Duration(a.cfg.RequestTimeout) * time.Second
	clientCfg := a.cfg.ClientConfig()

	var requester central.Requester = unconfiguredCloud
	if cloud {
		requester, err = auth.NewCloudRequester(cmd.Context(), clientCfg, timeout)
		if err != nil {
			return nil, err
		}
	}

	return central.NewClient(clientCfg, requester,
		central.WithLogger(log),
		central.WithDeviceHTTPClient(auth.NewDeviceHTTPClient(a.cfg.VerifyTLS, timeout)),
	)
}

// unconfiguredCloud stands in for the cloud session on switch-only commands
var unconfiguredCloud = central.RequesterFunc(func(ctx context.Context, req central.Request) (*central.Response[json.RawMessage], error) {
	return nil, &central.ValidationError{Field: "base-url", Reason: "cloud connection is not configured for this command"}
})

func parseSerials(args []string) ([]central.SerialNumber, error) {
	serials := make([]central.SerialNumber, 0, len(args))
	for _, arg := range args {
		sn, err := central.ParseSerialNumber(arg)
		if err != nil {
			return nil, err
		}
		serials = append(serials, sn)
	}
	return serials, nil
}

func writeResult(w io.Writer, format string, v any) error {
	if format == "json" {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return enc.Close()
}
