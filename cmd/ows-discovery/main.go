// Ows-discovery finds out which geospatial service a URL points to.
//
// Usage:
//
//	ows-discovery discover <url> [flags]
//	ows-discovery serve [flags]
//
// See 'ows-discovery <command> --help' for available options.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/delta10/ows-discovery/internal/config"
	"github.com/delta10/ows-discovery/internal/logging"
	"github.com/delta10/ows-discovery/internal/probe"
	"github.com/delta10/ows-discovery/internal/server"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ows-discovery",
	Short: "Geospatial service discovery",
	Long: `Detects whether a URL serves WMS, WMTS, WFS, GeoJSON (including ArcGIS
feature layers) or XYZ tiles, and reports the service title and capabilities.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	configPath  string
	logLevel    string
	logEncoding string
	filter      string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the YAML config file (defaults are used when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the config file")
	rootCmd.PersistentFlags().StringVar(&logEncoding, "log-encoding", "", "Log encoding (console, json)")

	discoverCmd.Flags().StringVar(&filter, "filter", "", "jq expression applied to the JSON output")

	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

var discoverCmd = &cobra.Command{
	Use:   "discover <url>",
	Short: "Discover the service behind a URL",
	Example: `  # Resolve a WMS endpoint
  ows-discovery discover https://service.pdok.nl/hwh/luchtfotorgb/wms/v1_0

  # Only print the layer names of a WFS
  ows-discovery discover --filter '.capabilities.featureTypeList[].name' service.pdok.nl/kadaster/bestuurlijkegebieden/wfs/v1_0`,
	Args: cobra.ExactArgs(1),
	RunE: runDiscover,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the discovery HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), Version)
	},
}

func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.NewConfig(configPath)
		if err != nil {
			return nil, err
		}
	}

	level := logLevel
	if level == "" {
		level = cfg.LogLevel
	}
	encoding := logEncoding
	if encoding == "" {
		encoding = cfg.LogEncoding
	}
	if err := logging.Initialize(level, encoding); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runDiscover(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer logging.Sync()

	query, err := server.ParseFilter(filter)
	if err != nil {
		return err
	}

	discoverer, err := probe.NewDiscoverer(cfg.ProbeConfig(), logging.GetLogger())
	if err != nil {
		return err
	}

	info := discoverer.LoadService(cmd.Context(), args[0])

	result, err := server.ApplyFilter(query, info)
	if err != nil {
		return err
	}

	output, err := json.MarshalIndent(result, "", "    ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(output))

	if info.Failed() {
		return fmt.Errorf("%s", info.Error)
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer logging.Sync()

	discoverer, err := probe.NewDiscoverer(cfg.ProbeConfig(), logging.GetLogger())
	if err != nil {
		return err
	}

	srv, err := server.New(cfg, discoverer, logging.GetLogger())
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	defer srv.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.ListenAndServe(ctx)
}
