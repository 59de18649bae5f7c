// Lutbox-server is a network LUT server for OpenGradeIO grading
// applications.
//
// It accepts BSON-framed LUT updates over TCP, converts each cube to its
// image layout, and publishes the result to the configured texture
// backend. Each logical channel gets its own named output stream.
//
// Usage:
//
//	lutbox-server serve [flags]
//
// See 'lutbox-server serve --help' for available options.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fusetg/lutbox/internal/config"
	"github.com/fusetg/lutbox/internal/discovery"
	"github.com/fusetg/lutbox/internal/logging"
	"github.com/fusetg/lutbox/internal/lut"
	"github.com/fusetg/lutbox/internal/registry"
	"github.com/fusetg/lutbox/internal/server"
	"github.com/fusetg/lutbox/internal/stream"
	"github.com/fusetg/lutbox/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "lutbox-server",
	Short: "OpenGradeIO LUT streaming server",
	Long: `A network LUT server for OpenGradeIO grading applications.

The server listens for BSON-framed setLUT commands, converts each LUT
cube to a flat texture, and publishes it on a per-channel stream through
the selected backend.

Note: For client-side operations (sending LUTs, generating test cubes,
watching channels), use the separate 'lutbox' utility.`,
	Version: version.Version,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// Serve command and flags
var (
	configPath      string
	host            string
	port            int
	backendName     string
	streamPrefix    string
	wsListen        string
	logLevel        string
	noMDNS          bool
	alphaEpsilon    float64
	maxMessageBytes int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the LUT server",
	Long: `Start the LUT server and block until interrupted.

Settings are read from the config file first; command-line flags
override individual values. With no config file at all, built-in
defaults are used.`,
	Example: `  # Start with defaults (TCP on 127.0.0.1:8089, websocket backend)
  lutbox-server serve

  # Custom port with the in-memory backend and verbose logging
  lutbox-server serve --port 9000 --backend memory --log-level debug

  # Serve textures on a different websocket address, without mDNS
  lutbox-server serve --ws-listen 0.0.0.0:9090 --no-mdns`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&configPath, "config", "", "Path to config file (default: XDG config dir)")
	serveCmd.Flags().StringVar(&host, "host", "", "Listen address for the protocol server")
	serveCmd.Flags().IntVar(&port, "port", 0, "Listen port for the protocol server")
	serveCmd.Flags().StringVar(&backendName, "backend", "", "Texture backend: null, memory or websocket")
	serveCmd.Flags().StringVar(&streamPrefix, "prefix", "", "Base stream name; channels are published as {prefix}-{channel}")
	serveCmd.Flags().StringVar(&wsListen, "ws-listen", "", "Listen address for the websocket backend")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	serveCmd.Flags().BoolVar(&noMDNS, "no-mdns", false, "Disable mDNS advertisement")
	serveCmd.Flags().Float64Var(&alphaEpsilon, "alpha-epsilon", 0, "Tolerance for treating a constant alpha channel as padding")
	serveCmd.Flags().IntVar(&maxMessageBytes, "max-message-bytes", 0, "Reject messages declaring a larger size")
}

// loadConfig merges the config file with flag overrides.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFrom(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if host != "" {
		cfg.Server.Host = host
	}
	if port != 0 {
		cfg.Server.Port = port
	}
	if backendName != "" {
		cfg.Stream.Backend = backendName
	}
	if streamPrefix != "" {
		cfg.Stream.Prefix = streamPrefix
	}
	if wsListen != "" {
		cfg.Stream.WSListen = wsListen
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if noMDNS {
		cfg.Discovery.Advertise = false
	}
	if alphaEpsilon != 0 {
		cfg.Pipeline.AlphaEpsilon = alphaEpsilon
	}
	if maxMessageBytes != 0 {
		cfg.Pipeline.MaxMessageBytes = maxMessageBytes
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	level := cfg.LogLevel
	if level == "" {
		level = "info"
	}
	if err := logging.Initialize(level); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	backend, err := stream.New(cfg.Stream.Backend, stream.Options{
		Listen: cfg.Stream.WSListen,
	})
	if err != nil {
		return fmt.Errorf("failed to create %s backend: %w", cfg.Stream.Backend, err)
	}

	converter := &lut.Converter{AlphaEpsilon: cfg.Pipeline.AlphaEpsilon}
	reg := registry.New(backend, cfg.Stream.Prefix, converter)

	srv := server.New(&server.Config{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		MaxMessageBytes: cfg.Pipeline.MaxMessageBytes,
	}, reg)

	if cfg.Discovery.Advertise {
		name := cfg.Discovery.AdvertisedName
		if name == "" {
			hostname, _ := os.Hostname()
			name = "lutbox on " + hostname
		}
		advertiser, err := discovery.Advertise(name, cfg.Server.Port, map[string]string{
			"version": version.Version,
			"backend": cfg.Stream.Backend,
			"prefix":  cfg.Stream.Prefix,
		})
		if err != nil {
			// The server is still reachable by address, keep going.
			logging.Warn("mDNS advertisement failed; continuing without discovery")
		} else {
			defer advertiser.Close()
		}
	}

	return srv.Start()
}

// Version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("lutbox-server %s (commit: %s)\n", version.Version, version.Commit)
	},
}
