// Lutbox is the client-side companion to lutbox-server.
//
// It can generate test LUTs, send them to a running server, discover
// servers on the local network, watch live channels, and export stream
// frames as PNG previews.
//
// Usage:
//
//	lutbox send [flags]
//	lutbox gen [flags]
//	lutbox preview [flags]
//	lutbox discover [flags]
//	lutbox watch [flags]
//	lutbox info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fusetg/lutbox/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "lutbox",
	Short: "Lutbox client utility",
	Long: `Client-side companion to lutbox-server.

Generate test LUTs, send them over the OpenGradeIO protocol, discover
servers via mDNS, watch live channels, and export texture frames.

Note: To run the server itself, use the separate 'lutbox-server' utility.`,
	Version: version.Version,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(genCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(versionCmd)
}

// Version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("lutbox %s (commit: %s)\n", version.Version, version.Commit)
	},
}
