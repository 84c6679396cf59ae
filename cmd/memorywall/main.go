package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	driver     string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "memorywall",
	Short: "Local record store for the MemoryWall community platform",
	Long: `memorywall manages the local record store behind the MemoryWall
community platform: seeding, resetting and inspecting collections, platform
stats, recommendations, following a channel, and the Postgres database
lifecycle.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: memorywall.yaml in . or ~/.config/memorywall)")
	rootCmd.PersistentFlags().StringVar(&driver, "driver", "", "Override storage.driver (memory, file, sqlite, postgres)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log.level")

	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(recommendCmd)
	rootCmd.AddCommand(tailCmd)
	rootCmd.AddCommand(initDBCmd)
	rootCmd.AddCommand(dropDBCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		os.Exit(1)
	}
}
