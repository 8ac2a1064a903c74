package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgPath     string
	showVersion bool
)

var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "manifest-dns-sync",
	Short: "Sync declarative DNS record manifests to a provider",
	Long: "manifest-dns-sync reconciles per-record YAML manifests against a DNS\n" +
		"provider's live zone records: manifests are the source of truth, the\n" +
		"provider is observed state, and each run applies the minimal set of\n" +
		"creates, updates and deletes to converge them.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if showVersion {
			fmt.Println(Version)
			os.Exit(0)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "Configuration file")
	rootCmd.PersistentFlags().BoolVarP(&showVersion, "version", "v", false, "Show version information")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
