package cli

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X github.com/resolvd/resolvd/internal/cli.version=1.2.3"
	version = "0.4.1"
	logo    = "\n" +
		"  ____                 _           _\n" +
		" |  _ \\ ___  ___  ___ | |_   _  __| |\n" +
		" | |_) / _ \\/ __|/ _ \\| \\ \\ / |/ _` |\n" +
		" |  _ <  __/\\__ \\ (_) | |\\ V /| (_| |\n" +
		" |_| \\_\\___||___/\\___/|_| \\_/  \\__,_|\n"
)

var rootCmd = &cobra.Command{
	Use:   "resolvd",
	Short: "Resolvd - notification auto-resolution daemon",
	Long:  color.CyanString(logo) + "\nAnswers routine agent notifications automatically and gates riskier decisions by earned trust.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(ratifyCmd)
	rootCmd.AddCommand(ratificationsCmd)
	rootCmd.AddCommand(decisionsCmd)
}
