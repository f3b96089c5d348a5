package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "eventtarget",
	Short: "eventtarget — typed in-process event dispatcher",
	Long: "eventtarget demonstrates the three firing modes of the dispatcher " +
		"(sequential, concurrent, fire-and-forget) and exposes dispatch metrics.",
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(serveCmd)
}
