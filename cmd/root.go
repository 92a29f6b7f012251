package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/autovisor/visitmon/cmd/fetch"
	"github.com/autovisor/visitmon/cmd/serve"
	"github.com/autovisor/visitmon/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "visitmon",
		Short: "Dealer visit analytics dashboard",
	}

	setupFlags(rootCmd, settings)

	subcommands := []*cobra.Command{
		serve.Command(settings),
		fetch.Command(settings),
	}
	rootCmd.AddCommand(subcommands...)

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&settings.Sheets.SpreadsheetName, "spreadsheet", viper.GetString("sheets.spreadsheetname"), "Title of the spreadsheet document to open")
	rootCmd.PersistentFlags().StringVar(&settings.Sheets.WorksheetName, "worksheet", viper.GetString("sheets.worksheetname"), "Worksheet holding the form responses")
	rootCmd.PersistentFlags().StringVar(&settings.Sheets.CredentialsFile, "credentials", viper.GetString("sheets.credentialsfile"), "Path to the service account key file")
	rootCmd.PersistentFlags().BoolVar(&settings.Sheets.AllowPartial, "allow-partial", viper.GetBool("sheets.allowpartial"), "Skip malformed rows instead of failing the load")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		fmt.Printf("error binding flags: %v\n", err)
	}
}
