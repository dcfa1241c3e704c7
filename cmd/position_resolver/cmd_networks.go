package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var networksFlags struct {
	asJSON bool
}

var networksCmd = &cobra.Command{
	Use:   "networks",
	Short: "List the networks that have a registry configured",
	RunE:  runNetworks,
}

func init() {
	networksCmd.Flags().BoolVar(&networksFlags.asJSON, "json", false, "print the list as JSON")
}

func runNetworks(cmd *cobra.Command, _ []string) error {
	app, err := newApplication(rootFlags.configPath)
	if err != nil {
		return err
	}
	defer app.Close()

	defs := app.resolver.Networks()
	out := cmd.OutOrStdout()
	if networksFlags.asJSON {
		return writeJSON(out, defs)
	}
	if len(defs) == 0 {
		fmt.Fprintln(out, "No networks configured. Set a registry address under networks in the config file.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "IDENTIFIER\tNAME\tCHAIN ID\tREGISTRY\tAGGREGATOR")
	for _, def := range defs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", def.Identifier, def.Name, def.ChainID, def.RegistryAddress.Hex(), def.AggregatorAddress.Hex())
	}
	return tw.Flush()
}
