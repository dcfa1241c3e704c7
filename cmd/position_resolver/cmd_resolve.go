package main

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"position_resolver/internal/domain/entity"
	"position_resolver/internal/infrastructure/ownerloader"
	"position_resolver/internal/pkg/utils"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
)

var resolveFlags struct {
	owner      string
	ownersFile string
	network    string
	block      string
	parallel   int
	asJSON     bool
}

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve an owner's positions on one network",
	RunE:  runResolve,
}

func init() {
	f := resolveCmd.Flags()
	f.StringVar(&resolveFlags.owner, "owner", "", "owner address")
	f.StringVar(&resolveFlags.ownersFile, "owners-file", "", "file with one owner address per line")
	f.StringVar(&resolveFlags.network, "network", "", "network identifier (required)")
	f.StringVar(&resolveFlags.block, "block", "", "block height to pin every read to (default latest)")
	f.IntVar(&resolveFlags.parallel, "parallel", 4, "owners resolved concurrently with --owners-file")
	f.BoolVar(&resolveFlags.asJSON, "json", false, "print the report as JSON")

	_ = resolveCmd.MarkFlagRequired("network")
	resolveCmd.MarkFlagsOneRequired("owner", "owners-file")
	resolveCmd.MarkFlagsMutuallyExclusive("owner", "owners-file")
}

func runResolve(cmd *cobra.Command, _ []string) error {
	height, err := utils.ParseBlockHeight(resolveFlags.block)
	if err != nil {
		return err
	}

	app, err := newApplication(rootFlags.configPath)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	if resolveFlags.ownersFile != "" {
		return resolveOwnersFile(ctx, app, out, height)
	}

	report, err := app.resolver.ResolvePositions(ctx, resolveFlags.owner, resolveFlags.network, height)
	if err != nil {
		return err
	}
	if resolveFlags.asJSON {
		return writeJSON(out, report)
	}
	return writeReport(out, report)
}

func resolveOwnersFile(ctx context.Context, app *application, out io.Writer, height *big.Int) error {
	addrs, err := ownerloader.LoadOwners(resolveFlags.ownersFile, app.logger)
	if err != nil {
		return err
	}
	owners := make([]string, len(addrs))
	for i, addr := range addrs {
		owners[i] = addr.Hex()
	}

	results := app.resolver.ResolveMany(ctx, owners, resolveFlags.network, height, resolveFlags.parallel)

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			app.logger.Error("Owner resolution failed", "owner", r.Owner, "error", r.Err)
		}
	}
	if resolveFlags.asJSON {
		if err := writeJSON(out, results); err != nil {
			return err
		}
	} else {
		for i, r := range results {
			if i > 0 {
				fmt.Fprintln(out)
			}
			if r.Err != nil {
				fmt.Fprintf(out, "Owner:     %s\nError:     %v\n", r.Owner, r.Err)
				continue
			}
			if err := writeReport(out, r.Report); err != nil {
				return err
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d owners could not be resolved", failed, len(results))
	}
	return nil
}

func writeJSON(out io.Writer, v interface{}) error {
	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

func writeReport(out io.Writer, report *entity.PositionReport) error {
	height := "latest"
	if report.Height != nil {
		height = report.Height.String()
	}
	fmt.Fprintf(out, "Owner:     %s\n", report.Owner.Hex())
	fmt.Fprintf(out, "Network:   %s @ %s\n", report.Network, height)
	fmt.Fprintf(out, "Items:     %d discovered, %d with positions (%s)\n",
		report.Summary.ItemsDiscovered, report.Summary.ItemsWithNonZeroQuantity, report.Summary.ElapsedDuration)

	if len(report.Entries) > 0 {
		fmt.Fprintln(out)
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "LABEL\tQUANTITY\tREFERENCE\tDERIVED FROM")
		for _, e := range report.Entries {
			derived := "-"
			if e.DerivedFromIdentity != nil {
				derived = e.DerivedFromIdentity.Hex()
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Label, e.FormattedQuantity, e.ReferenceIdentity.Hex(), derived)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(report.Warnings) > 0 {
		fmt.Fprintf(out, "\nWarnings (%d):\n", len(report.Warnings))
		for _, w := range report.Warnings {
			fmt.Fprintf(out, "  [%s] %s: %s\n", w.Stage, w.ItemIdentity.Hex(), w.Message)
		}
	}
	return nil
}
