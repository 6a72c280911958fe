// Command aggnsa is the operator CLI for the aggnsa broker: a thin client
// over the same gRPC endpoint cmd/aggnsad exposes to its peers, issuing
// Reserve/ReserveCommit/Provision/Release/Terminate/Query against the local
// daemon. Write operations preview their request and require -x to execute,
// the same dry-run-by-default contract the rest of this stack's tooling
// uses.
//
// Examples:
//
//	aggnsa reserve --source netA:ingress?vlan=100 --dest netB:egress?vlan=100 --bandwidth 1000 -x
//	aggnsa reservecommit a1b2c3d4e5f6 -x
//	aggnsa provision a1b2c3d4e5f6 -x
//	aggnsa release a1b2c3d4e5f6 -x
//	aggnsa terminate a1b2c3d4e5f6 -x
//	aggnsa query a1b2c3d4e5f6
package main

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"time"

	"github.com/spf13/cobra"

	"github.com/aggnsa/aggnsa/pkg/cli"
	"github.com/aggnsa/aggnsa/pkg/peer"
	"github.com/aggnsa/aggnsa/pkg/registry"
	"github.com/aggnsa/aggnsa/pkg/settings"
	"github.com/aggnsa/aggnsa/pkg/util"
	"github.com/aggnsa/aggnsa/pkg/version"
)

// App holds CLI state shared across all commands.
type App struct {
	addr        string
	identity    string
	executeMode bool
	jsonOutput  bool

	settings *settings.Settings
}

var app = &App{}

func main() {
	rootCmd := &cobra.Command{
		Use:           "aggnsa",
		Short:         "Operator CLI for the aggnsa broker",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			var err error
			app.settings, err = settings.Load()
			if err != nil {
				util.Logger.Warnf("aggnsa: could not load settings: %v", err)
				app.settings = &settings.Settings{}
			}
			if app.addr == "" {
				app.addr = app.settings.GetListenAddr()
			}
			if app.identity == "" {
				app.identity = defaultIdentity()
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&app.addr, "addr", "a", "", "aggnsad gRPC address (default from settings, or "+settings.DefaultListenAddr+")")
	rootCmd.PersistentFlags().StringVarP(&app.identity, "identity", "i", "", "Requester identity (default: current user)")
	rootCmd.PersistentFlags().BoolVar(&app.jsonOutput, "json", false, "JSON output")

	for _, cmd := range []*cobra.Command{
		newReserveCmd(), newReserveCommitCmd(), newProvisionCmd(),
		newReleaseCmd(), newTerminateCmd(),
	} {
		cmd.Flags().BoolVarP(&app.executeMode, "execute", "x", false, "Execute (default is dry-run preview)")
		rootCmd.AddCommand(cmd)
	}
	rootCmd.AddCommand(newQueryCmd())
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.Info())
		},
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultIdentity() string {
	u, err := user.Current()
	if err != nil {
		return "unknown"
	}
	return u.Username
}

// dial opens a peer.Client against the configured daemon address, dialed
// fresh per command since this is a one-shot CLI invocation, not a
// long-lived process worth pooling connections for.
func dial(ctx context.Context) (*peer.Client, error) {
	return peer.NewClient(ctx, "local", app.addr, nil)
}

// call issues one event against the local daemon, behind the -x gate for
// anything that isn't a pure read. A dry run prints what would be sent and
// returns without touching the network.
func call(event registry.Event, req registry.Request, requiresExecute bool) (registry.Response, error) {
	req.RequesterIdentity = app.identity
	if requiresExecute && !app.executeMode {
		printDryRunPreview(event, req)
		return registry.Response{}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := dial(ctx)
	if err != nil {
		return registry.Response{}, fmt.Errorf("connecting to %s: %w", app.addr, err)
	}
	defer client.Close()

	return client.Call(ctx, event, req)
}

func printDryRunPreview(event registry.Event, req registry.Request) {
	fmt.Printf("%s %s\n", cli.Bold(string(event)), req.ConnectionID)
	if req.Source.Network != "" {
		fmt.Printf("  source:    %s\n", req.Source)
		fmt.Printf("  dest:      %s\n", req.Dest)
		fmt.Printf("  bandwidth: %d\n", req.Bandwidth)
	}
	fmt.Println("\n" + cli.Yellow("DRY-RUN: nothing sent. Use -x to execute."))
}

func printResponse(resp registry.Response) {
	if app.jsonOutput {
		fmt.Printf("{\"connection_id\":%q,\"global_reservation_id\":%q,\"description\":%q}\n",
			resp.ConnectionID, resp.GlobalReservationID, resp.Description)
		return
	}
	t := cli.NewTable("FIELD", "VALUE")
	t.Row("connection_id", resp.ConnectionID)
	if resp.GlobalReservationID != "" {
		t.Row("global_reservation_id", resp.GlobalReservationID)
	}
	if resp.Description != "" {
		t.Row("description", resp.Description)
	}
	t.Flush()
}
