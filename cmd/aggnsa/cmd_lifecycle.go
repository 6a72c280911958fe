package main

import (
	"github.com/spf13/cobra"

	"github.com/aggnsa/aggnsa/pkg/registry"
)

// newLifecycleCmd builds the common shape shared by the four operations
// that act on an already-reserved connection by id: preview by default,
// -x to execute, print the result table on success.
func newLifecycleCmd(use, short string, event registry.Event) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <connection-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := call(event, registry.Request{ConnectionID: args[0]}, true)
			if err != nil {
				return err
			}
			if app.executeMode {
				printResponse(resp)
			}
			return nil
		},
	}
}

func newReserveCommitCmd() *cobra.Command {
	return newLifecycleCmd("reservecommit", "Commit a held reservation", registry.EventReserveCommit)
}

func newProvisionCmd() *cobra.Command {
	return newLifecycleCmd("provision", "Provision a reserved connection's data plane", registry.EventProvision)
}

func newReleaseCmd() *cobra.Command {
	return newLifecycleCmd("release", "Release a provisioned connection's data plane", registry.EventRelease)
}

func newTerminateCmd() *cobra.Command {
	return newLifecycleCmd("terminate", "Tear a connection down unconditionally", registry.EventTerminate)
}

func newQueryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query <connection-id>",
		Short: "Inspect a connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := call(registry.EventQuery, registry.Request{ConnectionID: args[0]}, false)
			if err != nil {
				return err
			}
			printResponse(resp)
			return nil
		},
	}
}
