package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aggnsa/aggnsa/pkg/registry"
	"github.com/aggnsa/aggnsa/pkg/topology"
)

func newReserveCmd() *cobra.Command {
	var (
		connID, gid, desc, startStr, endStr string
		bandwidth                           int64
	)
	cmd := &cobra.Command{
		Use:   "reserve --source <stp> --dest <stp> --bandwidth <mbps>",
		Short: "Reserve an inter-domain path",
		RunE: func(cmd *cobra.Command, args []string) error {
			sourceStr, err := cmd.Flags().GetString("source")
			if err != nil {
				return err
			}
			destStr, err := cmd.Flags().GetString("dest")
			if err != nil {
				return err
			}
			source, err := topology.ParseSTP(sourceStr)
			if err != nil {
				return err
			}
			dest, err := topology.ParseSTP(destStr)
			if err != nil {
				return err
			}
			start, err := parseOptionalTime(startStr)
			if err != nil {
				return fmt.Errorf("--start: %w", err)
			}
			end, err := parseOptionalTime(endStr)
			if err != nil {
				return fmt.Errorf("--end: %w", err)
			}

			resp, err := call(registry.EventReserve, registry.Request{
				ConnectionID:        connID,
				GlobalReservationID: gid,
				Description:         desc,
				Source:              source,
				Dest:                dest,
				StartTime:           start,
				EndTime:             end,
				Bandwidth:           bandwidth,
			}, true)
			if err != nil {
				return err
			}
			if app.executeMode {
				printResponse(resp)
			}
			return nil
		},
	}
	cmd.Flags().String("source", "", "Source STP: network:port[?vlan=labels]")
	cmd.Flags().String("dest", "", "Dest STP: network:port[?vlan=labels]")
	cmd.Flags().Int64Var(&bandwidth, "bandwidth", 0, "Requested bandwidth")
	cmd.Flags().StringVar(&connID, "id", "", "Caller-supplied connection id (optional)")
	cmd.Flags().StringVar(&gid, "gid", "", "Global reservation id")
	cmd.Flags().StringVar(&desc, "desc", "", "Description")
	cmd.Flags().StringVar(&startStr, "start", "", "Start time, RFC3339 (default: now)")
	cmd.Flags().StringVar(&endStr, "end", "", "End time, RFC3339 (default: unbounded)")
	cmd.MarkFlagRequired("source")
	cmd.MarkFlagRequired("dest")
	cmd.MarkFlagRequired("bandwidth")
	return cmd
}

func parseOptionalTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}
