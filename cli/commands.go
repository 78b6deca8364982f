// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"encoding/json"

	gwsdk "github.com/absmach/shadowrpc/pkg/sdk/go"
	"github.com/spf13/cobra"
)

// NewIssueCmd returns the command sending a JSON-RPC command to a device.
func NewIssueCmd() *cobra.Command {
	var async bool
	var retries uint

	cmd := cobra.Command{
		Use:   "issue <device_key> <method> [params_json] [--async] [--retries=10]",
		Short: "Issue command",
		Long: "Issues a JSON-RPC command to a device and prints its result\n" +
			"usage:\n" +
			"\tshadowrpc-cli issue livingroom Application.GetProperties '{\"properties\":[\"muted\"]}'\n" +
			"\tshadowrpc-cli issue livingroom Player.Stop '{\"playerid\":1}' --async",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) < 2 || len(args) > 3 {
				logUsageCmd(*cmd, cmd.Use)
				return
			}

			command := gwsdk.Command{Method: args[1]}
			if len(args) == 3 {
				dec := json.NewDecoder(bytes.NewReader([]byte(args[2])))
				dec.UseNumber()
				if err := dec.Decode(&command.Params); err != nil {
					logErrorCmd(*cmd, err)
					return
				}
			}

			out, err := sdk.Issue(args[0], command, gwsdk.IssueOptions{Async: async, MaxRetries: retries})
			if err != nil {
				logErrorCmd(*cmd, err)
				return
			}

			logJSONCmd(*cmd, out)
		},
	}

	cmd.Flags().BoolVarP(&async, "async", "a", false, "return once the command is dispatched")
	cmd.Flags().UintVar(&retries, "retries", 0, "maximum number of polls, gateway default when zero")

	return &cmd
}

var cmdShadow = []cobra.Command{
	{
		Use:   "get <device_key>",
		Short: "Get shadow",
		Long:  "Gets the shadow document of a device",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)
				return
			}

			doc, err := sdk.Shadow(args[0])
			if err != nil {
				logErrorCmd(*cmd, err)
				return
			}

			logJSONCmd(*cmd, doc)
		},
	},
	{
		Use:   "clear <device_key>",
		Short: "Clear shadow",
		Long:  "Clears the desired and reported state of a device",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)
				return
			}

			if err := sdk.ClearShadow(args[0]); err != nil {
				logErrorCmd(*cmd, err)
				return
			}

			logOKCmd(*cmd)
		},
	},
}

// NewShadowCmd returns shadow command.
func NewShadowCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "shadow [get | clear]",
		Short: "Device shadow",
		Long:  "Device shadow inspection and cleanup",
	}

	for i := range cmdShadow {
		cmd.AddCommand(&cmdShadow[i])
	}

	return &cmd
}

// NewDevicesCmd returns the device discovery command.
func NewDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices [type]",
		Short: "List devices",
		Long:  "Lists the devices reachable through the gateway, optionally of one type",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) > 1 {
				logUsageCmd(*cmd, cmd.Use)
				return
			}

			deviceType := ""
			if len(args) == 1 {
				deviceType = args[0]
			}

			page, err := sdk.Devices(deviceType)
			if err != nil {
				logErrorCmd(*cmd, err)
				return
			}

			logJSONCmd(*cmd, page)
		},
	}
}
