// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package main contains the gateway command line interface.
package main

import (
	"log"

	"github.com/absmach/shadowrpc/cli"
	sdk "github.com/absmach/shadowrpc/pkg/sdk/go"
	cc "github.com/ivanpirog/coloredcobra"
	"github.com/spf13/cobra"
)

const defURL string = "http://localhost:9030"

func main() {
	sdkConf := sdk.Config{
		GatewayURL:      defURL,
		TLSVerification: true,
	}
	var insecure bool

	// Root
	rootCmd := &cobra.Command{
		Use: "shadowrpc-cli",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cliConf, err := cli.ParseConfig(sdkConf)
			if err != nil {
				log.Fatalf("Failed to parse config: %s", err)
			}
			if cmd.Flags().Changed("gateway-url") {
				cliConf.GatewayURL = sdkConf.GatewayURL
			}
			if cmd.Flags().Changed("insecure") {
				cliConf.TLSVerification = !insecure
			}
			cli.SetSDK(sdk.NewSDK(cliConf))
		},
	}

	cc.Init(&cc.Config{
		RootCmd:         rootCmd,
		Headings:        cc.HiCyan + cc.Bold + cc.Underline,
		Commands:        cc.HiYellow + cc.Bold,
		Example:         cc.Italic,
		ExecName:        cc.Bold,
		Flags:           cc.Bold,
		NoExtraNewlines: true,
		NoBottomNewline: true,
	})

	// API commands
	healthCmd := cli.NewHealthCmd()
	issueCmd := cli.NewIssueCmd()
	shadowCmd := cli.NewShadowCmd()
	devicesCmd := cli.NewDevicesCmd()
	configCmd := cli.NewConfigCmd()

	// Root Commands
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(issueCmd)
	rootCmd.AddCommand(shadowCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(configCmd)

	// Root Flags
	rootCmd.PersistentFlags().StringVarP(
		&sdkConf.GatewayURL,
		"gateway-url",
		"g",
		sdkConf.GatewayURL,
		"Gateway service URL",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&insecure,
		"insecure",
		"i",
		false,
		"Do not check for TLS cert",
	)

	rootCmd.PersistentFlags().StringVarP(
		&cli.ConfigPath,
		"config",
		"c",
		cli.ConfigPath,
		"Config path",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&cli.RawOutput,
		"raw",
		"r",
		cli.RawOutput,
		"Enables raw output mode for easier parsing of output",
	)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
