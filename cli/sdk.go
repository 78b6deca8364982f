// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package cli

import gwsdk "github.com/absmach/shadowrpc/pkg/sdk/go"

// Keep SDK handle in global var.
var sdk gwsdk.SDK

// SetSDK sets the gateway SDK instance.
func SetSDK(s gwsdk.SDK) {
	sdk = s
}
