// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package shadow contains the command gateway for devices that are reachable
// only through a device shadow document.
//
// A caller issues a JSON-RPC command for a device key. The gateway writes the
// command into the document's desired section, and the device consumes it and
// answers in the reported section. In synchronous mode the gateway polls the
// document until the device has answered or the retry budget is spent.
//
// The gateway holds no per-device state and assumes an unconditional
// read/write store. Concurrent commands to the same device key must be
// serialized by the caller, for example with middleware.KeyLock.
package shadow
