// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package awsiot contains the shadow store backed by the AWS IoT Device Shadow
// HTTPS data plane.
package awsiot
