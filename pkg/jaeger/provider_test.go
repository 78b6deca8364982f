// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package jaeger_test

import (
	"context"
	"fmt"
	"net/url"
	"testing"

	"github.com/absmach/shadowrpc/pkg/jaeger"
	"github.com/stretchr/testify/assert"
)

func TestNewProvider(t *testing.T) {
	cases := []struct {
		desc    string
		svcName string
		url     url.URL
		err     bool
	}{
		{
			desc:    "empty url",
			svcName: "shadowrpc",
			url:     url.URL{},
			err:     true,
		},
		{
			desc:    "empty service name",
			svcName: "",
			url:     url.URL{Scheme: "http", Host: "localhost:4318", Path: "/v1/traces"},
			err:     true,
		},
		{
			desc:    "unsupported scheme",
			svcName: "shadowrpc",
			url:     url.URL{Scheme: "udp", Host: "localhost:6831"},
			err:     true,
		},
		{
			desc:    "valid http url",
			svcName: "shadowrpc",
			url:     url.URL{Scheme: "http", Host: "localhost:4318", Path: "/v1/traces"},
			err:     false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			tp, err := jaeger.NewProvider(context.Background(), tc.svcName, tc.url, "instance", 1.0)
			assert.Equal(t, tc.err, err != nil, fmt.Sprintf("%s: unexpected error %v", tc.desc, err))
			if tp != nil {
				assert.Nil(t, tp.Shutdown(context.Background()))
			}
		})
	}
}
