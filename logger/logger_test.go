// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package logger_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/absmach/shadowrpc/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type logMsg struct {
	Level string `json:"level"`
	Msg   string `json:"msg"`
}

func TestNew(t *testing.T) {
	cases := []struct {
		desc     string
		level    string
		logLevel string
		logged   bool
		err      bool
	}{
		{
			desc:     "info logger logs info",
			level:    "info",
			logLevel: "INFO",
			logged:   true,
		},
		{
			desc:     "info logger drops debug",
			level:    "info",
			logLevel: "DEBUG",
			logged:   false,
		},
		{
			desc:     "error logger logs error",
			level:    "error",
			logLevel: "ERROR",
			logged:   true,
		},
		{
			desc:     "warn logger drops info",
			level:    "warn",
			logLevel: "INFO",
			logged:   false,
		},
		{
			desc:  "invalid level",
			level: "loud",
			err:   true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			var buf bytes.Buffer
			l, err := logger.New(&buf, tc.level)
			if tc.err {
				assert.NotNil(t, err, fmt.Sprintf("%s: expected error", tc.desc))
				return
			}
			require.Nil(t, err, fmt.Sprintf("%s: unexpected error %s", tc.desc, err))

			switch tc.logLevel {
			case "DEBUG":
				l.Debug("message")
			case "INFO":
				l.Info("message")
			case "ERROR":
				l.Error("message")
			}

			if !tc.logged {
				assert.Zero(t, buf.Len(), fmt.Sprintf("%s: expected nothing logged got %s", tc.desc, buf.String()))
				return
			}
			var msg logMsg
			require.Nil(t, json.Unmarshal(buf.Bytes(), &msg))
			assert.Equal(t, tc.logLevel, msg.Level)
			assert.Equal(t, "message", msg.Msg)
		})
	}
}
