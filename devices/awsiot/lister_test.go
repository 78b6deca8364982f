// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package awsiot_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/absmach/shadowrpc/devices"
	"github.com/absmach/shadowrpc/devices/awsiot"
	"github.com/absmach/shadowrpc/pkg/errors"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iot"
	"github.com/aws/aws-sdk-go-v2/service/iot/types"
	"github.com/stretchr/testify/assert"
)

var errRegistry = errors.New("AccessDeniedException")

// registry serves things in pages keyed by the incoming token.
type registry struct {
	pages  [][]types.ThingAttribute
	failAt int
	inputs []iot.ListThingsInput
}

func (r *registry) ListThings(_ context.Context, in *iot.ListThingsInput, _ ...func(*iot.Options)) (*iot.ListThingsOutput, error) {
	r.inputs = append(r.inputs, *in)
	idx := 0
	if in.NextToken != nil {
		fmt.Sscanf(aws.ToString(in.NextToken), "page-%d", &idx)
	}
	if r.failAt > 0 && idx == r.failAt {
		return nil, errRegistry
	}
	out := &iot.ListThingsOutput{}
	if idx < len(r.pages) {
		out.Things = r.pages[idx]
	}
	if idx+1 < len(r.pages) {
		out.NextToken = aws.String(fmt.Sprintf("page-%d", idx+1))
	}
	return out, nil
}

func thing(name, thingType string) types.ThingAttribute {
	return types.ThingAttribute{ThingName: aws.String(name), ThingTypeName: aws.String(thingType), Attributes: map[string]string{"room": name}}
}

func TestListDevices(t *testing.T) {
	cases := []struct {
		desc     string
		pages    [][]types.ThingAttribute
		failAt   int
		filter   devices.Filter
		keys     []string
		calls    int
		thingTyp string
		err      error
	}{
		{
			desc:     "list single page",
			pages:    [][]types.ThingAttribute{{thing("livingroom", "Kodi"), thing("bedroom", "Kodi")}},
			keys:     []string{"livingroom", "bedroom"},
			calls:    1,
			thingTyp: "Kodi",
		},
		{
			desc: "list across pages",
			pages: [][]types.ThingAttribute{
				{thing("livingroom", "Kodi")},
				{thing("bedroom", "Kodi")},
				{thing("den", "Kodi")},
			},
			keys:     []string{"livingroom", "bedroom", "den"},
			calls:    3,
			thingTyp: "Kodi",
		},
		{
			desc:     "list requested type",
			pages:    [][]types.ThingAttribute{{thing("garage", "Television")}},
			filter:   devices.Filter{Type: "Television"},
			keys:     []string{"garage"},
			calls:    1,
			thingTyp: "Television",
		},
		{
			desc:     "list with no things",
			pages:    [][]types.ThingAttribute{},
			keys:     []string{},
			calls:    1,
			thingTyp: "Kodi",
		},
		{
			desc:     "list with failing registry",
			pages:    [][]types.ThingAttribute{{thing("livingroom", "Kodi")}, {thing("bedroom", "Kodi")}},
			failAt:   1,
			calls:    2,
			thingTyp: "Kodi",
			err:      errRegistry,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			reg := &registry{pages: tc.pages, failAt: tc.failAt}
			devs, err := awsiot.NewLister(reg, devices.DefaultType).ListDevices(context.Background(), tc.filter)
			assert.True(t, errors.Contains(err, tc.err), fmt.Sprintf("%s: expected %s got %s", tc.desc, tc.err, err))
			assert.Len(t, reg.inputs, tc.calls)
			for _, in := range reg.inputs {
				assert.Equal(t, tc.thingTyp, aws.ToString(in.ThingTypeName))
				assert.Equal(t, int32(250), aws.ToInt32(in.MaxResults))
			}
			if tc.err != nil {
				return
			}
			keys := []string{}
			for _, d := range devs {
				keys = append(keys, d.Key)
				assert.Equal(t, devices.Name(d.Key), d.Name)
				assert.Equal(t, d.Key, d.Attributes["room"])
			}
			assert.Equal(t, tc.keys, keys)
		})
	}
}
