// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package awsiot discovers devices registered as AWS IoT things.
package awsiot

import (
	"context"

	"github.com/absmach/shadowrpc/devices"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iot"
)

const pageSize = 250

var _ devices.Lister = (*lister)(nil)

type lister struct {
	client      iot.ListThingsAPIClient
	defaultType string
}

// NewLister returns a Lister walking every page of the IoT thing registry.
// Filters without a type list things of defaultType.
func NewLister(client iot.ListThingsAPIClient, defaultType string) devices.Lister {
	return &lister{client: client, defaultType: defaultType}
}

func (l *lister) ListDevices(ctx context.Context, filter devices.Filter) ([]devices.Device, error) {
	thingType := filter.Type
	if thingType == "" {
		thingType = l.defaultType
	}
	input := &iot.ListThingsInput{MaxResults: aws.Int32(pageSize)}
	if thingType != "" {
		input.ThingTypeName = aws.String(thingType)
	}

	devs := []devices.Device{}
	p := iot.NewListThingsPaginator(l.client, input)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, thing := range page.Things {
			key := aws.ToString(thing.ThingName)
			devs = append(devs, devices.Device{
				Key:        key,
				Name:       devices.Name(key),
				Type:       aws.ToString(thing.ThingTypeName),
				Attributes: thing.Attributes,
			})
		}
	}

	return devs, nil
}
