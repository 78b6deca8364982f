// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package awsiot

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/absmach/shadowrpc/pkg/errors"
	"github.com/absmach/shadowrpc/shadow"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iotdataplane"
	"github.com/aws/aws-sdk-go-v2/service/iotdataplane/types"
	"github.com/aws/smithy-go"
)

const codeNotFound = "ResourceNotFoundException"

var errEmptyPayload = errors.New("empty shadow payload")

// Client is the subset of the IoT data plane API used by the store.
type Client interface {
	GetThingShadow(ctx context.Context, params *iotdataplane.GetThingShadowInput, optFns ...func(*iotdataplane.Options)) (*iotdataplane.GetThingShadowOutput, error)
	UpdateThingShadow(ctx context.Context, params *iotdataplane.UpdateThingShadowInput, optFns ...func(*iotdataplane.Options)) (*iotdataplane.UpdateThingShadowOutput, error)
	DeleteThingShadow(ctx context.Context, params *iotdataplane.DeleteThingShadowInput, optFns ...func(*iotdataplane.Options)) (*iotdataplane.DeleteThingShadowOutput, error)
}

var _ shadow.Store = (*store)(nil)

type store struct {
	client     Client
	shadowName *string
}

// NewStore returns a shadow store addressing each device key as an AWS IoT
// thing name. A non-empty shadowName selects a named shadow instead of the
// classic one.
func NewStore(client Client, shadowName string) shadow.Store {
	st := &store{client: client}
	if shadowName != "" {
		st.shadowName = aws.String(shadowName)
	}
	return st
}

func (st *store) Fetch(ctx context.Context, key string) (shadow.Document, error) {
	out, err := st.client.GetThingShadow(ctx, &iotdataplane.GetThingShadowInput{
		ThingName:  aws.String(key),
		ShadowName: st.shadowName,
	})
	if err != nil {
		if notFound(err) {
			return shadow.Document{}, nil
		}
		return shadow.Document{}, apiError(err)
	}

	return decode(out.Payload)
}

func (st *store) Replace(ctx context.Context, key string, doc shadow.Document) (shadow.Document, error) {
	payload, err := json.Marshal(shadow.Document{
		State: shadow.State{Desired: doc.State.Desired},
	})
	if err != nil {
		return shadow.Document{}, errors.Wrap(shadow.ErrMalformedDocument, err)
	}
	out, err := st.client.UpdateThingShadow(ctx, &iotdataplane.UpdateThingShadowInput{
		ThingName:  aws.String(key),
		ShadowName: st.shadowName,
		Payload:    payload,
	})
	if err != nil {
		return shadow.Document{}, apiError(err)
	}

	return decode(out.Payload)
}

func (st *store) Clear(ctx context.Context, key string) error {
	_, err := st.client.DeleteThingShadow(ctx, &iotdataplane.DeleteThingShadowInput{
		ThingName:  aws.String(key),
		ShadowName: st.shadowName,
	})
	if err != nil && !notFound(err) {
		return apiError(err)
	}
	return nil
}

func decode(payload []byte) (shadow.Document, error) {
	if len(payload) == 0 {
		return shadow.Document{}, errors.Wrap(shadow.ErrMalformedDocument, errEmptyPayload)
	}
	return shadow.ParseDocument(payload)
}

func notFound(err error) bool {
	var rnf *types.ResourceNotFoundException
	if stderrors.As(err, &rnf) {
		return true
	}
	var ae smithy.APIError
	return stderrors.As(err, &ae) && ae.ErrorCode() == codeNotFound
}

// apiError keeps the AWS error code as the head of the error chain.
func apiError(err error) error {
	var ae smithy.APIError
	if !stderrors.As(err, &ae) {
		return err
	}
	return errors.Wrap(errors.New(ae.ErrorCode()), errors.New(ae.ErrorMessage()))
}
