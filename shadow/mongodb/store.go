// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package mongodb contains the shadow store backed by MongoDB.
package mongodb

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/absmach/shadowrpc/pkg/errors"
	"github.com/absmach/shadowrpc/shadow"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collection = "shadows"

var _ shadow.Store = (*shadowStore)(nil)

type record struct {
	Key       string `bson:"_id"`
	Desired   bson.D `bson:"desired,omitempty"`
	Reported  bson.D `bson:"reported,omitempty"`
	Version   int64  `bson:"version"`
	Timestamp int64  `bson:"timestamp"`
}

type shadowStore struct {
	db *mongo.Database
}

// NewStore returns a MongoDB shadow store keeping one document per device
// in the shadows collection.
func NewStore(db *mongo.Database) shadow.Store {
	return &shadowStore{db: db}
}

func (ss *shadowStore) Fetch(ctx context.Context, key string) (shadow.Document, error) {
	coll := ss.db.Collection(collection)

	rec, err := decode(coll.FindOne(ctx, bson.M{"_id": key}))
	switch {
	case err == mongo.ErrNoDocuments:
		return shadow.Document{}, nil
	case err != nil:
		return shadow.Document{}, err
	}

	return rec.document()
}

func (ss *shadowStore) Replace(ctx context.Context, key string, doc shadow.Document) (shadow.Document, error) {
	coll := ss.db.Collection(collection)

	set := bson.M{"timestamp": time.Now().Unix()}
	unset := bson.M{"reported": ""}
	if doc.State.Desired == nil {
		unset["desired"] = ""
	} else {
		desired, err := toBSON(doc.State.Desired)
		if err != nil {
			return shadow.Document{}, err
		}
		set["desired"] = desired
	}
	update := bson.M{
		"$set":   set,
		"$unset": unset,
		"$inc":   bson.M{"version": 1},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	rec, err := decode(coll.FindOneAndUpdate(ctx, bson.M{"_id": key}, update, opts))
	if err != nil {
		return shadow.Document{}, err
	}

	return rec.document()
}

func (ss *shadowStore) Clear(ctx context.Context, key string) error {
	coll := ss.db.Collection(collection)

	_, err := coll.DeleteOne(ctx, bson.M{"_id": key})
	return err
}

func (rec record) document() (shadow.Document, error) {
	doc := shadow.Document{Version: rec.Version, Timestamp: rec.Timestamp}
	if rec.Desired != nil {
		var cmd shadow.Command
		if err := fromBSON(rec.Desired, &cmd); err != nil {
			return shadow.Document{}, err
		}
		doc.State.Desired = &cmd
	}
	if rec.Reported != nil {
		var rep shadow.Reported
		if err := fromBSON(rec.Reported, &rep); err != nil {
			return shadow.Document{}, err
		}
		doc.State.Reported = &rep
	}

	return doc, nil
}

func toBSON(v any) (bson.D, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(shadow.ErrMalformedDocument, err)
	}
	var d bson.D
	if err := bson.UnmarshalExtJSON(data, false, &d); err != nil {
		return nil, errors.Wrap(shadow.ErrMalformedDocument, err)
	}
	return d, nil
}

func fromBSON(d bson.D, v any) error {
	data, err := bson.MarshalExtJSON(d, false, false)
	if err != nil {
		return errors.Wrap(shadow.ErrMalformedDocument, err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(shadow.ErrMalformedDocument, err)
	}
	return nil
}

func decode(res *mongo.SingleResult) (record, error) {
	raw, err := res.DecodeBytes()
	if err != nil {
		return record{}, err
	}
	var rec record
	if err := bson.Unmarshal(raw, &rec); err != nil {
		return record{}, errors.Wrap(shadow.ErrMalformedDocument, err)
	}
	return rec, nil
}
