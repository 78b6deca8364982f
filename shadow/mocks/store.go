// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package mocks

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"

	"github.com/absmach/shadowrpc/shadow"
)

// Operations recorded by the in-memory store.
const (
	OpFetch   = "fetch"
	OpReplace = "replace"
	OpClear   = "clear"
)

var _ shadow.Store = (*Store)(nil)

// Hook is consulted before every store operation. A non-nil error fails the
// operation. n counts the operations of the same kind on key, starting at 1.
type Hook func(key, op string, n int) error

type device struct {
	answerOn int
	reported shadow.Reported
	fetches  int
}

// Store is an in-memory shadow store that records every operation and can
// play the device side of the protocol.
type Store struct {
	mu      sync.Mutex
	docs    map[string]shadow.Document
	ops     map[string][]string
	devices map[string]*device
	tamper  map[string]func(shadow.Document) shadow.Document
	hook    Hook
}

// NewStore creates an empty in-memory shadow store.
func NewStore() *Store {
	return &Store{
		docs:    make(map[string]shadow.Document),
		ops:     make(map[string][]string),
		devices: make(map[string]*device),
		tamper:  make(map[string]func(shadow.Document) shadow.Document),
	}
}

// Seed sets the document held for key.
func (s *Store) Seed(key string, doc shadow.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.docs[key] = copyDoc(doc)
}

// Document returns the document held for key.
func (s *Store) Document(key string) shadow.Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	return copyDoc(s.docs[key])
}

// Ops returns the operations performed on key, in order.
func (s *Store) Ops(key string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.ops[key]...)
}

// Count returns how many times op was performed on key.
func (s *Store) Count(key, op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.count(key, op)
}

// SetHook installs h for all subsequent operations.
func (s *Store) SetHook(h Hook) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hook = h
}

// Respond makes the device for key answer with reported on the n-th fetch
// after each dispatch. A non-positive n means the device never answers.
func (s *Store) Respond(key string, n int, reported shadow.Reported) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.devices[key] = &device{answerOn: n, reported: reported}
}

// Tamper rewrites the document acknowledged by Replace on key.
func (s *Store) Tamper(key string, fn func(shadow.Document) shadow.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tamper[key] = fn
}

func (s *Store) Fetch(ctx context.Context, key string) (shadow.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record(ctx, key, OpFetch); err != nil {
		return shadow.Document{}, err
	}

	if dev, ok := s.devices[key]; ok && s.docs[key].Pending() {
		dev.fetches++
		if dev.answerOn > 0 && dev.fetches == dev.answerOn {
			doc := s.docs[key]
			reported := dev.reported
			doc.State.Desired = nil
			doc.State.Reported = &reported
			doc.Version++
			s.docs[key] = doc
		}
	}

	return copyDoc(s.docs[key]), nil
}

func (s *Store) Replace(ctx context.Context, key string, doc shadow.Document) (shadow.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record(ctx, key, OpReplace); err != nil {
		return shadow.Document{}, err
	}

	cur := s.docs[key]
	cur.State.Desired = doc.State.Desired
	cur.State.Reported = nil
	cur.Version++
	s.docs[key] = copyDoc(cur)
	if dev, ok := s.devices[key]; ok {
		dev.fetches = 0
	}

	ack := copyDoc(cur)
	if fn, ok := s.tamper[key]; ok {
		ack = fn(ack)
	}
	return ack, nil
}

func (s *Store) Clear(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record(ctx, key, OpClear); err != nil {
		return err
	}

	delete(s.docs, key)
	return nil
}

func (s *Store) record(ctx context.Context, key, op string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.ops[key] = append(s.ops[key], op)
	if s.hook != nil {
		return s.hook(key, op, s.count(key, op))
	}
	return nil
}

func (s *Store) count(key, op string) int {
	n := 0
	for _, o := range s.ops[key] {
		if o == op {
			n++
		}
	}
	return n
}

func copyDoc(doc shadow.Document) shadow.Document {
	data, err := json.Marshal(doc)
	if err != nil {
		return doc
	}
	var c shadow.Document
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&c); err != nil {
		return doc
	}
	return c
}
