// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package mqtt contains the shadow store speaking the AWS IoT Device Shadow
// MQTT protocol on the reserved $aws/things topics.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/absmach/shadowrpc"
	"github.com/absmach/shadowrpc/pkg/errors"
	"github.com/absmach/shadowrpc/shadow"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/sync/singleflight"
)

const (
	qos = 1

	opGet    = "get"
	opUpdate = "update"
	opDelete = "delete"

	accepted = "accepted"
	rejected = "rejected"
)

var (
	// ErrRejected indicates the broker rejected a shadow request.
	ErrRejected = errors.New("shadow request rejected")

	errConnect          = errors.New("failed to connect to MQTT broker")
	errPublishTimeout   = errors.New("failed to publish due to timeout reached")
	errSubscribeTimeout = errors.New("failed to subscribe due to timeout reached")
	errResponseTimeout  = errors.New("no shadow response before timeout")
	errEmptyThing       = errors.New("empty thing name")
)

// Client is the subset of the paho client used by the store.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	SubscribeMultiple(filters map[string]byte, callback mqtt.MessageHandler) mqtt.Token
	Unsubscribe(topics ...string) mqtt.Token
	Disconnect(quiesce uint)
}

type request struct {
	State       *shadow.State `json:"state,omitempty"`
	ClientToken string        `json:"clientToken"`
}

type rejection struct {
	Code        int    `json:"code"`
	Message     string `json:"message"`
	ClientToken string `json:"clientToken"`
}

type response struct {
	status  string
	payload []byte
}

var _ shadow.Store = (*Store)(nil)

// Store is a shadow store that exchanges requests and responses with the
// device shadow service over MQTT.
type Store struct {
	client     Client
	ids        shadowrpc.IDProvider
	shadowName string
	timeout    time.Duration

	mu      sync.Mutex
	pending map[string]chan response

	subMu      sync.Mutex
	subscribed map[string]struct{}
	subs       singleflight.Group
}

// NewStore returns a shadow store publishing through client. Responses are
// correlated with requests by client token.
func NewStore(client Client, ids shadowrpc.IDProvider, shadowName string, timeout time.Duration) *Store {
	return &Store{
		client:     client,
		ids:        ids,
		shadowName: shadowName,
		timeout:    timeout,
		pending:    make(map[string]chan response),
		subscribed: make(map[string]struct{}),
	}
}

// Connect opens a paho client connection to the broker at url and returns
// a store using it. Response topics are subscribed again after every
// reconnect, since the clean session drops them on the broker.
func Connect(url, id string, ids shadowrpc.IDProvider, shadowName string, timeout time.Duration, logger *slog.Logger) (*Store, error) {
	var st *Store
	opts := mqtt.NewClientOptions().
		AddBroker(url).
		SetClientID(id).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetOnConnectHandler(func(c mqtt.Client) {
			if err := st.Resubscribe(c); err != nil {
				logger.Error(fmt.Sprintf("failed to restore shadow subscriptions: %s", err))
			}
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Error(fmt.Sprintf("MQTT connection lost: %s", err))
		})
	client := mqtt.NewClient(opts)
	st = NewStore(client, ids, shadowName, timeout)

	token := client.Connect()
	if ok := token.WaitTimeout(timeout); !ok {
		return nil, errConnect
	}
	if token.Error() != nil {
		return nil, errors.Wrap(errConnect, token.Error())
	}

	return st, nil
}

// Resubscribe forgets all response subscriptions and subscribes to them
// again. It is the on-connect handler of the client opened by Connect.
func (st *Store) Resubscribe(_ mqtt.Client) error {
	st.subMu.Lock()
	prefixes := make([]string, 0, len(st.subscribed))
	for prefix := range st.subscribed {
		prefixes = append(prefixes, prefix)
	}
	st.subscribed = make(map[string]struct{})
	st.subMu.Unlock()

	var errs error
	for _, prefix := range prefixes {
		if err := st.subscribe(prefix); err != nil && errs == nil {
			errs = errors.Wrap(errors.New(prefix), err)
		}
	}

	return errs
}

func (st *Store) Fetch(ctx context.Context, key string) (shadow.Document, error) {
	rsp, err := st.request(ctx, key, opGet, nil)
	if err != nil {
		return shadow.Document{}, err
	}
	if rsp.status == rejected {
		rej, err := decodeRejection(rsp.payload)
		if err != nil {
			return shadow.Document{}, err
		}
		if rej.Code == http.StatusNotFound {
			return shadow.Document{}, nil
		}
		return shadow.Document{}, errors.Wrap(ErrRejected, errors.New(rej.Message))
	}

	return shadow.ParseDocument(rsp.payload)
}

func (st *Store) Replace(ctx context.Context, key string, doc shadow.Document) (shadow.Document, error) {
	rsp, err := st.request(ctx, key, opUpdate, &shadow.State{Desired: doc.State.Desired})
	if err != nil {
		return shadow.Document{}, err
	}
	if rsp.status == rejected {
		rej, err := decodeRejection(rsp.payload)
		if err != nil {
			return shadow.Document{}, err
		}
		return shadow.Document{}, errors.Wrap(ErrRejected, errors.New(rej.Message))
	}

	return shadow.ParseDocument(rsp.payload)
}

func (st *Store) Clear(ctx context.Context, key string) error {
	rsp, err := st.request(ctx, key, opDelete, nil)
	if err != nil {
		return err
	}
	if rsp.status == rejected {
		rej, err := decodeRejection(rsp.payload)
		if err != nil {
			return err
		}
		if rej.Code == http.StatusNotFound {
			return nil
		}
		return errors.Wrap(ErrRejected, errors.New(rej.Message))
	}

	return nil
}

// Close unsubscribes from all response topics and disconnects the client.
func (st *Store) Close() error {
	st.subMu.Lock()
	topics := make([]string, 0, len(st.subscribed)*6)
	for prefix := range st.subscribed {
		topics = append(topics, responseTopics(prefix)...)
	}
	st.subscribed = make(map[string]struct{})
	st.subMu.Unlock()

	if len(topics) > 0 {
		token := st.client.Unsubscribe(topics...)
		token.WaitTimeout(st.timeout)
	}
	st.client.Disconnect(uint(st.timeout.Milliseconds()))
	return nil
}

func (st *Store) request(ctx context.Context, key, op string, state *shadow.State) (response, error) {
	if key == "" {
		return response{}, errEmptyThing
	}
	prefix := st.topicPrefix(key)
	if err := st.subscribe(prefix); err != nil {
		return response{}, err
	}

	token, err := st.ids.ID()
	if err != nil {
		return response{}, err
	}
	payload, err := json.Marshal(request{State: state, ClientToken: token})
	if err != nil {
		return response{}, errors.Wrap(shadow.ErrMalformedDocument, err)
	}

	ch := make(chan response, 1)
	st.mu.Lock()
	st.pending[token] = ch
	st.mu.Unlock()
	defer func() {
		st.mu.Lock()
		delete(st.pending, token)
		st.mu.Unlock()
	}()

	pub := st.client.Publish(prefix+"/"+op, qos, false, payload)
	if ok := pub.WaitTimeout(st.timeout); !ok {
		return response{}, errPublishTimeout
	}
	if err := pub.Error(); err != nil {
		return response{}, err
	}

	timer := time.NewTimer(st.timeout)
	defer timer.Stop()
	select {
	case rsp := <-ch:
		return rsp, nil
	case <-timer.C:
		return response{}, errResponseTimeout
	case <-ctx.Done():
		return response{}, ctx.Err()
	}
}

// subscribe waits for the broker outside of any lock shared with other
// prefixes. Concurrent calls for the same prefix share one subscription.
func (st *Store) subscribe(prefix string) error {
	st.subMu.Lock()
	_, ok := st.subscribed[prefix]
	st.subMu.Unlock()
	if ok {
		return nil
	}

	_, err, _ := st.subs.Do(prefix, func() (interface{}, error) {
		st.subMu.Lock()
		_, ok := st.subscribed[prefix]
		st.subMu.Unlock()
		if ok {
			return nil, nil
		}

		filters := make(map[string]byte)
		for _, topic := range responseTopics(prefix) {
			filters[topic] = qos
		}
		token := st.client.SubscribeMultiple(filters, st.handle)
		if ok := token.WaitTimeout(st.timeout); !ok {
			return nil, errSubscribeTimeout
		}
		if err := token.Error(); err != nil {
			return nil, err
		}
		st.subMu.Lock()
		st.subscribed[prefix] = struct{}{}
		st.subMu.Unlock()
		return nil, nil
	})

	return err
}

func (st *Store) handle(_ mqtt.Client, msg mqtt.Message) {
	status := accepted
	if strings.HasSuffix(msg.Topic(), "/"+rejected) {
		status = rejected
	}
	var corr struct {
		ClientToken string `json:"clientToken"`
	}
	if err := json.Unmarshal(msg.Payload(), &corr); err != nil || corr.ClientToken == "" {
		return
	}

	st.mu.Lock()
	ch, ok := st.pending[corr.ClientToken]
	st.mu.Unlock()
	if !ok {
		return
	}
	select {
	case ch <- response{status: status, payload: msg.Payload()}:
	default:
	}
}

func (st *Store) topicPrefix(thing string) string {
	if st.shadowName == "" {
		return fmt.Sprintf("$aws/things/%s/shadow", thing)
	}
	return fmt.Sprintf("$aws/things/%s/shadow/name/%s", thing, st.shadowName)
}

func responseTopics(prefix string) []string {
	topics := make([]string, 0, 6)
	for _, op := range []string{opGet, opUpdate, opDelete} {
		topics = append(topics, fmt.Sprintf("%s/%s/%s", prefix, op, accepted), fmt.Sprintf("%s/%s/%s", prefix, op, rejected))
	}
	return topics
}

func decodeRejection(payload []byte) (rejection, error) {
	var rej rejection
	if err := json.Unmarshal(payload, &rej); err != nil {
		return rejection{}, errors.Wrap(shadow.ErrMalformedDocument, err)
	}
	return rej, nil
}
