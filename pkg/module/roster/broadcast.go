// Copyright 2022 The marten Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package roster

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"strings"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/jackal-xmpp/stravaganza/v2"

	"github.com/marten-im/marten/pkg/cluster/instance"
	"github.com/marten-im/marten/pkg/cluster/kv"
	kvtypes "github.com/marten-im/marten/pkg/cluster/kv/types"
	"github.com/marten-im/marten/pkg/model/rostermodel"
	"github.com/marten-im/marten/pkg/router"
)

const rosterVersionKeyPrefix = "rev://"

// ModificationEvent describes a roster entry mutation as published to the
// cluster KV store so that every instance pushes the change to its own
// interested local sessions.
type ModificationEvent struct {
	Username     string
	JID          string
	Name         string
	Subscription string
	Groups       []string
	Hash         string
}

// Broadcaster delivers roster pushes to all interested resources of an
// account across the cluster. Local resources receive the push directly;
// remote instances converge by watching published modification events.
type Broadcaster struct {
	router    router.Router
	resMng    resourceManager
	kv        kv.KV
	logger    kitlog.Logger
	ctx       context.Context
	ctxCancel context.CancelFunc

	watching bool
	stopCh   chan struct{}
}

// NewBroadcaster returns a new initialized roster broadcaster.
func NewBroadcaster(
	router router.Router,
	resMng resourceManager,
	kv kv.KV,
	logger kitlog.Logger,
) *Broadcaster {
	ctx, ctxCancel := context.WithCancel(context.Background())
	return &Broadcaster{
		router:    router,
		resMng:    resMng,
		kv:        kv,
		logger:    logger,
		ctx:       ctx,
		ctxCancel: ctxCancel,
		stopCh:    make(chan struct{}),
	}
}

// Broadcast pushes ri to all interested local resources of its account and
// publishes the modification event so peer instances do the same.
func (b *Broadcaster) Broadcast(ctx context.Context, ri *rostermodel.Item, hash string) error {
	if err := b.pushItem(ctx, ri, hash); err != nil {
		return err
	}
	return b.publish(ctx, ri, hash)
}

// Start starts watching cluster roster modification events.
func (b *Broadcaster) Start(_ context.Context) error {
	b.watching = true
	go b.watchKVModifications()

	level.Info(b.logger).Log("msg", "started roster broadcaster")
	return nil
}

// Stop stops the roster broadcaster.
func (b *Broadcaster) Stop(_ context.Context) error {
	b.ctxCancel()
	if b.watching {
		<-b.stopCh
	}
	level.Info(b.logger).Log("msg", "stopped roster broadcaster")
	return nil
}

func (b *Broadcaster) pushItem(ctx context.Context, ri *rostermodel.Item, hash string) error {
	rss, err := b.resMng.GetResources(ctx, ri.Username)
	if err != nil {
		return err
	}
	for _, rs := range rss {
		if rs.InstanceID() != instance.ID() {
			continue // remote resources are pushed by their owning instance
		}
		if !rs.Info().Bool(requestedInfoKey) {
			continue // roster was never requested
		}
		pushIQ, _ := stravaganza.NewIQBuilder().
			WithAttribute(stravaganza.ID, uuid.New().String()).
			WithAttribute(stravaganza.Type, stravaganza.SetType).
			WithAttribute(stravaganza.From, rs.JID().ToBareJID().String()).
			WithAttribute(stravaganza.To, rs.JID().String()).
			WithChild(
				stravaganza.NewBuilder("query").
					WithAttribute(stravaganza.Namespace, rosterNamespace).
					WithAttribute("ver", hash).
					WithChild(ri.Element()).
					Build(),
			).
			BuildIQ()

		_, _ = b.router.Route(ctx, pushIQ)
	}
	return nil
}

func (b *Broadcaster) publish(ctx context.Context, ri *rostermodel.Item, hash string) error {
	ev := ModificationEvent{
		Username:     ri.Username,
		JID:          ri.JID,
		Name:         ri.Name,
		Subscription: string(ri.Subscription),
		Groups:       ri.Groups,
		Hash:         hash,
	}
	buf := bytes.NewBuffer(nil)
	if err := gob.NewEncoder(buf).Encode(&ev); err != nil {
		return err
	}
	return b.kv.Put(ctx, rosterVersionKey(ri.Username), buf.String())
}

func (b *Broadcaster) watchKVModifications() {
	wCh := b.kv.Watch(b.ctx, rosterVersionKeyPrefix, false)
	for wResp := range wCh {
		if err := wResp.Err; err != nil {
			level.Warn(b.logger).Log("msg", "error occurred watching roster modifications", "err", err)
			continue
		}
		if err := b.processKVEvents(wResp.Events); err != nil {
			level.Warn(b.logger).Log("msg", "failed to process roster modifications", "err", err)
		}
	}
	close(b.stopCh)
}

func (b *Broadcaster) processKVEvents(kvEvents []kvtypes.WatchEvent) error {
	for _, ev := range kvEvents {
		if isLocalModificationKey(ev.Key) {
			continue // discard local changes
		}
		if ev.Type != kvtypes.Put {
			continue
		}
		var modEv ModificationEvent
		if err := gob.NewDecoder(bytes.NewReader(ev.Val)).Decode(&modEv); err != nil {
			return err
		}
		ri := &rostermodel.Item{
			Username:     modEv.Username,
			JID:          modEv.JID,
			Name:         modEv.Name,
			Subscription: rostermodel.Subscription(modEv.Subscription),
			Groups:       modEv.Groups,
		}
		if err := b.pushItem(b.ctx, ri, modEv.Hash); err != nil {
			return err
		}
	}
	return nil
}

func rosterVersionKey(username string) string {
	return fmt.Sprintf("%s%s/%s", rosterVersionKeyPrefix, username, instance.ID())
}

func isLocalModificationKey(rKey string) bool {
	return strings.HasSuffix(rKey, fmt.Sprintf("/%s", instance.ID()))
}
