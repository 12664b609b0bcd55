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

package c2s

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"strings"
	"sync"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/jackal-xmpp/stravaganza/v2/jid"

	"github.com/marten-im/marten/pkg/cluster/instance"
	"github.com/marten-im/marten/pkg/cluster/kv"
	kvtypes "github.com/marten-im/marten/pkg/cluster/kv/types"
	c2smodel "github.com/marten-im/marten/pkg/model/c2s"
	xmppparser "github.com/marten-im/marten/pkg/parser"
)

const resourceKeyPrefix = "r://"

// ResourceManager type is in charge of keeping track of all cluster resources.
type ResourceManager struct {
	kv        kv.KV
	logger    kitlog.Logger
	ctx       context.Context
	ctxCancel context.CancelFunc

	storeMu sync.RWMutex
	store   map[string][]c2smodel.ResourceDesc

	stopCh chan struct{}
}

// NewResourceManager creates a new resource manager given a KV storage instance.
func NewResourceManager(kv kv.KV, logger kitlog.Logger) *ResourceManager {
	ctx, ctxCancel := context.WithCancel(context.Background())
	return &ResourceManager{
		kv:        kv,
		logger:    logger,
		ctx:       ctx,
		ctxCancel: ctxCancel,
		store:     make(map[string][]c2smodel.ResourceDesc),
		stopCh:    make(chan struct{}),
	}
}

// PutResource registers or updates a resource into the manager.
func (m *ResourceManager) PutResource(ctx context.Context, res c2smodel.ResourceDesc) error {
	b, err := resourceVal(res)
	if err != nil {
		return err
	}
	rKey := resourceKey(res.JID().Node(), res.JID().Resource())

	if err := m.kv.Put(ctx, rKey, string(b)); err != nil {
		return err
	}
	m.inMemPut(res)
	return nil
}

// GetResource returns a previously registered resource.
func (m *ResourceManager) GetResource(_ context.Context, username, resource string) (c2smodel.ResourceDesc, error) {
	m.storeMu.RLock()
	defer m.storeMu.RUnlock()

	rss := m.store[username]
	for _, res := range rss {
		if res.JID().Resource() != resource {
			continue
		}
		return res, nil
	}
	return nil, nil
}

// GetResources returns all user registered resources.
func (m *ResourceManager) GetResources(_ context.Context, username string) ([]c2smodel.ResourceDesc, error) {
	m.storeMu.RLock()
	defer m.storeMu.RUnlock()

	rss := m.store[username]
	if len(rss) == 0 {
		return nil, nil
	}
	retVal := make([]c2smodel.ResourceDesc, len(rss))
	copy(retVal, rss)
	return retVal, nil
}

// DelResource removes a registered resource from the manager.
func (m *ResourceManager) DelResource(ctx context.Context, username, resource string) error {
	rKey := resourceKey(username, resource)

	if err := m.kv.Del(ctx, rKey); err != nil {
		return err
	}
	m.inMemDel(username, resource)
	return nil
}

// Start starts resource manager.
func (m *ResourceManager) Start(ctx context.Context) error {
	if err := m.watchKVResources(ctx); err != nil {
		return err
	}
	level.Info(m.logger).Log("msg", "started C2S resource manager")
	return nil
}

// Stop stops resource manager.
func (m *ResourceManager) Stop(_ context.Context) error {
	// stop watching changes...
	m.ctxCancel()
	<-m.stopCh

	level.Info(m.logger).Log("msg", "stopped C2S resource manager")
	return nil
}

func (m *ResourceManager) watchKVResources(ctx context.Context) error {
	ch := make(chan error, 1)
	go func() {
		wCh := m.kv.Watch(m.ctx, resourceKeyPrefix, false)

		rss, err := m.getKVResources(ctx)
		if err != nil {
			ch <- err
			return
		}
		for _, res := range rss {
			m.inMemPut(res)
		}

		close(ch) // signal update

		// watch changes
		for wResp := range wCh {
			if err := wResp.Err; err != nil {
				level.Warn(m.logger).Log("msg", "error occurred watching resources", "err", err)
				continue
			}
			if err := m.processKVEvents(wResp.Events); err != nil {
				level.Warn(m.logger).Log("msg", "failed to process resources changes", "err", err)
			}
		}
		close(m.stopCh) // signal stop
	}()
	return <-ch
}

func (m *ResourceManager) getKVResources(ctx context.Context) ([]c2smodel.ResourceDesc, error) {
	vs, err := m.kv.GetPrefix(ctx, resourceKeyPrefix)
	if err != nil {
		return nil, err
	}
	return decodeKVResources(vs)
}

func (m *ResourceManager) processKVEvents(kvEvents []kvtypes.WatchEvent) error {
	for _, ev := range kvEvents {
		if isLocalKey(ev.Key) {
			continue // discard local changes
		}
		switch ev.Type {
		case kvtypes.Put:
			res, err := decodeResource(ev.Key, ev.Val)
			if err != nil {
				return err
			}
			m.inMemPut(res)

		case kvtypes.Del:
			memberKey := strings.TrimPrefix(ev.Key, resourceKeyPrefix)
			ss := strings.Split(memberKey, "@")
			if len(ss) != 2 {
				return fmt.Errorf("invalid kv resource key: %s", ev.Key)
			}
			var username, resource = ss[0], strings.Split(ss[1], "/")[0]

			m.inMemDel(username, resource)
		}
	}
	return nil
}

func (m *ResourceManager) inMemPut(res c2smodel.ResourceDesc) {
	m.storeMu.Lock()
	defer m.storeMu.Unlock()

	jd := res.JID()

	var username, resource = jd.Node(), jd.Resource()
	var found bool

	rss := m.store[username]
	for i := 0; i < len(rss); i++ {
		if rss[i].JID().Resource() != resource {
			continue
		}
		rss[i] = res
		found = true
		break
	}
	if !found {
		rss = append(rss, res)
	}
	m.store[username] = rss
}

func (m *ResourceManager) inMemDel(username, resource string) {
	m.storeMu.Lock()
	defer m.storeMu.Unlock()

	rss := m.store[username]
	for i := 0; i < len(rss); i++ {
		if rss[i].JID().Resource() != resource {
			continue
		}
		rss = append(rss[:i], rss[i+1:]...)
		if len(rss) > 0 {
			m.store[username] = rss
		} else {
			delete(m.store, username)
		}
		return
	}
}

func decodeKVResources(kvs map[string][]byte) ([]c2smodel.ResourceDesc, error) {
	var rs []c2smodel.ResourceDesc
	for k, v := range kvs {
		res, err := decodeResource(k, v)
		if err != nil {
			return nil, err
		}
		rs = append(rs, res)
	}
	return rs, nil
}

type resourceInfo struct {
	InstanceID string
	Domain     string
	Info       map[string]string
	Presence   string
}

func decodeResource(key string, val []byte) (c2smodel.ResourceDesc, error) {
	errInvalidKeyFn := func(rKey string) error {
		return fmt.Errorf("invalid resource key format: %s", rKey)
	}

	ss0 := strings.Split(strings.TrimPrefix(key, resourceKeyPrefix), "@")
	if len(ss0) != 2 {
		return nil, errInvalidKeyFn(key)
	}

	var resInf resourceInfo
	if err := gob.NewDecoder(bytes.NewReader(val)).Decode(&resInf); err != nil {
		return nil, err
	}
	ss1 := strings.Split(ss0[1], "/") // trim instance ID suffix
	if len(ss1) != 2 {
		return nil, errInvalidKeyFn(key)
	}
	username := ss0[0]
	resource := ss1[0]

	jd, _ := jid.New(username, resInf.Domain, resource, true)
	inf := c2smodel.Info{M: resInf.Info}

	var pr *stravaganza.Presence
	if len(resInf.Presence) > 0 {
		var err error
		pr, err = parsePresence(resInf.Presence)
		if err != nil {
			return nil, err
		}
	}
	return c2smodel.NewResourceDesc(
		resInf.InstanceID,
		jd,
		pr,
		inf,
	), nil
}

func resourceKey(username, resource string) string {
	return fmt.Sprintf(
		"%s%s@%s/%s",
		resourceKeyPrefix,
		username,
		resource,
		instance.ID(),
	)
}

func resourceVal(res c2smodel.ResourceDesc) ([]byte, error) {
	var pr string
	if res.Presence() != nil {
		pr = res.Presence().String()
	}
	resInf := resourceInfo{
		InstanceID: res.InstanceID(),
		Domain:     res.JID().Domain(),
		Info:       res.Info().M,
		Presence:   pr,
	}
	buf := bytes.NewBuffer(nil)
	if err := gob.NewEncoder(buf).Encode(&resInf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func parsePresence(rawXML string) (*stravaganza.Presence, error) {
	p := xmppparser.New(strings.NewReader(rawXML), xmppparser.DefaultMode, len(rawXML))
	elem, err := p.Parse()
	if err != nil {
		return nil, err
	}
	return stravaganza.NewBuilderFromElement(elem).
		BuildPresence()
}

func isLocalKey(rKey string) bool {
	return strings.HasSuffix(rKey, fmt.Sprintf("/%s", instance.ID()))
}
