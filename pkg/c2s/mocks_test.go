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
	"context"

	"github.com/jackal-xmpp/stravaganza/v2"
	streamerror "github.com/jackal-xmpp/stravaganza/v2/errors/stream"
	"github.com/jackal-xmpp/stravaganza/v2/jid"

	kvtypes "github.com/marten-im/marten/pkg/cluster/kv/types"
	c2smodel "github.com/marten-im/marten/pkg/model/c2s"
	"github.com/marten-im/marten/pkg/router/stream"
)

type kvMock struct {
	PutFunc       func(ctx context.Context, key string, value string) error
	GetFunc       func(ctx context.Context, key string) ([]byte, error)
	GetPrefixFunc func(ctx context.Context, prefix string) (map[string][]byte, error)
	DelFunc       func(ctx context.Context, key string) error
	WatchFunc     func(ctx context.Context, prefix string, withPrevVal bool) <-chan kvtypes.WatchResp
	StartFunc     func(ctx context.Context) error
	StopFunc      func(ctx context.Context) error
}

func (m *kvMock) Put(ctx context.Context, key string, value string) error {
	return m.PutFunc(ctx, key, value)
}

func (m *kvMock) Get(ctx context.Context, key string) ([]byte, error) {
	return m.GetFunc(ctx, key)
}

func (m *kvMock) GetPrefix(ctx context.Context, prefix string) (map[string][]byte, error) {
	return m.GetPrefixFunc(ctx, prefix)
}

func (m *kvMock) Del(ctx context.Context, key string) error {
	return m.DelFunc(ctx, key)
}

func (m *kvMock) Watch(ctx context.Context, prefix string, withPrevVal bool) <-chan kvtypes.WatchResp {
	return m.WatchFunc(ctx, prefix, withPrevVal)
}

func (m *kvMock) Start(ctx context.Context) error { return m.StartFunc(ctx) }

func (m *kvMock) Stop(ctx context.Context) error { return m.StopFunc(ctx) }

type localRouterMock struct {
	RouteFunc      func(stanza stravaganza.Stanza, username, resource string) error
	DisconnectFunc func(username, resource string, streamErr *streamerror.Error) error
	RegisterFunc   func(stm stream.C2S) error
	BindFunc       func(id stream.C2SID) (stream.C2S, error)
	UnregisterFunc func(stm stream.C2S) error
	StreamFunc     func(username, resource string) stream.C2S
	StartFunc      func(ctx context.Context) error
	StopFunc       func(ctx context.Context) error
}

func (m *localRouterMock) Route(stanza stravaganza.Stanza, username, resource string) error {
	return m.RouteFunc(stanza, username, resource)
}

func (m *localRouterMock) Disconnect(username, resource string, streamErr *streamerror.Error) error {
	return m.DisconnectFunc(username, resource, streamErr)
}

func (m *localRouterMock) Register(stm stream.C2S) error { return m.RegisterFunc(stm) }

func (m *localRouterMock) Bind(id stream.C2SID) (stream.C2S, error) { return m.BindFunc(id) }

func (m *localRouterMock) Unregister(stm stream.C2S) error { return m.UnregisterFunc(stm) }

func (m *localRouterMock) Stream(username, resource string) stream.C2S {
	return m.StreamFunc(username, resource)
}

func (m *localRouterMock) Start(ctx context.Context) error { return m.StartFunc(ctx) }

func (m *localRouterMock) Stop(ctx context.Context) error { return m.StopFunc(ctx) }

type resourceManagerMock struct {
	PutResourceFunc  func(ctx context.Context, res c2smodel.ResourceDesc) error
	GetResourcesFunc func(ctx context.Context, username string) ([]c2smodel.ResourceDesc, error)
	DelResourceFunc  func(ctx context.Context, username, resource string) error
}

func (m *resourceManagerMock) PutResource(ctx context.Context, res c2smodel.ResourceDesc) error {
	return m.PutResourceFunc(ctx, res)
}

func (m *resourceManagerMock) GetResources(ctx context.Context, username string) ([]c2smodel.ResourceDesc, error) {
	return m.GetResourcesFunc(ctx, username)
}

func (m *resourceManagerMock) DelResource(ctx context.Context, username, resource string) error {
	return m.DelResourceFunc(ctx, username, resource)
}

type c2sStreamMock struct {
	IDFunc           func() stream.C2SID
	SetInfoValueFunc func(ctx context.Context, k string, val interface{}) error
	InfoFunc         func() c2smodel.Info
	JIDFunc          func() *jid.JID
	UsernameFunc     func() string
	DomainFunc       func() string
	ResourceFunc     func() string
	IsBindedFunc     func() bool
	PresenceFunc     func() *stravaganza.Presence
	SendElementFunc  func(elem stravaganza.Element) <-chan error
	DisconnectFunc   func(streamErr *streamerror.Error) <-chan error
	DoneFunc         func() <-chan struct{}
}

func (m *c2sStreamMock) ID() stream.C2SID { return m.IDFunc() }

func (m *c2sStreamMock) SetInfoValue(ctx context.Context, k string, val interface{}) error {
	return m.SetInfoValueFunc(ctx, k, val)
}

func (m *c2sStreamMock) Info() c2smodel.Info { return m.InfoFunc() }

func (m *c2sStreamMock) JID() *jid.JID { return m.JIDFunc() }

func (m *c2sStreamMock) Username() string { return m.UsernameFunc() }

func (m *c2sStreamMock) Domain() string { return m.DomainFunc() }

func (m *c2sStreamMock) Resource() string { return m.ResourceFunc() }

func (m *c2sStreamMock) IsBinded() bool { return m.IsBindedFunc() }

func (m *c2sStreamMock) Presence() *stravaganza.Presence { return m.PresenceFunc() }

func (m *c2sStreamMock) SendElement(elem stravaganza.Element) <-chan error {
	return m.SendElementFunc(elem)
}

func (m *c2sStreamMock) Disconnect(streamErr *streamerror.Error) <-chan error {
	return m.DisconnectFunc(streamErr)
}

func (m *c2sStreamMock) Done() <-chan struct{} { return m.DoneFunc() }
