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
	"context"

	"github.com/jackal-xmpp/stravaganza/v2"
	streamerror "github.com/jackal-xmpp/stravaganza/v2/errors/stream"
	"github.com/jackal-xmpp/stravaganza/v2/jid"

	kvtypes "github.com/marten-im/marten/pkg/cluster/kv/types"
	c2smodel "github.com/marten-im/marten/pkg/model/c2s"
	"github.com/marten-im/marten/pkg/model/rostermodel"
	"github.com/marten-im/marten/pkg/router"
	"github.com/marten-im/marten/pkg/router/stream"
)

type repositoryMock struct {
	FetchRosterFunc               func(ctx context.Context, username string) (*rostermodel.Roster, error)
	FetchRosterItemFunc           func(ctx context.Context, username, jid string) (*rostermodel.Item, error)
	UpsertRosterItemFunc          func(ctx context.Context, ri *rostermodel.Item) (string, error)
	DeleteRosterItemFunc          func(ctx context.Context, username, jid string) (string, error)
	DeleteRosterItemsFunc         func(ctx context.Context, username string) error
	FetchRosterGroupsFunc         func(ctx context.Context, username string) ([]string, error)
	UpsertRosterNotificationFunc  func(ctx context.Context, rn *rostermodel.Notification) error
	DeleteRosterNotificationFunc  func(ctx context.Context, contact, jid string) error
	DeleteRosterNotificationsFunc func(ctx context.Context, contact string) error
	FetchRosterNotificationFunc   func(ctx context.Context, contact, jid string) (*rostermodel.Notification, error)
	FetchRosterNotificationsFunc  func(ctx context.Context, contact string) ([]*rostermodel.Notification, error)
}

func (m *repositoryMock) FetchRoster(ctx context.Context, username string) (*rostermodel.Roster, error) {
	return m.FetchRosterFunc(ctx, username)
}

func (m *repositoryMock) FetchRosterItem(ctx context.Context, username, jid string) (*rostermodel.Item, error) {
	return m.FetchRosterItemFunc(ctx, username, jid)
}

func (m *repositoryMock) UpsertRosterItem(ctx context.Context, ri *rostermodel.Item) (string, error) {
	return m.UpsertRosterItemFunc(ctx, ri)
}

func (m *repositoryMock) DeleteRosterItem(ctx context.Context, username, jid string) (string, error) {
	return m.DeleteRosterItemFunc(ctx, username, jid)
}

func (m *repositoryMock) DeleteRosterItems(ctx context.Context, username string) error {
	return m.DeleteRosterItemsFunc(ctx, username)
}

func (m *repositoryMock) FetchRosterGroups(ctx context.Context, username string) ([]string, error) {
	return m.FetchRosterGroupsFunc(ctx, username)
}

func (m *repositoryMock) UpsertRosterNotification(ctx context.Context, rn *rostermodel.Notification) error {
	return m.UpsertRosterNotificationFunc(ctx, rn)
}

func (m *repositoryMock) DeleteRosterNotification(ctx context.Context, contact, jid string) error {
	return m.DeleteRosterNotificationFunc(ctx, contact, jid)
}

func (m *repositoryMock) DeleteRosterNotifications(ctx context.Context, contact string) error {
	return m.DeleteRosterNotificationsFunc(ctx, contact)
}

func (m *repositoryMock) FetchRosterNotification(ctx context.Context, contact, jid string) (*rostermodel.Notification, error) {
	return m.FetchRosterNotificationFunc(ctx, contact, jid)
}

func (m *repositoryMock) FetchRosterNotifications(ctx context.Context, contact string) ([]*rostermodel.Notification, error) {
	return m.FetchRosterNotificationsFunc(ctx, contact)
}

type routerMock struct {
	RouteFunc func(ctx context.Context, stanza stravaganza.Stanza) ([]jid.JID, error)
	C2SFunc   func() router.C2SRouter
	StartFunc func(ctx context.Context) error
	StopFunc  func(ctx context.Context) error
}

func (m *routerMock) Route(ctx context.Context, stanza stravaganza.Stanza) ([]jid.JID, error) {
	return m.RouteFunc(ctx, stanza)
}

func (m *routerMock) C2S() router.C2SRouter { return m.C2SFunc() }

func (m *routerMock) Start(ctx context.Context) error { return m.StartFunc(ctx) }

func (m *routerMock) Stop(ctx context.Context) error { return m.StopFunc(ctx) }

type c2sRouterMock struct {
	RouteFunc       func(ctx context.Context, stanza stravaganza.Stanza) ([]jid.JID, error)
	DisconnectFunc  func(ctx context.Context, res c2smodel.ResourceDesc, streamErr *streamerror.Error) error
	RegisterFunc    func(stm stream.C2S) error
	BindFunc        func(id stream.C2SID) error
	UnregisterFunc  func(stm stream.C2S) error
	LocalStreamFunc func(username, resource string) stream.C2S
	StartFunc       func(ctx context.Context) error
	StopFunc        func(ctx context.Context) error
}

func (m *c2sRouterMock) Route(ctx context.Context, stanza stravaganza.Stanza) ([]jid.JID, error) {
	return m.RouteFunc(ctx, stanza)
}

func (m *c2sRouterMock) Disconnect(ctx context.Context, res c2smodel.ResourceDesc, streamErr *streamerror.Error) error {
	return m.DisconnectFunc(ctx, res, streamErr)
}

func (m *c2sRouterMock) Register(stm stream.C2S) error { return m.RegisterFunc(stm) }

func (m *c2sRouterMock) Bind(id stream.C2SID) error { return m.BindFunc(id) }

func (m *c2sRouterMock) Unregister(stm stream.C2S) error { return m.UnregisterFunc(stm) }

func (m *c2sRouterMock) LocalStream(username, resource string) stream.C2S {
	return m.LocalStreamFunc(username, resource)
}

func (m *c2sRouterMock) Start(ctx context.Context) error { return m.StartFunc(ctx) }

func (m *c2sRouterMock) Stop(ctx context.Context) error { return m.StopFunc(ctx) }

type hostsMock struct {
	IsLocalHostFunc func(h string) bool
}

func (m *hostsMock) IsLocalHost(h string) bool { return m.IsLocalHostFunc(h) }

type resourceManagerMock struct {
	GetResourceFunc  func(ctx context.Context, username, resource string) (c2smodel.ResourceDesc, error)
	GetResourcesFunc func(ctx context.Context, username string) ([]c2smodel.ResourceDesc, error)
	PutResourceFunc  func(ctx context.Context, res c2smodel.ResourceDesc) error
}

func (m *resourceManagerMock) GetResource(ctx context.Context, username, resource string) (c2smodel.ResourceDesc, error) {
	return m.GetResourceFunc(ctx, username, resource)
}

func (m *resourceManagerMock) GetResources(ctx context.Context, username string) ([]c2smodel.ResourceDesc, error) {
	return m.GetResourcesFunc(ctx, username)
}

func (m *resourceManagerMock) PutResource(ctx context.Context, res c2smodel.ResourceDesc) error {
	return m.PutResourceFunc(ctx, res)
}

type broadcasterMock struct {
	BroadcastFunc func(ctx context.Context, ri *rostermodel.Item, hash string) error
}

func (m *broadcasterMock) Broadcast(ctx context.Context, ri *rostermodel.Item, hash string) error {
	return m.BroadcastFunc(ctx, ri, hash)
}

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

func (m *kvMock) Del(ctx context.Context, key string) error { return m.DelFunc(ctx, key) }

func (m *kvMock) Watch(ctx context.Context, prefix string, withPrevVal bool) <-chan kvtypes.WatchResp {
	return m.WatchFunc(ctx, prefix, withPrevVal)
}

func (m *kvMock) Start(ctx context.Context) error { return m.StartFunc(ctx) }

func (m *kvMock) Stop(ctx context.Context) error { return m.StopFunc(ctx) }

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
