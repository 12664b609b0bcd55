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

package cachedrepository

import (
	"context"

	"github.com/marten-im/marten/pkg/model/rostermodel"
)

type cacheMock struct {
	GetFunc   func(ctx context.Context, ns, key string) ([]byte, error)
	PutFunc   func(ctx context.Context, ns, key string, val []byte) error
	DelFunc   func(ctx context.Context, ns string, keys ...string) error
	DelNSFunc func(ctx context.Context, ns string) error
}

func (m *cacheMock) Type() string { return "mock" }

func (m *cacheMock) Get(ctx context.Context, ns, key string) ([]byte, error) {
	return m.GetFunc(ctx, ns, key)
}

func (m *cacheMock) Put(ctx context.Context, ns, key string, val []byte) error {
	return m.PutFunc(ctx, ns, key, val)
}

func (m *cacheMock) Del(ctx context.Context, ns string, keys ...string) error {
	return m.DelFunc(ctx, ns, keys...)
}

func (m *cacheMock) DelNS(ctx context.Context, ns string) error {
	return m.DelNSFunc(ctx, ns)
}

func (m *cacheMock) Start(_ context.Context) error { return nil }
func (m *cacheMock) Stop(_ context.Context) error  { return nil }

type rosterRepMock struct {
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

func (m *rosterRepMock) FetchRoster(ctx context.Context, username string) (*rostermodel.Roster, error) {
	return m.FetchRosterFunc(ctx, username)
}

func (m *rosterRepMock) FetchRosterItem(ctx context.Context, username, jid string) (*rostermodel.Item, error) {
	return m.FetchRosterItemFunc(ctx, username, jid)
}

func (m *rosterRepMock) UpsertRosterItem(ctx context.Context, ri *rostermodel.Item) (string, error) {
	return m.UpsertRosterItemFunc(ctx, ri)
}

func (m *rosterRepMock) DeleteRosterItem(ctx context.Context, username, jid string) (string, error) {
	return m.DeleteRosterItemFunc(ctx, username, jid)
}

func (m *rosterRepMock) DeleteRosterItems(ctx context.Context, username string) error {
	return m.DeleteRosterItemsFunc(ctx, username)
}

func (m *rosterRepMock) FetchRosterGroups(ctx context.Context, username string) ([]string, error) {
	return m.FetchRosterGroupsFunc(ctx, username)
}

func (m *rosterRepMock) UpsertRosterNotification(ctx context.Context, rn *rostermodel.Notification) error {
	return m.UpsertRosterNotificationFunc(ctx, rn)
}

func (m *rosterRepMock) DeleteRosterNotification(ctx context.Context, contact, jid string) error {
	return m.DeleteRosterNotificationFunc(ctx, contact, jid)
}

func (m *rosterRepMock) DeleteRosterNotifications(ctx context.Context, contact string) error {
	return m.DeleteRosterNotificationsFunc(ctx, contact)
}

func (m *rosterRepMock) FetchRosterNotification(ctx context.Context, contact, jid string) (*rostermodel.Notification, error) {
	return m.FetchRosterNotificationFunc(ctx, contact, jid)
}

func (m *rosterRepMock) FetchRosterNotifications(ctx context.Context, contact string) ([]*rostermodel.Notification, error) {
	return m.FetchRosterNotificationsFunc(ctx, contact)
}
