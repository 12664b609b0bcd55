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
	"testing"

	kitlog "github.com/go-kit/log"
	"github.com/stretchr/testify/require"

	"github.com/marten-im/marten/pkg/model/rostermodel"
)

func TestSubscriptionEngine_NonMutatingEvent(t *testing.T) {
	// given
	repMock := &repositoryMock{}
	eng := NewSubscriptionEngine(repMock, kitlog.NewNopLogger())

	// when
	res, err := eng.UpdateSubscription(context.Background(), "ortuman", "noelia@jackal.im", rostermodel.OutProbe)

	// then
	require.NoError(t, err)
	require.Equal(t, OutcomeUnchanged, res.Outcome)
}

func TestSubscriptionEngine_AutoAdd(t *testing.T) {
	// given
	repMock := &repositoryMock{}
	repMock.FetchRosterItemFunc = func(ctx context.Context, username, jid string) (*rostermodel.Item, error) {
		return nil, nil
	}
	var upsertRi *rostermodel.Item
	repMock.UpsertRosterItemFunc = func(ctx context.Context, ri *rostermodel.Item) (string, error) {
		upsertRi = ri
		return "h1", nil
	}
	eng := NewSubscriptionEngine(repMock, kitlog.NewNopLogger())

	// when
	res, err := eng.UpdateSubscription(context.Background(), "ortuman", "noelia@jackal.im", rostermodel.OutSubscribe)

	// then
	require.NoError(t, err)
	require.Equal(t, OutcomeChanged, res.Outcome)
	require.Equal(t, "h1", res.Hash)

	require.NotNil(t, upsertRi)
	require.Equal(t, "ortuman", upsertRi.Username)
	require.Equal(t, "noelia@jackal.im", upsertRi.JID)
	require.Equal(t, rostermodel.NonePendingOut, upsertRi.Subscription)
}

func TestSubscriptionEngine_NoCreateOnUnsubscribe(t *testing.T) {
	// given
	repMock := &repositoryMock{}
	repMock.FetchRosterItemFunc = func(ctx context.Context, username, jid string) (*rostermodel.Item, error) {
		return nil, nil
	}
	var upsertCalls int
	repMock.UpsertRosterItemFunc = func(ctx context.Context, ri *rostermodel.Item) (string, error) {
		upsertCalls++
		return "", nil
	}
	eng := NewSubscriptionEngine(repMock, kitlog.NewNopLogger())

	// when
	res, err := eng.UpdateSubscription(context.Background(), "ortuman", "noelia@jackal.im", rostermodel.InUnsubscribe)

	// then
	require.NoError(t, err)
	require.Equal(t, OutcomeUnchanged, res.Outcome)
	require.Zero(t, upsertCalls)
}

func TestSubscriptionEngine_CancellationDeletesEntry(t *testing.T) {
	// given
	repMock := &repositoryMock{}
	repMock.FetchRosterItemFunc = func(ctx context.Context, username, jid string) (*rostermodel.Item, error) {
		return &rostermodel.Item{
			Username:     "ortuman",
			JID:          "noelia@jackal.im",
			Subscription: rostermodel.NonePendingIn,
		}, nil
	}
	var deletedJID string
	repMock.DeleteRosterItemFunc = func(ctx context.Context, username, jid string) (string, error) {
		deletedJID = jid
		return "h2", nil
	}
	var deletedNotificationJID string
	repMock.DeleteRosterNotificationFunc = func(ctx context.Context, contact, jid string) error {
		deletedNotificationJID = jid
		return nil
	}
	eng := NewSubscriptionEngine(repMock, kitlog.NewNopLogger())

	// when
	res, err := eng.UpdateSubscription(context.Background(), "ortuman", "noelia@jackal.im", rostermodel.InUnsubscribe)

	// then
	require.NoError(t, err)
	require.Equal(t, OutcomeRemoved, res.Outcome)
	require.Equal(t, "h2", res.Hash)
	require.Nil(t, res.Item)

	require.Equal(t, "noelia@jackal.im", deletedJID)
	require.Equal(t, "noelia@jackal.im", deletedNotificationJID)
}

func TestSubscriptionEngine_Idempotence(t *testing.T) {
	// given
	st := rostermodel.NonePendingOut

	repMock := &repositoryMock{}
	repMock.FetchRosterItemFunc = func(ctx context.Context, username, jid string) (*rostermodel.Item, error) {
		return &rostermodel.Item{
			Username:     "ortuman",
			JID:          "noelia@jackal.im",
			Subscription: st,
		}, nil
	}
	var upsertCalls int
	repMock.UpsertRosterItemFunc = func(ctx context.Context, ri *rostermodel.Item) (string, error) {
		upsertCalls++
		st = ri.Subscription
		return "h3", nil
	}
	eng := NewSubscriptionEngine(repMock, kitlog.NewNopLogger())

	// when
	res1, err1 := eng.UpdateSubscription(context.Background(), "ortuman", "noelia@jackal.im", rostermodel.InSubscribed)
	res2, err2 := eng.UpdateSubscription(context.Background(), "ortuman", "noelia@jackal.im", rostermodel.InSubscribed)

	// then
	require.NoError(t, err1)
	require.NoError(t, err2)

	require.Equal(t, OutcomeChanged, res1.Outcome)
	require.Equal(t, rostermodel.To, res1.Item.Subscription)

	require.Equal(t, OutcomeUnchanged, res2.Outcome)
	require.Equal(t, 1, upsertCalls)
}
