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

package boltdb

import (
	"context"
	"testing"

	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"github.com/marten-im/marten/pkg/model/rostermodel"
	"github.com/marten-im/marten/pkg/storage/repository"
)

func TestBoltDB_RosterRoundTrip(t *testing.T) {
	t.Parallel()

	rep := setupRepository(t, 16)

	_, err := rep.UpsertRosterItem(context.Background(), &rostermodel.Item{
		Username:     "ortuman",
		JID:          "foo@jackal.im",
		Name:         "Foo",
		Subscription: rostermodel.Both,
		Groups:       []string{"g1"},
	})
	require.NoError(t, err)

	hash, err := rep.UpsertRosterItem(context.Background(), &rostermodel.Item{
		Username:     "ortuman",
		JID:          "foo-2@jackal.im",
		Subscription: rostermodel.NonePendingOut,
		Groups:       []string{"g2"},
	})
	require.NoError(t, err)

	ros, err := rep.FetchRoster(context.Background(), "ortuman")
	require.NoError(t, err)
	require.Len(t, ros.Items, 2)
	require.Equal(t, hash, ros.Hash)

	// items are kept sorted by contact JID
	require.Equal(t, "foo-2@jackal.im", ros.Items[0].JID)
	require.Equal(t, "foo@jackal.im", ros.Items[1].JID)

	itm, err := rep.FetchRosterItem(context.Background(), "ortuman", "foo@jackal.im")
	require.NoError(t, err)
	require.NotNil(t, itm)
	require.Equal(t, rostermodel.Both, itm.Subscription)

	groups, err := rep.FetchRosterGroups(context.Background(), "ortuman")
	require.NoError(t, err)
	require.Equal(t, []string{"g1", "g2"}, groups)

	delHash, err := rep.DeleteRosterItem(context.Background(), "ortuman", "foo@jackal.im")
	require.NoError(t, err)
	require.NotEqual(t, hash, delHash)

	itm, err = rep.FetchRosterItem(context.Background(), "ortuman", "foo@jackal.im")
	require.NoError(t, err)
	require.Nil(t, itm)

	require.NoError(t, rep.DeleteRosterItems(context.Background(), "ortuman"))

	ros, err = rep.FetchRoster(context.Background(), "ortuman")
	require.NoError(t, err)
	require.Len(t, ros.Items, 0)
}

func TestBoltDB_RosterHashStability(t *testing.T) {
	t.Parallel()

	rep := setupRepository(t, 16)

	ri := &rostermodel.Item{
		Username:     "ortuman",
		JID:          "noelia@jackal.im",
		Subscription: rostermodel.To,
	}
	h1, err := rep.UpsertRosterItem(context.Background(), ri)
	require.NoError(t, err)

	// re-writing identical content keeps the hash stable
	h2, err := rep.UpsertRosterItem(context.Background(), ri)
	require.NoError(t, err)
	require.Equal(t, h1, h2)

	// any content change shifts it
	h3, err := rep.UpsertRosterItem(context.Background(), &rostermodel.Item{
		Username:     "ortuman",
		JID:          "noelia@jackal.im",
		Subscription: rostermodel.Both,
	})
	require.NoError(t, err)
	require.NotEqual(t, h1, h3)
}

func TestBoltDB_RosterCapacity(t *testing.T) {
	t.Parallel()

	rep := setupRepository(t, 2)

	for _, contactJID := range []string{"a@jackal.im", "b@jackal.im"} {
		_, err := rep.UpsertRosterItem(context.Background(), &rostermodel.Item{
			Username:     "ortuman",
			JID:          contactJID,
			Subscription: rostermodel.None,
		})
		require.NoError(t, err)
	}
	_, err := rep.UpsertRosterItem(context.Background(), &rostermodel.Item{
		Username:     "ortuman",
		JID:          "c@jackal.im",
		Subscription: rostermodel.None,
	})
	require.ErrorIs(t, err, repository.ErrRosterCapacityReached)

	// replacing an existing entry is not an addition
	_, err = rep.UpsertRosterItem(context.Background(), &rostermodel.Item{
		Username:     "ortuman",
		JID:          "a@jackal.im",
		Name:         "A",
		Subscription: rostermodel.From,
	})
	require.NoError(t, err)
}

func TestBoltDB_RosterLegacyMigration(t *testing.T) {
	t.Parallel()

	rep := setupRepository(t, 16)

	// seed legacy per-contact layout
	legacyItems := []*rostermodel.Item{
		{Username: "ortuman", JID: "noelia@jackal.im", Subscription: rostermodel.Both},
		{Username: "ortuman", JID: "romero@jackal.im", Subscription: rostermodel.From},
	}
	err := rep.db.Update(func(tx *bolt.Tx) error {
		for _, ri := range legacyItems {
			op := upsertKeyOp{
				tx:     tx,
				bucket: legacyRosterBucketKey("ortuman"),
				key:    ri.JID,
				obj:    ri,
			}
			if err := op.do(); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	ros, err := rep.FetchRoster(context.Background(), "ortuman")
	require.NoError(t, err)
	require.Len(t, ros.Items, 2)
	require.Equal(t, rostermodel.ComputeHash(ros.Items), ros.Hash)

	// conversion persisted the flat form once, leaving legacy entries untouched
	err = rep.db.View(func(tx *bolt.Tx) error {
		require.NotNil(t, tx.Bucket([]byte(rosterBucketKey("ortuman"))))
		require.NotNil(t, tx.Bucket([]byte(legacyRosterBucketKey("ortuman"))))
		return nil
	})
	require.NoError(t, err)
}

func TestBoltDB_RosterNotifications(t *testing.T) {
	t.Parallel()

	rep := setupRepository(t, 16)

	rn := &rostermodel.Notification{
		Contact:  "noelia",
		JID:      "ortuman@jackal.im",
		Presence: testPresenceStanza(t, "ortuman@jackal.im", "noelia@jackal.im", stravaganza.SubscribeType),
	}
	require.NoError(t, rep.UpsertRosterNotification(context.Background(), rn))

	got, err := rep.FetchRosterNotification(context.Background(), "noelia", "ortuman@jackal.im")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, stravaganza.SubscribeType, got.Presence.Attribute(stravaganza.Type))

	rns, err := rep.FetchRosterNotifications(context.Background(), "noelia")
	require.NoError(t, err)
	require.Len(t, rns, 1)

	require.NoError(t, rep.DeleteRosterNotification(context.Background(), "noelia", "ortuman@jackal.im"))

	got, err = rep.FetchRosterNotification(context.Background(), "noelia", "ortuman@jackal.im")
	require.NoError(t, err)
	require.Nil(t, got)

	require.NoError(t, rep.UpsertRosterNotification(context.Background(), rn))
	require.NoError(t, rep.DeleteRosterNotifications(context.Background(), "noelia"))

	rns, err = rep.FetchRosterNotifications(context.Background(), "noelia")
	require.NoError(t, err)
	require.Len(t, rns, 0)
}

func testPresenceStanza(t *testing.T, from, to, typ string) *stravaganza.Presence {
	t.Helper()

	fromJID, _ := jid.NewWithString(from, true)
	toJID, _ := jid.NewWithString(to, true)
	pr, err := stravaganza.NewPresenceBuilder().
		WithAttribute(stravaganza.From, fromJID.String()).
		WithAttribute(stravaganza.To, toJID.String()).
		WithAttribute(stravaganza.Type, typ).
		BuildPresence()
	require.NoError(t, err)
	return pr
}
