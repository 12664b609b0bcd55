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
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/marten-im/marten/pkg/model/rostermodel"
	"github.com/marten-im/marten/pkg/storage/repository"
)

const rosterKey = "roster"

type boltDBRosterRep struct {
	tx            *bolt.Tx
	maxRosterSize int
}

func newRosterRep(tx *bolt.Tx, maxRosterSize int) *boltDBRosterRep {
	return &boltDBRosterRep{tx: tx, maxRosterSize: maxRosterSize}
}

// fetchRoster returns the stored flat roster, or nil when absent.
func (r *boltDBRosterRep) fetchRoster(username string) (*rostermodel.Roster, error) {
	op := fetchKeyOp{
		tx:     r.tx,
		bucket: rosterBucketKey(username),
		key:    rosterKey,
		obj:    &rostermodel.Roster{},
	}
	obj, err := op.do()
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, nil
	}
	return obj.(*rostermodel.Roster), nil
}

// loadRoster returns the flat roster, falling back to the legacy
// per-contact layout when the flat form is absent. Converted legacy
// rosters are persisted once; the legacy entries are left untouched.
// Requires a writable transaction.
func (r *boltDBRosterRep) loadRoster(username string) (*rostermodel.Roster, error) {
	ros, err := r.fetchRoster(username)
	if err != nil {
		return nil, err
	}
	if ros != nil {
		return ros, nil
	}
	legacyExists := bucketExistsOp{
		tx:     r.tx,
		bucket: legacyRosterBucketKey(username),
	}
	if !legacyExists.do() {
		return emptyRoster(username), nil
	}
	ros, err = r.convertLegacyRoster(username)
	if err != nil {
		return nil, err
	}
	if err := r.saveRoster(ros); err != nil {
		return nil, err
	}
	return ros, nil
}

func (r *boltDBRosterRep) convertLegacyRoster(username string) (*rostermodel.Roster, error) {
	ros := emptyRoster(username)

	op := iterKeysOp{
		tx:     r.tx,
		bucket: legacyRosterBucketKey(username),
		iterFn: func(_, b []byte) error {
			var ri rostermodel.Item
			if err := ri.UnmarshalBinary(b); err != nil {
				return err
			}
			ros.SetItem(&ri)
			return nil
		},
	}
	if err := op.do(); err != nil {
		return nil, err
	}
	return ros, nil
}

func (r *boltDBRosterRep) saveRoster(ros *rostermodel.Roster) error {
	op := upsertKeyOp{
		tx:     r.tx,
		bucket: rosterBucketKey(ros.Username),
		key:    rosterKey,
		obj:    ros,
	}
	return op.do()
}

func (r *boltDBRosterRep) upsertRosterItem(ri *rostermodel.Item) (string, error) {
	ros, err := r.loadRoster(ri.Username)
	if err != nil {
		return "", err
	}
	if ros.Item(ri.JID) == nil && len(ros.Items) >= r.maxRosterSize {
		return "", repository.ErrRosterCapacityReached
	}
	ros.SetItem(ri)
	if err := r.saveRoster(ros); err != nil {
		return "", err
	}
	return ros.Hash, nil
}

func (r *boltDBRosterRep) deleteRosterItem(username, jid string) (string, error) {
	ros, err := r.loadRoster(username)
	if err != nil {
		return "", err
	}
	ros.RemoveItem(jid)
	if err := r.saveRoster(ros); err != nil {
		return "", err
	}
	return ros.Hash, nil
}

func (r *boltDBRosterRep) deleteRosterItems(username string) error {
	flatDel := delBucketOp{tx: r.tx, bucket: rosterBucketKey(username)}
	if err := flatDel.do(); err != nil {
		return err
	}
	legacyDel := delBucketOp{tx: r.tx, bucket: legacyRosterBucketKey(username)}
	return legacyDel.do()
}

func (r *boltDBRosterRep) upsertRosterNotification(rn *rostermodel.Notification) error {
	op := upsertKeyOp{
		tx:     r.tx,
		bucket: rosterNotificationsBucketKey(rn.Contact),
		key:    rn.JID,
		obj:    rn,
	}
	return op.do()
}

func (r *boltDBRosterRep) deleteRosterNotification(contact, jid string) error {
	op := delKeyOp{
		tx:     r.tx,
		bucket: rosterNotificationsBucketKey(contact),
		key:    jid,
	}
	return op.do()
}

func (r *boltDBRosterRep) deleteRosterNotifications(contact string) error {
	op := delBucketOp{
		tx:     r.tx,
		bucket: rosterNotificationsBucketKey(contact),
	}
	return op.do()
}

func (r *boltDBRosterRep) fetchRosterNotification(contact, jid string) (*rostermodel.Notification, error) {
	op := fetchKeyOp{
		tx:     r.tx,
		bucket: rosterNotificationsBucketKey(contact),
		key:    jid,
		obj:    &rostermodel.Notification{},
	}
	obj, err := op.do()
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, nil
	}
	return obj.(*rostermodel.Notification), nil
}

func (r *boltDBRosterRep) fetchRosterNotifications(contact string) ([]*rostermodel.Notification, error) {
	var retVal []*rostermodel.Notification

	op := iterKeysOp{
		tx:     r.tx,
		bucket: rosterNotificationsBucketKey(contact),
		iterFn: func(_, b []byte) error {
			var rn rostermodel.Notification
			if err := rn.UnmarshalBinary(b); err != nil {
				return err
			}
			retVal = append(retVal, &rn)
			return nil
		},
	}
	if err := op.do(); err != nil {
		return nil, err
	}
	return retVal, nil
}

func emptyRoster(username string) *rostermodel.Roster {
	return &rostermodel.Roster{
		Username: username,
		Hash:     rostermodel.ComputeHash(nil),
	}
}

func rosterBucketKey(username string) string {
	return fmt.Sprintf("roster:flat:%s", username)
}

func legacyRosterBucketKey(username string) string {
	return fmt.Sprintf("roster:items:%s", username)
}

func rosterNotificationsBucketKey(contact string) string {
	return fmt.Sprintf("roster:notif:%s", contact)
}

// FetchRoster satisfies repository.Roster interface.
func (r *Repository) FetchRoster(_ context.Context, username string) (ros *rostermodel.Roster, err error) {
	err = r.db.View(func(tx *bolt.Tx) error {
		ros, err = newRosterRep(tx, r.cfg.MaxRosterSize).fetchRoster(username)
		return err
	})
	if ros != nil || err != nil {
		return
	}
	// flat form absent: convert legacy layout, or yield an empty roster
	err = r.db.Update(func(tx *bolt.Tx) error {
		ros, err = newRosterRep(tx, r.cfg.MaxRosterSize).loadRoster(username)
		return err
	})
	return
}

// FetchRosterItem satisfies repository.Roster interface.
func (r *Repository) FetchRosterItem(ctx context.Context, username, jid string) (*rostermodel.Item, error) {
	ros, err := r.FetchRoster(ctx, username)
	if err != nil {
		return nil, err
	}
	return ros.Item(jid), nil
}

// UpsertRosterItem satisfies repository.Roster interface.
func (r *Repository) UpsertRosterItem(_ context.Context, ri *rostermodel.Item) (hash string, err error) {
	err = r.db.Update(func(tx *bolt.Tx) error {
		hash, err = newRosterRep(tx, r.cfg.MaxRosterSize).upsertRosterItem(ri)
		return err
	})
	return
}

// DeleteRosterItem satisfies repository.Roster interface.
func (r *Repository) DeleteRosterItem(_ context.Context, username, jid string) (hash string, err error) {
	err = r.db.Update(func(tx *bolt.Tx) error {
		hash, err = newRosterRep(tx, r.cfg.MaxRosterSize).deleteRosterItem(username, jid)
		return err
	})
	return
}

// DeleteRosterItems satisfies repository.Roster interface.
func (r *Repository) DeleteRosterItems(_ context.Context, username string) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		return newRosterRep(tx, r.cfg.MaxRosterSize).deleteRosterItems(username)
	})
}

// FetchRosterGroups satisfies repository.Roster interface.
func (r *Repository) FetchRosterGroups(ctx context.Context, username string) ([]string, error) {
	ros, err := r.FetchRoster(ctx, username)
	if err != nil {
		return nil, err
	}
	return ros.Groups(), nil
}

// UpsertRosterNotification satisfies repository.Roster interface.
func (r *Repository) UpsertRosterNotification(_ context.Context, rn *rostermodel.Notification) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		return newRosterRep(tx, r.cfg.MaxRosterSize).upsertRosterNotification(rn)
	})
}

// DeleteRosterNotification satisfies repository.Roster interface.
func (r *Repository) DeleteRosterNotification(_ context.Context, contact, jid string) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		return newRosterRep(tx, r.cfg.MaxRosterSize).deleteRosterNotification(contact, jid)
	})
}

// DeleteRosterNotifications satisfies repository.Roster interface.
func (r *Repository) DeleteRosterNotifications(_ context.Context, contact string) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		return newRosterRep(tx, r.cfg.MaxRosterSize).deleteRosterNotifications(contact)
	})
}

// FetchRosterNotification satisfies repository.Roster interface.
func (r *Repository) FetchRosterNotification(_ context.Context, contact string, jid string) (rn *rostermodel.Notification, err error) {
	err = r.db.View(func(tx *bolt.Tx) error {
		rn, err = newRosterRep(tx, r.cfg.MaxRosterSize).fetchRosterNotification(contact, jid)
		return err
	})
	return
}

// FetchRosterNotifications satisfies repository.Roster interface.
func (r *Repository) FetchRosterNotifications(_ context.Context, contact string) (rns []*rostermodel.Notification, err error) {
	err = r.db.View(func(tx *bolt.Tx) error {
		rns, err = newRosterRep(tx, r.cfg.MaxRosterSize).fetchRosterNotifications(contact)
		return err
	})
	return
}
