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
	"fmt"

	"github.com/go-kit/log"

	"github.com/marten-im/marten/pkg/model"
	"github.com/marten-im/marten/pkg/model/rostermodel"
	"github.com/marten-im/marten/pkg/storage/repository"
)

const (
	rosterKey              = "roster"
	rosterGroupsKey        = "groups"
	rosterNotificationsKey = "notifications"
)

type cachedRosterRep struct {
	c      Cache
	rep    repository.Roster
	logger log.Logger
}

func (c *cachedRosterRep) FetchRoster(ctx context.Context, username string) (*rostermodel.Roster, error) {
	op := fetchOp{
		c:         c.c,
		namespace: rosterItemsNS(username),
		key:       rosterKey,
		codec:     &rostermodel.Roster{},
		missFn: func(ctx context.Context) (model.Codec, error) {
			return c.rep.FetchRoster(ctx, username)
		},
		logger: c.logger,
	}
	v, err := op.do(ctx)
	switch {
	case err != nil:
		return nil, err
	case v != nil:
		return v.(*rostermodel.Roster), nil
	}
	return nil, nil
}

func (c *cachedRosterRep) FetchRosterItem(ctx context.Context, username, jid string) (*rostermodel.Item, error) {
	op := fetchOp{
		c:         c.c,
		namespace: rosterItemsNS(username),
		key:       jid,
		codec:     &rostermodel.Item{},
		missFn: func(ctx context.Context) (model.Codec, error) {
			ri, err := c.rep.FetchRosterItem(ctx, username, jid)
			if err != nil {
				return nil, err
			}
			if ri == nil {
				return nil, nil
			}
			return ri, nil
		},
		logger: c.logger,
	}
	v, err := op.do(ctx)
	switch {
	case err != nil:
		return nil, err
	case v != nil:
		return v.(*rostermodel.Item), nil
	}
	return nil, nil
}

func (c *cachedRosterRep) UpsertRosterItem(ctx context.Context, ri *rostermodel.Item) (string, error) {
	var hash string

	op := updateOp{
		c:         c.c,
		namespace: rosterItemsNS(ri.Username),
		updateFn: func(ctx context.Context) error {
			var err error
			hash, err = c.rep.UpsertRosterItem(ctx, ri)
			return err
		},
	}
	if err := op.do(ctx); err != nil {
		return "", err
	}
	return hash, nil
}

func (c *cachedRosterRep) DeleteRosterItem(ctx context.Context, username, jid string) (string, error) {
	var hash string

	op := updateOp{
		c:         c.c,
		namespace: rosterItemsNS(username),
		updateFn: func(ctx context.Context) error {
			var err error
			hash, err = c.rep.DeleteRosterItem(ctx, username, jid)
			return err
		},
	}
	if err := op.do(ctx); err != nil {
		return "", err
	}
	return hash, nil
}

func (c *cachedRosterRep) DeleteRosterItems(ctx context.Context, username string) error {
	op := updateOp{
		c:         c.c,
		namespace: rosterItemsNS(username),
		updateFn: func(ctx context.Context) error {
			return c.rep.DeleteRosterItems(ctx, username)
		},
	}
	return op.do(ctx)
}

func (c *cachedRosterRep) FetchRosterGroups(ctx context.Context, username string) ([]string, error) {
	op := fetchOp{
		c:         c.c,
		namespace: rosterItemsNS(username),
		key:       rosterGroupsKey,
		codec:     &rostermodel.Groups{},
		missFn: func(ctx context.Context) (model.Codec, error) {
			grs, err := c.rep.FetchRosterGroups(ctx, username)
			if err != nil {
				return nil, err
			}
			return &rostermodel.Groups{Groups: grs}, nil
		},
		logger: c.logger,
	}
	v, err := op.do(ctx)
	switch {
	case err != nil:
		return nil, err
	case v != nil:
		return v.(*rostermodel.Groups).Groups, nil
	}
	return nil, nil
}

func (c *cachedRosterRep) UpsertRosterNotification(ctx context.Context, rn *rostermodel.Notification) error {
	op := updateOp{
		c:         c.c,
		namespace: rosterNotificationsNS(rn.Contact),
		updateFn: func(ctx context.Context) error {
			return c.rep.UpsertRosterNotification(ctx, rn)
		},
	}
	return op.do(ctx)
}

func (c *cachedRosterRep) DeleteRosterNotification(ctx context.Context, contact, jid string) error {
	op := updateOp{
		c:         c.c,
		namespace: rosterNotificationsNS(contact),
		updateFn: func(ctx context.Context) error {
			return c.rep.DeleteRosterNotification(ctx, contact, jid)
		},
	}
	return op.do(ctx)
}

func (c *cachedRosterRep) DeleteRosterNotifications(ctx context.Context, contact string) error {
	op := updateOp{
		c:         c.c,
		namespace: rosterNotificationsNS(contact),
		updateFn: func(ctx context.Context) error {
			return c.rep.DeleteRosterNotifications(ctx, contact)
		},
	}
	return op.do(ctx)
}

func (c *cachedRosterRep) FetchRosterNotification(ctx context.Context, contact string, jid string) (*rostermodel.Notification, error) {
	op := fetchOp{
		c:         c.c,
		namespace: rosterNotificationsNS(contact),
		key:       jid,
		codec:     &rostermodel.Notification{},
		missFn: func(ctx context.Context) (model.Codec, error) {
			rn, err := c.rep.FetchRosterNotification(ctx, contact, jid)
			if err != nil {
				return nil, err
			}
			if rn == nil {
				return nil, nil
			}
			return rn, nil
		},
		logger: c.logger,
	}
	v, err := op.do(ctx)
	switch {
	case err != nil:
		return nil, err
	case v != nil:
		return v.(*rostermodel.Notification), nil
	}
	return nil, nil
}

func (c *cachedRosterRep) FetchRosterNotifications(ctx context.Context, contact string) ([]*rostermodel.Notification, error) {
	op := fetchOp{
		c:         c.c,
		namespace: rosterNotificationsNS(contact),
		key:       rosterNotificationsKey,
		codec:     &rostermodel.Notifications{},
		missFn: func(ctx context.Context) (model.Codec, error) {
			rns, err := c.rep.FetchRosterNotifications(ctx, contact)
			if err != nil {
				return nil, err
			}
			return &rostermodel.Notifications{Notifications: rns}, nil
		},
		logger: c.logger,
	}
	v, err := op.do(ctx)
	switch {
	case err != nil:
		return nil, err
	case v != nil:
		return v.(*rostermodel.Notifications).Notifications, nil
	}
	return nil, nil
}

func rosterItemsNS(username string) string {
	return fmt.Sprintf("ros:items:%s", username)
}

func rosterNotificationsNS(contact string) string {
	return fmt.Sprintf("ros:notif:%s", contact)
}
