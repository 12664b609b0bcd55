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

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/marten-im/marten/pkg/model/rostermodel"
	"github.com/marten-im/marten/pkg/storage/repository"
)

// UpdateOutcome represents the effect of applying a presence event to a
// roster subscription state.
type UpdateOutcome int

const (
	// OutcomeUnchanged means the event did not alter the subscription state.
	OutcomeUnchanged UpdateOutcome = iota

	// OutcomeChanged means a new subscription state was persisted.
	OutcomeChanged

	// OutcomeRemoved means the roster entry was deleted outright.
	OutcomeRemoved
)

// UpdateResult contains a subscription update outcome along with the
// resulting roster item and content hash.
type UpdateResult struct {
	Outcome UpdateOutcome

	// Item is the resulting roster item. Nil when the entry was removed
	// or when no persisted entry exists.
	Item *rostermodel.Item

	// Hash is the roster content hash after a mutation. Empty when the
	// outcome is OutcomeUnchanged.
	Hash string
}

// SubscriptionEngine applies classified presence events to persisted roster
// subscription states. It never routes stanzas nor broadcasts changes:
// callers hand every changed/removed result to the broadcaster themselves.
type SubscriptionEngine struct {
	rep    repository.Roster
	logger kitlog.Logger
}

// NewSubscriptionEngine returns an initialized subscription engine.
func NewSubscriptionEngine(rep repository.Roster, logger kitlog.Logger) *SubscriptionEngine {
	return &SubscriptionEngine{rep: rep, logger: logger}
}

// UpdateSubscription applies ev to the subscription state held between
// username and contactJID.
//
// A missing entry is auto-added with "none" state before transitioning,
// except for unsubscribe kinds, which never create entries. A half-open
// inbound request being withdrawn deletes the entry outright, together
// with its archived approval notification.
func (e *SubscriptionEngine) UpdateSubscription(ctx context.Context, username, contactJID string, ev rostermodel.PresenceEventKind) (UpdateResult, error) {
	if !ev.IsMutating() {
		return UpdateResult{Outcome: OutcomeUnchanged}, nil
	}
	ri, err := e.rep.FetchRosterItem(ctx, username, contactJID)
	if err != nil {
		return UpdateResult{}, err
	}
	var created bool
	if ri == nil {
		if ev == rostermodel.OutUnsubscribe || ev == rostermodel.InUnsubscribe {
			return UpdateResult{Outcome: OutcomeUnchanged}, nil
		}
		ri = &rostermodel.Item{
			Username:     username,
			JID:          contactJID,
			Subscription: rostermodel.None,
		}
		created = true
	}
	current := ri.Subscription

	if current == rostermodel.NonePendingIn && (ev == rostermodel.OutUnsubscribed || ev == rostermodel.InUnsubscribe) {
		hash, err := e.rep.DeleteRosterItem(ctx, username, contactJID)
		if err != nil {
			return UpdateResult{}, err
		}
		if err := e.rep.DeleteRosterNotification(ctx, username, contactJID); err != nil {
			return UpdateResult{}, err
		}
		level.Info(e.logger).Log("msg", "withdrawn pending subscription request", "username", username, "jid", contactJID)

		return UpdateResult{Outcome: OutcomeRemoved, Hash: hash}, nil
	}
	next := rostermodel.Transition(current, ev)
	if next == current {
		if created {
			return UpdateResult{Outcome: OutcomeUnchanged}, nil
		}
		return UpdateResult{Outcome: OutcomeUnchanged, Item: ri}, nil
	}
	ri.Subscription = next

	hash, err := e.rep.UpsertRosterItem(ctx, ri)
	if err != nil {
		return UpdateResult{}, err
	}
	level.Info(e.logger).Log("msg", "updated subscription state",
		"username", username,
		"jid", contactJID,
		"event", ev.String(),
		"previous", string(current),
		"state", string(next),
	)
	return UpdateResult{Outcome: OutcomeChanged, Item: ri, Hash: hash}, nil
}
