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

package repository

import (
	"context"
	"errors"

	"github.com/marten-im/marten/pkg/model/rostermodel"
)

// ErrRosterCapacityReached is returned when inserting a new roster item
// would exceed the configured maximum roster size. Replacing an already
// present item never fails with this error.
var ErrRosterCapacityReached = errors.New("repository: roster capacity reached")

// Roster defines user roster repository operations.
//
// The roster is stored as a single unit per account: mutating operations
// rewrite the whole serialized form and return the resulting content hash,
// which acts as the roster version marker.
type Roster interface {
	// FetchRoster fetches a user roster along with its content hash.
	// A user without roster data yields an empty roster, never nil.
	FetchRoster(ctx context.Context, username string) (*rostermodel.Roster, error)

	// FetchRosterItem fetches the roster item associated to a contact JID.
	FetchRosterItem(ctx context.Context, username, jid string) (*rostermodel.Item, error)

	// UpsertRosterItem inserts or replaces a roster item, returning the new
	// roster content hash. Inserting beyond capacity returns
	// ErrRosterCapacityReached.
	UpsertRosterItem(ctx context.Context, ri *rostermodel.Item) (string, error)

	// DeleteRosterItem deletes a roster item, returning the new roster
	// content hash.
	DeleteRosterItem(ctx context.Context, username, jid string) (string, error)

	// DeleteRosterItems deletes all user roster items.
	DeleteRosterItems(ctx context.Context, username string) error

	// FetchRosterGroups fetches all groups associated to a user roster.
	FetchRosterGroups(ctx context.Context, username string) ([]string, error)

	// UpsertRosterNotification inserts or updates a roster notification entity.
	UpsertRosterNotification(ctx context.Context, rn *rostermodel.Notification) error

	// DeleteRosterNotification deletes a roster notification entity.
	DeleteRosterNotification(ctx context.Context, contact, jid string) error

	// DeleteRosterNotifications deletes all contact roster notifications.
	DeleteRosterNotifications(ctx context.Context, contact string) error

	// FetchRosterNotification fetches a roster notification entity.
	FetchRosterNotification(ctx context.Context, contact string, jid string) (*rostermodel.Notification, error)

	// FetchRosterNotifications fetches all roster notifications associated to a contact.
	FetchRosterNotifications(ctx context.Context, contact string) ([]*rostermodel.Notification, error)
}
