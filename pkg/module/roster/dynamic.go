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
	"errors"

	"github.com/jackal-xmpp/stravaganza/v2"

	"github.com/marten-im/marten/pkg/model/rostermodel"
)

// ErrDynamicRosterRequest is returned by a DynamicRosterProvider when the
// request itself is malformed. It maps to a bad-request stanza error on the
// initiating IQ; any other provider error means its backing store is
// unavailable and listings degrade to the static portion only.
var ErrDynamicRosterRequest = errors.New("roster: malformed dynamic roster request")

// DynamicRosterProvider supplies externally sourced roster entries that get
// merged into roster listings at read time. Dynamic entries are never
// persisted and never participate in subscription state transitions; any
// extra payload they carry is owned by the provider.
type DynamicRosterProvider interface {
	// GetContacts returns all dynamic roster entries associated to username.
	GetContacts(ctx context.Context, username string) ([]*rostermodel.Item, error)

	// GetContactItem returns the dynamic roster entry username holds for
	// contactJID, or nil when none exists.
	GetContactItem(ctx context.Context, username, contactJID string) (*rostermodel.Item, error)

	// GetExtraData returns the opaque payload attached to the entry username
	// holds for contactJID, or nil when none exists.
	GetExtraData(ctx context.Context, username, contactJID string) (stravaganza.Element, error)

	// SetExtraData replaces the opaque payload attached to the entry
	// username holds for contactJID.
	SetExtraData(ctx context.Context, username, contactJID string, extra stravaganza.Element) error
}
