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

package rostermodel

// Subscription represents a roster item subscription state.
//
// The state set extends the RFC 6121 relationship states with the three
// pre-approval states introduced by subscription pre-approvals (RFC 6121 §3.4).
type Subscription string

const (
	// None represents a "none" subscription state.
	None Subscription = "none"

	// NonePendingOut represents a "none" subscription with an outbound request pending.
	NonePendingOut Subscription = "none_pending_out"

	// NonePendingIn represents a "none" subscription with an inbound request pending.
	NonePendingIn Subscription = "none_pending_in"

	// NonePendingOutIn represents a "none" subscription with requests pending in both directions.
	NonePendingOutIn Subscription = "none_pending_out_in"

	// To represents a "to" subscription state.
	To Subscription = "to"

	// ToPendingIn represents a "to" subscription with an inbound request pending.
	ToPendingIn Subscription = "to_pending_in"

	// From represents a "from" subscription state.
	From Subscription = "from"

	// FromPendingOut represents a "from" subscription with an outbound request pending.
	FromPendingOut Subscription = "from_pending_out"

	// Both represents a "both" subscription state.
	Both Subscription = "both"

	// Remove is a transient pseudo-state used to signal item deletion in
	// outgoing roster pushes. It is never stored.
	Remove Subscription = "remove"

	// NonePreApproved represents a "none" subscription with a granted pre-approval.
	NonePreApproved Subscription = "none_pre_approved"

	// NonePendingOutPreApproved represents a "none" subscription with an
	// outbound request pending and a granted pre-approval.
	NonePendingOutPreApproved Subscription = "none_pending_out_pre_approved"

	// ToPreApproved represents a "to" subscription with a granted pre-approval.
	ToPreApproved Subscription = "to_pre_approved"
)

// roster item wire subscription values
const (
	SubscriptionNone   = "none"
	SubscriptionTo     = "to"
	SubscriptionFrom   = "from"
	SubscriptionBoth   = "both"
	SubscriptionRemove = "remove"
)

// Attributes contains the wire facets derived from a subscription state,
// as carried by a roster item element.
type Attributes struct {
	Subscription string
	Ask          bool
	Approved     bool
}

var stateAttributes = map[Subscription]Attributes{
	None:                      {Subscription: SubscriptionNone},
	NonePendingOut:            {Subscription: SubscriptionNone, Ask: true},
	NonePendingIn:             {Subscription: SubscriptionNone},
	NonePendingOutIn:          {Subscription: SubscriptionNone, Ask: true},
	To:                        {Subscription: SubscriptionTo},
	ToPendingIn:               {Subscription: SubscriptionTo},
	From:                      {Subscription: SubscriptionFrom},
	FromPendingOut:            {Subscription: SubscriptionFrom, Ask: true},
	Both:                      {Subscription: SubscriptionBoth},
	Remove:                    {Subscription: SubscriptionRemove},
	NonePreApproved:           {Subscription: SubscriptionNone, Approved: true},
	NonePendingOutPreApproved: {Subscription: SubscriptionNone, Ask: true, Approved: true},
	ToPreApproved:             {Subscription: SubscriptionTo, Approved: true},
}

// Attributes returns s derived wire facets.
// Unknown states map to the "none" facets.
func (s Subscription) Attributes() Attributes {
	attrs, ok := stateAttributes[s]
	if !ok {
		return stateAttributes[None]
	}
	return attrs
}

// IsValid tells whether s is a member of the closed subscription state set.
func (s Subscription) IsValid() bool {
	_, ok := stateAttributes[s]
	return ok
}

// IsSubscribedTo tells whether the roster owner is subscribed to the
// contact's presence when the contact item is in s state.
func (s Subscription) IsSubscribedTo() bool {
	switch s {
	case To, ToPendingIn, ToPreApproved, Both:
		return true
	}
	return false
}

// IsSubscribedFrom tells whether the contact is subscribed to the roster
// owner's presence when the contact item is in s state.
func (s Subscription) IsSubscribedFrom() bool {
	switch s {
	case From, FromPendingOut, Both:
		return true
	}
	return false
}

// IsPendingIn tells whether an inbound subscription request is pending on s.
func (s Subscription) IsPendingIn() bool {
	switch s {
	case NonePendingIn, NonePendingOutIn, ToPendingIn:
		return true
	}
	return false
}

// IsPendingOut tells whether an outbound subscription request is pending on s.
func (s Subscription) IsPendingOut() bool {
	switch s {
	case NonePendingOut, NonePendingOutIn, FromPendingOut, NonePendingOutPreApproved:
		return true
	}
	return false
}

// IsProbeTarget tells whether a presence probe should be addressed to a
// contact whose item is in s state when the owner becomes available.
func (s Subscription) IsProbeTarget() bool {
	switch s {
	case To, ToPendingIn, ToPreApproved:
		return true
	}
	return false
}
