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

// stateRow holds the next state for each of the eight mutating presence
// event kinds, in the order of the RFC 3921 §8/RFC 6121 appendix tables:
//
//	Table 1: outbound "subscribed"
//	Table 2: outbound "unsubscribed"
//	Table 3: inbound  "subscribe"
//	Table 4: inbound  "unsubscribe"
//	Table 5: inbound  "subscribed"
//	Table 6: inbound  "unsubscribed"
//	Table 7: outbound "subscribe"
//	Table 8: outbound "unsubscribe"
type stateRow struct {
	outSubscribed   Subscription
	outUnsubscribed Subscription
	inSubscribe     Subscription
	inUnsubscribe   Subscription
	inSubscribed    Subscription
	inUnsubscribed  Subscription
	outSubscribe    Subscription
	outUnsubscribe  Subscription
}

// transitions is the single source of truth for subscription state changes.
// The first nine rows reproduce the RFC tables; an outbound "subscribed" sent
// while no inbound request is pending grants a pre-approval instead of being a
// no-op (RFC 6121 §3.4). The last three rows cover the pre-approved states:
// an inbound "subscribe" promotes directly to the corresponding "from" side,
// and an outbound "unsubscribed" revokes the pre-approval.
var transitions = map[Subscription]stateRow{
	None: {
		outSubscribed:   NonePreApproved,
		outUnsubscribed: None,
		inSubscribe:     NonePendingIn,
		inUnsubscribe:   None,
		inSubscribed:    None,
		inUnsubscribed:  None,
		outSubscribe:    NonePendingOut,
		outUnsubscribe:  None,
	},
	NonePendingOut: {
		outSubscribed:   NonePendingOutPreApproved,
		outUnsubscribed: NonePendingOut,
		inSubscribe:     NonePendingOutIn,
		inUnsubscribe:   NonePendingOut,
		inSubscribed:    To,
		inUnsubscribed:  None,
		outSubscribe:    NonePendingOut,
		outUnsubscribe:  None,
	},
	NonePendingIn: {
		outSubscribed:   From,
		outUnsubscribed: None,
		inSubscribe:     NonePendingIn,
		inUnsubscribe:   None,
		inSubscribed:    NonePendingIn,
		inUnsubscribed:  NonePendingIn,
		outSubscribe:    NonePendingOutIn,
		outUnsubscribe:  NonePendingIn,
	},
	NonePendingOutIn: {
		outSubscribed:   FromPendingOut,
		outUnsubscribed: NonePendingOut,
		inSubscribe:     NonePendingOutIn,
		inUnsubscribe:   NonePendingOut,
		inSubscribed:    ToPendingIn,
		inUnsubscribed:  NonePendingIn,
		outSubscribe:    NonePendingOutIn,
		outUnsubscribe:  NonePendingIn,
	},
	To: {
		outSubscribed:   ToPreApproved,
		outUnsubscribed: To,
		inSubscribe:     ToPendingIn,
		inUnsubscribe:   To,
		inSubscribed:    To,
		inUnsubscribed:  None,
		outSubscribe:    To,
		outUnsubscribe:  None,
	},
	ToPendingIn: {
		outSubscribed:   Both,
		outUnsubscribed: To,
		inSubscribe:     ToPendingIn,
		inUnsubscribe:   To,
		inSubscribed:    ToPendingIn,
		inUnsubscribed:  NonePendingIn,
		outSubscribe:    ToPendingIn,
		outUnsubscribe:  NonePendingIn,
	},
	From: {
		outSubscribed:   From,
		outUnsubscribed: None,
		inSubscribe:     From,
		inUnsubscribe:   None,
		inSubscribed:    From,
		inUnsubscribed:  From,
		outSubscribe:    FromPendingOut,
		outUnsubscribe:  From,
	},
	FromPendingOut: {
		outSubscribed:   FromPendingOut,
		outUnsubscribed: NonePendingOut,
		inSubscribe:     FromPendingOut,
		inUnsubscribe:   NonePendingOut,
		inSubscribed:    Both,
		inUnsubscribed:  From,
		outSubscribe:    FromPendingOut,
		outUnsubscribe:  From,
	},
	Both: {
		outSubscribed:   Both,
		outUnsubscribed: To,
		inSubscribe:     Both,
		inUnsubscribe:   To,
		inSubscribed:    Both,
		inUnsubscribed:  From,
		outSubscribe:    Both,
		outUnsubscribe:  From,
	},
	NonePreApproved: {
		outSubscribed:   NonePreApproved,
		outUnsubscribed: None,
		inSubscribe:     From,
		inUnsubscribe:   NonePreApproved,
		inSubscribed:    NonePreApproved,
		inUnsubscribed:  NonePreApproved,
		outSubscribe:    NonePendingOutPreApproved,
		outUnsubscribe:  NonePreApproved,
	},
	NonePendingOutPreApproved: {
		outSubscribed:   NonePendingOutPreApproved,
		outUnsubscribed: NonePendingOut,
		inSubscribe:     FromPendingOut,
		inUnsubscribe:   NonePendingOutPreApproved,
		inSubscribed:    ToPreApproved,
		inUnsubscribed:  NonePreApproved,
		outSubscribe:    NonePendingOutPreApproved,
		outUnsubscribe:  NonePreApproved,
	},
	ToPreApproved: {
		outSubscribed:   ToPreApproved,
		outUnsubscribed: To,
		inSubscribe:     Both,
		inUnsubscribe:   ToPreApproved,
		inSubscribed:    ToPreApproved,
		inUnsubscribed:  NonePreApproved,
		outSubscribe:    ToPreApproved,
		outUnsubscribe:  NonePreApproved,
	},
}

// Transition returns the subscription state that results from applying ev to
// current. Non-mutating event kinds leave the state untouched. A current
// state not present in the table is treated as None and the lookup retried.
func Transition(current Subscription, ev PresenceEventKind) Subscription {
	if !ev.IsMutating() {
		return current
	}
	row, ok := transitions[current]
	if !ok {
		row = transitions[None]
	}
	switch ev {
	case OutSubscribed:
		return row.outSubscribed
	case OutUnsubscribed:
		return row.outUnsubscribed
	case InSubscribe:
		return row.inSubscribe
	case InUnsubscribe:
		return row.inUnsubscribe
	case InSubscribed:
		return row.inSubscribed
	case InUnsubscribed:
		return row.inUnsubscribed
	case OutSubscribe:
		return row.outSubscribe
	default:
		return row.outUnsubscribe
	}
}
