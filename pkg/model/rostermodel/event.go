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

// PresenceEventKind represents a directional presence event type as seen
// from the owning account session.
type PresenceEventKind int

const (
	// OutInitial is an outbound available/unavailable presence.
	OutInitial PresenceEventKind = iota

	// OutSubscribe is an outbound subscription request.
	OutSubscribe

	// OutUnsubscribe is an outbound subscription cancellation.
	OutUnsubscribe

	// OutSubscribed is an outbound subscription approval.
	OutSubscribed

	// OutUnsubscribed is an outbound subscription denial or revocation.
	OutUnsubscribed

	// OutProbe is an outbound presence probe.
	OutProbe

	// InInitial is an inbound available/unavailable presence.
	InInitial

	// InSubscribe is an inbound subscription request.
	InSubscribe

	// InUnsubscribe is an inbound subscription cancellation.
	InUnsubscribe

	// InSubscribed is an inbound subscription approval.
	InSubscribed

	// InUnsubscribed is an inbound subscription denial or revocation.
	InUnsubscribed

	// InProbe is an inbound presence probe.
	InProbe

	// EventError is a presence stanza of type "error".
	EventError
)

var eventKindStr = map[PresenceEventKind]string{
	OutInitial:      "out_initial",
	OutSubscribe:    "out_subscribe",
	OutUnsubscribe:  "out_unsubscribe",
	OutSubscribed:   "out_subscribed",
	OutUnsubscribed: "out_unsubscribed",
	OutProbe:        "out_probe",
	InInitial:       "in_initial",
	InSubscribe:     "in_subscribe",
	InUnsubscribe:   "in_unsubscribe",
	InSubscribed:    "in_subscribed",
	InUnsubscribed:  "in_unsubscribed",
	InProbe:         "in_probe",
	EventError:      "error",
}

// String returns ek string representation.
func (ek PresenceEventKind) String() string {
	if s, ok := eventKindStr[ek]; ok {
		return s
	}
	return "unknown"
}

// IsMutating tells whether ek may alter a subscription state.
func (ek PresenceEventKind) IsMutating() bool {
	switch ek {
	case OutSubscribe, OutUnsubscribe, OutSubscribed, OutUnsubscribed,
		InSubscribe, InUnsubscribe, InSubscribed, InUnsubscribed:
		return true
	}
	return false
}
