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
	"fmt"

	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/jackal-xmpp/stravaganza/v2/jid"

	"github.com/marten-im/marten/pkg/model/rostermodel"
)

// ErrUnclassifiablePresence is returned by Classify when a presence stanza
// type cannot be mapped into an event kind. Callers drop the stanza and log.
type ErrUnclassifiablePresence struct {
	Type string
}

func (e *ErrUnclassifiablePresence) Error() string {
	return fmt.Sprintf("roster: unclassifiable presence type: %s", e.Type)
}

// Classify maps a presence stanza into a directional event kind as seen
// from the owner's bare JID: stanzas addressed to the owner classify as
// inbound, everything else as outbound.
func Classify(pr *stravaganza.Presence, owner *jid.JID) (rostermodel.PresenceEventKind, error) {
	inbound := pr.ToJID().MatchesWithOptions(owner.ToBareJID(), jid.MatchesBare)

	switch pr.Attribute(stravaganza.Type) {
	case stravaganza.AvailableType, stravaganza.UnavailableType:
		if inbound {
			return rostermodel.InInitial, nil
		}
		return rostermodel.OutInitial, nil

	case stravaganza.SubscribeType:
		if inbound {
			return rostermodel.InSubscribe, nil
		}
		return rostermodel.OutSubscribe, nil

	case stravaganza.UnsubscribeType:
		if inbound {
			return rostermodel.InUnsubscribe, nil
		}
		return rostermodel.OutUnsubscribe, nil

	case stravaganza.SubscribedType:
		if inbound {
			return rostermodel.InSubscribed, nil
		}
		return rostermodel.OutSubscribed, nil

	case stravaganza.UnsubscribedType:
		if inbound {
			return rostermodel.InUnsubscribed, nil
		}
		return rostermodel.OutUnsubscribed, nil

	case stravaganza.ProbeType:
		if inbound {
			return rostermodel.InProbe, nil
		}
		return rostermodel.OutProbe, nil

	case stravaganza.ErrorType:
		return rostermodel.EventError, nil
	}
	return 0, &ErrUnclassifiablePresence{Type: pr.Attribute(stravaganza.Type)}
}
