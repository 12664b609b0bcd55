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

import (
	"encoding/gob"
	"strings"

	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/jackal-xmpp/stravaganza/v2/jid"

	xmppparser "github.com/marten-im/marten/pkg/parser"
)

// Notification represents a pending subscription request awaiting the
// contact's approval. It is archived until approved, denied or cancelled.
type Notification struct {
	Contact  string
	JID      string
	Presence *stravaganza.Presence
}

// FromGob deserializes a Notification entity from its gob binary representation.
func (rn *Notification) FromGob(dec *gob.Decoder) error {
	if err := dec.Decode(&rn.Contact); err != nil {
		return err
	}
	if err := dec.Decode(&rn.JID); err != nil {
		return err
	}
	var rawPresence string
	if err := dec.Decode(&rawPresence); err != nil {
		return err
	}
	if len(rawPresence) == 0 {
		return nil
	}
	p, err := parsePresence(rawPresence)
	if err != nil {
		return err
	}
	rn.Presence = p
	return nil
}

// ToGob converts a Notification entity to its gob binary representation.
func (rn *Notification) ToGob(enc *gob.Encoder) {
	_ = enc.Encode(&rn.Contact)
	_ = enc.Encode(&rn.JID)
	var rawPresence string
	if rn.Presence != nil {
		rawPresence = rn.Presence.String()
	}
	_ = enc.Encode(&rawPresence)
}

func parsePresence(raw string) (*stravaganza.Presence, error) {
	p := xmppparser.New(strings.NewReader(raw), xmppparser.DefaultMode, len(raw))
	elem, err := p.Parse()
	if err != nil {
		return nil, err
	}
	fromJID, err := jid.NewWithString(elem.Attribute("from"), false)
	if err != nil {
		return nil, err
	}
	toJID, err := jid.NewWithString(elem.Attribute("to"), false)
	if err != nil {
		return nil, err
	}
	return stravaganza.NewBuilderFromElement(elem).
		WithAttribute(stravaganza.From, fromJID.String()).
		WithAttribute(stravaganza.To, toJID.String()).
		BuildPresence()
}
