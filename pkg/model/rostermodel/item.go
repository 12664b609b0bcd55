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
	"errors"
	"fmt"

	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/jackal-xmpp/stravaganza/v2/jid"
)

// Item represents a roster item storage entity.
//
// Subscription carries the full internal state; the wire facets
// (subscription/ask/approved attributes) are derived when encoding.
type Item struct {
	Username     string
	JID          string
	Name         string
	Subscription Subscription
	Groups       []string
}

// NewItem parses an XML element returning a derived roster item instance.
func NewItem(elem stravaganza.Element) (*Item, error) {
	if elem.Name() != "item" {
		return nil, fmt.Errorf("rostermodel: invalid item element name: %s", elem.Name())
	}
	ri := &Item{}
	if jidStr := elem.Attribute("jid"); len(jidStr) > 0 {
		j, err := jid.NewWithString(jidStr, false)
		if err != nil {
			return nil, err
		}
		ri.JID = j.ToBareJID().String()
	} else {
		return nil, errors.New("rostermodel: item 'jid' attribute is required")
	}
	ri.Name = elem.Attribute("name")

	subscription := elem.Attribute("subscription")
	if len(subscription) > 0 {
		switch subscription {
		case SubscriptionBoth, SubscriptionFrom, SubscriptionTo, SubscriptionNone, SubscriptionRemove:
			break
		default:
			return nil, fmt.Errorf("rostermodel: unrecognized 'subscription' enum type: %s", subscription)
		}
		ri.Subscription = Subscription(subscription)
	}
	ask := elem.Attribute("ask")
	if len(ask) > 0 {
		if ask != "subscribe" {
			return nil, fmt.Errorf("rostermodel: unrecognized 'ask' enum type: %s", ask)
		}
		switch ri.Subscription {
		case None:
			ri.Subscription = NonePendingOut
		case From:
			ri.Subscription = FromPendingOut
		}
	}
	if elem.Attribute("approved") == "true" {
		switch ri.Subscription {
		case None:
			ri.Subscription = NonePreApproved
		case NonePendingOut:
			ri.Subscription = NonePendingOutPreApproved
		case To:
			ri.Subscription = ToPreApproved
		}
	}
	groups := elem.Children("group")
	for _, group := range groups {
		if group.AttributeCount() > 0 {
			return nil, errors.New("rostermodel: group element must not contain any attribute")
		}
		if len(group.Text()) > 0 {
			ri.Groups = append(ri.Groups, group.Text())
		}
	}
	return ri, nil
}

// Element returns ri XML element representation, deriving the wire
// subscription facets from the internal state.
func (ri *Item) Element() stravaganza.Element {
	attrs := ri.Subscription.Attributes()
	b := stravaganza.NewBuilder("item").
		WithAttribute("jid", ri.JID)
	if len(ri.Name) > 0 {
		b.WithAttribute("name", ri.Name)
	}
	b.WithAttribute("subscription", attrs.Subscription)
	if attrs.Ask {
		b.WithAttribute("ask", "subscribe")
	}
	if attrs.Approved {
		b.WithAttribute("approved", "true")
	}
	for _, group := range ri.Groups {
		b.WithChild(stravaganza.NewBuilder("group").
			WithText(group).
			Build(),
		)
	}
	return b.Build()
}

// ContactJID parses and returns ri contact bare JID.
func (ri *Item) ContactJID() *jid.JID {
	j, _ := jid.NewWithString(ri.JID, true)
	return j
}

// FromGob deserializes an Item entity from its gob binary representation.
func (ri *Item) FromGob(dec *gob.Decoder) error {
	if err := dec.Decode(&ri.Username); err != nil {
		return err
	}
	if err := dec.Decode(&ri.JID); err != nil {
		return err
	}
	if err := dec.Decode(&ri.Name); err != nil {
		return err
	}
	var subs string
	if err := dec.Decode(&subs); err != nil {
		return err
	}
	ri.Subscription = Subscription(subs)
	return dec.Decode(&ri.Groups)
}

// ToGob converts an Item entity to its gob binary representation.
func (ri *Item) ToGob(enc *gob.Encoder) {
	_ = enc.Encode(&ri.Username)
	_ = enc.Encode(&ri.JID)
	_ = enc.Encode(&ri.Name)
	subs := string(ri.Subscription)
	_ = enc.Encode(&subs)
	_ = enc.Encode(&ri.Groups)
}
