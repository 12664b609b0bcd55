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
	"crypto/md5"
	"encoding/hex"
	"io"
	"sort"
)

// Roster represents a user roster storage entity: the full set of roster
// items kept as a single unit, plus its content hash.
//
// The hash is a digest over the serialized items in iteration order and
// doubles as the roster version marker ("ver" attribute).
type Roster struct {
	Username string
	Items    []*Item
	Hash     string
}

// Item returns the roster item associated to jid, or nil if not present.
func (r *Roster) Item(jid string) *Item {
	for _, ri := range r.Items {
		if ri.JID == jid {
			return ri
		}
	}
	return nil
}

// SetItem inserts or replaces a roster item, keeping items sorted by
// contact JID, and recomputes the content hash. It returns true when the
// item was not previously present.
func (r *Roster) SetItem(ri *Item) bool {
	defer r.rehash()
	for i, prev := range r.Items {
		if prev.JID == ri.JID {
			r.Items[i] = ri
			return false
		}
	}
	r.Items = append(r.Items, ri)
	sort.Slice(r.Items, func(i, j int) bool { return r.Items[i].JID < r.Items[j].JID })
	return true
}

// RemoveItem removes the roster item associated to jid and recomputes the
// content hash. It returns true when an item was actually removed.
func (r *Roster) RemoveItem(jid string) bool {
	for i, ri := range r.Items {
		if ri.JID == jid {
			r.Items = append(r.Items[:i], r.Items[i+1:]...)
			r.rehash()
			return true
		}
	}
	return false
}

// Groups returns the sorted set of all groups referenced by roster items.
func (r *Roster) Groups() []string {
	groupsMap := make(map[string]struct{})
	for _, ri := range r.Items {
		for _, gr := range ri.Groups {
			groupsMap[gr] = struct{}{}
		}
	}
	var retVal []string
	for gr := range groupsMap {
		retVal = append(retVal, gr)
	}
	sort.Slice(retVal, func(i, j int) bool { return retVal[i] < retVal[j] })
	return retVal
}

func (r *Roster) rehash() {
	r.Hash = ComputeHash(r.Items)
}

// ComputeHash returns the roster content digest over the serialized item
// elements in iteration order.
func ComputeHash(items []*Item) string {
	h := md5.New()
	for _, ri := range items {
		_, _ = io.WriteString(h, ri.Element().String())
	}
	return hex.EncodeToString(h.Sum(nil))
}
