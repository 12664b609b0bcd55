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
	"bytes"
	"encoding/gob"
)

// MarshalBinary satisfies model.Codec interface.
func (ri *Item) MarshalBinary() ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	ri.ToGob(gob.NewEncoder(buf))
	return buf.Bytes(), nil
}

// UnmarshalBinary satisfies model.Codec interface.
func (ri *Item) UnmarshalBinary(b []byte) error {
	return ri.FromGob(gob.NewDecoder(bytes.NewReader(b)))
}

// MarshalBinary satisfies model.Codec interface.
func (rn *Notification) MarshalBinary() ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	rn.ToGob(gob.NewEncoder(buf))
	return buf.Bytes(), nil
}

// UnmarshalBinary satisfies model.Codec interface.
func (rn *Notification) UnmarshalBinary(b []byte) error {
	return rn.FromGob(gob.NewDecoder(bytes.NewReader(b)))
}

// MarshalBinary satisfies model.Codec interface.
//
// The binary form is the flat roster blob: all per-entry records written
// out as a single concatenation.
func (r *Roster) MarshalBinary() ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	enc := gob.NewEncoder(buf)
	_ = enc.Encode(&r.Username)
	_ = enc.Encode(&r.Hash)
	ln := len(r.Items)
	_ = enc.Encode(&ln)
	for _, ri := range r.Items {
		ri.ToGob(enc)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary satisfies model.Codec interface.
func (r *Roster) UnmarshalBinary(b []byte) error {
	dec := gob.NewDecoder(bytes.NewReader(b))
	if err := dec.Decode(&r.Username); err != nil {
		return err
	}
	if err := dec.Decode(&r.Hash); err != nil {
		return err
	}
	var ln int
	if err := dec.Decode(&ln); err != nil {
		return err
	}
	r.Items = nil
	for i := 0; i < ln; i++ {
		var ri Item
		if err := ri.FromGob(dec); err != nil {
			return err
		}
		r.Items = append(r.Items, &ri)
	}
	return nil
}

// Notifications groups a set of roster notification entities.
type Notifications struct {
	Notifications []*Notification
}

// MarshalBinary satisfies model.Codec interface.
func (rns *Notifications) MarshalBinary() ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	enc := gob.NewEncoder(buf)
	ln := len(rns.Notifications)
	_ = enc.Encode(&ln)
	for _, rn := range rns.Notifications {
		rn.ToGob(enc)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary satisfies model.Codec interface.
func (rns *Notifications) UnmarshalBinary(b []byte) error {
	dec := gob.NewDecoder(bytes.NewReader(b))
	var ln int
	if err := dec.Decode(&ln); err != nil {
		return err
	}
	rns.Notifications = nil
	for i := 0; i < ln; i++ {
		var rn Notification
		if err := rn.FromGob(dec); err != nil {
			return err
		}
		rns.Notifications = append(rns.Notifications, &rn)
	}
	return nil
}

// Groups wraps a roster group name set.
type Groups struct {
	Groups []string
}

// MarshalBinary satisfies model.Codec interface.
func (g *Groups) MarshalBinary() ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := gob.NewEncoder(buf).Encode(&g.Groups); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary satisfies model.Codec interface.
func (g *Groups) UnmarshalBinary(b []byte) error {
	return gob.NewDecoder(bytes.NewReader(b)).Decode(&g.Groups)
}
