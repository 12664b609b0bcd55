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

package stream

import (
	"context"
	"fmt"

	"github.com/jackal-xmpp/stravaganza/v2"
	streamerror "github.com/jackal-xmpp/stravaganza/v2/errors/stream"
	"github.com/jackal-xmpp/stravaganza/v2/jid"

	c2smodel "github.com/marten-im/marten/pkg/model/c2s"
)

// C2SID type represents a C2S stream unique identifier string.
type C2SID uint64

// String returns C2S identifier string representation.
func (i C2SID) String() string {
	return fmt.Sprintf("c2s:%d", i)
}

// C2S represents a client-to-server XMPP stream.
type C2S interface {
	// ID returns C2S stream identifier.
	ID() C2SID

	// SetInfoValue sets a C2S stream info value.
	SetInfoValue(ctx context.Context, k string, val interface{}) error

	// Info returns C2S stream info set.
	Info() c2smodel.Info

	// JID returns stream associated jid or nil if none is set.
	JID() *jid.JID

	// Username returns stream associated username.
	Username() string

	// Domain returns stream associated domain.
	Domain() string

	// Resource returns stream associated resource.
	Resource() string

	// IsBinded returns whether or not the XMPP stream has completed resource binding.
	IsBinded() bool

	// Presence returns stream associated presence stanza or nil if none is set.
	Presence() *stravaganza.Presence

	// SendElement writes element string representation to the underlying stream transport.
	SendElement(elem stravaganza.Element) <-chan error

	// Disconnect performs disconnection over the stream.
	Disconnect(streamErr *streamerror.Error) <-chan error

	// Done returns a channel that's closed when stream transport and all associated resources have been released.
	Done() <-chan struct{}
}
