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

package c2s

import (
	"context"

	"github.com/jackal-xmpp/stravaganza/v2"
	streamerror "github.com/jackal-xmpp/stravaganza/v2/errors/stream"

	c2smodel "github.com/marten-im/marten/pkg/model/c2s"
	"github.com/marten-im/marten/pkg/router/stream"
)

type localRouter interface {
	Route(stanza stravaganza.Stanza, username, resource string) error
	Disconnect(username, resource string, streamErr *streamerror.Error) error

	Register(stm stream.C2S) error
	Bind(id stream.C2SID) (stream.C2S, error)
	Unregister(stm stream.C2S) error

	Stream(username, resource string) stream.C2S

	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type resourceManager interface {
	PutResource(ctx context.Context, res c2smodel.ResourceDesc) error
	GetResources(ctx context.Context, username string) ([]c2smodel.ResourceDesc, error)
	DelResource(ctx context.Context, username, resource string) error
}
