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
	"context"

	c2smodel "github.com/marten-im/marten/pkg/model/c2s"
	"github.com/marten-im/marten/pkg/model/rostermodel"
)

type hosts interface {
	IsLocalHost(h string) bool
}

type broadcaster interface {
	Broadcast(ctx context.Context, ri *rostermodel.Item, hash string) error
}

type resourceManager interface {
	GetResource(ctx context.Context, username, resource string) (c2smodel.ResourceDesc, error)
	GetResources(ctx context.Context, username string) ([]c2smodel.ResourceDesc, error)
	PutResource(ctx context.Context, res c2smodel.ResourceDesc) error
}
