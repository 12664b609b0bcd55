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

package storage

import (
	"fmt"

	kitlog "github.com/go-kit/log"

	boltdbrepository "github.com/marten-im/marten/pkg/storage/boltdb"
	cachedrepository "github.com/marten-im/marten/pkg/storage/cached"
	measuredrepository "github.com/marten-im/marten/pkg/storage/measured"
	"github.com/marten-im/marten/pkg/storage/repository"
)

const boltDBRepositoryType = "boltdb"

// Config contains storage configuration.
type Config struct {
	Type   string                  `fig:"type" default:"boltdb"`
	BoltDB boltdbrepository.Config `fig:"boltdb"`
	Cache  cachedrepository.Config `fig:"cache"`
}

// New returns an initialized repository derived from cfg. All repositories
// are measured; a cache layer is interposed when configured.
func New(cfg Config, logger kitlog.Logger) (repository.Repository, error) {
	if cfg.Type != boltDBRepositoryType {
		return nil, fmt.Errorf("unrecognized repository type: %s", cfg.Type)
	}
	var rep repository.Repository
	rep = boltdbrepository.New(cfg.BoltDB, logger)

	if len(cfg.Cache.Type) > 0 {
		var err error
		rep, err = cachedrepository.New(cfg.Cache, rep, logger)
		if err != nil {
			return nil, err
		}
	}
	return measuredrepository.New(rep), nil
}
