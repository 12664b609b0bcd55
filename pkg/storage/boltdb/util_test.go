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

package boltdb

import (
	"fmt"
	"testing"

	kitlog "github.com/go-kit/log"
	bolt "go.etcd.io/bbolt"
)

func setupRepository(t *testing.T, maxRosterSize int) *Repository {
	t.Helper()

	dbPath := fmt.Sprintf("%s/test.db", t.TempDir())
	db, err := bolt.Open(dbPath, 0666, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return &Repository{
		cfg:    Config{Path: dbPath, MaxRosterSize: maxRosterSize},
		db:     db,
		logger: kitlog.NewNopLogger(),
	}
}
