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

package main

import (
	"fmt"
	"os"

	"github.com/marten-im/marten/pkg/marten"
)

func main() {
	m := marten.New(os.Stdout, os.Args)
	if err := m.Run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "marten: %v\n", err)
		os.Exit(1)
	}
}
