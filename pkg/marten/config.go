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

package marten

import (
	"path/filepath"

	"github.com/kkyr/fig"

	"github.com/marten-im/marten/pkg/cluster/kv"
	"github.com/marten-im/marten/pkg/host"
	"github.com/marten-im/marten/pkg/module/roster"
	"github.com/marten-im/marten/pkg/storage"
)

// LoggerConfig defines logger configuration.
type LoggerConfig struct {
	Level  string `fig:"level" default:"debug"`
	Format string `fig:"format"`
}

// ClusterConfig defines cluster configuration.
type ClusterConfig struct {
	KV kv.Config `fig:"kv"`
}

// ModulesConfig defines modules configuration.
type ModulesConfig struct {
	// Roster represents roster module configuration.
	Roster roster.Config `fig:"roster"`
}

// Config defines marten application configuration.
type Config struct {
	Logger  LoggerConfig  `fig:"logger"`
	Cluster ClusterConfig `fig:"cluster"`

	HTTPPort int `fig:"http_port" default:"6060"`

	MemoryBallastSize int `fig:"memory_ballast_size" default:"134217728"`

	Storage storage.Config `fig:"storage"`
	Hosts   host.Config    `fig:"hosts"`
	Modules ModulesConfig  `fig:"modules"`
}

func loadConfig(configFile string) (*Config, error) {
	var cfg Config
	file := filepath.Base(configFile)
	dir := filepath.Dir(configFile)

	err := fig.Load(&cfg, fig.File(file), fig.Dirs(dir))
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}
