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
	"context"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/jackal-xmpp/sonar"

	"github.com/marten-im/marten/pkg/c2s"
	"github.com/marten-im/marten/pkg/cluster/kv"
	"github.com/marten-im/marten/pkg/host"
	"github.com/marten-im/marten/pkg/log"
	"github.com/marten-im/marten/pkg/module"
	"github.com/marten-im/marten/pkg/module/roster"
	"github.com/marten-im/marten/pkg/router"
	"github.com/marten-im/marten/pkg/storage"
	"github.com/marten-im/marten/pkg/storage/repository"
	"github.com/marten-im/marten/pkg/util/crashreporter"
	"github.com/marten-im/marten/pkg/version"
)

const (
	darwinOpenMax = 10240

	defaultBootstrapTimeout = time.Minute
	defaultShutdownTimeout  = time.Second * 30

	envConfigFile = "MARTEN_CONFIG_FILE"
)

const usageStr = `
Usage: marten [options]
Server Options:
    --config <file>    Configuration file path
Common Options:
    --help             Show this message
`

type starter interface {
	Start(ctx context.Context) error
}

type stopper interface {
	Stop(ctx context.Context) error
}

type startStopper interface {
	starter
	stopper
}

// Marten is the root data structure for Marten.
type Marten struct {
	output io.Writer
	args   []string

	kv kv.KV
	sn *sonar.Sonar

	rep    repository.Repository
	resMng *c2s.ResourceManager

	hosts *host.Hosts

	localRouter *c2s.LocalRouter
	router      router.Router
	brd         *roster.Broadcaster
	mods        *module.Modules

	starters []starter
	stoppers []stopper

	waitStopCh chan os.Signal

	logger kitlog.Logger
}

// New makes a new Marten.
func New(output io.Writer, args []string) *Marten {
	return &Marten{
		output:     output,
		args:       args,
		waitStopCh: make(chan os.Signal, 1),
		kv:         kv.NewNopKV(),
		sn:         sonar.New(),
	}
}

// Run starts Marten running, and blocks until a Marten stops.
func (m *Marten) Run() error {
	rand.Seed(time.Now().UnixNano())

	defer crashreporter.RecoverAndReportPanic()

	fs := flag.NewFlagSet("marten", flag.ExitOnError)
	fs.SetOutput(m.output)

	var configFile string
	var showVersion, showUsage bool

	fs.BoolVar(&showUsage, "help", false, "Show this message")
	fs.BoolVar(&showVersion, "version", false, "Print version information.")
	fs.StringVar(&configFile, "config", "config.yaml", "Configuration file path.")

	fs.Usage = func() {
		_, _ = fmt.Fprintf(m.output, "%s\n", usageStr)
	}
	_ = fs.Parse(m.args[1:])

	// print usage
	if showUsage {
		fs.Usage()
		return nil
	}
	// print version
	if showVersion {
		_, _ = fmt.Fprintf(m.output, "marten version: %v\n", version.Version)
		return nil
	}
	// if present, override config file url with env var
	if envCfgFile := os.Getenv(envConfigFile); len(envCfgFile) > 0 {
		configFile = envCfgFile
	}
	// load configuration
	cfg, err := loadConfig(configFile)
	if err != nil {
		return err
	}
	// init logger
	m.logger = log.NewDefaultLogger(cfg.Logger.Level, cfg.Logger.Format)

	level.Info(m.logger).Log("msg", "marten is starting...",
		"version", version.Version,
		"go_ver", runtime.Version(),
		"go_os", runtime.GOOS,
		"go_arch", runtime.GOARCH,
	)
	// Allocate a block of memory to alter GC behaviour. See https://github.com/golang/go/issues/23044
	ballast := make([]byte, cfg.MemoryBallastSize)
	runtime.KeepAlive(ballast)

	// enable gRPC prometheus histograms
	grpc_prometheus.EnableHandlingTimeHistogram()

	// set maximum opened files limit
	if err := setRLimit(); err != nil {
		return err
	}

	// init cluster KV store
	if err := m.initKVStore(cfg.Cluster.KV); err != nil {
		return err
	}
	// init repository
	if err := m.initRepository(cfg.Storage); err != nil {
		return err
	}
	// init hosts & routers
	m.hosts = host.NewHosts(cfg.Hosts)
	m.initRouters()

	// init modules
	m.initModules(cfg.Modules)

	// init HTTP server
	m.registerStartStopper(newHTTPServer(cfg.HTTPPort, m.logger))

	if err := m.bootstrap(); err != nil {
		return err
	}
	// ...wait for stop signal to shut down
	sig := m.waitForStopSignal()
	level.Info(m.logger).Log("msg", "received stop signal... shutting down...",
		"signal", sig.String(),
	)

	return m.shutdown()
}

func (m *Marten) initKVStore(cfg kv.Config) error {
	if len(cfg.Type) == 0 {
		return nil // single instance setup
	}
	kvs, err := kv.New(cfg, m.logger)
	if err != nil {
		return err
	}
	m.kv = kvs
	m.registerStartStopper(m.kv)
	return nil
}

func (m *Marten) initRepository(cfg storage.Config) error {
	rep, err := storage.New(cfg, m.logger)
	if err != nil {
		return err
	}
	m.rep = rep
	m.registerStartStopper(m.rep)
	return nil
}

func (m *Marten) initRouters() {
	// init shared resource hub
	m.resMng = c2s.NewResourceManager(m.kv, m.logger)
	m.registerStartStopper(m.resMng)

	// init C2S router
	m.localRouter = c2s.NewLocalRouter(m.hosts)
	c2sRouter := c2s.NewRouter(m.localRouter, m.resMng, m.logger)

	// init global router
	m.router = router.New(m.hosts, c2sRouter)
	m.registerStartStopper(m.router)
}

func (m *Marten) initModules(cfg ModulesConfig) {
	m.brd = roster.NewBroadcaster(m.router, m.resMng, m.kv, m.logger)
	m.registerStartStopper(m.brd)

	mods := []module.Module{
		roster.New(cfg.Roster, m.router, m.rep, m.resMng, m.hosts, m.brd, nil, m.sn, m.logger),
	}
	m.mods = module.NewModules(mods, m.hosts, m.router, m.logger)
	m.registerStartStopper(m.mods)
}

func (m *Marten) registerStartStopper(ss startStopper) {
	if ss == nil {
		return
	}
	m.starters = append(m.starters, ss)
	m.stoppers = append([]stopper{ss}, m.stoppers...)
}

func (m *Marten) bootstrap() error {
	// spin up all service subsystems
	ctx, cancel := context.WithTimeout(context.Background(), defaultBootstrapTimeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		// invoke all registered starters...
		for _, s := range m.starters {
			if err := s.Start(ctx); err != nil {
				errCh <- err
				return
			}
		}
		errCh <- nil
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Marten) shutdown() error {
	// wait until shutdown has been completed
	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		// invoke all registered stoppers...
		for _, st := range m.stoppers {
			if err := st.Stop(ctx); err != nil {
				errCh <- err
				return
			}
		}
		errCh <- nil
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Marten) waitForStopSignal() os.Signal {
	signal.Notify(m.waitStopCh, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	return <-m.waitStopCh
}

func setRLimit() error {
	var rLim syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLim); err != nil {
		return err
	}
	if rLim.Cur < rLim.Max {
		switch runtime.GOOS {
		case "darwin":
			// The max file limit is 10240, even though
			// the max returned by Getrlimit is 1<<63-1.
			// This is OPEN_MAX in sys/syslimits.h.
			rLim.Cur = darwinOpenMax
		default:
			rLim.Cur = rLim.Max
		}
		return syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLim)
	}
	return nil
}
