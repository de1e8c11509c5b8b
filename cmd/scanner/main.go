/*
 * Copyright 2026 the AssetRadar Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/assetradar/assetradar/pkg/classify"
	"github.com/assetradar/assetradar/pkg/config"
	"github.com/assetradar/assetradar/pkg/fingerprint"
	"github.com/assetradar/assetradar/pkg/logger"
	"github.com/assetradar/assetradar/pkg/models"
	"github.com/assetradar/assetradar/pkg/pipeline"
	"github.com/assetradar/assetradar/pkg/protocols"
	"github.com/assetradar/assetradar/pkg/sink"
)

func main() {
	if err := run(); err != nil {
		stdlog.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "", "Path to scanner config file (JSON or YAML)")
	targets := flag.String("targets", "", "Comma-separated targets, overrides the config file")
	dbPath := flag.String("db", "", "SQLite database path; in-memory store when empty")
	useNmap := flag.Bool("nmap", false, "Enable nmap OS fingerprinting")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig(ctx, *configPath, *targets)
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Debug:  cfg.Logging.Debug,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	store, err := openStore(*dbPath)
	if err != nil {
		return fmt.Errorf("failed to open device store: %w", err)
	}

	resultSink := sink.New(store, log)
	defer func() {
		_ = resultSink.Close()
		_ = store.Close()
	}()

	classifier := classify.New(buildFingerprintProbe(*useNmap, cfg, log), log)

	p, err := pipeline.New(cfg, classifier, buildClients(cfg, log), resultSink, log)
	if err != nil {
		return err
	}

	stats, err := p.Run(ctx)
	if err != nil {
		return err
	}

	return printSummary(stats)
}

func loadConfig(ctx context.Context, path, targets string) (models.Config, error) {
	var cfg models.Config

	if path != "" {
		loader := config.NewConfig(nil)
		if err := loader.Load(ctx, path, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to load config: %w", err)
		}
	}

	// The flag overlay happens before validation so -targets can both
	// supplement a targetless config file and be checked itself.
	if targets != "" {
		cfg.Targets = strings.Split(targets, ",")
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func openStore(dbPath string) (sink.DeviceStore, error) {
	if dbPath == "" {
		return sink.NewInMemoryStore(), nil
	}

	return sink.NewSQLiteStore(dbPath)
}

func buildFingerprintProbe(useNmap bool, cfg models.Config, log logger.Logger) classify.FingerprintProbe {
	community := cfg.Credentials[models.ProtocolNetworkManagement].Community

	chain := fingerprint.Chain{}
	if useNmap {
		chain = append(chain, fingerprint.NewNmapProbe(cfg.TaskDeadline, log))
	}

	chain = append(chain, fingerprint.NewSysDescrProbe(community, cfg.ProbeTimeout*4))

	return chain
}

func buildClients(cfg models.Config, log logger.Logger) protocols.Set {
	timeout := cfg.TaskDeadline
	if timeout == 0 {
		timeout = models.DefaultTaskDeadline
	}

	return protocols.Set{
		models.ProtocolWindowsManagement: protocols.NewWinRMClient(timeout, log),
		models.ProtocolUnixShell:         protocols.NewSSHClient(timeout, log),
		models.ProtocolNetworkManagement: protocols.NewSNMPClient(timeout, log),
		models.ProtocolHTTPProbe:         protocols.NewHTTPProbeClient(timeout, log),
	}
}

func printSummary(stats models.PipelineStats) error {
	summary := struct {
		models.PipelineStats
		Duration string `json:"duration"`
	}{
		PipelineStats: stats,
		Duration:      stats.FinishedAt.Sub(stats.StartedAt).Round(time.Millisecond).String(),
	}

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(out))

	return nil
}
