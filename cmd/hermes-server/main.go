// main.go: hermes-server entry point
//
// Copyright (c) 2025 AGILira
// Series: an AGLIra fragment
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jessevdk/go-flags"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/agilira/hermes"
	"github.com/agilira/hermes/server"
	"github.com/agilira/hermes/service"
	"github.com/agilira/hermes/store"
	"github.com/agilira/hermes/worker"
)

// config is the full runtime configuration, parsed from flags and
// environment variables.
type config struct {
	Cache struct {
		Policy  string `long:"policy" env:"POLICY" default:"lru" choice:"lru" choice:"fifo" choice:"random" description:"Eviction policy"`
		Budget  string `long:"budget" env:"BUDGET" default:"2MiB" description:"Approximate cache memory budget"`
		Buckets int    `long:"buckets" env:"BUCKETS" default:"1031" description:"Cache bucket count"`
	} `group:"Cache" namespace:"cache" env-namespace:"HERMES_CACHE"`

	Store struct {
		Driver     string `long:"driver" env:"DRIVER" default:"postgres" choice:"postgres" choice:"sqlite" choice:"none" description:"Persistence backend"`
		Conninfo   string `long:"conninfo" env:"CONNINFO" description:"Connection string (resolved via HERMES_CONNINFO / config file when empty)"`
		ConfigFile string `long:"config" env:"CONFIG" default:"config/db.json" description:"JSON file holding a conninfo key"`
		PoolSize   int    `long:"pool-size" env:"POOL_SIZE" default:"8" description:"Connection pool size"`
		InitSchema bool   `long:"init-schema" env:"INIT_SCHEMA" description:"Create the kv_store table at startup (sqlite)"`
	} `group:"Store" namespace:"store" env-namespace:"HERMES_STORE"`

	Workers int `long:"workers" env:"HERMES_WORKERS" default:"4" description:"Background worker count"`

	HTTP struct {
		Host string `long:"host" env:"HOST" default:"localhost" description:"Listen host"`
		Port int    `long:"port" env:"PORT" default:"2222" description:"Listen port"`
	} `group:"HTTP" namespace:"http" env-namespace:"HERMES_HTTP"`

	Log struct {
		Level  string `long:"level" env:"LEVEL" default:"info" choice:"trace" choice:"debug" choice:"info" choice:"warn" choice:"error" choice:"fatal" description:"Logging level"`
		Format string `long:"format" env:"FORMAT" default:"text" choice:"json" choice:"text" description:"Logging output format"`
	} `group:"Logging" namespace:"log" env-namespace:"HERMES_LOG"`
}

func initLog(level, format string) {
	if format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{})
	}
	if lvl, err := log.ParseLevel(level); err != nil {
		log.WithField("err", err).Fatal("unrecognized log level")
	} else {
		log.SetLevel(lvl)
	}
}

func main() {
	var cfg config
	if _, err := flags.NewParser(&cfg, flags.Default).Parse(); err != nil {
		if flagErr, ok := err.(*flags.Error); ok && flagErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
	initLog(cfg.Log.Level, cfg.Log.Format)

	policy, err := hermes.ParsePolicy(cfg.Cache.Policy)
	if err != nil {
		log.WithField("err", err).Fatal("invalid cache policy")
	}
	budget, err := humanize.ParseBytes(cfg.Cache.Budget)
	if err != nil {
		log.WithFields(log.Fields{"budget": cfg.Cache.Budget, "err": err}).
			Fatal("invalid cache budget")
	}
	cache := hermes.New(hermes.Config{
		Policy:      policy,
		MaxBytes:    int64(budget),
		BucketCount: cfg.Cache.Buckets,
	})

	ctx := context.Background()

	var (
		provider store.Provider
		pool     *store.Pool
	)
	switch cfg.Store.Driver {
	case "none":
		log.Warn("running without persistence; the cache is the only store")
	default:
		dialect, err := store.DialectFor(cfg.Store.Driver)
		if err != nil {
			log.WithField("err", err).Fatal("invalid store driver")
		}
		dsn := cfg.Store.Conninfo
		if dsn == "" {
			dsn = store.LoadConninfo(cfg.Store.ConfigFile, store.DefaultConninfo)
		}
		// An unreachable store at startup is fatal by design.
		pool, err = store.NewPool(ctx, store.PoolConfig{
			Dialect:    dialect,
			DSN:        dsn,
			Size:       cfg.Store.PoolSize,
			InitSchema: cfg.Store.InitSchema,
		})
		if err != nil {
			log.WithField("err", err).Fatal("failed to open persistence backend")
		}
		provider = store.NewEngine(pool)
	}

	workers := worker.NewPool(cfg.Workers)
	svc := service.New(cache, provider, workers)
	srv := server.New(server.Config{Host: cfg.HTTP.Host, Port: cfg.HTTP.Port}, svc, pool)

	log.WithFields(log.Fields{
		"addr":   cfg.HTTP.Host,
		"port":   cfg.HTTP.Port,
		"policy": policy.String(),
		"driver": cfg.Store.Driver,
	}).Info("hermes-server starting")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.ListenAndServe)
	g.Go(func() error {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-sigCh:
			log.WithField("signal", sig).Info("shutting down")
		case <-srv.StopRequested():
			log.Info("stop requested over HTTP; shutting down")
		case <-gctx.Done():
			return gctx.Err()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.WithField("err", err).Error("server exited with error")
	}

	workers.Close()
	if pool != nil {
		if err := pool.Close(); err != nil {
			log.WithField("err", err).Warn("closing connection pool")
		}
	}
}
