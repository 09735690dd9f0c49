// Command davfsd serves one or more filesystem directories over WebDAV
// (RFC 4918 level 1/2), wiring mountpoints, the dead-property store, the
// XML engine and the advisory lock manager into an HTTP server: load
// config, connect backing stores, construct services, build the router,
// register routes, serve with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/davfs/davfsd/internal/cache"
	davconfig "github.com/davfs/davfsd/internal/config"
	"github.com/davfs/davfsd/internal/davhttp"
	"github.com/davfs/davfsd/internal/mount"
	"github.com/davfs/davfsd/internal/webdav/lock"
	"github.com/davfs/davfsd/internal/webdav/property"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := davconfig.Load(os.Args[1:])
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	mounts, err := mount.NewTable(cfg.MountpointMap())
	if err != nil {
		logger.Fatalf("failed to build mountpoint table: %v", err)
	}
	logger.WithField("count", mounts.Len()).Info("mountpoints loaded")

	lockCache, err := buildLockCache(cfg, logger)
	if err != nil {
		logger.Fatalf("failed to build lock cache: %v", err)
	}

	handler := &davhttp.Handler{
		Mounts: mounts,
		Props:  property.NewStore(),
		Locks:  lock.NewManager(lockCache, cfg.MaxLockTimeout),
		Dirlist: davhttp.DirlistOptions{
			CSS:            cfg.CSS,
			JavaScript:     cfg.JavaScript,
			ClassDirectory: cfg.ClassDirectory,
			Div:            cfg.Div,
		},
	}

	router := davhttp.NewRouter(handler, logger)

	srv := &http.Server{
		Addr:           cfg.Address,
		Handler:        router,
		ReadTimeout:    15 * time.Minute,
		WriteTimeout:   15 * time.Minute,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		logger.Infof("serving WebDAV on %s", cfg.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatalf("server forced to shutdown: %v", err)
	}
	logger.Info("exited")
}

// buildLockCache selects the cache backend per cfg.LockCache, optionally
// wrapping it with sqlite-backed snapshot persistence so locks survive a
// restart. A redis connection failure at startup is logged and the
// server falls back to the in-memory backend rather than refusing to
// start. A configured snapshot store that cannot be opened is returned
// as an error.
func buildLockCache(cfg *davconfig.Config, logger *logrus.Logger) (cache.Cache, error) {
	var backing cache.Cache

	switch cfg.LockCache {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddress})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Warn("redis unreachable, falling back to in-memory lock cache")
			backing = cache.NewMemory(time.Minute)
		} else {
			logger.Info("connected to redis lock cache")
			backing = cache.NewRedis(client)
		}
	default:
		backing = cache.NewMemory(time.Minute)
	}

	if cfg.SnapshotPath == "" {
		return backing, nil
	}

	store, err := cache.NewSnapshotStore(cfg.SnapshotPath)
	if err != nil {
		return nil, err
	}
	snapshotting := cache.NewSnapshotting(backing, store)
	if err := snapshotting.LoadInto(context.Background()); err != nil {
		logger.WithError(err).Warn("failed to restore lock snapshot")
	} else {
		logger.Info("restored lock snapshot")
	}
	return snapshotting, nil
}
