// Package state defines shared program state.
package state

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"

	"geocss/config"
	"geocss/resource"
)

type envKey struct{}

// LocalEnv keeps everything program needs in a single place.
type LocalEnv struct {
	Cfg *config.Config
	Rpt *config.Report
	Log *zap.Logger

	// used by convert and legend subcommands
	Format    config.OutputFmt
	NoDirs    bool
	Overwrite bool
	Legend    bool
	Charset   encoding.Encoding // forced stylesheet encoding
	CodePage  encoding.Encoding // non UTF-8 file names in archives
	Base      *url.URL

	loader        *resource.Fetcher
	cache         *resource.Cache
	start         time.Time
	restoreStdLog func()
}

func EnvFromContext(ctx context.Context) *LocalEnv {
	if env, ok := ctx.Value(envKey{}).(*LocalEnv); ok {
		return env
	}
	// this should never happen
	panic("localenv not found in context")
}

func ContextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, newLocalEnv())
}

func (e *LocalEnv) Uptime() time.Duration {
	return time.Since(e.start)
}

func (e *LocalEnv) RedirectStdLog() {
	if e.Log == nil {
		return
	}
	e.restoreStdLog = zap.RedirectStdLog(e.Log)
}

func (e *LocalEnv) RestoreStdLog() {
	if e.Log != nil {
		_ = e.Log.Sync()
	}
	if e.restoreStdLog != nil {
		e.restoreStdLog()
	}
}

// Loader returns fetcher for imported stylesheets and external graphics
// configured from resources section. It is created once and shared by all
// conversions of the run.
func (e *LocalEnv) Loader() (*resource.Fetcher, error) {
	if e.loader != nil {
		return e.loader, nil
	}

	log := e.logger()
	opts := []resource.FetcherOption{}
	if e.Cfg != nil {
		res := e.Cfg.Resources
		if res.Timeout > 0 {
			opts = append(opts, resource.WithTimeout(res.Timeout))
		}
		if res.MaxSize > 0 {
			opts = append(opts, resource.WithMaxSize(res.MaxSize))
		}
		if len(res.User) > 0 {
			opts = append(opts, resource.WithBasicAuth(res.User, res.Password.Reveal()))
		}
		if len(res.Cache.Path) > 0 {
			cache, err := resource.OpenCache(res.Cache.Path, res.Cache.TTL)
			if err != nil {
				return nil, fmt.Errorf("unable to open resource cache: %w", err)
			}
			log.Debug("Using resource cache", zap.String("path", res.Cache.Path), zap.Duration("ttl", res.Cache.TTL))
			e.cache = cache
			opts = append(opts, resource.WithCache(cache))
		}
	}
	e.loader = resource.NewFetcher(log, opts...)
	return e.loader, nil
}

// PurgeCache removes expired entries from resource cache. Nothing happens
// when cache is not configured.
func (e *LocalEnv) PurgeCache() error {
	if _, err := e.Loader(); err != nil {
		return err
	}
	if e.cache == nil {
		return nil
	}
	return e.cache.Purge()
}

// Close releases resources acquired during the run.
func (e *LocalEnv) Close() error {
	if e.cache == nil {
		return nil
	}
	err := e.cache.Close()
	e.cache, e.loader = nil, nil
	return err
}

func (e *LocalEnv) logger() *zap.Logger {
	if e.Log == nil {
		return zap.NewNop()
	}
	return e.Log
}
