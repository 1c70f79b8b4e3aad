package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/axoncache/internal/api"
	"github.com/charlesng35/axoncache/internal/app"
)

// runtimeStack bundles the cache runtime and the admin router served by the process.
type runtimeStack struct {
	Runtime *app.Runtime
	Router  *gin.Engine

	sweeping bool
}

// bootstrapRuntime opens the cache store, starts the background sweeper and builds the router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(log)
		}
	}()

	// enable gin debug mod
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.Runtime, err = app.NewRuntime(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	if err := stack.Runtime.Cleaner.Start(); err != nil {
		return nil, fmt.Errorf("start cache sweeper: %w", err)
	}
	stack.sweeping = true

	stack.Router, err = api.NewRouter(cfg, stack.Runtime)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown stops the sweeper, runs one final sweep and releases the store.
func (s *runtimeStack) Shutdown(log *zap.Logger) {
	if s == nil || s.Runtime == nil {
		return
	}

	if s.sweeping {
		stopCtx := s.Runtime.Cleaner.Stop()
		<-stopCtx.Done()
		if err := s.Runtime.Cleaner.RunOnce(context.Background()); err != nil {
			log.Warn("cache sweep on shutdown failed", zap.Error(err))
		}
		s.sweeping = false
	}

	if err := s.Runtime.Close(); err != nil {
		log.Warn("cache store shutdown", zap.Error(err))
	}
	s.Runtime = nil
}
