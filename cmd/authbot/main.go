package main

import (
	"authbot/internal/accounts"
	"authbot/internal/api"
	"authbot/internal/authcache"
	"authbot/internal/backends"
	"authbot/internal/config"
	"authbot/internal/faq"
	"authbot/internal/flow"
	"authbot/internal/pub"
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables
	config.LoadEnvFile()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg.SetupLogging()

	ctx := context.Background()

	// The store never fails to build; an unreachable backend only means cache misses.
	store := backends.StoreFromConfig(ctx, cfg.Cache)
	defer func() {
		if err := store.Close(); err != nil {
			log.WithError(err).Error("Failed to close cache store")
		} else {
			log.Info("Cache store closed")
		}
	}()

	cache := authcache.NewService(store, cfg.Cache.PhoneTTL, cfg.Cache.AuthLinkTTL)

	client, err := accounts.NewClient(accounts.Options{
		BaseURL:   cfg.API.BaseURL,
		Login:     cfg.API.Login,
		Password:  cfg.API.Password,
		LinkField: cfg.API.LinkField,
		Timeout:   cfg.API.Timeout,
	})
	if err != nil {
		log.Fatalf("Failed to create account service client: %v", err)
	}

	catalog, err := faq.LoadFile(cfg.FAQFile)
	if err != nil {
		log.Fatalf("Failed to load FAQ: %v", err)
	}
	log.WithField("themes", len(catalog.Themes())).Info("FAQ loaded")

	orchestrator := flow.NewOrchestrator(cache, client, cache.AuthLinkTTL(),
		flow.WithPublisher(pub.FromConfig(ctx, cfg.Events), cfg.Events.TopicArn),
	)

	handler := api.NewHandler(orchestrator, catalog, cfg.API.ErrorMessage)
	stop, done := api.RunServerInterruptible(cfg.Port, handler)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		log.WithField("signal", s.String()).Info("Shutting down")
		stop <- struct{}{}
		if err := <-done; err != nil {
			log.WithError(err).Error("Server stopped with error")
		}
	case err := <-done:
		if err != nil {
			log.WithError(err).Error("Server stopped with error")
		}
	}
}
