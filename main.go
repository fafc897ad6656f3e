package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/inmobot/inmobot/bot/completion"
	"github.com/inmobot/inmobot/bot/dialogue"
	"github.com/inmobot/inmobot/bot/telegram"
	configx "github.com/inmobot/inmobot/pkg/config"
	"github.com/inmobot/inmobot/pkg/llmclient"
	logx "github.com/inmobot/inmobot/pkg/logger"
	"github.com/inmobot/inmobot/pkg/metrics"
	"github.com/inmobot/inmobot/pkg/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
)

func main() {
	logCfg := configx.MustNew[logx.Config]("LOG")
	logx.Init(*logCfg)

	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("inmobot stopped")
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tgCfg, err := configx.New[telegram.Config]("TELEGRAM")
	if err != nil {
		return err
	}
	llmCfg, err := configx.New[llmclient.Config]("COMPLETION")
	if err != nil {
		return err
	}
	botCfg, err := configx.New[dialogue.Config]("BOT")
	if err != nil {
		return err
	}
	httpCfg, err := configx.New[server.Config]("HTTP")
	if err != nil {
		return err
	}
	storageCfg, err := configx.New[StorageConfig]("")
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	dialogueMetrics := metrics.NewDialogueMetrics(registry)

	leads, closeLeads, err := buildLeadStore(ctx, *storageCfg)
	if err != nil {
		return err
	}
	defer closeLeads()

	sessions, err := buildSessionStore(*storageCfg)
	if err != nil {
		return err
	}

	completer := completion.New(llmclient.NewClient(*llmCfg), *llmCfg, loadPersona(), completion.WithMetrics(dialogueMetrics))
	if completer.Degraded() {
		log.Warn().Msg("COMPLETION_API_KEY not set, free text gets the canned reply")
	}

	orch, err := dialogue.New(dialogue.Deps{
		Leads:     leads,
		Sessions:  sessions,
		Completer: completer,
		Notifier:  buildNotifier(),
		Metrics:   dialogueMetrics,
	}, *botCfg)
	if err != nil {
		return err
	}

	api, err := telegram.NewBotAPI(*tgCfg)
	if err != nil {
		return err
	}
	log.Info().Str("bot", api.Self.UserName).Msg("telegram authorized")

	transport, err := telegram.NewTransport(api, orch, *tgCfg)
	if err != nil {
		return err
	}

	serverErr := make(chan error, 1)
	if httpCfg.Addr != "" {
		go func() {
			serverErr <- server.Run(ctx, httpCfg.Addr, server.NewRouter(registry))
		}()
	}

	pollErr := transport.Run(ctx)
	stop()

	if httpCfg.Addr != "" {
		if err := <-serverErr; err != nil {
			log.Error().Err(err).Msg("ops server stopped with error")
		}
	}
	return pollErr
}
