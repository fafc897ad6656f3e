// Package telegram connects the dialogue orchestrator to the Telegram Bot
// API through long polling.
package telegram

import (
	"context"
	"errors"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	contractx "github.com/inmobot/inmobot/bot/contract"
	"github.com/rs/zerolog/log"
)

// Config is read from TELEGRAM_*.
type Config struct {
	Token       string `envconfig:"TOKEN" required:"true"`
	Debug       bool   `envconfig:"DEBUG"`
	PollTimeout int    `envconfig:"POLL_TIMEOUT" default:"30"`
}

// API is the part of *tgbotapi.BotAPI the transport uses.
type API interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

func NewBotAPI(cfg Config) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}
	bot.Debug = cfg.Debug
	return bot, nil
}

type Transport struct {
	api         API
	handler     contractx.EventHandler
	pollTimeout int
	now         func() time.Time
}

func NewTransport(api API, handler contractx.EventHandler, cfg Config) (*Transport, error) {
	if api == nil {
		return nil, errors.New("telegram api is required")
	}
	if handler == nil {
		return nil, errors.New("event handler is required")
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 30
	}
	return &Transport{
		api:         api,
		handler:     handler,
		pollTimeout: timeout,
		now:         time.Now,
	}, nil
}

// Run polls updates and handles them one at a time until ctx is done or the
// updates channel closes.
func (t *Transport) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = t.pollTimeout
	updates := t.api.GetUpdatesChan(u)

	log.Info().Int("poll_timeout", t.pollTimeout).Msg("telegram polling started")
	for {
		select {
		case <-ctx.Done():
			t.api.StopReceivingUpdates()
			log.Info().Msg("telegram polling stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			t.handleUpdate(ctx, update)
		}
	}
}

func (t *Transport) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	ev, ok := ToEvent(update, t.now())
	if !ok {
		return
	}

	if ev.Kind == contractx.EventCallback {
		// Stops the client-side loading spinner on the pressed button.
		if _, err := t.api.Request(tgbotapi.NewCallback(ev.CallbackID, "")); err != nil {
			log.Warn().Err(err).Int64("user_id", ev.User.ID).Str("op", "answer_callback").Msg("callback answer failed")
		}
	}

	reply, err := t.handler.HandleEvent(ctx, ev)
	if err != nil {
		log.Warn().Err(err).Int64("chat_id", ev.ChatID).Int("update_id", update.UpdateID).Msg("event dropped")
		return
	}
	if reply.IsEmpty() {
		return
	}

	if _, err := t.api.Send(Render(reply, ev.ChatID)); err != nil {
		log.Error().
			Err(err).
			Int64("chat_id", ev.ChatID).
			Int64("user_id", ev.User.ID).
			Str("op", "send_reply").
			Msg("telegram send failed")
	}
}
