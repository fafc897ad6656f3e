package dialoguenode

import (
	"context"
	"errors"
	"time"

	contractx "github.com/inmobot/inmobot/bot/contract"
	leadx "github.com/inmobot/inmobot/bot/lead"
	promptx "github.com/inmobot/inmobot/bot/prompt"
	"github.com/inmobot/inmobot/pkg/metrics"
	"github.com/inmobot/inmobot/pkg/qstash"
	"github.com/rs/zerolog/log"
)

// Notifier receives every lead that finished the intake script.
type Notifier interface {
	Publish(ctx context.Context, payload any) (string, error)
}

// Deps are the collaborators the apply_event node drives.
type Deps struct {
	Leads     leadx.Store
	Completer contractx.Completer
	Prompts   promptx.PromptSet
	Zones     []string
	Notifier  Notifier
	Metrics   *metrics.DialogueMetrics
}

// LeadCompleted is the notifier payload for a finished intake.
type LeadCompleted struct {
	Event       string     `json:"event"`
	Lead        leadx.Lead `json:"lead"`
	CompletedAt time.Time  `json:"completed_at"`
}

// observeLead records a lead store call and logs its failure once.
func (d Deps) observeLead(op string, userID int64, err error) {
	if errors.Is(err, leadx.ErrLeadNotFound) {
		d.Metrics.ObserveLeadOp(op, nil)
		return
	}
	d.Metrics.ObserveLeadOp(op, err)
	if err != nil {
		log.Error().
			Err(err).
			Int64("user_id", userID).
			Str("op", "lead "+op).
			Str("kind", string(contractx.KindOf(err))).
			Msg("lead store call failed")
	}
}

func (d Deps) notify(ctx context.Context, l leadx.Lead, now time.Time) {
	if d.Notifier == nil {
		return
	}
	id, err := d.Notifier.Publish(ctx, LeadCompleted{
		Event:       "lead.completed",
		Lead:        l,
		CompletedAt: now,
	})
	switch {
	case errors.Is(err, qstash.ErrDisabled):
	case err != nil:
		log.Warn().Err(err).Int64("user_id", l.TelegramID).Str("op", "notify").Msg("lead notification failed")
	default:
		log.Debug().Int64("user_id", l.TelegramID).Str("message_id", id).Msg("lead notification published")
	}
}
