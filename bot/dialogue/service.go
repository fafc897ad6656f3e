package dialogue

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	contractx "github.com/inmobot/inmobot/bot/contract"
	leadx "github.com/inmobot/inmobot/bot/lead"
	nodex "github.com/inmobot/inmobot/bot/nodes/dialogue"
	promptx "github.com/inmobot/inmobot/bot/prompt"
	statex "github.com/inmobot/inmobot/bot/state"
	"github.com/inmobot/inmobot/pkg/metrics"
	"github.com/rs/zerolog/log"
)

// Config is read from BOT_*.
type Config struct {
	Zones []string `envconfig:"ZONES" default:"Miami-Dade,Broward (Fort Lauderdale),Palm Beach,Orlando,Tampa Bay,Jacksonville,Naples,Sarasota"`
}

func (c Config) Validate() error {
	for _, z := range c.Zones {
		if strings.TrimSpace(z) == "" {
			return errors.New("zone labels must not be blank")
		}
	}
	return nil
}

// Deps are the adapters the orchestrator is built from. Notifier and
// Metrics are optional.
type Deps struct {
	Leads     leadx.Store
	Sessions  statex.Store
	Completer contractx.Completer
	Notifier  nodex.Notifier
	Metrics   *metrics.DialogueMetrics
}

type Orchestrator struct {
	sessions statex.Store
	deps     nodex.Deps
	metrics  *metrics.DialogueMetrics

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	now func() time.Time
}

type Option func(*Orchestrator)

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

func New(deps Deps, cfg Config, opts ...Option) (*Orchestrator, error) {
	if deps.Leads == nil {
		return nil, errors.New("lead store is required")
	}
	if deps.Sessions == nil {
		return nil, errors.New("session store is required")
	}
	if deps.Completer == nil {
		return nil, errors.New("completer is required")
	}

	zones := make([]string, 0, len(cfg.Zones))
	for _, z := range cfg.Zones {
		if z = strings.TrimSpace(z); z != "" {
			zones = append(zones, z)
		}
	}
	if len(zones) == 0 {
		zones = append(zones, nodex.DefaultZones...)
	}

	o := &Orchestrator{
		sessions: deps.Sessions,
		deps: nodex.Deps{
			Leads:     deps.Leads,
			Completer: deps.Completer,
			Prompts:   promptx.LoadPromptSet(),
			Zones:     zones,
			Notifier:  deps.Notifier,
			Metrics:   deps.Metrics,
		},
		metrics: deps.Metrics,
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	graphRunner, err := o.compileHandleEventGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// HandleEvent runs one chat event through the dialogue graph. Only invalid
// events return an error; every other failure is logged and answered with
// the generic error reply.
func (o *Orchestrator) HandleEvent(ctx context.Context, ev contractx.Event) (contractx.Reply, error) {
	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{Event: ev})
	if err != nil {
		if errors.Is(err, contractx.ErrInvalidEvent) {
			o.metrics.ObserveEvent(string(ev.Kind), "invalid")
			return contractx.Reply{}, err
		}
		log.Error().
			Err(err).
			Int64("chat_id", ev.ChatID).
			Int64("user_id", ev.User.ID).
			Str("op", "handle_event").
			Str("kind", string(ev.Kind)).
			Msg("dialogue event failed")
		o.metrics.ObserveEvent(string(ev.Kind), "error")
		return contractx.Reply{Text: promptx.GenericError}, nil
	}

	o.metrics.ObserveEvent(string(ev.Kind), "ok")
	return out.Reply, nil
}

// Zones returns the zone labels offered after the email step.
func (o *Orchestrator) Zones() []string {
	return append([]string(nil), o.deps.Zones...)
}

var _ contractx.EventHandler = (*Orchestrator)(nil)
