package dialoguenode

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/inmobot/inmobot/bot/contract"
	leadx "github.com/inmobot/inmobot/bot/lead"
	promptx "github.com/inmobot/inmobot/bot/prompt"
)

const (
	CommandStart = "start"
	CommandHelp  = "help"
)

// ApplyEvent routes the event by kind and session step and fills in.Reply.
// Store and completion failures are turned into replies here; only
// programming errors are returned.
func ApplyEvent(ctx context.Context, in *GraphState, deps Deps) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	switch in.Event.Kind {
	case contractx.EventCommand:
		switch strings.ToLower(in.Event.Command) {
		case CommandStart:
			handleStart(ctx, in, deps)
		case CommandHelp:
			in.Reply = contractx.Reply{Text: deps.Prompts.Help, ParseMode: contractx.ParseMarkdown}
		default:
			handleText(ctx, in, deps, commandText(in.Event))
		}
	case contractx.EventCallback:
		handleCallback(ctx, in, deps)
	case contractx.EventText:
		handleText(ctx, in, deps, in.Event.Text)
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", contractx.ErrInvalidEvent, in.Event.Kind)
	}

	return in, nil
}

func commandText(ev contractx.Event) string {
	text := "/" + ev.Command
	if args := strings.TrimSpace(ev.Text); args != "" {
		text += " " + args
	}
	return text
}

// ClientTypeButtons is the start menu, one button per row.
func ClientTypeButtons() [][]contractx.Button {
	return contractx.ButtonColumn(
		contractx.Button{Label: promptx.ButtonBuyer, Data: string(leadx.ClientBuyer)},
		contractx.Button{Label: promptx.ButtonInvestor, Data: string(leadx.ClientInvestor)},
		contractx.Button{Label: promptx.ButtonAdvisory, Data: string(leadx.ClientAdvisory)},
	)
}

func genericError() contractx.Reply {
	return contractx.Reply{Text: promptx.GenericError}
}
