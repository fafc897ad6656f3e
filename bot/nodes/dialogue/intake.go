package dialoguenode

import (
	"context"
	"errors"
	"strings"

	contractx "github.com/inmobot/inmobot/bot/contract"
	leadx "github.com/inmobot/inmobot/bot/lead"
	promptx "github.com/inmobot/inmobot/bot/prompt"
	statex "github.com/inmobot/inmobot/bot/state"
	"github.com/rs/zerolog/log"
)

// handleStart resets the script, registers unknown users and shows the menu.
func handleStart(ctx context.Context, in *GraphState, deps Deps) {
	if !in.Session.IsIdle() {
		in.Session.Reset(in.Now)
		in.Dirty = true
	}

	u := in.Event.User
	_, err := deps.Leads.Read(ctx, u.ID)
	deps.observeLead("read", u.ID, err)
	if errors.Is(err, leadx.ErrLeadNotFound) {
		_, err = leadx.Register(ctx, deps.Leads, u.ID, u.Username, u.FirstName, u.LastName, in.Event.ReceivedAt)
		deps.observeLead("create", u.ID, err)
	}

	in.Reply = contractx.Reply{
		Text:    deps.Prompts.WelcomeFor(u.FirstName),
		Buttons: ClientTypeButtons(),
	}
}

func handleCallback(ctx context.Context, in *GraphState, deps Deps) {
	data := strings.TrimSpace(in.Event.Data)

	if ct, ok := leadx.ParseClientType(data); ok {
		selectClientType(ctx, in, deps, ct)
		return
	}
	if zone, ok := ParseZone(data, deps.Zones); ok {
		selectZone(ctx, in, deps, zone)
		return
	}

	log.Debug().Int64("user_id", in.Event.User.ID).Str("data", data).Msg("unrecognized callback")
	in.Reply = contractx.Reply{Text: promptx.UnknownOption}
}

// selectClientType starts (or restarts) the intake with a provisional row.
func selectClientType(ctx context.Context, in *GraphState, deps Deps, ct leadx.ClientType) {
	u := in.Event.User
	_, err := deps.Leads.Upsert(ctx, leadx.Lead{
		TelegramID: u.ID,
		Username:   u.Username,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		ClientType: ct,
		UpdatedAt:  in.Now,
	})
	deps.observeLead("upsert", u.ID, err)
	if err != nil {
		in.Reply = genericError()
		return
	}

	in.Session.Advance(statex.AwaitingName{ClientType: ct}, in.Now)
	in.Dirty = true
	in.Reply = contractx.Reply{
		Text:          modeIntro(deps.Prompts, ct) + "\n\n" + promptx.AskFullName,
		ParseMode:     contractx.ParseMarkdown,
		EditMessageID: in.Event.MessageID,
	}
}

func selectZone(ctx context.Context, in *GraphState, deps Deps, zone string) {
	u := in.Event.User
	_, err := deps.Leads.Update(ctx, u.ID, leadx.Patch{Location: leadx.Str(zone)})
	deps.observeLead("update", u.ID, err)
	if errors.Is(err, leadx.ErrLeadNotFound) {
		_, err = deps.Leads.Upsert(ctx, leadx.Lead{
			TelegramID: u.ID,
			Username:   u.Username,
			FirstName:  u.FirstName,
			LastName:   u.LastName,
			Location:   zone,
			UpdatedAt:  in.Now,
		})
		deps.observeLead("upsert", u.ID, err)
	}
	if err != nil {
		in.Reply = genericError()
		return
	}

	in.Reply = ZoneSavedReply(zone, in.Event.MessageID)
}

func handleText(ctx context.Context, in *GraphState, deps Deps, raw string) {
	text := strings.TrimSpace(raw)
	if text == "" {
		in.Reply = contractx.Reply{Text: promptx.EmptyText}
		return
	}

	switch step := in.Session.Step.(type) {
	case statex.AwaitingName:
		in.Session.Advance(statex.AwaitingPhone{ClientType: step.ClientType, FullName: text}, in.Now)
		in.Dirty = true
		in.Reply = contractx.Reply{Text: promptx.AskPhone, ParseMode: contractx.ParseMarkdown}
	case statex.AwaitingPhone:
		in.Session.Advance(statex.AwaitingEmail{ClientType: step.ClientType, FullName: step.FullName, Phone: text}, in.Now)
		in.Dirty = true
		in.Reply = contractx.Reply{Text: promptx.AskEmail, ParseMode: contractx.ParseMarkdown}
	case statex.AwaitingEmail:
		completeIntake(ctx, in, deps, step, text)
	default:
		reply, _ := deps.Completer.Reply(ctx, raw, in.Event.User.ID)
		in.Reply = contractx.Reply{Text: reply}
	}
}

// completeIntake writes the collected contact fields in one update. On
// failure the session stays at AwaitingEmail so the user can resend.
func completeIntake(ctx context.Context, in *GraphState, deps Deps, step statex.AwaitingEmail, email string) {
	u := in.Event.User
	saved, err := deps.Leads.Update(ctx, u.ID, leadx.Patch{
		FullName: leadx.Str(step.FullName),
		Phone:    leadx.Str(step.Phone),
		Email:    leadx.Str(email),
	})
	deps.observeLead("update", u.ID, err)
	if errors.Is(err, leadx.ErrLeadNotFound) {
		saved, err = deps.Leads.Upsert(ctx, leadx.Lead{
			TelegramID: u.ID,
			Username:   u.Username,
			FirstName:  u.FirstName,
			LastName:   u.LastName,
			ClientType: step.ClientType,
			FullName:   step.FullName,
			Phone:      step.Phone,
			Email:      email,
			UpdatedAt:  in.Now,
		})
		deps.observeLead("upsert", u.ID, err)
	}
	if err != nil {
		in.Reply = genericError()
		return
	}

	in.Session.Reset(in.Now)
	in.Dirty = true
	deps.Metrics.ObserveIntakeCompleted()
	log.Info().
		Int64("user_id", u.ID).
		Str("client_type", string(step.ClientType)).
		Msg("intake completed")

	if saved != nil {
		deps.notify(ctx, *saved, in.Now)
	}

	in.Reply = contractx.Reply{
		Text:    promptx.AskZone,
		Buttons: ZoneButtons(deps.Zones),
	}
}

func modeIntro(p promptx.PromptSet, ct leadx.ClientType) string {
	switch ct {
	case leadx.ClientInvestor:
		return p.Investor
	case leadx.ClientAdvisory:
		return p.Advisory
	default:
		return p.Buyer
	}
}
