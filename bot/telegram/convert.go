package telegram

import (
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	contractx "github.com/inmobot/inmobot/bot/contract"
)

// ToEvent converts an update into a chat event. Updates without a sender or
// chat (channel posts, inline callbacks) are skipped.
func ToEvent(update tgbotapi.Update, now time.Time) (contractx.Event, bool) {
	if cq := update.CallbackQuery; cq != nil {
		if cq.From == nil || cq.Message == nil || cq.Message.Chat == nil {
			return contractx.Event{}, false
		}
		return contractx.Event{
			Kind:       contractx.EventCallback,
			ChatID:     cq.Message.Chat.ID,
			User:       toUser(cq.From),
			Data:       cq.Data,
			MessageID:  cq.Message.MessageID,
			CallbackID: cq.ID,
			ReceivedAt: now.UTC(),
		}, true
	}

	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return contractx.Event{}, false
	}

	ev := contractx.Event{
		Kind:       contractx.EventText,
		ChatID:     msg.Chat.ID,
		User:       toUser(msg.From),
		Text:       msg.Text,
		MessageID:  msg.MessageID,
		ReceivedAt: now.UTC(),
	}
	if msg.Date > 0 {
		ev.ReceivedAt = msg.Time().UTC()
	}
	if msg.IsCommand() {
		ev.Kind = contractx.EventCommand
		ev.Command = msg.Command()
		ev.Text = msg.CommandArguments()
	}
	return ev, true
}

func toUser(u *tgbotapi.User) contractx.User {
	return contractx.User{
		ID:        u.ID,
		Username:  u.UserName,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

// Render builds the outgoing message, or a message edit when the reply
// targets an existing message.
func Render(reply contractx.Reply, chatID int64) tgbotapi.Chattable {
	if reply.EditMessageID > 0 {
		edit := tgbotapi.NewEditMessageText(chatID, reply.EditMessageID, reply.Text)
		edit.ParseMode = string(reply.ParseMode)
		if len(reply.Buttons) > 0 {
			markup := inlineKeyboard(reply.Buttons)
			edit.ReplyMarkup = &markup
		}
		return edit
	}

	msg := tgbotapi.NewMessage(chatID, reply.Text)
	msg.ParseMode = string(reply.ParseMode)
	if len(reply.Buttons) > 0 {
		msg.ReplyMarkup = inlineKeyboard(reply.Buttons)
	}
	return msg
}

func inlineKeyboard(rows [][]contractx.Button) tgbotapi.InlineKeyboardMarkup {
	kb := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
		}
		kb = append(kb, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(kb...)
}
