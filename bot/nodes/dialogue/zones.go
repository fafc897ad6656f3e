package dialoguenode

import (
	"fmt"
	"strconv"
	"strings"

	contractx "github.com/inmobot/inmobot/bot/contract"
	promptx "github.com/inmobot/inmobot/bot/prompt"
)

// Zone buttons carry "zona:<index>" so long labels stay within Telegram's
// 64-byte callback data limit.
const zonePrefix = "zona:"

// DefaultZones is the Florida zone menu shown after the email step.
var DefaultZones = []string{
	"Miami-Dade",
	"Broward (Fort Lauderdale)",
	"Palm Beach",
	"Orlando",
	"Tampa Bay",
	"Jacksonville",
	"Naples",
	"Sarasota",
}

func ZoneData(index int) string {
	return zonePrefix + strconv.Itoa(index)
}

// ParseZone maps callback data back to its zone label.
func ParseZone(data string, zones []string) (string, bool) {
	raw, ok := strings.CutPrefix(data, zonePrefix)
	if !ok {
		return "", false
	}
	idx, err := strconv.Atoi(raw)
	if err != nil || idx < 0 || idx >= len(zones) {
		return "", false
	}
	return zones[idx], true
}

// ZoneButtons lays the zones out two per row.
func ZoneButtons(zones []string) [][]contractx.Button {
	rows := make([][]contractx.Button, 0, (len(zones)+1)/2)
	for i := 0; i < len(zones); i += 2 {
		row := []contractx.Button{{Label: zones[i], Data: ZoneData(i)}}
		if i+1 < len(zones) {
			row = append(row, contractx.Button{Label: zones[i+1], Data: ZoneData(i + 1)})
		}
		rows = append(rows, row)
	}
	return rows
}

// ZoneSavedReply confirms the chosen zone. Labels carrying legacy Markdown
// markers are sent as plain text, otherwise Telegram rejects the edit.
func ZoneSavedReply(zone string, editMessageID int) contractx.Reply {
	if strings.ContainsAny(zone, "_*`[") {
		return contractx.Reply{
			Text:          fmt.Sprintf(strings.ReplaceAll(promptx.ZoneSaved, "*", ""), zone),
			EditMessageID: editMessageID,
		}
	}
	return contractx.Reply{
		Text:          fmt.Sprintf(promptx.ZoneSaved, zone),
		ParseMode:     contractx.ParseMarkdown,
		EditMessageID: editMessageID,
	}
}
