package prompt

import (
	_ "embed"
	"fmt"
	"strings"
)

var (
	//go:embed template/persona.txt
	personaRaw string

	//go:embed template/welcome.txt
	welcomeRaw string

	//go:embed template/help.txt
	helpRaw string

	//go:embed template/buyer.txt
	buyerRaw string

	//go:embed template/investor.txt
	investorRaw string

	//go:embed template/advisory.txt
	advisoryRaw string
)

// PromptSet holds the persona and the long-form chat texts.
type PromptSet struct {
	Persona  string
	Welcome  string
	Help     string
	Buyer    string
	Investor string
	Advisory string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Persona:  strings.TrimSpace(personaRaw),
		Welcome:  strings.TrimSpace(welcomeRaw),
		Help:     strings.TrimSpace(helpRaw),
		Buyer:    strings.TrimSpace(buyerRaw),
		Investor: strings.TrimSpace(investorRaw),
		Advisory: strings.TrimSpace(advisoryRaw),
	}
}

// WelcomeFor renders the greeting for firstName.
func (p PromptSet) WelcomeFor(firstName string) string {
	name := strings.TrimSpace(firstName)
	if name == "" {
		name = "amigo"
	}
	return fmt.Sprintf(p.Welcome, name)
}
