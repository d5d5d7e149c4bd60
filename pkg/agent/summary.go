package agent

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/smartchat/smartchat-go/pkg/extractor"
)

// UnknownUser is the profile summary of an identifier without a profile.
const UnknownUser = "Utilisateur inconnu"

// ProfileSummary renders the profile of the user behind identifier.
func (a *Agent) ProfileSummary(identifier string) string {
	userID := DeriveUserID(identifier)
	p, ok := a.store.GetProfile(userID)
	if !ok {
		return UnknownUser
	}

	phase := "Terminée"
	if p.LearningPhase {
		phase = "En cours"
	}

	var b strings.Builder
	b.WriteString("PROFIL UTILISATEUR\n")
	b.WriteString("==================\n")
	fmt.Fprintf(&b, "ID: %s\n", userID)
	fmt.Fprintf(&b, "Première rencontre: %s\n", p.CreatedAt.DateString())
	fmt.Fprintf(&b, "Dernière activité: %s\n", p.LastActiveAt.DateString())
	fmt.Fprintf(&b, "Messages échangés: %d\n", p.TotalMessages)
	fmt.Fprintf(&b, "Phase d'apprentissage: %s\n", phase)
	b.WriteString("\nINFORMATIONS PERSONNELLES:\n")

	keys := lo.Keys(map[string]interface{}(p.BasicInfo))
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&b, "   • %s: %s\n", extractor.TitleCase(key), p.BasicInfo.String(key))
	}
	return strings.TrimSpace(b.String())
}
