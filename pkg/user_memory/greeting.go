package usermemory

import (
	"fmt"
	"strings"
	"time"

	"github.com/smartchat/smartchat-go/pkg/storage"
)

// UnknownUserGreeting asks a new user for their name.
const UnknownUserGreeting = "Bonjour! Je ne vous connais pas encore. Pouvez-vous me dire votre nom?"

// PersonalizedGreeting builds the opening line for userID: a name-based or
// generic greeting, a profession line when known, and a recency line derived
// from the last activity. The recency line is left out when the last
// activity timestamp is missing or unreadable.
func (s *Store) PersonalizedGreeting(userID string) string {
	s.mu.Lock()
	p, ok := s.profiles[userID]
	if !ok {
		s.mu.Unlock()
		return UnknownUserGreeting
	}
	name := firstPresent(p.BasicInfo, "nom", "name")
	profession := firstPresent(p.BasicInfo, "profession", "job")
	lastActive := p.LastActiveAt
	s.mu.Unlock()

	parts := make([]string, 0, 3)
	if name != "" {
		parts = append(parts, fmt.Sprintf("Bonjour %s!", name))
	} else {
		parts = append(parts, "Re-bonjour!")
	}
	if profession != "" {
		parts = append(parts, fmt.Sprintf("Comment ça va dans le %s?", profession))
	}
	if lastActive.Valid() {
		parts = append(parts, recencyLine(DaysSince(lastActive.Time, s.clock.Now())))
	}
	return strings.Join(parts, " ")
}

// firstPresent returns the value of the first key present in info, even
// when that value is empty.
func firstPresent(info storage.BasicInfo, keys ...string) string {
	for _, key := range keys {
		if _, ok := info[key]; ok {
			return info.String(key)
		}
	}
	return ""
}

// DaysSince returns the number of whole days elapsed from then to now.
// Times in the future count as zero days.
func DaysSince(then, now time.Time) int {
	d := now.Sub(then)
	if d < 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}

func recencyLine(days int) string {
	switch {
	case days == 0:
		return "On continue notre conversation!"
	case days == 1:
		return "Content de vous revoir après hier!"
	case days < 7:
		return fmt.Sprintf("Ça fait %d jours! Comment allez-vous?", days)
	default:
		return "Ça fait longtemps! Quoi de neuf?"
	}
}
