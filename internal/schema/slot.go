package schema

import (
	"regexp"
	"strings"
	"unicode"
)

// Roles a staff member or slot sheet can carry.
const (
	RoleProfesseur = "professeur"
	RoleAnimateur  = "animateur"
)

// Longer words come first so "animateur" is removed whole rather than
// leaving "ateur" behind "anim".
var roleWords = regexp.MustCompile(`(?i)animateur|professeur|anim|prof|rôle|role`)

// CleanSlot strips role keywords from a slot label and collapses whitespace.
// The original label is returned when nothing else remains.
func CleanSlot(label string) string {
	cleaned := strings.Join(strings.Fields(roleWords.ReplaceAllString(label, " ")), " ")
	if cleaned == "" {
		return strings.TrimSpace(label)
	}
	return cleaned
}

// SlotKey is the comparison key of a slot label.
func SlotKey(label string) string {
	return strings.ToLower(CleanSlot(label))
}

// SameSlot reports whether two labels name the same logical slot: their
// cleaned forms are equal, or the words of one start the other ("8h30"
// and "8h30 à 10h", never "8h30" and "18h30").
func SameSlot(a, b string) bool {
	ka, kb := SlotKey(a), SlotKey(b)
	if ka == "" || kb == "" {
		return false
	}
	if ka == kb {
		return true
	}
	wa, wb := slotWords(ka), slotWords(kb)
	if len(wa) > len(wb) {
		wa, wb = wb, wa
	}
	if len(wa) == 0 {
		return false
	}
	for i := range wa {
		if wa[i] != wb[i] {
			return false
		}
	}
	return true
}

func slotWords(key string) []string {
	return strings.FieldsFunc(key, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// RoleFromSheet infers which staff role a slot sheet is meant for.
func RoleFromSheet(name string) string {
	if strings.Contains(strings.ToLower(name), RoleAnimateur) {
		return RoleAnimateur
	}
	return RoleProfesseur
}
