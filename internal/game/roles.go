package game

import (
	"math/rand"
	"strings"
)

// specialUnlock lists optional roles in unlock order. Each becomes
// available once the player count exceeds its threshold and special
// abilities are enabled in the room settings.
var specialUnlock = []struct {
	role Role
	min  int // strictly more players than this
}{
	{RoleMimic, 4},
	{RoleOracle, 5},
	{RoleSpy, 6},
	{RoleJester, 7},
	{RoleGuardian, 8},
	{RoleTrickster, 9},
	{RoleIllusionist, 10},
}

// OutlierCount is a step function of the player count: one Chameleon
// below 7 players, two for 7-9, three from 10 up.
func OutlierCount(players int) int {
	switch {
	case players >= 10:
		return 3
	case players >= 7:
		return 2
	default:
		return 1
	}
}

// AssignRoles builds a role pool sized exactly to the roster, shuffles it
// uniformly and zips it against the players positionally. An empty roster
// yields an empty map; the minimum-player check belongs to the caller.
func AssignRoles(players []Player, settings Settings) map[string]Role {
	assigned := make(map[string]Role, len(players))
	if len(players) == 0 {
		return assigned
	}

	pool := make([]Role, 0, len(players))
	for i := 0; i < OutlierCount(len(players)); i++ {
		pool = append(pool, RoleChameleon)
	}
	if settings.SpecialAbilities {
		for _, u := range specialUnlock {
			if len(pool) >= len(players) {
				break
			}
			if len(players) > u.min {
				pool = append(pool, u.role)
			}
		}
	}
	for len(pool) < len(players) {
		pool = append(pool, RoleRegular)
	}

	rand.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	for i := range players {
		assigned[players[i].ID] = pool[i]
	}
	return assigned
}

// SpyTargetID picks the player id a Spy learns: one of the assigned
// outliers, chosen uniformly when there are several.
func SpyTargetID(assigned map[string]Role) string {
	var outliers []string
	for id, role := range assigned {
		if role.IsOutlier() {
			outliers = append(outliers, id)
		}
	}
	if len(outliers) == 0 {
		return ""
	}
	return outliers[rand.Intn(len(outliers))]
}

// Similarity scores how alike two words look, in [0,1]. Equal-length
// words compare position by position; otherwise the shorter word slides
// over the longer one and the best alignment wins. Purely a decoy
// heuristic, nothing cryptographic.
func Similarity(a, b string) float64 {
	a = strings.ToLower(a)
	b = strings.ToLower(b)
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(a) > len(b) {
		a, b = b, a
	}
	best := 0.0
	for off := 0; off+len(a) <= len(b); off++ {
		matches := 0
		for i := 0; i < len(a); i++ {
			if a[i] == b[off+i] {
				matches++
			}
		}
		if s := float64(matches) / float64(len(a)); s > best {
			best = s
		}
	}
	return best
}

// MimicDecoy picks the Mimic's near-miss word from the category list:
// uniformly among words whose similarity to the secret falls strictly
// between 0.3 and 0.7, falling back to any other word when none qualify.
func MimicDecoy(secret string, words []string) string {
	var qualifying, others []string
	for _, w := range words {
		if strings.EqualFold(w, secret) {
			continue
		}
		others = append(others, w)
		if s := Similarity(w, secret); s > 0.3 && s < 0.7 {
			qualifying = append(qualifying, w)
		}
	}
	if len(qualifying) > 0 {
		return qualifying[rand.Intn(len(qualifying))]
	}
	if len(others) > 0 {
		return others[rand.Intn(len(others))]
	}
	return ""
}
