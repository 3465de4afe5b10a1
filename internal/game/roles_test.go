package game

import (
	"strings"
	"testing"
)

func makePlayers(n int) []Player {
	ps := make([]Player, n)
	for i := range ps {
		ps[i] = Player{ID: string(rune('a' + i)), Name: "p" + string(rune('a'+i))}
	}
	return ps
}

func TestOutlierCount(t *testing.T) {
	cases := []struct{ players, want int }{
		{3, 1}, {4, 1}, {6, 1},
		{7, 2}, {9, 2},
		{10, 3}, {15, 3},
	}
	for _, c := range cases {
		if got := OutlierCount(c.players); got != c.want {
			t.Fatalf("OutlierCount(%d) = %d, want %d", c.players, got, c.want)
		}
	}
}

func countRoles(t *testing.T, assigned map[string]Role) map[Role]int {
	t.Helper()
	counts := map[Role]int{}
	for _, r := range assigned {
		counts[r]++
	}
	return counts
}

func TestAssignRoles_FivePlayers(t *testing.T) {
	players := makePlayers(5)
	settings := DefaultSettings()

	assigned := AssignRoles(players, settings)
	if len(assigned) != 5 {
		t.Fatalf("assigned %d roles, want 5", len(assigned))
	}
	counts := countRoles(t, assigned)
	if counts[RoleChameleon] != 1 {
		t.Fatalf("chameleons = %d, want 1", counts[RoleChameleon])
	}
	// 5 players unlocks exactly the Mimic among the specials
	if counts[RoleMimic] != 1 {
		t.Fatalf("mimics = %d, want 1", counts[RoleMimic])
	}
	if counts[RoleRegular] != 3 {
		t.Fatalf("regulars = %d, want 3", counts[RoleRegular])
	}
}

func TestAssignRoles_AbilitiesDisabled(t *testing.T) {
	players := makePlayers(8)
	settings := DefaultSettings()
	settings.SpecialAbilities = false

	counts := countRoles(t, AssignRoles(players, settings))
	if counts[RoleChameleon] != 2 {
		t.Fatalf("chameleons = %d, want 2", counts[RoleChameleon])
	}
	if counts[RoleRegular] != 6 {
		t.Fatalf("regulars = %d, want 6", counts[RoleRegular])
	}
	for role, n := range counts {
		if role != RoleChameleon && role != RoleRegular && n > 0 {
			t.Fatalf("unexpected role %s with abilities disabled", role)
		}
	}
}

func TestAssignRoles_TenPlayers(t *testing.T) {
	players := makePlayers(10)
	counts := countRoles(t, AssignRoles(players, DefaultSettings()))
	if counts[RoleChameleon] != 3 {
		t.Fatalf("chameleons = %d, want 3", counts[RoleChameleon])
	}
	for _, r := range []Role{RoleMimic, RoleOracle, RoleSpy, RoleJester, RoleGuardian, RoleTrickster} {
		if counts[r] != 1 {
			t.Fatalf("role %s count = %d, want 1", r, counts[r])
		}
	}
	// Illusionist needs strictly more than 10 players
	if counts[RoleIllusionist] != 0 {
		t.Fatalf("illusionist assigned at 10 players")
	}
	if counts[RoleRegular] != 1 {
		t.Fatalf("regulars = %d, want 1", counts[RoleRegular])
	}
}

func TestAssignRoles_Empty(t *testing.T) {
	if got := AssignRoles(nil, DefaultSettings()); len(got) != 0 {
		t.Fatalf("expected empty assignment, got %d", len(got))
	}
}

func TestSpyTargetID(t *testing.T) {
	assigned := map[string]Role{
		"a": RoleChameleon,
		"b": RoleRegular,
		"c": RoleSpy,
	}
	if got := SpyTargetID(assigned); got != "a" {
		t.Fatalf("SpyTargetID = %q, want %q", got, "a")
	}
	if got := SpyTargetID(map[string]Role{"x": RoleRegular}); got != "" {
		t.Fatalf("SpyTargetID with no outlier = %q, want empty", got)
	}
}

func TestSimilarity(t *testing.T) {
	if got := Similarity("Tiger", "tiger"); got != 1.0 {
		t.Fatalf("identical words = %v, want 1", got)
	}
	if got := Similarity("", "tiger"); got != 0 {
		t.Fatalf("empty word = %v, want 0", got)
	}
	// shorter word slides over the longer one; "cat" sits inside "concatenate"
	if got := Similarity("cat", "concatenate"); got != 1.0 {
		t.Fatalf("substring alignment = %v, want 1", got)
	}
	// "dog" vs "dot": 2 of 3 positions match
	if got := Similarity("dog", "dot"); got < 0.66 || got > 0.67 {
		t.Fatalf("dog/dot = %v, want 2/3", got)
	}
}

func TestMimicDecoy(t *testing.T) {
	// "dot" is the only word in the qualifying band against "dog"
	words := []string{"dog", "dot", "zzzzzzzz"}
	for i := 0; i < 20; i++ {
		if got := MimicDecoy("dog", words); got != "dot" {
			t.Fatalf("decoy = %q, want %q", got, "dot")
		}
	}
}

func TestMimicDecoy_Fallback(t *testing.T) {
	// nothing in the band: any word other than the secret will do
	words := []string{"dog", "zzzzzzzz"}
	if got := MimicDecoy("dog", words); got != "zzzzzzzz" {
		t.Fatalf("fallback decoy = %q", got)
	}
	if got := MimicDecoy("dog", []string{"DOG"}); got != "" {
		t.Fatalf("decoy with no candidates = %q, want empty", got)
	}
}

func TestMimicDecoy_NeverSecret(t *testing.T) {
	words := []string{"lion", "lynx", "tiger", "liger"}
	for i := 0; i < 50; i++ {
		if got := MimicDecoy("lion", words); strings.EqualFold(got, "lion") {
			t.Fatalf("decoy equals the secret word")
		}
	}
}
