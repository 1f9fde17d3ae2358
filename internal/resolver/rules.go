package resolver

// Rules are the configuration constants spec.md §9 leaves to the game
// designer: action-point costs/cap, and attack damage. Defaults below are
// SPEC_FULL.md's resolution of that Open Question — see DESIGN.md.
type Rules struct {
	MoveCost         int
	AttackCost       int
	ActionPointCap   int
	ActionPointRegen int
	AttackDamage     int
}

// DefaultRules matches spec.md's description: 1 damage per attack, +1 AP
// per round, both a move and an attack may be registered in the same
// round as long as their combined cost fits under the player's current
// AP.
func DefaultRules() Rules {
	return Rules{
		MoveCost:         1,
		AttackCost:       1,
		ActionPointCap:   5,
		ActionPointRegen: 1,
		AttackDamage:     1,
	}
}
