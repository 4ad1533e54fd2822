// Package game holds the data model of the suitcase memory game: the ordered
// item list, the per-turn result contract, and the session state that applies
// results to the list.
//
// The item list is an ordered sequence of free-text item names. Order is part
// of correctness, duplicates are never validated against, and the list is
// always replaced wholesale after a successful turn rather than patched.
package game

// CopyItems returns a defensive copy of items. A nil input yields nil.
func CopyItems(items []string) []string {
	if items == nil {
		return nil
	}
	cp := make([]string, len(items))
	copy(cp, items)
	return cp
}

// TurnResult is the outcome of one full game turn and the only contract the
// HTTP layer depends on.
type TurnResult struct {
	// Success reports whether the turn completed through synthesis.
	Success bool

	// Audio is the synthesized spoken reply. Set only on success.
	Audio []byte

	// Items is the item list the caller must adopt. Semantics:
	//
	//   - nil: keep the current list unchanged (turn failed, or judge asked
	//     for a retry is expressed as the identical input list instead)
	//   - empty non-nil: hard reset, the game is over
	//   - otherwise: the new authoritative list
	//
	// Items is nil whenever Success is false, so a failed turn can never
	// advance or reset the caller's state.
	Items []string

	// Error is the player-facing description of what went wrong. Set when
	// Success is false, and on a successful game-over turn, where it carries
	// the rule violation that ended the game.
	Error string
}
