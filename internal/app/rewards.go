package app

// EntriesEarned converts a correct-answer count into raffle entries:
// floor(correct/answersPerEntry) clamped to maxEntries. answersPerEntry must
// be positive (enforced at quiz-type creation); a non-positive value yields
// zero entries rather than a panic.
func EntriesEarned(correct, answersPerEntry, maxEntries int) int {
	if correct < 0 || answersPerEntry <= 0 || maxEntries <= 0 {
		return 0
	}
	earned := correct / answersPerEntry
	if earned > maxEntries {
		return maxEntries
	}
	return earned
}
