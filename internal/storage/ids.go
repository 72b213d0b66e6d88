package storage

import "strings"

// VersionedCardID derives the card_id for a version-bumped copy, e.g.
// ("sc_001", "1.1") -> "sc_001_v1_1". The source card keeps its ID so
// history stays queryable.
func VersionedCardID(cardID, version string) string {
	return cardID + "_v" + strings.ReplaceAll(version, ".", "_")
}
