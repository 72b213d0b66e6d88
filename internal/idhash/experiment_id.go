package idhash

import (
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"
)

// ComputeExperimentID computes a deterministic experiment identifier.
// Formula: base58(SHA256(card_id|version|channel|created_at_unix)[:16])
// prefixed with "exp_". The same snapshot key always yields the same ID,
// so re-writing an identical snapshot is idempotent at the store layer.
func ComputeExperimentID(cardID, version, channel string, createdAtUnix int64) string {
	data := fmt.Sprintf("%s|%s|%s|%d", cardID, version, channel, createdAtUnix)
	hash := sha256.Sum256([]byte(data))
	return "exp_" + base58.Encode(hash[:16])
}

// ComputeCardID computes a deterministic card identifier from the
// stratum a card was sampled into plus its ordinal within the stratum.
// Formula: base58(SHA256(vertical|channel|country|segment|os|bucket|n)[:12])
// prefixed with "card_".
func ComputeCardID(vertical, channel, country, segment, os, motivationBucket string, n int) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%s|%s|%d", vertical, channel, country, segment, os, motivationBucket, n)
	hash := sha256.Sum256([]byte(data))
	return "card_" + base58.Encode(hash[:12])
}
