package corpus

import "strings"

// Motivation bucket categories used by the simulator factor table and
// the explore gate's explanatory reasons.
const (
	BucketValue       = "value"
	BucketExperience  = "experience"
	BucketSocial      = "social"
	BucketAchievement = "achievement"
	BucketThrill      = "thrill"
	BucketCollection  = "collection"
	BucketOther       = "other"
)

// bucketPattern maps a free-text keyword to a bucket. Patterns are
// checked in order; the first hit wins.
type bucketPattern struct {
	keyword string
	bucket  string
}

// bucketPatterns is the motivation classifier as one explicit table so
// the rules are unit-testable instead of scattered inline checks.
var bucketPatterns = []bucketPattern{
	{"tent", BucketValue},
	{"car gear", BucketValue},
	{"packing", BucketValue},
	{"rainproof", BucketValue},
	{"durable", BucketValue},
	{"deal", BucketValue},
	{"discount", BucketValue},
	{"price", BucketValue},
	{"pet", BucketExperience},
	{"portrait", BucketExperience},
	{"gift", BucketExperience},
	{"looks like", BucketExperience},
	{"memo", BucketExperience},
	{"effortless", BucketExperience},
	{"convenience", BucketExperience},
	{"friend", BucketSocial},
	{"trending", BucketSocial},
	{"social", BucketSocial},
	{"gossip", BucketSocial},
	{"harbor", BucketSocial},
	{"flow state", BucketAchievement},
	{"achievement", BucketAchievement},
	{"helping", BucketAchievement},
	{"stuck", BucketAchievement},
	{"competition", BucketAchievement},
	{"satisfying", BucketThrill},
	{"commute", BucketThrill},
	{"quick win", BucketThrill},
	{"match-3", BucketThrill},
	{"combo", BucketThrill},
	{"boredom", BucketThrill},
	{"snake", BucketThrill},
	{"nostalgic", BucketThrill},
	{"classic", BucketThrill},
	{"thrill", BucketThrill},
	{"merge", BucketCollection},
	{"level", BucketCollection},
	{"collect", BucketCollection},
	{"belonging", BucketCollection},
	{"reward", BucketCollection},
}

// ClassifyBucket maps a free-text motivation description (a rich
// scenario string like "tent, wet season incoming, rainproof and
// durable") onto one of the fixed bucket categories. Already-canonical
// bucket names pass through unchanged.
func ClassifyBucket(motivation string) string {
	s := strings.ToLower(strings.TrimSpace(motivation))
	if s == "" {
		return BucketOther
	}
	switch s {
	case BucketValue, BucketExperience, BucketSocial, BucketAchievement, BucketThrill, BucketCollection, BucketOther:
		return s
	}
	for _, p := range bucketPatterns {
		if strings.Contains(s, p.keyword) {
			return p.bucket
		}
	}
	return BucketOther
}
