// Package recommend ranks events and skills for a user from the user's tag
// affinity. The functions are pure apart from the cold-start percentage, which
// is drawn from intn.
package recommend

import (
	"math"
	"sort"

	s "github.com/jlym/memorywall/internal/server"
)

const (
	maxMatchPct = 99

	// Cold-start match percentages are drawn from [coldStartMin, coldStartMin+coldStartSpan).
	coldStartMin  = 10
	coldStartSpan = 30

	levelScale = 120
	minLevel   = 10
	maxLevel   = 90
)

func round(x float64) int {
	return int(math.Floor(x + 0.5))
}

func tagScore(affinity map[string]int, tags []string) int {
	score := 0
	for _, tag := range tags {
		score += affinity[tag]
	}
	return score
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// Events scores every event the user has not registered for and sorts them by
// raw score, highest first; ties keep input order. A match percentage that
// comes out as zero is replaced by a random one in [10, 39].
func Events(user *s.User, events []*s.Event, intn func(n int) int) []*s.EventRecommendation {
	if user == nil {
		return []*s.EventRecommendation{}
	}
	affinity := user.TagAffinity

	maxScore := 1
	for _, v := range affinity {
		if v > maxScore {
			maxScore = v
		}
	}

	recs := make([]*s.EventRecommendation, 0, len(events))
	for _, ev := range events {
		if ev == nil || contains(ev.Registered, user.UserID) {
			continue
		}
		score := tagScore(affinity, ev.Tags)
		pct := 0
		if len(ev.Tags) > 0 {
			pct = round(float64(score) / float64(maxScore*len(ev.Tags)) * 100)
			if pct > maxMatchPct {
				pct = maxMatchPct
			}
		}
		if pct == 0 {
			pct = coldStartMin + intn(coldStartSpan)
		}
		recs = append(recs, &s.EventRecommendation{Event: *ev, Score: score, MatchPct: pct})
	}

	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Score > recs[j].Score })
	return recs
}

// Skills scores every skill against the user's affinity, drops the ones with
// no overlap, and sorts the rest by score, highest first; ties keep input order.
func Skills(user *s.User, skills []*s.Skill) []*s.SkillSuggestion {
	if user == nil {
		return []*s.SkillSuggestion{}
	}
	affinity := user.TagAffinity

	total := 0
	for _, v := range affinity {
		total += v
	}
	if total < 1 {
		total = 1
	}

	suggestions := make([]*s.SkillSuggestion, 0, len(skills))
	for _, skill := range skills {
		if skill == nil {
			continue
		}
		score := tagScore(affinity, skill.Tags)
		if score == 0 {
			continue
		}
		level := round(float64(score) / float64(total) * levelScale)
		level = max(minLevel, min(maxLevel, level))

		suggestions = append(suggestions, &s.SkillSuggestion{
			Skill:        *skill,
			Score:        score,
			Level:        level,
			SuggestedVia: suggestedVia(affinity, skill.Tags),
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool { return suggestions[i].Score > suggestions[j].Score })
	return suggestions
}

func suggestedVia(affinity map[string]int, tags []string) string {
	for _, tag := range tags {
		if affinity[tag] != 0 {
			return tag
		}
	}
	if len(tags) > 0 {
		return tags[0]
	}
	return ""
}
