// Package matching ranks catalog careers against a questionnaire profile.
package matching

import (
	"slices"
	"strings"

	"github.com/kalambet/careerpath/internal/catalog"
	"github.com/kalambet/careerpath/internal/profile"
)

const (
	// MinMatch and MaxMatch bound every reported match percentage.
	MinMatch = 65
	MaxMatch = 98

	// TopN is the number of careers returned by Score.
	TopN = 3
)

// ScoredCareer is a career with its computed match for one profile.
type ScoredCareer struct {
	catalog.Career
	MatchPercentage int      `json:"matchPercentage"`
	MatchedSkills   []string `json:"matchedSkills"`
}

// Score ranks every career in the catalog against p and returns the best
// TopN, highest first. Ties keep catalog order. Score is deterministic and
// never fails.
func Score(p profile.Profile, c *catalog.Catalog) []ScoredCareer {
	bonus := c.Bonuses()
	careers := c.Careers()

	scored := make([]ScoredCareer, 0, len(careers))
	for _, career := range careers {
		score := career.BaseMatch

		for _, interest := range p.Interests {
			if slices.Contains(career.InterestAffinities, interest) {
				score += bonus.Interest
			}
		}

		matched := matchSkills(career.RequiredSkills, p.Skills)
		score += len(matched) * bonus.Skill

		if p.Stream != "" && slices.Contains(career.StreamAffinities, p.Stream) {
			score += bonus.Stream
		}

		for subject, b := range career.SubjectAffinities {
			if p.HasSubject(subject) {
				score += b
			}
		}

		score += career.WorkStyleAffinities[p.WorkStyle]

		scored = append(scored, ScoredCareer{
			Career:          career,
			MatchPercentage: clamp(score),
			MatchedSkills:   matched,
		})
	}

	slices.SortStableFunc(scored, func(a, b ScoredCareer) int {
		return b.MatchPercentage - a.MatchPercentage
	})

	if len(scored) > TopN {
		scored = scored[:TopN]
	}
	return scored
}

// matchSkills returns the required skills that overlap, case-insensitively and
// as a substring in either direction, with any of the user's skills.
func matchSkills(required, have []string) []string {
	matched := []string{}
	for _, req := range required {
		r := strings.ToLower(req)
		for _, h := range have {
			u := strings.ToLower(h)
			if u == "" {
				continue
			}
			if strings.Contains(u, r) || strings.Contains(r, u) {
				matched = append(matched, req)
				break
			}
		}
	}
	return matched
}

func clamp(score int) int {
	return min(max(score, MinMatch), MaxMatch)
}
