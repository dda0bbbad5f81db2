package job

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	exactWeight   = 1.0
	partialWeight = 0.7

	skillsShare     = 60.0
	educationShare  = 20.0
	experienceShare = 20.0

	// Base score for a listing that declares no skills.
	neutralScore = 50

	// Substring matches need the shorter side to be longer than this, so
	// "go" does not match every skill containing those letters.
	minPartialLen = 2
)

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Score rates a candidate against the skills a listing declares.
func Score(profileSkills, jobSkills []string, education []Education, experience []Experience) MatchResult {
	mine := make([]string, 0, len(profileSkills))
	for _, s := range profileSkills {
		if n := normalize(s); n != "" {
			mine = append(mine, n)
		}
	}
	if len(mine) == 0 {
		return MatchResult{Score: 0, MatchedSkills: []string{}}
	}
	if len(jobSkills) == 0 {
		return MatchResult{Score: neutralScore, MatchedSkills: []string{}}
	}

	wanted := make([]string, len(jobSkills))
	for i, s := range jobSkills {
		wanted[i] = normalize(s)
	}

	matched := []string{}
	var weight float64
	for i, js := range wanted {
		if js == "" {
			continue
		}
		switch {
		case containsExact(mine, js):
			weight += exactWeight
			matched = append(matched, jobSkills[i])
		case containsPartial(mine, js):
			weight += partialWeight
			matched = append(matched, jobSkills[i])
		}
	}
	skills := weight / float64(len(jobSkills)) * skillsShare

	joined := strings.Join(wanted, " ")

	var edu float64
	if len(education) > 0 {
		edu = educationShare / 2
		for _, e := range education {
			if relates(normalize(e.Field), wanted, joined) {
				edu = educationShare
				break
			}
		}
	}

	var exp float64
	if len(experience) > 0 {
		relevant := 0
		for _, e := range experience {
			if relates(normalize(e.Title), wanted, joined) {
				relevant++
			}
		}
		exp = experienceShare * float64(relevant) / float64(len(experience))
	}

	total := int(math.Round(skills + edu + exp))
	if total > 100 {
		total = 100
	}
	if total < 0 {
		total = 0
	}
	return MatchResult{Score: total, MatchedSkills: matched}
}

func containsExact(mine []string, js string) bool {
	for _, s := range mine {
		if s == js {
			return true
		}
	}
	return false
}

func containsPartial(mine []string, js string) bool {
	for _, s := range mine {
		shorter := utf8.RuneCountInString(s)
		if n := utf8.RuneCountInString(js); n < shorter {
			shorter = n
		}
		if shorter <= minPartialLen {
			continue
		}
		if strings.Contains(s, js) || strings.Contains(js, s) {
			return true
		}
	}
	return false
}

// relates reports whether text mentions a job skill or appears inside the
// joined job skills. Empty text appears inside anything, so a blank entry
// counts as related.
func relates(text string, wanted []string, joined string) bool {
	for _, w := range wanted {
		if w != "" && strings.Contains(text, w) {
			return true
		}
	}
	return strings.Contains(joined, text)
}

// Rank scores every listing and orders them by descending score. Equal
// scores keep the order the listings were given in.
func Rank(c Candidate, listings []Listing) []Match {
	out := make([]Match, len(listings))
	for i, l := range listings {
		out[i] = Match{
			Listing:     l,
			MatchResult: Score(c.Skills, l.Skills, c.Education, c.Experience),
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}
