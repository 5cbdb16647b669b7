// Package view decides what the page shows for a given search state.
package view

import (
	"math"
	"sort"

	"github.com/kevinmichaelchen/profile-lens/internal/models"
	"github.com/kevinmichaelchen/profile-lens/internal/session"
)

type Mode string

const (
	ModeIdle    Mode = "idle"
	ModeLoading Mode = "loading"
	ModeError   Mode = "error"
	ModeResults Mode = "results"
)

// DefaultLanguageSlices is how many languages the chart shows before
// folding the rest into "Other".
const DefaultLanguageSlices = 6

// OtherLanguage labels the folded tail of the distribution.
const OtherLanguage = "Other"

// Regions lists which parts of the page are visible. Error and Results may
// both be set: partial results stay on screen next to the error banner.
type Regions struct {
	Placeholder bool `json:"placeholder"`
	Busy        bool `json:"busy"`
	Error       bool `json:"error"`
	Results     bool `json:"results"`
}

// Project maps a state to visible regions.
func Project(st session.State) Regions {
	return Regions{
		Placeholder: !st.Loading && st.User == nil && !st.HasError(),
		Busy:        st.Loading,
		Error:       st.HasError(),
		Results:     st.User != nil,
	}
}

// Mode returns the dominant region: loading, then error, then results.
func (r Regions) Mode() Mode {
	switch {
	case r.Busy:
		return ModeLoading
	case r.Error:
		return ModeError
	case r.Results:
		return ModeResults
	default:
		return ModeIdle
	}
}

// Languages counts repositories per primary language for the chart.
// Repositories without a language are left out. At most limit slices are
// returned; when there are more languages the last slice is "Other".
func Languages(repos []models.Repo, limit int) []models.LanguageShare {
	counts := map[string]int{}
	total := 0
	for _, r := range repos {
		if r.Language == "" {
			continue
		}
		counts[r.Language]++
		total++
	}
	if total == 0 {
		return []models.LanguageShare{}
	}

	shares := make([]models.LanguageShare, 0, len(counts))
	for lang, n := range counts {
		shares = append(shares, models.LanguageShare{Language: lang, Count: n})
	}
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Count != shares[j].Count {
			return shares[i].Count > shares[j].Count
		}
		return shares[i].Language < shares[j].Language
	})

	if limit > 0 && len(shares) > limit {
		other := models.LanguageShare{Language: OtherLanguage}
		for _, s := range shares[limit-1:] {
			other.Count += s.Count
		}
		shares = append(shares[:limit-1], other)
	}

	for i := range shares {
		shares[i].Percent = percent(shares[i].Count, total)
	}
	return shares
}

func percent(n, total int) float64 {
	return math.Round(float64(n)*1000/float64(total)) / 10
}

// Page bundles everything a template or API client needs for one render.
type Page struct {
	State     session.State          `json:"state"`
	Regions   Regions                `json:"regions"`
	Mode      Mode                   `json:"mode"`
	Languages []models.LanguageShare `json:"languages"`
}

func NewPage(st session.State) Page {
	regions := Project(st)
	return Page{
		State:     st,
		Regions:   regions,
		Mode:      regions.Mode(),
		Languages: Languages(st.Repos, DefaultLanguageSlices),
	}
}
