package empi

import (
	"math"
	"strings"

	"github.com/trustmedis/empi/internal/config"
	"github.com/trustmedis/empi/internal/domain/patient"
	"github.com/trustmedis/empi/internal/domain/person"
)

// Match vector bits. Each bit records that one compared field agreed;
// the vector is persisted with the link for later audit.
const (
	VectorNameFamily uint64 = 1 << iota
	VectorNameGiven
	VectorBirthDate
	VectorGender
	VectorAddress
	VectorCity
	VectorPostalCode
	VectorPhone
	VectorEmail
	VectorEID
)

// Comparison is the scored outcome of comparing one Patient against one
// candidate Person.
type Comparison struct {
	Score    float64
	Vector   uint64
	EIDMatch bool
}

// Scorer computes weighted field-by-field similarity between a Patient and a
// candidate Person. Names use Jaro-Winkler; the remaining fields compare
// exactly after normalization. Only fields populated on BOTH sides count, so
// the score is normalized to the comparable weight: a sparse record fully
// agreeing with an equally sparse candidate still scores 1.0.
type Scorer struct {
	weights config.MatchWeights
}

// NewScorer creates a Scorer with the given field weights.
func NewScorer(weights config.MatchWeights) *Scorer {
	return &Scorer{weights: weights}
}

// fuzzyThreshold is the minimum Jaro-Winkler similarity for a name field to
// set its vector bit.
const fuzzyThreshold = 0.85

// Compare scores pat against cand. A shared external identifier is
// authoritative: it forces the score to 1.0 regardless of demographics.
func (s *Scorer) Compare(pat *patient.Patient, cand *person.Person) Comparison {
	if pat.EID != nil && cand.HasEID(*pat.EID) {
		return Comparison{Score: 1.0, Vector: VectorEID, EIDMatch: true}
	}

	var earned, weight float64
	var vector uint64

	// Fuzzy match: family name.
	if pat.NameFamily != "" && strOrEmpty(cand.NameFamily) != "" {
		weight += s.weights.NameFamily
		sim := jaroWinklerSimilarity(pat.NameFamily, *cand.NameFamily)
		earned += s.weights.NameFamily * sim
		if sim >= fuzzyThreshold {
			vector |= VectorNameFamily
		}
	}

	// Fuzzy match: given name.
	if pat.NameGiven != "" && strOrEmpty(cand.NameGiven) != "" {
		weight += s.weights.NameGiven
		sim := jaroWinklerSimilarity(pat.NameGiven, *cand.NameGiven)
		earned += s.weights.NameGiven * sim
		if sim >= fuzzyThreshold {
			vector |= VectorNameGiven
		}
	}

	// Exact match: birth date.
	if pat.BirthDate != nil && cand.BirthDate != nil {
		weight += s.weights.BirthDate
		if pat.BirthDate.Equal(*cand.BirthDate) {
			earned += s.weights.BirthDate
			vector |= VectorBirthDate
		}
	}

	// Exact match: gender.
	if pat.Gender != nil && cand.Gender != nil {
		weight += s.weights.Gender
		if strings.EqualFold(*pat.Gender, *cand.Gender) {
			earned += s.weights.Gender
			vector |= VectorGender
		}
	}

	// Fuzzy match: address line, compared after normalization.
	if pat.AddressLine != nil && cand.AddressLine != nil {
		weight += s.weights.Address
		a := normalizeAddress(*pat.AddressLine)
		b := normalizeAddress(*cand.AddressLine)
		sim := 1.0
		if a != b {
			sim = jaroWinklerSimilarity(a, b)
		}
		earned += s.weights.Address * sim
		if sim >= fuzzyThreshold {
			vector |= VectorAddress
		}
	}

	// Exact match: city.
	if pat.City != nil && cand.City != nil {
		weight += s.weights.City
		if strings.EqualFold(*pat.City, *cand.City) {
			earned += s.weights.City
			vector |= VectorCity
		}
	}

	// Exact match: postal code.
	if pat.PostalCode != nil && cand.PostalCode != nil {
		weight += s.weights.PostalCode
		if *pat.PostalCode == *cand.PostalCode {
			earned += s.weights.PostalCode
			vector |= VectorPostalCode
		}
	}

	// Partial match: phone, last 4 digits.
	if pat.Phone != nil && cand.Phone != nil {
		weight += s.weights.Phone
		if phoneDigitsMatch(*pat.Phone, *cand.Phone) {
			earned += s.weights.Phone
			vector |= VectorPhone
		}
	}

	// Exact match: email.
	if pat.Email != nil && cand.Email != nil {
		weight += s.weights.Email
		if strings.EqualFold(*pat.Email, *cand.Email) {
			earned += s.weights.Email
			vector |= VectorEmail
		}
	}

	if weight == 0 {
		return Comparison{}
	}

	score := math.Round(earned/weight*1000) / 1000
	return Comparison{Score: score, Vector: vector}
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// phoneDigitsMatch compares the last 4 digits of two phone numbers, falling
// back to full digit strings when either side is shorter than 4 digits.
func phoneDigitsMatch(a, b string) bool {
	da := extractDigits(a)
	db := extractDigits(b)
	if len(da) >= 4 && len(db) >= 4 {
		return da[len(da)-4:] == db[len(db)-4:]
	}
	return da != "" && da == db
}

// extractDigits returns only the digit characters from a string.
func extractDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// normalizeAddress lowercases and removes extra whitespace and punctuation from an address.
func normalizeAddress(addr string) string {
	addr = strings.ToLower(addr)
	addr = strings.Map(func(r rune) rune {
		if r == '.' || r == ',' || r == '#' {
			return -1
		}
		return r
	}, addr)
	fields := strings.Fields(addr)
	return strings.Join(fields, " ")
}

// jaroWinklerSimilarity computes the Jaro-Winkler similarity between two strings (case-insensitive).
// Returns a value between 0.0 and 1.0.
func jaroWinklerSimilarity(s1, s2 string) float64 {
	s1 = strings.ToLower(s1)
	s2 = strings.ToLower(s2)

	if len(s1) == 0 || len(s2) == 0 {
		return 0.0
	}

	if s1 == s2 {
		return 1.0
	}

	// Jaro distance.
	s1Len := len(s1)
	s2Len := len(s2)

	maxDist := 0
	if s1Len > s2Len {
		maxDist = s1Len
	} else {
		maxDist = s2Len
	}
	maxDist = maxDist/2 - 1
	if maxDist < 0 {
		maxDist = 0
	}

	s1Matches := make([]bool, s1Len)
	s2Matches := make([]bool, s2Len)

	matches := 0
	transpositions := 0

	for i := 0; i < s1Len; i++ {
		start := i - maxDist
		if start < 0 {
			start = 0
		}
		end := i + maxDist + 1
		if end > s2Len {
			end = s2Len
		}

		for j := start; j < end; j++ {
			if s2Matches[j] || s1[i] != s2[j] {
				continue
			}
			s1Matches[i] = true
			s2Matches[j] = true
			matches++
			break
		}
	}

	if matches == 0 {
		return 0.0
	}

	k := 0
	for i := 0; i < s1Len; i++ {
		if !s1Matches[i] {
			continue
		}
		for !s2Matches[k] {
			k++
		}
		if s1[i] != s2[k] {
			transpositions++
		}
		k++
	}

	jaro := (float64(matches)/float64(s1Len) +
		float64(matches)/float64(s2Len) +
		float64(matches-transpositions/2)/float64(matches)) / 3.0

	// Winkler adjustment: boost for common prefix (up to 4 chars).
	prefixLen := 0
	maxPrefix := 4
	if s1Len < maxPrefix {
		maxPrefix = s1Len
	}
	if s2Len < maxPrefix {
		maxPrefix = s2Len
	}
	for i := 0; i < maxPrefix; i++ {
		if s1[i] == s2[i] {
			prefixLen++
		} else {
			break
		}
	}

	return jaro + float64(prefixLen)*0.1*(1.0-jaro)
}
