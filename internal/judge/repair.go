package judge

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.85
	defaultCoverageThreshold = 0.80
)

// Repairer restores item names that speech recognition drifted away from
// their canonical spelling. Given a recognized item and the list of known
// items, it returns the canonical item it believes was meant.
//
// The interface exists so the phonetic default can be swapped for a different
// tolerance policy without touching the judge.
type Repairer interface {
	Repair(recognized string, knownItems []string) (canonical string, confidence float64, ok bool)
}

// PhoneticRepairer matches recognized items against known items in two
// stages: Double Metaphone codes filter phonetic candidates, then
// Jaro-Winkler similarity ranks them. When no phonetic candidate exists, a
// pure Jaro-Winkler pass with a stricter threshold catches plain typo-level
// drift ("sockks" for "socks").
//
// A PhoneticRepairer is read-only after construction and safe for concurrent
// use.
type PhoneticRepairer struct {
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// RepairerOption configures a [PhoneticRepairer].
type RepairerOption func(*PhoneticRepairer)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score for a
// phonetically matched item to be accepted. Default: 0.70.
func WithPhoneticThreshold(threshold float64) RepairerOption {
	return func(r *PhoneticRepairer) {
		r.phoneticThreshold = threshold
	}
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score for the fallback
// pass used when no phonetic candidate is found. Default: 0.85.
func WithFuzzyThreshold(threshold float64) RepairerOption {
	return func(r *PhoneticRepairer) {
		r.fuzzyThreshold = threshold
	}
}

// NewPhoneticRepairer returns a PhoneticRepairer with the supplied options
// applied.
func NewPhoneticRepairer(opts ...RepairerOption) *PhoneticRepairer {
	r := &PhoneticRepairer{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Repair finds the known item most similar to recognized. When ok is false,
// canonical equals recognized unchanged and confidence is 0.
func (r *PhoneticRepairer) Repair(recognized string, knownItems []string) (canonical string, confidence float64, ok bool) {
	if len(knownItems) == 0 || strings.TrimSpace(recognized) == "" {
		return recognized, 0, false
	}

	inLower := strings.ToLower(strings.TrimSpace(recognized))
	inTokens := strings.Fields(inLower)
	inCodes := codesForTokens(inTokens)

	type candidate struct {
		item     string
		score    float64
		phonetic bool
	}

	var best candidate

	for _, item := range knownItems {
		itemLower := strings.ToLower(strings.TrimSpace(item))
		if itemLower == "" {
			continue
		}
		if itemLower == inLower {
			return item, 1, true
		}
		itemTokens := strings.Fields(itemLower)

		phoneticMatch := codesOverlap(inCodes, codesForTokens(itemTokens))
		jwScore := bestJWScore(inTokens, itemTokens, inLower, itemLower)

		if phoneticMatch {
			if jwScore >= r.phoneticThreshold {
				if !best.phonetic || jwScore > best.score {
					best = candidate{item: item, score: jwScore, phonetic: true}
				}
			}
		} else if !best.phonetic {
			if jwScore >= r.fuzzyThreshold && jwScore > best.score {
				best = candidate{item: item, score: jwScore, phonetic: false}
			}
		}
	}

	if best.item != "" {
		return best.item, best.score, true
	}
	return recognized, 0, false
}

// Coverage reports the fraction of items, in order, that the utterance
// mentions. Each item is searched for in the utterance tokens from where the
// previous item matched onward, trying unigrams and bigrams, so a reordered
// recital scores lower than an in-order one.
//
// Coverage is advisory: the language model remains the primary rule judge,
// and callers compare the result against a threshold such as
// [DefaultCoverageThreshold] only for diagnostics or tolerance policies.
func (r *PhoneticRepairer) Coverage(utterance string, items []string) float64 {
	if len(items) == 0 {
		return 1
	}
	tokens := strings.Fields(strings.ToLower(utterance))
	if len(tokens) == 0 {
		return 0
	}

	matched := 0
	pos := 0
	for _, item := range items {
		for i := pos; i < len(tokens); i++ {
			span := tokens[i]
			if _, _, ok := r.Repair(span, []string{item}); ok {
				matched++
				pos = i + 1
				break
			}
			if i+1 < len(tokens) {
				span = tokens[i] + " " + tokens[i+1]
				if _, _, ok := r.Repair(span, []string{item}); ok {
					matched++
					pos = i + 2
					break
				}
			}
		}
	}
	return float64(matched) / float64(len(items))
}

// DefaultCoverageThreshold is the advisory bar for [PhoneticRepairer.Coverage]
// below which a recital is considered too incomplete to trust.
const DefaultCoverageThreshold = defaultCoverageThreshold

// codesForTokens returns the union of all Double Metaphone codes for the
// given tokens. Empty codes (short or consonant-free words) are excluded.
func codesForTokens(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

// codesOverlap returns true if the two code sets share at least one code.
func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// bestJWScore computes the highest Jaro-Winkler similarity between the input
// and the item using three strategies: full strings, space-stripped strings,
// and the best pairwise token score.
func bestJWScore(inputTokens, itemTokens []string, inputFull, itemFull string) float64 {
	score := matchr.JaroWinkler(inputFull, itemFull, false)

	if len(inputTokens) > 1 || len(itemTokens) > 1 {
		concat1 := strings.Join(inputTokens, "")
		concat2 := strings.Join(itemTokens, "")
		if s := matchr.JaroWinkler(concat1, concat2, false); s > score {
			score = s
		}
	}

	for _, it := range inputTokens {
		for _, et := range itemTokens {
			if s := matchr.JaroWinkler(it, et, false); s > score {
				score = s
			}
		}
	}

	return score
}
