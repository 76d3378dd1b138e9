package analyzer

import (
	"math"
	"regexp"
)

var opportunitySignals = []*regexp.Regexp{
	regexp.MustCompile(`(周末|晚上|有空|下次|一起|约|去看|想去)`),
	regexp.MustCompile(`(哈哈|嘿嘿|🙂|😊|😉)`),
	regexp.MustCompile(`(可以|不错|好呀|可以啊|可以的)`),
}

var opportunityDampers = regexp.MustCompile(`(不太|算了|没空|改天|再说)`)

// OpportunityScore rates how open the latest message is to advancing the
// relationship, on a 0.0 to 1.0 scale. Purely rule-based, no model call.
func OpportunityScore(latestText string) float64 {
	score := 0.0
	for _, signal := range opportunitySignals {
		if signal.MatchString(latestText) {
			score += 0.25
		}
	}
	if opportunityDampers.MatchString(latestText) {
		score -= 0.2
	}
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return math.Round(score*100) / 100
}
