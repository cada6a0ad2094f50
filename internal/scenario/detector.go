// Package scenario turns hypothetical operator questions into metric
// overrides and applies them to a snapshot.
package scenario

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/gridsight/control-plane/pkg/models"
)

// TriggerPhrases is the hypothetical-question vocabulary. The intent
// classifier uses the same list, so a question routed as a simulation is
// always also detected as one here.
var TriggerPhrases = []string{
	"what if",
	"what happens",
	"suppose",
	"imagine",
	"assume",
	"hypothetical",
	"scenario",
	"simulate",
	"drops below",
	"drops to",
	"falls to",
	"falls below",
	"increases to",
	"rises to",
	"becomes",
}

const number = `(\d+(?:\.\d+)?)`

var (
	r2Pattern = regexp.MustCompile(
		`\br2\s*(?:drops?\s+(below|to)\s+|falls?\s+(below|to)\s+|becomes?\s+|is\s+|=\s*)(0\.\d+)`)
	maePattern = regexp.MustCompile(
		`\bmae\s*(?:increases?\s+(?:to\s+)?|rises?\s+(?:to\s+)?|becomes?\s+|is\s+|=\s*|above\s+)` + number)
	rmsePattern = regexp.MustCompile(
		`\brmse\s*(?:increases?\s+(?:to\s+)?|rises?\s+(?:to\s+)?|becomes?\s+|is\s+|=\s*|above\s+|to\s+)` + number)
	mapePattern = regexp.MustCompile(
		`\bmape\s*(?:increases?\s+(?:to\s+)?|rises?\s+(?:to\s+)?|becomes?\s+|is\s+|=\s*|above\s+|to\s+)` + number)
	improvementPattern = regexp.MustCompile(
		`\bimprovement\s*(?:drops?\s+(?:to\s+)?|falls?\s+(?:to\s+)?|becomes?\s+|is\s+|=\s*|below\s+|to\s+)` + number)
	accuracyPattern = regexp.MustCompile(
		`\baccuracy\s*(?:drops?|falls?|decreases?)\s*(?:by\s+)?` + number + `\s*%?`)

	driftLevels = []struct {
		level   models.DriftLevel
		pattern *regexp.Regexp
	}{
		{models.DriftHigh, regexp.MustCompile(`\bhigh\b`)},
		{models.DriftMedium, regexp.MustCompile(`\bmedium\b`)},
		{models.DriftLow, regexp.MustCompile(`\blow\b`)},
	}
)

// IsHypothetical reports whether the question contains any trigger phrase.
func IsHypothetical(question string) bool {
	q := strings.ToLower(question)
	for _, phrase := range TriggerPhrases {
		if strings.Contains(q, phrase) {
			return true
		}
	}
	return false
}

// Detect parses a question into a ScenarioRequest. Any extracted override
// marks the request as a simulation even without a trigger phrase.
func Detect(question string) models.ScenarioRequest {
	q := strings.ToLower(question)
	req := models.ScenarioRequest{IsSimulation: IsHypothetical(q)}
	o := &req.Overrides

	if m := r2Pattern.FindStringSubmatch(q); m != nil {
		if v, err := strconv.ParseFloat(m[3], 64); err == nil {
			// "below X" targets a value strictly under the threshold.
			if m[1] == "below" || m[2] == "below" {
				v = models.Round(v-0.01, 4)
			}
			o.R2 = models.Float(v)
		}
	}
	o.MAE = matchFloat(maePattern, q)
	o.RMSE = matchFloat(rmsePattern, q)
	o.MAPE = matchFloat(mapePattern, q)
	o.ImprovementPercent = matchFloat(improvementPattern, q)
	o.AccuracyDropPercent = matchFloat(accuracyPattern, q)

	if strings.Contains(q, "drift") {
		for _, d := range driftLevels {
			if d.pattern.MatchString(q) {
				o.DriftRisk = d.level
				break
			}
		}
	}

	if !o.IsEmpty() {
		req.IsSimulation = true
	}
	return req
}

func matchFloat(re *regexp.Regexp, q string) *float64 {
	m := re.FindStringSubmatch(q)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(m[len(m)-1], 64)
	if err != nil {
		return nil
	}
	return &v
}
