package scenario

import (
	"reflect"
	"testing"

	"github.com/gridsight/control-plane/pkg/models"
)

func ptrEq(got *float64, want float64) bool {
	return got != nil && *got == want
}

func TestDetect_R2DropsBelow(t *testing.T) {
	req := Detect("What if R2 drops below 0.85?")
	if !req.IsSimulation {
		t.Fatal("Detect().IsSimulation = false, want true")
	}
	if !ptrEq(req.Overrides.R2, 0.84) {
		t.Errorf("Detect().Overrides.R2 = %v, want 0.84", req.Overrides.R2)
	}
}

func TestDetect_R2Variants(t *testing.T) {
	tests := []struct {
		question string
		want     float64
	}{
		{"r2 drops to 0.88", 0.88},
		{"what if r2 falls below 0.9", 0.89},
		{"what if r2 falls to 0.91", 0.91},
		{"suppose r2 becomes 0.7", 0.7},
		{"assume r2 is 0.93", 0.93},
		{"simulate r2 = 0.8", 0.8},
		{"simulate r2=0.8", 0.8},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			req := Detect(tt.question)
			if !ptrEq(req.Overrides.R2, tt.want) {
				t.Errorf("Detect(%q).Overrides.R2 = %v, want %v", tt.question, req.Overrides.R2, tt.want)
			}
			if !req.IsSimulation {
				t.Errorf("Detect(%q).IsSimulation = false, want true", tt.question)
			}
		})
	}
}

func TestDetect_Drift(t *testing.T) {
	tests := []struct {
		question string
		want     models.DriftLevel
	}{
		{"What if drift becomes HIGH?", models.DriftHigh},
		{"what if drift is medium", models.DriftMedium},
		{"imagine drift goes low", models.DriftLow},
		{"suppose drift is high but was medium yesterday", models.DriftHigh},
		{"what if drift changes", ""},
		{"what if the load is high", ""},
	}
	for _, tt := range tests {
		got := Detect(tt.question).Overrides.DriftRisk
		if got != tt.want {
			t.Errorf("Detect(%q).DriftRisk = %q, want %q", tt.question, got, tt.want)
		}
	}
}

func TestDetect_MAEAndOthers(t *testing.T) {
	req := Detect("What if MAE increases to 5?")
	if !ptrEq(req.Overrides.MAE, 5.0) {
		t.Errorf("MAE override = %v, want 5", req.Overrides.MAE)
	}

	req = Detect("what if mae is above 3.5")
	if !ptrEq(req.Overrides.MAE, 3.5) {
		t.Errorf("MAE override = %v, want 3.5", req.Overrides.MAE)
	}

	req = Detect("what if rmse rises to 22.5 and mape becomes 7")
	if !ptrEq(req.Overrides.RMSE, 22.5) {
		t.Errorf("RMSE override = %v, want 22.5", req.Overrides.RMSE)
	}
	if !ptrEq(req.Overrides.MAPE, 7) {
		t.Errorf("MAPE override = %v, want 7", req.Overrides.MAPE)
	}

	req = Detect("what if improvement drops to 10")
	if !ptrEq(req.Overrides.ImprovementPercent, 10) {
		t.Errorf("improvement override = %v, want 10", req.Overrides.ImprovementPercent)
	}

	req = Detect("accuracy drops 12%")
	if !ptrEq(req.Overrides.AccuracyDropPercent, 12) {
		t.Errorf("accuracy drop = %v, want 12", req.Overrides.AccuracyDropPercent)
	}
	if !req.IsSimulation {
		t.Error("an extracted override must mark the request as a simulation")
	}
}

func TestDetect_PlainQuestion(t *testing.T) {
	req := Detect("give me a status report")
	if req.IsSimulation {
		t.Error("Detect().IsSimulation = true, want false")
	}
	if !req.Overrides.IsEmpty() {
		t.Errorf("Detect().Overrides = %+v, want empty", req.Overrides)
	}
}

func TestIsHypothetical(t *testing.T) {
	for _, q := range []string{"What happens next?", "Imagine a cloudy week", "a HYPOTHETICAL outage"} {
		if !IsHypothetical(q) {
			t.Errorf("IsHypothetical(%q) = false, want true", q)
		}
	}
	if IsHypothetical("show the revenue dashboard") {
		t.Error("IsHypothetical() = true for a plain question")
	}
}

func baseSnapshot() models.MetricsSnapshot {
	return models.MetricsSnapshot{
		Metrics: models.EvaluationMetrics{
			R2:   models.Float(0.9999),
			MAE:  models.Float(1.2),
			RMSE: models.Float(3.1),
		},
	}
}

func TestApplyOverrides_WritesFlatAndNested(t *testing.T) {
	base := baseSnapshot()
	out := ApplyOverrides(base, models.ScenarioOverrides{
		R2:        models.Float(0.84),
		MAE:       models.Float(5),
		DriftRisk: models.DriftHigh,
	})

	if !ptrEq(out.R2, 0.84) || !ptrEq(out.Metrics.R2, 0.84) {
		t.Errorf("r2 = (%v, %v), want both 0.84", out.R2, out.Metrics.R2)
	}
	if !ptrEq(out.MAE, 5) || !ptrEq(out.Metrics.MAE, 5) {
		t.Errorf("mae = (%v, %v), want both 5", out.MAE, out.Metrics.MAE)
	}
	if out.DriftRisk != models.DriftHigh {
		t.Errorf("DriftRisk = %q, want HIGH", out.DriftRisk)
	}
	if out.RMSEValue() != 3.1 {
		t.Errorf("RMSEValue() = %v, want untouched 3.1", out.RMSEValue())
	}
}

func TestApplyOverrides_DoesNotMutateInput(t *testing.T) {
	base := baseSnapshot()
	before := base.Clone()
	_ = ApplyOverrides(base, models.ScenarioOverrides{R2: models.Float(0.5), MAE: models.Float(9)})

	if !reflect.DeepEqual(base, before) {
		t.Errorf("input snapshot mutated: got %+v, want %+v", base, before)
	}
}

func TestApplyOverrides_AccuracyDrop(t *testing.T) {
	out := ApplyOverrides(baseSnapshot(), models.ScenarioOverrides{AccuracyDropPercent: models.Float(10)})
	if out.R2Value() != 0.8999 {
		t.Errorf("R2Value() = %v, want 0.8999", out.R2Value())
	}

	// An explicit r2 override is the base for the drop.
	out = ApplyOverrides(baseSnapshot(), models.ScenarioOverrides{
		R2:                  models.Float(0.9),
		AccuracyDropPercent: models.Float(10),
	})
	if out.R2Value() != 0.81 {
		t.Errorf("R2Value() = %v, want 0.81", out.R2Value())
	}
}

func TestApplyOverrides_Idempotent(t *testing.T) {
	overrides := []models.ScenarioOverrides{
		{R2: models.Float(0.84)},
		{MAE: models.Float(5)},
		{DriftRisk: models.DriftMedium},
		{R2: models.Float(0.9), AccuracyDropPercent: models.Float(5)},
		{RMSE: models.Float(25), MAPE: models.Float(6), ImprovementPercent: models.Float(12)},
	}
	for _, o := range overrides {
		once := ApplyOverrides(baseSnapshot(), o)
		twice := ApplyOverrides(once, o)
		if !reflect.DeepEqual(once, twice) {
			t.Errorf("ApplyOverrides not idempotent for %+v: %+v != %+v", o, once, twice)
		}
	}
}

func TestApplyOverrides_OutOfRangePassesThrough(t *testing.T) {
	out := ApplyOverrides(baseSnapshot(), models.ScenarioOverrides{R2: models.Float(1.7), MAE: models.Float(-2)})
	if out.R2Value() != 1.7 || out.MAEValue() != -2 {
		t.Errorf("got r2=%v mae=%v, want 1.7 and -2 unchanged", out.R2Value(), out.MAEValue())
	}
}
