package market

import "testing"

func f(v float64) *float64 { return &v }

func TestChooseEntrySideOnlyUpInBand(t *testing.T) {
	up := TopOfBookSide{BestAsk: f(0.40), BestAskSize: f(10)}
	down := TopOfBookSide{BestAsk: f(0.95), BestAskSize: f(10)}

	outcome, ok := ChooseEntrySide(up, down, 0.10, 0.90, 5)

	if !ok || outcome != OutcomeUp {
		t.Fatalf("expected OutcomeUp, got outcome=%v ok=%v", outcome, ok)
	}
}

func TestChooseEntrySideBothInBandPicksHigherAsk(t *testing.T) {
	up := TopOfBookSide{BestAsk: f(0.40), BestAskSize: f(10)}
	down := TopOfBookSide{BestAsk: f(0.55), BestAskSize: f(10)}

	outcome, ok := ChooseEntrySide(up, down, 0.10, 0.90, 5)

	if !ok || outcome != OutcomeDown {
		t.Fatalf("expected OutcomeDown (higher ask), got outcome=%v ok=%v", outcome, ok)
	}
}

func TestChooseEntrySideNeitherQualifies(t *testing.T) {
	up := TopOfBookSide{BestAsk: f(0.95), BestAskSize: f(10)}
	down := TopOfBookSide{BestAsk: f(0.02), BestAskSize: f(10)}

	_, ok := ChooseEntrySide(up, down, 0.10, 0.90, 5)

	if ok {
		t.Fatal("expected no qualifying side when both are out of band")
	}
}

func TestChooseEntrySideInsufficientSize(t *testing.T) {
	up := TopOfBookSide{BestAsk: f(0.40), BestAskSize: f(1)}
	down := TopOfBookSide{BestAsk: f(0.50), BestAskSize: f(1)}

	_, ok := ChooseEntrySide(up, down, 0.10, 0.90, 5)

	if ok {
		t.Fatal("expected no qualifying side when resting size is below the minimum")
	}
}

func TestChooseEntrySideNilSideFieldsDoNotQualify(t *testing.T) {
	up := TopOfBookSide{}
	down := TopOfBookSide{BestAsk: f(0.50), BestAskSize: f(10)}

	outcome, ok := ChooseEntrySide(up, down, 0.10, 0.90, 5)

	if !ok || outcome != OutcomeDown {
		t.Fatalf("expected OutcomeDown since up has no quote, got outcome=%v ok=%v", outcome, ok)
	}
}
