package quizsheet

import (
	"reflect"
	"testing"
)

func TestCorrectNoKeyIsNoOp(t *testing.T) {
	answers := AnswerMap{"Q1": "whatever the OCR said"}
	got, stats := Correct(answers, nil, Thresholds{})
	if !reflect.DeepEqual(got, answers) {
		t.Errorf("Correct without key changed answers: %v", got)
	}
	if stats != (CorrectionStats{}) {
		t.Errorf("Correct without key reported work: %+v", stats)
	}
}

func TestCorrectDirectReplacement(t *testing.T) {
	key := AnswerKey{"Q1": "CRUEL SUMMER"}
	answers := AnswerMap{"Q1": "Cruel Sumer"}

	got, stats := Correct(answers, key, Thresholds{})

	if got["Q1"] != "CRUEL SUMMER" {
		t.Errorf("Q1 = %q, want expected text substituted", got["Q1"])
	}
	if stats.Direct != 1 {
		t.Errorf("Direct = %d, want 1", stats.Direct)
	}
	// The input map is not mutated.
	if answers["Q1"] != "Cruel Sumer" {
		t.Errorf("input map mutated: %q", answers["Q1"])
	}
}

func TestCorrectDirectPicksBestAlternative(t *testing.T) {
	key := AnswerKey{"Q1": "GLORY/HAPPY DAYS"}
	answers := AnswerMap{"Q1": "Hapy Days"}

	got, _ := Correct(answers, key, Thresholds{})
	if got["Q1"] != "HAPPY DAYS" {
		t.Errorf("Q1 = %q, want the closest alternative", got["Q1"])
	}
}

func TestCorrectAmbiguousUntouched(t *testing.T) {
	// CRUELWINTER vs CRUELSUMMER scores in the ambiguous band.
	key := AnswerKey{"Q1": "CRUEL SUMMER"}
	answers := AnswerMap{"Q1": "CRUEL WINTER"}

	got, stats := Correct(answers, key, Thresholds{})

	if got["Q1"] != "CRUEL WINTER" {
		t.Errorf("ambiguous answer changed to %q", got["Q1"])
	}
	if stats.Direct != 0 {
		t.Errorf("Direct = %d, want 0", stats.Direct)
	}
}

func TestCorrectMisplacedDetection(t *testing.T) {
	key := AnswerKey{"Q4": "KARMA POLICE", "Q5": "VERTIGO"}
	answers := AnswerMap{"Q5": "KARMA POLICE"}

	got, stats := Correct(answers, key, Thresholds{})

	// Detection only: the answer is flagged, not moved.
	if got["Q5"] != "KARMA POLICE" {
		t.Errorf("Q5 = %q, want unchanged", got["Q5"])
	}
	if stats.Misplaced != 1 {
		t.Errorf("Misplaced = %d, want 1", stats.Misplaced)
	}
}

// A merged cell pushed every later answer one question down the sheet:
// the second half is restored to its own slot, the followers move back
// up, and the stale last slot is dropped.
func TestCorrectMergeWithTrailingShift(t *testing.T) {
	key := AnswerKey{
		"Q36": "BACK",
		"Q37": "STABBERS",
		"Q38": "RED RAIN",
		"Q39": "BLUE MONDAY",
		"Q40": "GREEN RIVER",
	}
	answers := AnswerMap{
		"Q36": "BACK STABBERS",
		"Q38": "STABBERS",
		"Q39": "RED RAIN",
		"Q40": "BLUE MONDAY",
	}

	got, stats := Correct(answers, key, Thresholds{})

	want := AnswerMap{
		"Q36": "BACK",
		"Q37": "STABBERS",
		"Q38": "RED RAIN",
		"Q39": "BLUE MONDAY",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("corrected = %v, want %v", got, want)
	}
	if stats.Merges != 1 {
		t.Errorf("Merges = %d, want 1", stats.Merges)
	}
	if stats.Shifted != 2 {
		t.Errorf("Shifted = %d, want 2", stats.Shifted)
	}
	if stats.Removed != 1 {
		t.Errorf("Removed = %d, want 1", stats.Removed)
	}
}

// A merged cell where the following answers stayed in place: restoring
// the second half displaces content that belongs one question later, so
// it is pushed forward instead of cascading backward.
func TestCorrectMergeWithForwardPush(t *testing.T) {
	key := AnswerKey{
		"Q37": "THE RIDDLE",
		"Q38": "HAPPY DAYS",
		"Q39": "KARMA",
		"Q40": "VERTIGO",
	}
	answers := AnswerMap{
		"Q37": "THE RIDDLE HAPPY DAYS",
		"Q38": "KARMA",
		"Q39": "VERTIGO",
	}

	got, stats := Correct(answers, key, Thresholds{})

	want := AnswerMap{
		"Q37": "THE RIDDLE",
		"Q38": "HAPPY DAYS",
		"Q39": "KARMA",
		"Q40": "VERTIGO",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("corrected = %v, want %v", got, want)
	}
	if stats.Merges != 1 {
		t.Errorf("Merges = %d, want 1", stats.Merges)
	}
	if stats.Removed != 0 {
		t.Errorf("Removed = %d, want 0", stats.Removed)
	}
}

// An answer split across two cells: the prefix cell is completed to the
// full expected text, the remainder's cell is consumed, and everything
// after moves one question earlier.
func TestCorrectSplitWithCascade(t *testing.T) {
	key := AnswerKey{
		"Q20": "THE RIDDLE",
		"Q21": "HAPPY DAYS",
		"Q22": "KARMA",
	}
	answers := AnswerMap{
		"Q20": "THE RI",
		"Q21": "DDLE",
		"Q22": "HAPPY DAYS",
		"Q23": "KARMA",
	}

	got, stats := Correct(answers, key, Thresholds{})

	want := AnswerMap{
		"Q20": "THE RIDDLE",
		"Q21": "HAPPY DAYS",
		"Q22": "KARMA",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("corrected = %v, want %v", got, want)
	}
	if stats.Splits != 1 {
		t.Errorf("Splits = %d, want 1", stats.Splits)
	}
	if stats.Shifted != 2 {
		t.Errorf("Shifted = %d, want 2", stats.Shifted)
	}
	if stats.Removed != 1 {
		t.Errorf("Removed = %d, want 1", stats.Removed)
	}
}

// A cascade step where the stolen slot's text runs past the matched
// answer: the overrun must itself satisfy the next expected answer at
// the shift threshold. The remainder here scores about 0.714 against
// its expected text, below the merge threshold and above the shift
// threshold, so only the cascade's remainder recovery can resolve it.
func TestCorrectCascadeRemainderRecovery(t *testing.T) {
	key := AnswerKey{
		"Q10": "ALPHABET",
		"Q11": "BRAVO",
		"Q12": "CHARLIE",
	}
	answers := AnswerMap{
		"Q10": "ALPHA",
		"Q11": "BET",
		"Q12": "BRAVO CHALIA",
	}

	got, stats := Correct(answers, key, Thresholds{})

	want := AnswerMap{
		"Q10": "ALPHABET",
		"Q11": "BRAVO",
		"Q12": "CHARLIE",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("corrected = %v, want %v", got, want)
	}
	if stats.Merges != 0 {
		t.Errorf("Merges = %d, want 0", stats.Merges)
	}
	if stats.Splits != 1 {
		t.Errorf("Splits = %d, want 1", stats.Splits)
	}
	if stats.Shifted != 2 {
		t.Errorf("Shifted = %d, want 2", stats.Shifted)
	}
	if stats.Removed != 0 {
		t.Errorf("Removed = %d, want 0", stats.Removed)
	}
}

func TestCorrectIdempotent(t *testing.T) {
	key := AnswerKey{
		"Q36": "BACK",
		"Q37": "STABBERS",
		"Q38": "RED RAIN",
		"Q39": "BLUE MONDAY",
		"Q40": "GREEN RIVER",
	}
	answers := AnswerMap{
		"Q36": "BACK STABBERS",
		"Q38": "STABBERS",
		"Q39": "RED RAIN",
		"Q40": "BLUE MONDAY",
	}

	once, _ := Correct(answers, key, Thresholds{})
	twice, stats := Correct(once, key, Thresholds{})

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("second run changed answers: %v -> %v", once, twice)
	}
	if stats.Merges != 0 || stats.Splits != 0 || stats.Shifted != 0 || stats.Removed != 0 {
		t.Errorf("second run reported repairs: %+v", stats)
	}
}

func TestCorrectCustomThresholds(t *testing.T) {
	// With DirectMatch lowered, the ambiguous example becomes a direct
	// replacement.
	key := AnswerKey{"Q1": "CRUEL SUMMER"}
	answers := AnswerMap{"Q1": "CRUEL WINTER"}

	th := DefaultThresholds()
	th.DirectMatch = 0.6

	got, stats := Correct(answers, key, th)
	if got["Q1"] != "CRUEL SUMMER" {
		t.Errorf("Q1 = %q, want replaced under lowered threshold", got["Q1"])
	}
	if stats.Direct != 1 {
		t.Errorf("Direct = %d, want 1", stats.Direct)
	}
}

func TestCorrectKeepsUnmatchedText(t *testing.T) {
	key := AnswerKey{"Q1": "CRUEL SUMMER", "Q10": "VERTIGO"}
	answers := AnswerMap{"Q1": "COMPLETELY DIFFERENT"}

	got, _ := Correct(answers, key, Thresholds{})
	if got["Q1"] != "COMPLETELY DIFFERENT" {
		t.Errorf("unrepairable answer changed to %q", got["Q1"])
	}
}
