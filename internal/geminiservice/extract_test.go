package geminiservice

import "testing"

func TestExtractJSONArrayWithFences(t *testing.T) {
	fenced := "```json\n[{\"title\":\"Stethoscope\"}]\n```"
	bare := "[{\"title\":\"Stethoscope\"}]"

	fromFenced, err := extractJSON(fenced, shapeArray)
	if err != nil {
		t.Fatalf("fenced extraction failed: %v", err)
	}
	fromBare, err := extractJSON(bare, shapeArray)
	if err != nil {
		t.Fatalf("bare extraction failed: %v", err)
	}
	if fromFenced != fromBare {
		t.Fatalf("fenced and bare replies extracted differently: %q vs %q", fromFenced, fromBare)
	}
}

func TestExtractJSONIgnoresSurroundingProse(t *testing.T) {
	raw := "Sure! Here are your recommendations:\n[{\"title\":\"A\"},{\"title\":\"B\"}]\nLet me know if you need more."
	got, err := extractJSON(raw, shapeArray)
	if err != nil {
		t.Fatalf("extraction failed: %v", err)
	}
	if got != "[{\"title\":\"A\"},{\"title\":\"B\"}]" {
		t.Fatalf("unexpected extraction: %q", got)
	}
}

func TestExtractJSONObject(t *testing.T) {
	raw := "```json\n{\"productName\":\"BP Monitor\"}\n```"
	got, err := extractJSON(raw, shapeObject)
	if err != nil {
		t.Fatalf("extraction failed: %v", err)
	}
	if got != "{\"productName\":\"BP Monitor\"}" {
		t.Fatalf("unexpected extraction: %q", got)
	}
}

func TestExtractJSONNoBrackets(t *testing.T) {
	_, err := extractJSON("I cannot help with that.", shapeArray)
	if err == nil {
		t.Fatal("expected a parse failure for a reply with no brackets")
	}
	if KindOf(err) != ErrParse {
		t.Fatalf("expected ErrParse, got %v", KindOf(err))
	}
}

func TestExtractJSONMismatchedBrackets(t *testing.T) {
	if _, err := extractJSON("] nothing here [", shapeArray); err == nil {
		t.Fatal("expected failure when close bracket precedes open bracket")
	}
}
