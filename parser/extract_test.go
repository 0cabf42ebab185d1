package parser

import "testing"

func TestExtractInt(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int64
		wantNil  bool
	}{
		{name: "people voted", input: "30,210 people voted", expected: 30210},
		{name: "score prefix", input: "score: 2,947,818", expected: 2947818},
		{name: "first token wins", input: "12 of 345", expected: 12},
		{name: "leading comma ignored", input: ", 7 votes", expected: 7},
		{name: "empty", input: "", wantNil: true},
		{name: "no digits", input: "no votes yet", wantNil: true},
		{name: "overflow", input: "99999999999999999999999", wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractInt(tt.input)
			if tt.wantNil {
				if got != nil {
					t.Fatalf("ExtractInt(%q) = %d, want nil", tt.input, *got)
				}
				return
			}
			if got == nil || *got != tt.expected {
				t.Fatalf("ExtractInt(%q) = %v, want %d", tt.input, got, tt.expected)
			}
		})
	}
}

func TestExtractFloat(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected float64
		wantNil  bool
	}{
		{name: "compound rating", input: "4.28 avg rating — 9,117,773 ratings", expected: 4.28},
		{name: "integer only", input: "rated 4 stars", expected: 4},
		{name: "really liked it", input: "really liked it 3.95 avg rating", expected: 3.95},
		{name: "empty", input: "", wantNil: true},
		{name: "no number", input: "avg rating", wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractFloat(tt.input)
			if tt.wantNil {
				if got != nil {
					t.Fatalf("ExtractFloat(%q) = %v, want nil", tt.input, *got)
				}
				return
			}
			if got == nil || *got != tt.expected {
				t.Fatalf("ExtractFloat(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestMaxInt(t *testing.T) {
	got := MaxInt("4.28 avg rating — 9,117,773 ratings")
	if got == nil || *got != 9117773 {
		t.Fatalf("MaxInt = %v, want 9117773", got)
	}
	if got := MaxInt("no numbers"); got != nil {
		t.Fatalf("MaxInt without numbers = %d, want nil", *got)
	}
}

func TestExtractInts(t *testing.T) {
	got := ExtractInts("1,000 and 20 and 3")
	want := []int64{1000, 20, 3}
	if len(got) != len(want) {
		t.Fatalf("ExtractInts len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ExtractInts[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}
