package services

import "testing"

func TestCleanNormalizesText(t *testing.T) {
	t.Parallel()

	tn := NewTextNormalizer()
	tests := []struct {
		in   string
		want string
	}{
		{"Acute Ischemic Stroke: A Trial.", "acute ischemic stroke a trial"},
		{"  multiple\t\nsclerosis  ", "multiple sclerosis"},
		{"Parkinson's disease (PD)", "parkinson s disease pd"},
		{"t-PA vs. TNK", "t pa vs tnk"},
		{"ﬁbrillation & ﬂow", "fibrillation flow"},
		{"", ""},
		{"!!!", ""},
	}
	for _, tt := range tests {
		if got := tn.Clean(tt.in); got != tt.want {
			t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func FuzzClean(f *testing.F) {
	for _, seed := range []string{
		"Stroke; Epilepsy, and DEMENTIA!",
		"ŒDEMA in ℌuntington's: case report",
		"Guillain–Barré syndrome after COVID-19 vaccination",
		"α-synuclein ≥ 5 µg/mL",
		" non-breaking spaces\u200b",
		"ﬃ ﬄ Æ æ œ",
		"\u03d4\u0301",
		"\u03cb\u0301",
		"İstanbul ǅ Ϊ́",
		"!\u0301e",
	} {
		f.Add(seed)
	}

	tn := NewTextNormalizer()
	f.Fuzz(func(t *testing.T, in string) {
		once := tn.Clean(in)
		if twice := tn.Clean(once); twice != once {
			t.Errorf("Clean not idempotent for %q: %q -> %q", in, once, twice)
		}
	})
}
