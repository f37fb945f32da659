package lang

import "testing"

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"english", "draw me a picture of a cat", Latin},
		{"hebrew", "צייר לי חתול", Hebrew},
		{"russian", "нарисуй мне кота", Cyrillic},
		{"arabic", "ارسم لي قطة", Arabic},
		{"mixed mostly hebrew", "תעשה לי תמונה של cat", Hebrew},
		{"digits only", "1920x1080", Unknown},
		{"empty", "", Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(tt.in); got != tt.want {
				t.Errorf("Detect(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestShare(t *testing.T) {
	if got := Share("abcd", Latin); got != 1.0 {
		t.Errorf("Share latin = %v, want 1.0", got)
	}
	if got := Share("שלום world", Hebrew); got <= 0 || got >= 1 {
		t.Errorf("Share mixed = %v, want between 0 and 1", got)
	}
	if got := Share("123", Latin); got != 0 {
		t.Errorf("Share no letters = %v, want 0", got)
	}
}

func TestHasLetters(t *testing.T) {
	if HasLetters("12 34 --") {
		t.Error("expected no letters")
	}
	if !HasLetters("x") {
		t.Error("expected letters")
	}
}
