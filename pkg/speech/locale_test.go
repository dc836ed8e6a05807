package speech

import "testing"

func TestNextLanguageCycles(t *testing.T) {
	l := DefaultLocale
	seen := make([]Locale, 0, len(Languages))
	for range Languages {
		seen = append(seen, l)
		l = NextLanguage(l)
	}
	if l != DefaultLocale {
		t.Errorf("after a full cycle got %q, want %q", l, DefaultLocale)
	}
	want := []Locale{English, Spanish, French, German}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("seen[%d] = %q, want %q", i, seen[i], want[i])
		}
	}
}

func TestNextLanguageUnknown(t *testing.T) {
	if got := NextLanguage("pt-BR"); got != English {
		t.Errorf("NextLanguage(pt-BR) = %q, want %q", got, English)
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		locale Locale
		want   string
	}{
		{English, "English"},
		{German, "German"},
		{"pt-BR", "pt-BR"},
	}
	for _, tt := range tests {
		if got := tt.locale.Label(); got != tt.want {
			t.Errorf("%q.Label() = %q, want %q", tt.locale, got, tt.want)
		}
	}
}

func TestErrorEventRecoverable(t *testing.T) {
	if !(ErrorEvent{Reason: ReasonAborted}).Recoverable() {
		t.Error("aborted should be recoverable")
	}
	if (ErrorEvent{Reason: "network"}).Recoverable() {
		t.Error("network should not be recoverable")
	}
}
