package engine

import (
	"testing"

	"github.com/trapline/trapline/internal/intel"
)

func TestInEngagementWindow(t *testing.T) {
	p := DefaultPolicy()
	tests := []struct {
		turns int
		want  bool
	}{
		{1, true},
		{3, true},
		{4, false},
	}
	for _, tt := range tests {
		if got := p.InEngagementWindow(tt.turns); got != tt.want {
			t.Errorf("InEngagementWindow(%d) = %v, want %v", tt.turns, got, tt.want)
		}
	}
}

func TestIntelVolume(t *testing.T) {
	p := DefaultPolicy()
	rec := intel.Record{
		BankAccounts:       []string{"12345678901"},           // 2.0
		UPIIDs:             []string{"abc@upi"},               // 2.0
		PhishingLinks:      []string{"http://x.xyz"},          // 1.5
		PhoneNumbers:       []string{"+919876543210"},         // 1.5
		SuspiciousKeywords: []string{"otp", "urgent", "bank"}, // 1.5
	}
	if got := p.IntelVolume(rec); got != 8.5 {
		t.Errorf("IntelVolume = %v, want 8.5", got)
	}
}

func TestShouldTerminate(t *testing.T) {
	p := DefaultPolicy()
	richIntel := intel.Record{
		UPIIDs:        []string{"abc@upi"},
		PhoneNumbers:  []string{"+919876543210", "+918123456789"},
		PhishingLinks: []string{"http://x.xyz"},
		SuspiciousKeywords: []string{
			"otp", "urgent", "blocked", "verify",
		}, // volume: 2 + 3 + 1.5 + 2 = 8.5
	}

	tests := []struct {
		name  string
		turns int
		rec   intel.Record
		want  bool
	}{
		{"early turn, no intel", 2, intel.Record{}, false},
		{"below min turns despite volume", 7, richIntel, false},
		{"min turns but volume trigger needs ten", 9, richIntel, false},
		{"volume trigger at ten turns", 10, richIntel, true},
		{"late stage lower bar", 15, intel.Record{UPIIDs: []string{"a@upi"}, PhoneNumbers: []string{"+919876543210"}, SuspiciousKeywords: []string{"otp"}}, true},
		{"max turns with nothing", 20, intel.Record{}, true},
		{"just under max with nothing", 19, intel.Record{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.ShouldTerminate(tt.turns, tt.rec); got != tt.want {
				t.Errorf("ShouldTerminate(%d, …) = %v, want %v", tt.turns, got, tt.want)
			}
		})
	}
}

func TestShouldTerminateCategoryCap(t *testing.T) {
	p := DefaultPolicy()

	// Two distinct account identifiers end the engagement regardless of
	// turn count.
	rec := intel.Record{BankAccounts: []string{"12345678901", "98765432109"}}
	if !p.ShouldTerminate(1, rec) {
		t.Error("account cap must terminate even on turn 1")
	}

	// One entry stays under the cap.
	rec = intel.Record{BankAccounts: []string{"12345678901"}}
	if p.ShouldTerminate(1, rec) {
		t.Error("single account below cap must not terminate")
	}

	// Phone cap is three.
	rec = intel.Record{PhoneNumbers: []string{"+919000000001", "+919000000002", "+919000000003"}}
	if !p.ShouldTerminate(2, rec) {
		t.Error("phone cap must terminate")
	}
}

func TestShouldTerminateZeroCapDisabled(t *testing.T) {
	p := DefaultPolicy()
	p.Caps = CategoryCaps{}
	if p.ShouldTerminate(1, intel.Record{BankAccounts: []string{"1", "2", "3"}}) {
		t.Error("zero caps must disable the category trigger")
	}
}
