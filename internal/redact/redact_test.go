package redact

import (
	"strings"
	"testing"
)

func TestRedactCardNumberSingleToken(t *testing.T) {
	text := "my card is 4242 4242 4242 4242 please help"
	redacted, replacements := Redact(text)
	if strings.Contains(redacted, "4242") {
		t.Errorf("digits leaked: %q", redacted)
	}
	if !strings.Contains(redacted, "<CARD_MASK>_1") {
		t.Errorf("expected card token, got %q", redacted)
	}
	if strings.Contains(redacted, "<PHONE_MASK>") {
		t.Errorf("card digits must not be re-matched as phone: %q", redacted)
	}
	if replacements["<CARD_MASK>_1"] != "4242 4242 4242 4242" {
		t.Errorf("mapping = %q", replacements["<CARD_MASK>_1"])
	}
}

func TestRedactSSN(t *testing.T) {
	redacted, replacements := Redact("my ssn is 123-45-6789")
	if !strings.Contains(redacted, "<SSN_MASK>_1") {
		t.Errorf("got %q", redacted)
	}
	if replacements["<SSN_MASK>_1"] != "123-45-6789" {
		t.Errorf("mapping = %v", replacements)
	}
}

func TestRedactPhone(t *testing.T) {
	redacted, _ := Redact("call me at 5551234567")
	if !strings.Contains(redacted, "<PHONE_MASK>_1") {
		t.Errorf("got %q", redacted)
	}
}

func TestRedactEmail(t *testing.T) {
	redacted, replacements := Redact("reach me at jane.doe@example.com thanks")
	if strings.Contains(redacted, "example.com") {
		t.Errorf("email leaked: %q", redacted)
	}
	if replacements["<EMAIL_MASK>_1"] != "jane.doe@example.com" {
		t.Errorf("mapping = %v", replacements)
	}
}

func TestRedactMultipleKindsShareCounter(t *testing.T) {
	redacted, replacements := Redact("ssn 123-45-6789 email a@b.co")
	if len(replacements) != 2 {
		t.Fatalf("replacements = %v", replacements)
	}
	if !strings.Contains(redacted, "<SSN_MASK>_1") || !strings.Contains(redacted, "<EMAIL_MASK>_2") {
		t.Errorf("ordinals not shared across kinds: %q", redacted)
	}
}

func TestRedactCleanTextUnchanged(t *testing.T) {
	text := "what is the ATM withdrawal limit?"
	redacted, replacements := Redact(text)
	if redacted != text {
		t.Errorf("got %q", redacted)
	}
	if len(replacements) != 0 {
		t.Errorf("replacements = %v", replacements)
	}
}

func TestRedactTokenNotInOriginal(t *testing.T) {
	redacted, replacements := Redact("card 4111111111111111")
	for token, original := range replacements {
		if strings.Contains("card 4111111111111111", token) {
			t.Errorf("token %q present in original", token)
		}
		if !strings.Contains("card 4111111111111111", original) {
			t.Errorf("original %q not a substring of input", original)
		}
		if strings.Contains(redacted, original) {
			t.Errorf("original %q still present after redaction", original)
		}
	}
}
