package intent

import (
	"testing"

	"github.com/covebank/teller/internal/models"
)

func TestClassify(t *testing.T) {
	c := NewKeywordClassifier()
	cases := []struct {
		text string
		want models.Intent
	}{
		{"Please block my card", models.IntentAction},
		{"BLOCK CARD now", models.IntentAction},
		{"I want to raise a dispute", models.IntentAction},
		{"what's my balance?", models.IntentAction},
		{"freeze card immediately", models.IntentAction},
		{"I need to transfer money", models.IntentAction},
		{"What is the ATM withdrawal limit?", models.IntentFAQ},
		{"how do overdraft fees work", models.IntentFAQ},
		{"", models.IntentFAQ},
	}
	for _, tc := range cases {
		if got := c.Classify(tc.text); got != tc.want {
			t.Errorf("Classify(%q) = %s, want %s", tc.text, got, tc.want)
		}
	}
}
