// Package intent labels user utterances as account actions or FAQ questions.
package intent

import (
	"strings"

	"github.com/covebank/teller/internal/models"
)

// Classifier labels an utterance. It is a pluggable capability: the keyword
// implementation below is the default, and a learned classifier can be
// substituted without touching the orchestrator.
type Classifier interface {
	Classify(text string) models.Intent
}

// actionTriggers are matched as case-insensitive substrings, first match
// wins. This is a coarse, order-sensitive heuristic over a fixed phrase
// list; it is not intended to generalize beyond it.
var actionTriggers = []string{
	"block card",
	"block my card",
	"freeze card",
	"dispute",
	"raise dispute",
	"report fraud",
	"cancel card",
	"get balance",
	"balance",
	"transfer",
}

// KeywordClassifier classifies by substring match against actionTriggers.
type KeywordClassifier struct{}

// NewKeywordClassifier returns the default keyword classifier.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

// Classify returns IntentAction when any trigger phrase occurs in text
// (case-insensitive), IntentFAQ otherwise.
func (c *KeywordClassifier) Classify(text string) models.Intent {
	t := strings.ToLower(text)
	for _, kw := range actionTriggers {
		if strings.Contains(t, kw) {
			return models.IntentAction
		}
	}
	return models.IntentFAQ
}
