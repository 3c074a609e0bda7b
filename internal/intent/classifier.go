package intent

import (
	"strings"

	"github.com/ShivaTri14/nagar-seva-ai/internal/models"
	"github.com/ShivaTri14/nagar-seva-ai/internal/prompts"
)

// Vocabularies are matched as substrings of the lowercased input and work in
// either language mode.
var (
	hindiNames   = []string{"hindi", "हिंदी", "हिन्दी"}
	englishNames = []string{"english", "अंग्रेजी", "अंग्रेज़ी"}

	wasteVocabulary = []string{
		"waste", "trash", "garbage", "recycle", "dispose", "identify",
		"कचरा", "कचरे", "कूड़ा", "पहचान", "निपटान",
	}

	organicVocabulary = []string{
		"compost", "organic", "food waste", "kitchen waste", "vegetable peel", "leftover food",
		"खाद", "जैविक", "गीला कचरा",
	}
	recyclableVocabulary = []string{
		"plastic", "cardboard", "newspaper", "glass bottle", "tin can", "recyclable",
		"प्लास्टिक", "रद्दी",
	}
	hazardousVocabulary = []string{
		"battery", "batteries", "paint", "chemical", "syringe", "medicine",
		"e-waste", "electronic waste", "bulb", "pesticide",
		"बैटरी", "रसायन", "दवा",
	}
)

// Input is one turn as seen by the classifier
type Input struct {
	Text         string
	Language     models.Language
	ImagePending bool
}

type turn struct {
	Input
	lower string
}

// rule is one (predicate, intent) pair; rules are evaluated in order
type rule struct {
	name  string
	match func(t turn) (models.Intent, bool)
}

// Classifier maps raw text to an intent by ordered rules
type Classifier struct {
	catalog *prompts.Catalog
	rules   []rule
}

// NewClassifier creates a classifier over the catalog's keyword tables; nil means the embedded one
func NewClassifier(catalog *prompts.Catalog) *Classifier {
	if catalog == nil {
		catalog = prompts.Default()
	}
	c := &Classifier{catalog: catalog}
	c.rules = []rule{
		{name: "language_switch", match: matchLanguageSwitch},
		{name: "waste_analysis", match: matchWasteAnalysis},
		{name: "photo_issue", match: c.matchPhotoIssue},
		{name: "organic", match: detector(models.IntentOrganic, organicVocabulary)},
		{name: "recyclable", match: detector(models.IntentRecyclable, recyclableVocabulary)},
		{name: "hazardous", match: detector(models.IntentHazardous, hazardousVocabulary)},
		{name: "keyword_table", match: c.matchKeyword},
	}
	return c
}

// Classify returns the first matching rule's intent, or the fallback intent
func (c *Classifier) Classify(in Input) models.Intent {
	t := turn{Input: in, lower: strings.ToLower(strings.TrimSpace(in.Text))}
	for _, r := range c.rules {
		if intent, ok := r.match(t); ok {
			return intent
		}
	}
	return models.Intent{Kind: models.IntentFallback}
}

// RuleNames lists the rules in evaluation order
func (c *Classifier) RuleNames() []string {
	names := make([]string, len(c.rules))
	for i, r := range c.rules {
		names[i] = r.name
	}
	return names
}

func matchLanguageSwitch(t turn) (models.Intent, bool) {
	if kw, ok := containsAny(t.lower, hindiNames); ok {
		return models.Intent{Kind: models.IntentLanguageSwitch, Target: models.LanguageHindi, Keyword: kw}, true
	}
	if kw, ok := containsAny(t.lower, englishNames); ok {
		return models.Intent{Kind: models.IntentLanguageSwitch, Target: models.LanguageEnglish, Keyword: kw}, true
	}
	return models.Intent{}, false
}

func matchWasteAnalysis(t turn) (models.Intent, bool) {
	if !t.ImagePending {
		return models.Intent{}, false
	}
	if t.lower == "" {
		return models.Intent{Kind: models.IntentWasteAnalysis}, true
	}
	if kw, ok := containsAny(t.lower, wasteVocabulary); ok {
		return models.Intent{Kind: models.IntentWasteAnalysis, Keyword: kw}, true
	}
	return models.Intent{}, false
}

// matchPhotoIssue runs after waste analysis, so text here is non-empty and
// free of waste vocabulary. Free text that no later rule understands gets a letter.
func (c *Classifier) matchPhotoIssue(t turn) (models.Intent, bool) {
	if !t.ImagePending {
		return models.Intent{}, false
	}
	return models.Intent{Kind: models.IntentPhotoIssue, Letter: !c.matchesTextRule(t)}, true
}

func (c *Classifier) matchesTextRule(t turn) bool {
	for _, vocab := range [][]string{organicVocabulary, recyclableVocabulary, hazardousVocabulary} {
		if _, ok := containsAny(t.lower, vocab); ok {
			return true
		}
	}
	_, ok := c.matchKeyword(t)
	return ok
}

func detector(kind models.IntentKind, vocabulary []string) func(turn) (models.Intent, bool) {
	return func(t turn) (models.Intent, bool) {
		if kw, ok := containsAny(t.lower, vocabulary); ok {
			return models.Intent{Kind: kind, Keyword: kw}, true
		}
		return models.Intent{}, false
	}
}

func (c *Classifier) matchKeyword(t turn) (models.Intent, bool) {
	for _, entry := range c.catalog.Keywords(t.Language) {
		if strings.Contains(t.lower, entry.Keyword) {
			return models.Intent{Kind: models.IntentTopic, Topic: entry.Topic, Keyword: entry.Keyword}, true
		}
	}
	return models.Intent{}, false
}

func containsAny(s string, vocabulary []string) (string, bool) {
	if s == "" {
		return "", false
	}
	for _, v := range vocabulary {
		if strings.Contains(s, v) {
			return v, true
		}
	}
	return "", false
}
