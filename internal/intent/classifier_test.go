package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ShivaTri14/nagar-seva-ai/internal/models"
)

func TestClassify(t *testing.T) {
	c := NewClassifier(nil)

	tests := []struct {
		name string
		in   Input
		want models.Intent
	}{
		{
			name: "garbage complaint",
			in:   Input{Text: "there is garbage near my house", Language: models.LanguageEnglish},
			want: models.Intent{Kind: models.IntentTopic, Topic: models.TopicGarbage, Keyword: "garbage"},
		},
		{
			name: "case is ignored",
			in:   Input{Text: "GARBAGE everywhere", Language: models.LanguageEnglish},
			want: models.Intent{Kind: models.IntentTopic, Topic: models.TopicGarbage, Keyword: "garbage"},
		},
		{
			name: "water is not waste",
			in:   Input{Text: "no water since morning", Language: models.LanguageEnglish},
			want: models.Intent{Kind: models.IntentTopic, Topic: models.TopicWater, Keyword: "water"},
		},
		{
			name: "first table keyword wins",
			in:   Input{Text: "water bill and road tax", Language: models.LanguageEnglish},
			want: models.Intent{Kind: models.IntentTopic, Topic: models.TopicWater, Keyword: "water"},
		},
		{
			name: "informational topic",
			in:   Input{Text: "how do I get a building permit", Language: models.LanguageEnglish},
			want: models.Intent{Kind: models.IntentTopic, Topic: models.TopicPermit, Keyword: "permit"},
		},
		{
			name: "hindi request switches language",
			in:   Input{Text: "हिंदी", Language: models.LanguageEnglish},
			want: models.Intent{Kind: models.IntentLanguageSwitch, Target: models.LanguageHindi, Keyword: "हिंदी"},
		},
		{
			name: "english request from hindi mode",
			in:   Input{Text: "English please", Language: models.LanguageHindi},
			want: models.Intent{Kind: models.IntentLanguageSwitch, Target: models.LanguageEnglish, Keyword: "english"},
		},
		{
			name: "language switch beats keywords",
			in:   Input{Text: "tell me about garbage in hindi", Language: models.LanguageEnglish},
			want: models.Intent{Kind: models.IntentLanguageSwitch, Target: models.LanguageHindi, Keyword: "hindi"},
		},
		{
			name: "language switch beats a pending image",
			in:   Input{Text: "hindi", Language: models.LanguageEnglish, ImagePending: true},
			want: models.Intent{Kind: models.IntentLanguageSwitch, Target: models.LanguageHindi, Keyword: "hindi"},
		},
		{
			name: "image with empty text is waste analysis",
			in:   Input{Text: "  ", Language: models.LanguageEnglish, ImagePending: true},
			want: models.Intent{Kind: models.IntentWasteAnalysis},
		},
		{
			name: "image with waste vocabulary",
			in:   Input{Text: "Please identify this waste", Language: models.LanguageEnglish, ImagePending: true},
			want: models.Intent{Kind: models.IntentWasteAnalysis, Keyword: "waste"},
		},
		{
			name: "image with hindi waste vocabulary",
			in:   Input{Text: "यह कचरा क्या है", Language: models.LanguageHindi, ImagePending: true},
			want: models.Intent{Kind: models.IntentWasteAnalysis, Keyword: "कचरा"},
		},
		{
			name: "image with free text gets a letter",
			in:   Input{Text: "streetlight broken near the park", Language: models.LanguageEnglish, ImagePending: true},
			want: models.Intent{Kind: models.IntentPhotoIssue, Letter: true},
		},
		{
			name: "image with a known topic is a photo issue without letter",
			in:   Input{Text: "pothole on the road", Language: models.LanguageEnglish, ImagePending: true},
			want: models.Intent{Kind: models.IntentPhotoIssue},
		},
		{
			name: "organic detector before the waste keyword",
			in:   Input{Text: "what to do with food waste", Language: models.LanguageEnglish},
			want: models.Intent{Kind: models.IntentOrganic, Keyword: "food waste"},
		},
		{
			name: "recyclable detector",
			in:   Input{Text: "where do old newspapers go", Language: models.LanguageEnglish},
			want: models.Intent{Kind: models.IntentRecyclable, Keyword: "newspaper"},
		},
		{
			name: "hazardous detector before the waste keyword",
			in:   Input{Text: "how to dispose e-waste", Language: models.LanguageEnglish},
			want: models.Intent{Kind: models.IntentHazardous, Keyword: "e-waste"},
		},
		{
			name: "hindi keyword table",
			in:   Input{Text: "पानी नहीं आ रहा", Language: models.LanguageHindi},
			want: models.Intent{Kind: models.IntentTopic, Topic: models.TopicWater, Keyword: "पानी"},
		},
		{
			name: "hindi keywords only in hindi mode",
			in:   Input{Text: "पानी नहीं आ रहा", Language: models.LanguageEnglish},
			want: models.Intent{Kind: models.IntentFallback},
		},
		{
			name: "hindi table keeps english keys",
			in:   Input{Text: "road repair", Language: models.LanguageHindi},
			want: models.Intent{Kind: models.IntentTopic, Topic: models.TopicRoad, Keyword: "road"},
		},
		{
			name: "nothing matches",
			in:   Input{Text: "what's the weather like", Language: models.LanguageEnglish},
			want: models.Intent{Kind: models.IntentFallback},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.in))
		})
	}
}

func TestRuleOrder(t *testing.T) {
	c := NewClassifier(nil)
	assert.Equal(t, []string{
		"language_switch", "waste_analysis", "photo_issue",
		"organic", "recyclable", "hazardous", "keyword_table",
	}, c.RuleNames())
}

func TestIntentString(t *testing.T) {
	assert.Equal(t, "topic:garbage", models.Intent{Kind: models.IntentTopic, Topic: models.TopicGarbage}.String())
	assert.Equal(t, "language_switch:hindi", models.Intent{Kind: models.IntentLanguageSwitch, Target: models.LanguageHindi}.String())
	assert.Equal(t, "fallback", models.Intent{Kind: models.IntentFallback}.String())
}
