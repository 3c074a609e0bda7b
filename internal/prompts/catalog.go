package prompts

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ShivaTri14/nagar-seva-ai/internal/models"
)

//go:embed templates.yaml
var defaultTemplates []byte

// Key names a fixed, non-topic bot text
type Key string

const (
	KeyGreeting         Key = "greeting"
	KeyWelcome          Key = "welcome"
	KeySwitched         Key = "switched"
	KeyFallback         Key = "fallback"
	KeyStatusUpdate     Key = "status_update"
	KeyPhotoAck         Key = "photo_ack"
	KeyLetterIntro      Key = "letter_intro"
	KeyLetter           Key = "letter"
	KeyIdentifyPrompt   Key = "identify_prompt"
	KeyAnalyzing        Key = "analyzing"
	KeyAnalysisResult   Key = "analysis_result"
	KeyAnalysisUnknown  Key = "analysis_unknown"
	KeyAnalysisFailed   Key = "analysis_failed"
	KeyReward           Key = "reward"
	KeyOrganicAdvice    Key = "organic_advice"
	KeyRecyclableAdvice Key = "recyclable_advice"
	KeyHazardousAdvice  Key = "hazardous_advice"
	KeyComplaintForm    Key = "complaint_form"
	KeyComplaintSummary Key = "complaint_summary"
	KeyUnknownLocation  Key = "unknown_location"
	KeyUnknownIssue     Key = "unknown_issue"

	KeyNoteLanguageTitle          Key = "note_language_title"
	KeyNoteLanguageBody           Key = "note_language_body"
	KeyNotePhotoTitle             Key = "note_photo_title"
	KeyNotePhotoBody              Key = "note_photo_body"
	KeyNoteAttachedTitle          Key = "note_attached_title"
	KeyNoteAttachedBody           Key = "note_attached_body"
	KeyNoteNotImageTitle          Key = "note_not_image_title"
	KeyNoteNotImageBody           Key = "note_not_image_body"
	KeyNoteTooLargeTitle          Key = "note_too_large_title"
	KeyNoteTooLargeBody           Key = "note_too_large_body"
	KeyNoteAttachmentPendingTitle Key = "note_attachment_pending_title"
	KeyNoteAttachmentPendingBody  Key = "note_attachment_pending_body"
	KeyNoteRewardTitle            Key = "note_reward_title"
	KeyNoteRewardBody             Key = "note_reward_body"
	KeyNoteAnalysisFailedTitle    Key = "note_analysis_failed_title"
	KeyNoteAnalysisFailedBody     Key = "note_analysis_failed_body"
	KeyNoteComplaintTitle         Key = "note_complaint_title"
)

var requiredKeys = []Key{
	KeyGreeting, KeyWelcome, KeySwitched, KeyFallback, KeyStatusUpdate, KeyPhotoAck,
	KeyLetterIntro, KeyLetter, KeyIdentifyPrompt, KeyAnalyzing, KeyAnalysisResult,
	KeyAnalysisUnknown, KeyAnalysisFailed, KeyReward, KeyOrganicAdvice,
	KeyRecyclableAdvice, KeyHazardousAdvice, KeyComplaintForm, KeyComplaintSummary,
	KeyUnknownLocation, KeyUnknownIssue,
	KeyNoteLanguageTitle, KeyNoteLanguageBody, KeyNotePhotoTitle, KeyNotePhotoBody,
	KeyNoteAttachedTitle, KeyNoteAttachedBody, KeyNoteNotImageTitle, KeyNoteNotImageBody,
	KeyNoteTooLargeTitle, KeyNoteTooLargeBody, KeyNoteAttachmentPendingTitle,
	KeyNoteAttachmentPendingBody, KeyNoteRewardTitle, KeyNoteRewardBody,
	KeyNoteAnalysisFailedTitle, KeyNoteAnalysisFailedBody, KeyNoteComplaintTitle,
}

// labels every table must translate
var requiredLabels = []string{
	binLabel(models.BinGreen), binLabel(models.BinBlue), binLabel(models.BinUnknown),
	wasteLabel(models.WasteDecomposable), wasteLabel(models.WasteNonDecomposable), wasteLabel(models.WasteUnknown),
}

func binLabel(b models.BinType) string     { return "bin_" + string(b) }
func wasteLabel(w models.WasteType) string { return "waste_" + strings.ReplaceAll(string(w), "-", "_") }

// KeywordEntry is one row of a keyword table
type KeywordEntry struct {
	Keyword string       `yaml:"keyword"`
	Topic   models.Topic `yaml:"topic"`
}

// TopicTemplate is the reply for a topic and its display label
type TopicTemplate struct {
	Label string `yaml:"label"`
	Text  string `yaml:"text"`
}

// ServiceCategory is a municipal service a complaint can be filed under
type ServiceCategory struct {
	ID          string `yaml:"id" json:"id"`
	Label       string `yaml:"label" json:"label"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
}

type table struct {
	Keywords   []KeywordEntry                 `yaml:"keywords"`
	Topics     map[models.Topic]TopicTemplate `yaml:"topics"`
	Messages   map[Key]string                 `yaml:"messages"`
	Labels     map[string]string              `yaml:"labels"`
	Categories []ServiceCategory              `yaml:"categories"`
}

// Catalog holds the per-language keyword and template tables.
// A loaded Catalog is total: every lookup for a supported language succeeds.
type Catalog struct {
	tables map[models.Language]*table
}

var defaultCatalog = MustLoad(defaultTemplates)

// Default returns the embedded catalog
func Default() *Catalog {
	return defaultCatalog
}

// MustLoad is Load that panics; used for the embedded tables at init
func MustLoad(data []byte) *Catalog {
	c, err := Load(data)
	if err != nil {
		panic(fmt.Sprintf("prompts: invalid template tables: %v", err))
	}
	return c
}

// Load decodes and validates template tables
func Load(data []byte) (*Catalog, error) {
	var raw map[models.Language]*table
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	c := &Catalog{tables: raw}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) validate() error {
	for lang := range c.tables {
		if !lang.Valid() {
			return fmt.Errorf("unsupported language %q", lang)
		}
	}

	var reference []ServiceCategory
	for _, lang := range models.Languages {
		t, ok := c.tables[lang]
		if !ok || t == nil {
			return fmt.Errorf("missing table for %s", lang)
		}

		if len(t.Keywords) == 0 {
			return fmt.Errorf("%s: keyword table is empty", lang)
		}
		for i, kw := range t.Keywords {
			if kw.Keyword == "" {
				return fmt.Errorf("%s: keyword %d is empty", lang, i)
			}
			if strings.ToLower(kw.Keyword) != kw.Keyword {
				return fmt.Errorf("%s: keyword %q must be lowercase", lang, kw.Keyword)
			}
			if _, ok := t.Topics[kw.Topic]; !ok {
				return fmt.Errorf("%s: keyword %q points at unknown topic %q", lang, kw.Keyword, kw.Topic)
			}
		}

		for _, topic := range models.Topics {
			tmpl, ok := t.Topics[topic]
			if !ok || tmpl.Text == "" || tmpl.Label == "" {
				return fmt.Errorf("%s: topic %q needs both text and label", lang, topic)
			}
		}

		for _, key := range requiredKeys {
			if t.Messages[key] == "" {
				return fmt.Errorf("%s: message %q is missing", lang, key)
			}
		}

		for _, label := range requiredLabels {
			if t.Labels[label] == "" {
				return fmt.Errorf("%s: label %q is missing", lang, label)
			}
		}

		if len(t.Categories) == 0 {
			return fmt.Errorf("%s: no service categories", lang)
		}
		if reference == nil {
			reference = t.Categories
			continue
		}
		if len(t.Categories) != len(reference) {
			return fmt.Errorf("%s: service categories differ from %s", lang, models.Languages[0])
		}
		for i := range reference {
			if t.Categories[i].ID != reference[i].ID {
				return fmt.Errorf("%s: service category %d is %q, want %q", lang, i, t.Categories[i].ID, reference[i].ID)
			}
		}
	}
	return nil
}

func (c *Catalog) table(lang models.Language) *table {
	if t, ok := c.tables[lang]; ok {
		return t
	}
	return c.tables[models.LanguageEnglish]
}

// Keywords returns the ordered keyword table for a language
func (c *Catalog) Keywords(lang models.Language) []KeywordEntry {
	return c.table(lang).Keywords
}

// Message returns a fixed text
func (c *Catalog) Message(lang models.Language, key Key) string {
	return c.table(lang).Messages[key]
}

// Topic returns the reply template for a topic
func (c *Catalog) Topic(lang models.Language, topic models.Topic) TopicTemplate {
	return c.table(lang).Topics[topic]
}

// Label returns a translated display label
func (c *Catalog) Label(lang models.Language, name string) string {
	return c.table(lang).Labels[name]
}

// Categories returns a copy of the service categories in display order
func (c *Catalog) Categories(lang models.Language) []ServiceCategory {
	src := c.table(lang).Categories
	out := make([]ServiceCategory, len(src))
	copy(out, src)
	return out
}

// Category looks up a service category by id
func (c *Catalog) Category(lang models.Language, id string) (ServiceCategory, bool) {
	for _, cat := range c.table(lang).Categories {
		if cat.ID == id {
			return cat, true
		}
	}
	return ServiceCategory{}, false
}
