package prompts

import (
	"math"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/ShivaTri14/nagar-seva-ai/internal/models"
)

const (
	// TrackingIDLimit bounds tracking ids to four digits: [0, TrackingIDLimit)
	TrackingIDLimit = 10000

	// EcoPointsPerAnalysis is awarded after a successful waste classification
	EcoPointsPerAnalysis = 10
)

// Reply is rendered bot text plus what the controller must do next
type Reply struct {
	Text string
	// Tracked is set when Text ends in a freshly drawn TrackingID
	Tracked    bool
	TrackingID int
	// FollowUp asks for a delayed status update on Topic
	FollowUp bool
	Topic    models.Topic
}

// Params carries the dynamic parts of a turn
type Params struct {
	// Text is the user's raw input; used for complaint letters
	Text string
}

// Option configures a Generator
type Option func(*Generator)

// WithTrackingSource replaces the random tracking id source
func WithTrackingSource(fn func() int) Option {
	return func(g *Generator) { g.trackingID = fn }
}

// Generator renders bot text from the catalog
type Generator struct {
	catalog    *Catalog
	trackingID func() int
}

// NewGenerator creates a generator over a catalog; nil means the embedded one
func NewGenerator(catalog *Catalog, opts ...Option) *Generator {
	if catalog == nil {
		catalog = Default()
	}
	g := &Generator{catalog: catalog, trackingID: RandomTrackingID}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// RandomTrackingID draws a cosmetic id in [0, TrackingIDLimit)
func RandomTrackingID() int {
	return rand.IntN(TrackingIDLimit)
}

// Catalog exposes the underlying tables
func (g *Generator) Catalog() *Catalog {
	return g.catalog
}

// Message returns a fixed text
func (g *Generator) Message(lang models.Language, key Key) string {
	return g.catalog.Message(lang, key)
}

// Render produces the primary reply for an intent
func (g *Generator) Render(in models.Intent, lang models.Language, p Params) Reply {
	switch in.Kind {
	case models.IntentLanguageSwitch:
		return Reply{Text: g.catalog.Message(in.Target, KeyWelcome)}

	case models.IntentTopic:
		tmpl := g.catalog.Topic(lang, in.Topic)
		if !in.Topic.IsComplaint() {
			return Reply{Text: tmpl.Text}
		}
		id := g.trackingID()
		return Reply{
			Text:       tmpl.Text + strconv.Itoa(id),
			Tracked:    true,
			TrackingID: id,
			FollowUp:   true,
			Topic:      in.Topic,
		}

	case models.IntentPhotoIssue:
		id := g.trackingID()
		text := g.catalog.Message(lang, KeyPhotoAck) + strconv.Itoa(id)
		if in.Letter {
			location, _ := ExtractLocation(p.Text)
			text += "\n\n" + g.catalog.Message(lang, KeyLetterIntro) + "\n\n" + g.Letter(lang, p.Text, location)
		}
		return Reply{Text: text, Tracked: true, TrackingID: id}

	case models.IntentWasteAnalysis:
		return Reply{Text: g.catalog.Message(lang, KeyAnalyzing)}

	case models.IntentOrganic:
		return Reply{Text: g.catalog.Message(lang, KeyOrganicAdvice)}
	case models.IntentRecyclable:
		return Reply{Text: g.catalog.Message(lang, KeyRecyclableAdvice)}
	case models.IntentHazardous:
		return Reply{Text: g.catalog.Message(lang, KeyHazardousAdvice)}
	}

	return Reply{Text: g.catalog.Message(lang, KeyFallback)}
}

// StatusUpdate is the delayed field-team message for a complaint topic
func (g *Generator) StatusUpdate(lang models.Language, topic models.Topic) string {
	return fill(g.catalog.Message(lang, KeyStatusUpdate), "topic", g.catalog.Topic(lang, topic).Label)
}

// AnalysisResult renders the terminal message for a classification
func (g *Generator) AnalysisResult(lang models.Language, c models.Classification) string {
	issue := c.DetectedIssue
	if issue == "" {
		issue = g.catalog.Message(lang, KeyUnknownIssue)
	}
	confidence := strconv.Itoa(ConfidencePercent(c.Confidence))

	if !c.Known() {
		return fill(g.catalog.Message(lang, KeyAnalysisUnknown),
			"issue", issue,
			"confidence", confidence)
	}
	return fill(g.catalog.Message(lang, KeyAnalysisResult),
		"waste_type", g.catalog.Label(lang, wasteLabel(c.WasteType)),
		"issue", issue,
		"bin", g.catalog.Label(lang, binLabel(c.BinType)),
		"confidence", confidence)
}

// ConfidencePercent converts [0,1] to a whole percentage, rounding half away from zero
func ConfidencePercent(confidence float64) int {
	return int(math.Round(confidence * 100))
}

// Reward is the delayed eco-points message
func (g *Generator) Reward(lang models.Language) string {
	return fill(g.catalog.Message(lang, KeyReward), "points", strconv.Itoa(EcoPointsPerAnalysis))
}

// Notification builds a toast from a title and body key pair
func (g *Generator) Notification(lang models.Language, level models.NotificationLevel, title, body Key, kv ...string) models.Notification {
	return models.Notification{
		Level:       level,
		Title:       fill(g.catalog.Message(lang, title), kv...),
		Description: fill(g.catalog.Message(lang, body), kv...),
	}
}

// ComplaintText renders a complaint form submission as a user turn
func (g *Generator) ComplaintText(lang models.Language, form models.ComplaintForm) string {
	kind := form.Type
	if cat, ok := g.catalog.Category(lang, form.Type); ok {
		kind = cat.Label
	}
	text := fill(g.catalog.Message(lang, KeyComplaintForm),
		"type", kind,
		"location", strings.TrimSpace(form.Location),
		"description", strings.TrimSpace(form.Description))
	return strings.TrimSpace(text)
}

// ComplaintSummary renders the one-line complaint summary
func (g *Generator) ComplaintSummary(lang models.Language, issue, location string) string {
	return fill(g.catalog.Message(lang, KeyComplaintSummary), "issue", issue, "loc", location)
}

// fill substitutes {name} placeholders from name/value pairs
func fill(tmpl string, kv ...string) string {
	if len(kv) == 0 {
		return tmpl
	}
	pairs := make([]string, 0, len(kv))
	for i := 0; i+1 < len(kv); i += 2 {
		pairs = append(pairs, "{"+kv[i]+"}", kv[i+1])
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}
