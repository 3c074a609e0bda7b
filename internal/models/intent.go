package models

// IntentKind is the branch a user turn takes through the conversation engine
type IntentKind string

const (
	IntentFallback       IntentKind = "fallback"
	IntentLanguageSwitch IntentKind = "language_switch"
	IntentWasteAnalysis  IntentKind = "waste_analysis"
	IntentPhotoIssue     IntentKind = "photo_issue"
	IntentOrganic        IntentKind = "organic_waste"
	IntentRecyclable     IntentKind = "recyclable_waste"
	IntentHazardous      IntentKind = "hazardous_waste"
	IntentTopic          IntentKind = "topic"
)

// Topic is an entry of the keyword table
type Topic string

const (
	TopicGarbage     Topic = "garbage"
	TopicWater       Topic = "water"
	TopicRoad        Topic = "road"
	TopicCertificate Topic = "certificate"
	TopicBill        Topic = "bill"
	TopicWaste       Topic = "waste"
	TopicRecycle     Topic = "recycle"
	TopicTax         Topic = "tax"
	TopicPermit      Topic = "permit"
)

// Topics lists every topic; templates must exist for each in every language
var Topics = []Topic{
	TopicGarbage, TopicWater, TopicRoad, TopicCertificate, TopicBill,
	TopicWaste, TopicRecycle, TopicTax, TopicPermit,
}

// IsComplaint reports whether the topic files a tracked complaint
func (t Topic) IsComplaint() bool {
	switch t {
	case TopicGarbage, TopicWater, TopicRoad:
		return true
	}
	return false
}

// Intent is the classifier's verdict for one turn
type Intent struct {
	Kind    IntentKind
	Topic   Topic    // IntentTopic only
	Keyword string   // the matched keyword, if any
	Target  Language // IntentLanguageSwitch only
	// Letter is set on IntentPhotoIssue when the text is free-form and matched
	// nothing else; the reply then carries a complaint letter.
	Letter bool
}

func (i Intent) String() string {
	switch i.Kind {
	case IntentTopic:
		return string(i.Kind) + ":" + string(i.Topic)
	case IntentLanguageSwitch:
		return string(i.Kind) + ":" + string(i.Target)
	}
	return string(i.Kind)
}
