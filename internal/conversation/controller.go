package conversation

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ShivaTri14/nagar-seva-ai/internal/intent"
	"github.com/ShivaTri14/nagar-seva-ai/internal/memory"
	"github.com/ShivaTri14/nagar-seva-ai/internal/models"
	"github.com/ShivaTri14/nagar-seva-ai/internal/prompts"
	"github.com/ShivaTri14/nagar-seva-ai/internal/scheduler"
)

var (
	ErrEmptyTurn         = errors.New("conversation: empty turn")
	ErrAttachmentPending = errors.New("conversation: an image is already attached")
	ErrNotImage          = errors.New("conversation: attachment is not an image")
	ErrImageTooLarge     = errors.New("conversation: image exceeds size limit")
	ErrInvalidComplaint  = errors.New("conversation: invalid complaint")
	ErrSessionClosed     = errors.New("conversation: session closed")
)

// Scheduled task names
const (
	taskPrimary      = "primary-response"
	taskStatusUpdate = "status-update"
	taskReward       = "eco-reward"
)

// Default timings and limits
const (
	DefaultThinkingDelay         = 1500 * time.Millisecond
	DefaultStatusUpdateDelay     = 8 * time.Second
	DefaultRewardDelay           = 3 * time.Second
	DefaultMaxImageBytes         = 5 << 20
	DefaultMaxConcurrentAnalyses = 4
	DefaultPersistTimeout        = 5 * time.Second
)

// Analyzer classifies a waste image; vision.Adapter implements it
type Analyzer interface {
	Analyze(ctx context.Context, image models.Image) (models.Classification, error)
}

// Persister durably records a finished exchange; memory.Manager implements it
type Persister interface {
	Persist(ctx context.Context, rec memory.TurnRecord) error
}

// Options tune one session
type Options struct {
	SessionID             string
	UserID                string
	Language              models.Language
	ThinkingDelay         time.Duration
	StatusUpdateDelay     time.Duration
	RewardDelay           time.Duration
	MaxImageBytes         int
	MaxConcurrentAnalyses int
	PersistTimeout        time.Duration
}

func (o Options) withDefaults() Options {
	if o.SessionID == "" {
		o.SessionID = uuid.NewString()
	}
	if !o.Language.Valid() {
		o.Language = models.LanguageEnglish
	}
	if o.ThinkingDelay <= 0 {
		o.ThinkingDelay = DefaultThinkingDelay
	}
	if o.StatusUpdateDelay <= 0 {
		o.StatusUpdateDelay = DefaultStatusUpdateDelay
	}
	if o.RewardDelay <= 0 {
		o.RewardDelay = DefaultRewardDelay
	}
	if o.MaxImageBytes <= 0 {
		o.MaxImageBytes = DefaultMaxImageBytes
	}
	if o.MaxConcurrentAnalyses <= 0 {
		o.MaxConcurrentAnalyses = DefaultMaxConcurrentAnalyses
	}
	if o.PersistTimeout <= 0 {
		o.PersistTimeout = DefaultPersistTimeout
	}
	return o
}

// Deps are the collaborators shared by sessions
type Deps struct {
	Generator  *prompts.Generator
	Classifier *intent.Classifier
	Analyzer   Analyzer
	Scheduler  scheduler.Scheduler
	Persister  Persister // optional
	Logger     *zap.Logger
}

// Controller owns one conversation session: its transcript, language,
// pending attachment and the delayed work it has scheduled.
type Controller struct {
	opts       Options
	generator  *prompts.Generator
	classifier *intent.Classifier
	analyzer   Analyzer
	sched      scheduler.Scheduler
	persister  Persister
	logger     *zap.Logger
	events     *emitter
	analyses   *errgroup.Group
	wg         sync.WaitGroup

	mu             sync.Mutex
	log            *memory.Log
	unsubscribe    func()
	userID         string
	language       models.Language
	attachment     *models.Image
	draft          string
	primaryPending int
	analysesActive int
	lastActive     time.Time
	closed         bool

	// generation bounds everything scheduled since the last Reset
	generation context.Context
	cancel     context.CancelFunc
}

// New creates a session seeded with the greeting in its language
func New(opts Options, deps Deps) *Controller {
	opts = opts.withDefaults()
	if deps.Generator == nil {
		deps.Generator = prompts.NewGenerator(nil)
	}
	if deps.Classifier == nil {
		deps.Classifier = intent.NewClassifier(deps.Generator.Catalog())
	}
	if deps.Scheduler == nil {
		deps.Scheduler = scheduler.NewTimerScheduler(deps.Logger)
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	logger := deps.Logger.Named("conversation").With(zap.String("session_id", opts.SessionID))
	analyses := new(errgroup.Group)
	analyses.SetLimit(opts.MaxConcurrentAnalyses)

	c := &Controller{
		opts:       opts,
		generator:  deps.Generator,
		classifier: deps.Classifier,
		analyzer:   deps.Analyzer,
		sched:      deps.Scheduler,
		persister:  deps.Persister,
		logger:     logger,
		events:     newEmitter(opts.SessionID, deps.Scheduler.Now, logger),
		analyses:   analyses,
		userID:     opts.UserID,
		language:   opts.Language,
	}
	c.generation, c.cancel = context.WithCancel(context.Background())
	c.startLog()
	c.lastActive = c.sched.Now()

	logger.Debug("session started", zap.String("language", string(c.language)))
	return c
}

// startLog installs a fresh transcript seeded with the greeting. Caller holds mu or owns c.
func (c *Controller) startLog() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
	c.log = memory.NewLog(c.sched.Now)
	c.unsubscribe = c.log.Subscribe(c.forwardChange)
	c.log.Append(models.Message{
		Text:   c.generator.Message(c.language, prompts.KeyGreeting),
		Sender: models.SenderBot,
	})
}

func (c *Controller) forwardChange(change memory.Change) {
	msg := change.Message
	ev := models.Event{Type: models.EventMessageAppended, Message: &msg}
	if change.Kind == memory.ChangeReplaced {
		ev.Type = models.EventMessageReplaced
	}
	c.events.emit(ev)
}

func (c *Controller) SessionID() string {
	return c.opts.SessionID
}

func (c *Controller) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

// SetUserID attaches an identity; turns are persisted only while one is set
func (c *Controller) SetUserID(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = userID
}

func (c *Controller) Language() models.Language {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.language
}

// Snapshot returns the transcript in order
func (c *Controller) Snapshot() []models.Message {
	c.mu.Lock()
	log := c.log
	c.mu.Unlock()
	return log.Snapshot()
}

// Typing returns the progress flags
func (c *Controller) Typing() models.TypingState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.typingLocked()
}

func (c *Controller) typingLocked() models.TypingState {
	return models.TypingState{
		IsTyping:             c.primaryPending > 0,
		IsGeneratingResponse: c.primaryPending > 0 || c.analysesActive > 0,
	}
}

func (c *Controller) emitTypingLocked() {
	typing := c.typingLocked()
	c.events.emit(models.Event{Type: models.EventTyping, Typing: &typing})
}

// Draft returns the pending input text
func (c *Controller) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// SetDraft records what the user has typed but not sent
func (c *Controller) SetDraft(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = text
}

// Attachment returns the pending image reference, if any
func (c *Controller) Attachment() *models.Attachment {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.attachment == nil {
		return nil
	}
	return c.attachment.Ref()
}

// LastActive is the time of the last user operation
func (c *Controller) LastActive() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActive
}

// Subscribe streams session events until the session closes or cancel is called
func (c *Controller) Subscribe(buffer int) (<-chan models.Event, func()) {
	return c.events.subscribe(buffer)
}

func (c *Controller) touchLocked() {
	c.lastActive = c.sched.Now()
}

func (c *Controller) notifyLocked(level models.NotificationLevel, lang models.Language, title, body prompts.Key, kv ...string) {
	n := c.generator.Notification(lang, level, title, body, kv...)
	c.events.emit(models.Event{Type: models.EventNotification, Notification: &n})
}

// pendingTurn is everything a delayed response needs, captured at submit time
type pendingTurn struct {
	text     string
	intent   models.Intent
	language models.Language
	image    *models.Image
}

// Submit appends the user's turn and schedules the bot's reply. Empty text
// without an attachment is a no-op reported as ErrEmptyTurn.
func (c *Controller) Submit(text string) (models.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return models.Message{}, ErrSessionClosed
	}

	text = strings.TrimSpace(text)
	if text == "" && c.attachment == nil {
		return models.Message{}, ErrEmptyTurn
	}

	turn := pendingTurn{
		text:     text,
		language: c.language,
		intent: c.classifier.Classify(intent.Input{
			Text:         text,
			Language:     c.language,
			ImagePending: c.attachment != nil,
		}),
	}

	userMsg := models.Message{Text: text, Sender: models.SenderUser}
	if c.attachment != nil {
		turn.image = c.attachment
		userMsg.Attachment = c.attachment.Ref()
		c.attachment = nil
	}
	userMsg = c.log.Append(userMsg)
	c.draft = ""
	c.touchLocked()

	c.primaryPending++
	c.emitTypingLocked()

	c.logger.Debug("turn submitted",
		zap.Int64("message_id", userMsg.ID),
		zap.String("intent", turn.intent.String()))

	c.sched.Schedule(c.generation, taskPrimary, c.opts.ThinkingDelay, func(ctx context.Context) {
		c.respond(ctx, turn)
	})
	return userMsg, nil
}

// respond runs after the thinking delay
func (c *Controller) respond(ctx context.Context, turn pendingTurn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	c.primaryPending--

	lang := turn.language
	switch turn.intent.Kind {
	case models.IntentLanguageSwitch:
		c.language = turn.intent.Target
		reply := c.generator.Render(turn.intent, lang, prompts.Params{Text: turn.text})
		c.log.Append(models.Message{Text: reply.Text, Sender: models.SenderBot})
		c.events.emit(models.Event{Type: models.EventLanguageChanged, Language: c.language})
		c.persistLocked(turn, reply.Text)

	case models.IntentWasteAnalysis:
		placeholder := c.log.Append(models.Message{
			Text:   c.generator.Message(lang, prompts.KeyAnalyzing),
			Sender: models.SenderBot,
			Status: models.StatusPending,
		})
		c.startAnalysisLocked(ctx, turn, placeholder.ID)

	case models.IntentPhotoIssue:
		reply := c.generator.Render(turn.intent, lang, prompts.Params{Text: turn.text})
		c.log.Append(models.Message{Text: reply.Text, Sender: models.SenderBot})
		c.notifyLocked(models.NotificationSuccess, lang, prompts.KeyNotePhotoTitle, prompts.KeyNotePhotoBody)
		c.persistLocked(turn, reply.Text)

	default:
		reply := c.generator.Render(turn.intent, lang, prompts.Params{Text: turn.text})
		c.log.Append(models.Message{Text: reply.Text, Sender: models.SenderBot})
		if reply.FollowUp {
			topic := reply.Topic
			c.sched.Schedule(ctx, taskStatusUpdate, c.opts.StatusUpdateDelay, func(ctx context.Context) {
				c.appendFollowUp(ctx, c.generator.StatusUpdate(lang, topic))
			})
		}
		c.persistLocked(turn, reply.Text)
	}

	c.emitTypingLocked()
}

// appendFollowUp adds a delayed bot message unless the generation has ended
func (c *Controller) appendFollowUp(ctx context.Context, text string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ctx.Err() != nil {
		return false
	}
	c.log.Append(models.Message{Text: text, Sender: models.SenderBot, Status: models.StatusSuccess})
	return true
}

// startAnalysisLocked hands the image to the analyzer. Analyses run
// concurrently up to MaxConcurrentAnalyses; extra ones wait for a slot.
func (c *Controller) startAnalysisLocked(ctx context.Context, turn pendingTurn, placeholderID int64) {
	c.analysesActive++
	if turn.image == nil || c.analyzer == nil {
		// nothing to analyze; resolve the placeholder right away
		c.finishAnalysisLocked(ctx, turn, placeholderID, models.Classification{}, errors.New("no analyzer or image"))
		return
	}

	image := *turn.image
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.analyses.Go(func() error {
			cls, err := c.analyzer.Analyze(ctx, image)

			c.mu.Lock()
			defer c.mu.Unlock()
			if ctx.Err() != nil {
				return nil
			}
			c.finishAnalysisLocked(ctx, turn, placeholderID, cls, err)
			c.emitTypingLocked()
			return nil
		})
	}()
}

// finishAnalysisLocked replaces the placeholder with the terminal message
func (c *Controller) finishAnalysisLocked(ctx context.Context, turn pendingTurn, placeholderID int64, cls models.Classification, err error) {
	c.analysesActive--
	lang := turn.language

	if err != nil {
		c.logger.Warn("waste analysis failed", zap.Int64("placeholder_id", placeholderID), zap.Error(err))
		text := c.generator.Message(lang, prompts.KeyAnalysisFailed)
		c.log.Replace(placeholderID, models.Message{Text: text, Sender: models.SenderBot, Status: models.StatusFailed})
		c.notifyLocked(models.NotificationWarning, lang, prompts.KeyNoteAnalysisFailedTitle, prompts.KeyNoteAnalysisFailedBody)
		c.persistLocked(turn, text)
		return
	}

	text := c.generator.AnalysisResult(lang, cls)
	c.log.Replace(placeholderID, models.Message{Text: text, Sender: models.SenderBot, Status: models.StatusSuccess})
	c.persistLocked(turn, text)

	if !cls.Known() {
		return
	}
	c.sched.Schedule(ctx, taskReward, c.opts.RewardDelay, func(ctx context.Context) {
		if !c.appendFollowUp(ctx, c.generator.Reward(lang)) {
			return
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		c.notifyLocked(models.NotificationSuccess, lang, prompts.KeyNoteRewardTitle, prompts.KeyNoteRewardBody,
			"points", strconv.Itoa(prompts.EcoPointsPerAnalysis))
	})
}

// persistLocked fires a best-effort durable write when a user is known
func (c *Controller) persistLocked(turn pendingTurn, botText string) {
	if c.persister == nil || c.userID == "" {
		return
	}
	rec := memory.TurnRecord{
		UserID:      c.userID,
		SessionID:   c.opts.SessionID,
		UserMessage: turn.text,
		BotResponse: botText,
		Language:    string(turn.language),
		Intent:      turn.intent.String(),
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.opts.PersistTimeout)
		defer cancel()
		if err := c.persister.Persist(ctx, rec); err != nil {
			c.logger.Warn("failed to persist turn", zap.String("user_id", rec.UserID), zap.Error(err))
		}
	}()
}

// ToggleLanguage flips the language and returns the announcement it appended
func (c *Controller) ToggleLanguage() (models.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return models.Message{}, ErrSessionClosed
	}
	c.touchLocked()

	c.language = c.language.Other()
	msg := c.log.Append(models.Message{
		Text:   c.generator.Message(c.language, prompts.KeySwitched),
		Sender: models.SenderBot,
	})
	c.events.emit(models.Event{Type: models.EventLanguageChanged, Language: c.language})
	c.notifyLocked(models.NotificationInfo, c.language, prompts.KeyNoteLanguageTitle, prompts.KeyNoteLanguageBody)

	c.logger.Debug("language toggled", zap.String("language", string(c.language)))
	return msg, nil
}

// AttachImage validates and stages an image for the next submission. A
// rejected image leaves the session untouched apart from a warning notification.
func (c *Controller) AttachImage(image models.Image) (*models.Attachment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrSessionClosed
	}
	c.touchLocked()

	lang := c.language
	if c.attachment != nil {
		c.notifyLocked(models.NotificationWarning, lang, prompts.KeyNoteAttachmentPendingTitle, prompts.KeyNoteAttachmentPendingBody)
		return nil, ErrAttachmentPending
	}
	if !isImage(image.MIMEType) || len(image.Data) == 0 {
		c.notifyLocked(models.NotificationWarning, lang, prompts.KeyNoteNotImageTitle, prompts.KeyNoteNotImageBody)
		return nil, fmt.Errorf("%w: %q", ErrNotImage, image.MIMEType)
	}
	if len(image.Data) > c.opts.MaxImageBytes {
		limit := strconv.Itoa(c.opts.MaxImageBytes >> 20)
		c.notifyLocked(models.NotificationWarning, lang, prompts.KeyNoteTooLargeTitle, prompts.KeyNoteTooLargeBody, "limit", limit)
		return nil, fmt.Errorf("%w: %d bytes", ErrImageTooLarge, len(image.Data))
	}

	if image.ID == "" {
		image.ID = uuid.NewString()
	}
	c.attachment = &image
	if strings.TrimSpace(c.draft) == "" {
		c.draft = c.generator.Message(lang, prompts.KeyIdentifyPrompt)
	}
	c.notifyLocked(models.NotificationSuccess, lang, prompts.KeyNoteAttachedTitle, prompts.KeyNoteAttachedBody)

	c.logger.Debug("image attached", zap.String("image_id", image.ID), zap.Int("size", len(image.Data)))
	return image.Ref(), nil
}

func isImage(mimeType string) bool {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mediaType, "image/")
}

// ClearAttachment drops the staged image
func (c *Controller) ClearAttachment() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrSessionClosed
	}
	c.touchLocked()
	c.attachment = nil
	return nil
}

// FileComplaint turns the structured complaint form into a regular turn
func (c *Controller) FileComplaint(form models.ComplaintForm) (models.Message, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return models.Message{}, ErrSessionClosed
	}
	lang := c.language

	cat, ok := c.generator.Catalog().Category(lang, form.Type)
	form.Location = strings.TrimSpace(form.Location)
	form.Description = strings.TrimSpace(form.Description)
	if !ok || form.Location == "" || form.Description == "" {
		c.mu.Unlock()
		return models.Message{}, fmt.Errorf("%w: type, location and description are required", ErrInvalidComplaint)
	}

	n := models.Notification{
		Level:       models.NotificationInfo,
		Title:       c.generator.Message(lang, prompts.KeyNoteComplaintTitle),
		Description: c.generator.ComplaintSummary(lang, cat.Label, form.Location),
	}
	c.events.emit(models.Event{Type: models.EventNotification, Notification: &n})
	text := c.generator.ComplaintText(lang, form)
	c.mu.Unlock()

	return c.Submit(text)
}

// Reset cancels everything scheduled so far and starts a fresh transcript in
// the current language
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrSessionClosed
	}
	c.cancel()
	c.generation, c.cancel = context.WithCancel(context.Background())

	c.attachment = nil
	c.draft = ""
	c.primaryPending = 0
	c.analysesActive = 0
	c.touchLocked()
	c.startLog()
	c.emitTypingLocked()

	c.logger.Info("session reset")
	return nil
}

// Close ends the session: pending follow-ups are discarded, in-flight
// analyses are cancelled and subscribers are closed. Close waits for
// background work to drain.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.cancel()
	c.unsubscribe()
	c.mu.Unlock()

	c.wg.Wait()
	c.analyses.Wait()
	c.events.close()

	c.logger.Debug("session closed")
}

// Closed reports whether Close has been called
func (c *Controller) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
