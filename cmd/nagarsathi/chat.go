package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ShivaTri14/nagar-seva-ai/internal/conversation"
	"github.com/ShivaTri14/nagar-seva-ai/internal/memory"
	"github.com/ShivaTri14/nagar-seva-ai/internal/models"
	"github.com/ShivaTri14/nagar-seva-ai/internal/scheduler"
	"github.com/ShivaTri14/nagar-seva-ai/internal/vision"
)

var chatUserID string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the assistant",
	Long: `Starts an interactive session. Type a message and press enter.

Commands:
  /lang                               toggle English and Hindi
  /attach <file>                      attach an image to the next message
  /clear                              drop the attached image
  /complaint <type> | <location> | <description>
                                      file a complaint (water, waste, tax, roads, permits)
  /reset                              start over
  /quit                               leave`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatUserID, "user", "", "User id; turns are persisted to STORE_BACKEND when set")
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, logger, lang, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	deps := conversation.Deps{
		Scheduler: scheduler.NewTimerScheduler(logger),
		Logger:    logger,
	}
	defer deps.Scheduler.Stop()

	classifier, err := vision.NewClassifierFromConfig(cfg)
	if err != nil {
		return err
	}
	deps.Analyzer = vision.NewAdapter(classifier, cfg.VisionTimeout, logger)

	if chatUserID != "" {
		store, err := memory.OpenStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		manager := memory.NewManager(store, logger, memory.WithMaxCachedUsers(cfg.MemoryCacheUsers))
		defer manager.Close()
		deps.Persister = manager
	}

	session := conversation.New(conversation.Options{
		UserID:                chatUserID,
		Language:              lang,
		ThinkingDelay:         cfg.ThinkingDelay,
		StatusUpdateDelay:     cfg.StatusUpdateDelay,
		RewardDelay:           cfg.RewardDelay,
		MaxImageBytes:         cfg.MaxImageBytes,
		MaxConcurrentAnalyses: cfg.MaxConcurrentAnalyses,
		PersistTimeout:        cfg.PersistTimeout,
	}, deps)

	out := cmd.OutOrStdout()
	for _, msg := range session.Snapshot() {
		printMessage(out, msg)
	}

	events, _ := session.Subscribe(conversation.DefaultEventBuffer)
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for ev := range events {
			printEvent(out, ev)
		}
	}()

	err = chatLoop(cmd.Context(), cmd.InOrStdin(), out, session, logger)
	waitIdle(session, cfg.ThinkingDelay+cfg.VisionTimeout)
	session.Close()
	<-printed
	return err
}

func chatLoop(ctx context.Context, in io.Reader, out io.Writer, session *conversation.Controller, logger *zap.Logger) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		quit, err := handleLine(session, line)
		if err != nil {
			logger.Debug("command rejected", zap.Error(err))
			if !isNotified(err) {
				fmt.Fprintf(out, "  ! %v\n", err)
			}
		}
		if quit {
			return nil
		}
	}
	return scanner.Err()
}

// handleLine runs one line of input; it reports whether the user asked to quit
func handleLine(session *conversation.Controller, line string) (bool, error) {
	command, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch command {
	case "/quit", "/exit":
		return true, nil
	case "/lang":
		_, err := session.ToggleLanguage()
		return false, err
	case "/attach":
		image, err := readImage(rest)
		if err != nil {
			return false, err
		}
		_, err = session.AttachImage(image)
		return false, err
	case "/clear":
		return false, session.ClearAttachment()
	case "/reset":
		return false, session.Reset()
	case "/complaint":
		form, err := parseComplaint(rest)
		if err != nil {
			return false, err
		}
		_, err = session.FileComplaint(form)
		return false, err
	}

	if line == "" && session.Attachment() == nil {
		return false, nil
	}
	_, err := session.Submit(line)
	return false, err
}

func parseComplaint(s string) (models.ComplaintForm, error) {
	parts := strings.SplitN(s, "|", 3)
	if len(parts) != 3 {
		return models.ComplaintForm{}, errors.New("usage: /complaint <type> | <location> | <description>")
	}
	return models.ComplaintForm{
		Type:        strings.TrimSpace(parts[0]),
		Location:    strings.TrimSpace(parts[1]),
		Description: strings.TrimSpace(parts[2]),
	}, nil
}

// isNotified reports errors the session already announced as a notification
func isNotified(err error) bool {
	return errors.Is(err, conversation.ErrNotImage) ||
		errors.Is(err, conversation.ErrImageTooLarge) ||
		errors.Is(err, conversation.ErrAttachmentPending)
}

// waitIdle gives scheduled replies a chance to land before the session closes
func waitIdle(session *conversation.Controller, limit time.Duration) {
	deadline := time.Now().Add(limit)
	for time.Now().Before(deadline) {
		if !session.Typing().IsGeneratingResponse {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func printEvent(out io.Writer, ev models.Event) {
	switch ev.Type {
	case models.EventMessageAppended, models.EventMessageReplaced:
		if ev.Message.Sender == models.SenderBot {
			printMessage(out, *ev.Message)
		}
	case models.EventNotification:
		fmt.Fprintf(out, "  [%s] %s: %s\n", ev.Notification.Level, ev.Notification.Title, ev.Notification.Description)
	case models.EventTyping:
		if ev.Typing.IsTyping {
			fmt.Fprintln(out, "  ...")
		}
	}
}

func printMessage(out io.Writer, msg models.Message) {
	prefix := "you"
	if msg.Sender == models.SenderBot {
		prefix = "nagarsathi"
	}
	if msg.Status == models.StatusFailed {
		prefix += " (error)"
	}
	fmt.Fprintf(out, "%s> %s\n", prefix, msg.Text)
}
