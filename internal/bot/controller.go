package bot

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"calbot/internal/models/db_models"
	"calbot/internal/services"
	mem "calbot/pkg/memcache"
	"calbot/pkg/utils"
)

// Incoming is the part of a platform update the controller acts on.
type Incoming struct {
	UserID    int64
	ChatID    int64
	Username  string
	FirstName string

	Command string
	Args    string
	Text    string

	// PhotoFileID is the largest size of an attached photo.
	PhotoFileID string
}

// IncomingFromUpdate extracts an Incoming from a Telegram update. Updates
// without a user message (edits, callbacks, channel posts) are ignored.
func IncomingFromUpdate(u tgbotapi.Update) (Incoming, bool) {
	msg := u.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return Incoming{}, false
	}

	in := Incoming{
		UserID:    msg.From.ID,
		ChatID:    msg.Chat.ID,
		Username:  msg.From.UserName,
		FirstName: msg.From.FirstName,
	}

	switch {
	case msg.IsCommand():
		in.Command = msg.Command()
		in.Args = strings.TrimSpace(msg.CommandArguments())
	case len(msg.Photo) > 0:
		in.PhotoFileID = msg.Photo[len(msg.Photo)-1].FileID
	default:
		in.Text = msg.Text
	}
	return in, true
}

func (in Incoming) displayName() string {
	if in.FirstName != "" {
		return in.FirstName
	}
	return in.Username
}

type ControllerOptions struct {
	StateTTL  time.Duration
	MinTarget int
	MaxTarget int
}

type Controller struct {
	tracker       services.TrackerServiceInterface
	lookup        services.FoodLookupServiceInterface
	photos        services.PhotoStore
	files         FileDownloader
	messenger     Messenger
	conversations mem.ConversationStore
	opts          ControllerOptions
	logger        *zap.Logger
}

func NewController(
	tracker services.TrackerServiceInterface,
	lookup services.FoodLookupServiceInterface,
	photos services.PhotoStore,
	files FileDownloader,
	messenger Messenger,
	conversations mem.ConversationStore,
	opts ControllerOptions,
	logger *zap.Logger,
) *Controller {
	if opts.StateTTL <= 0 {
		opts.StateTTL = 10 * time.Minute
	}
	if opts.MinTarget <= 0 {
		opts.MinTarget = 500
	}
	if opts.MaxTarget <= 0 {
		opts.MaxTarget = 5000
	}
	if photos == nil {
		photos = services.NewNoopPhotoStore()
	}
	return &Controller{
		tracker:       tracker,
		lookup:        lookup,
		photos:        photos,
		files:         files,
		messenger:     messenger,
		conversations: conversations,
		opts:          opts,
		logger:        logger.Named("bot"),
	}
}

func (c *Controller) HandleUpdate(ctx context.Context, u tgbotapi.Update) {
	in, ok := IncomingFromUpdate(u)
	if !ok {
		return
	}
	c.Handle(ctx, in)
}

// Handle dispatches one inbound message. Every failure ends in a reply; none
// propagate.
func (c *Controller) Handle(ctx context.Context, in Incoming) {
	switch {
	case in.Command != "":
		c.handleCommand(ctx, in)
	case in.PhotoFileID != "":
		c.conversations.Clear(in.UserID)
		c.handlePhoto(ctx, in)
	default:
		c.handleText(ctx, in)
	}
}

// SweepConversations drops abandoned /add flows.
func (c *Controller) SweepConversations() int {
	return c.conversations.Sweep()
}

func (c *Controller) handleCommand(ctx context.Context, in Incoming) {
	// Any command ends an in-flight /add.
	_, pending := c.conversations.Get(in.UserID)
	c.conversations.Clear(in.UserID)

	switch in.Command {
	case "start":
		c.start(ctx, in)
	case "help":
		c.reply(ctx, in, msgHelp)
	case "add":
		c.add(ctx, in)
	case "cancel":
		if pending {
			c.reply(ctx, in, msgCancelled)
		} else {
			c.reply(ctx, in, msgNothingToCancel)
		}
	case "summary":
		c.summary(ctx, in)
	case "history":
		c.history(ctx, in)
	case "settings":
		c.settings(ctx, in)
	case "set_target":
		c.setTarget(ctx, in)
	case "toggle_reminders":
		c.toggleReminders(ctx, in)
	default:
		c.reply(ctx, in, msgUnknownCommand)
	}
}

func (c *Controller) start(ctx context.Context, in Incoming) {
	name := in.Username
	if name == "" {
		name = in.FirstName
	}

	created, err := c.tracker.CreateUser(ctx, in.UserID, name)
	if err != nil {
		c.reply(ctx, in, msgStartFailed)
		return
	}

	if created {
		c.reply(ctx, in, welcomeNew(in.displayName()))
		return
	}
	c.reply(ctx, in, welcomeBack(in.displayName()))
}

// requireUser replies with the /start hint and returns nil when the user is
// unknown or cannot be loaded.
func (c *Controller) requireUser(ctx context.Context, in Incoming, failMsg string) *db_models.User {
	user, err := c.tracker.GetUser(ctx, in.UserID)
	if err != nil {
		c.reply(ctx, in, failMsg)
		return nil
	}
	if user == nil {
		c.reply(ctx, in, msgNeedStart)
		return nil
	}
	return user
}

func (c *Controller) add(ctx context.Context, in Incoming) {
	if c.requireUser(ctx, in, msgMealFailed) == nil {
		return
	}
	c.conversations.Set(in.UserID, mem.Conversation{Step: mem.StepFoodName}, c.opts.StateTTL)
	c.reply(ctx, in, msgAskFoodName)
}

func (c *Controller) handleText(ctx context.Context, in Incoming) {
	conv, ok := c.conversations.Get(in.UserID)
	if !ok {
		c.reply(ctx, in, msgIdleHint)
		return
	}

	switch conv.Step {
	case mem.StepFoodName:
		name := strings.TrimSpace(in.Text)
		if name == "" {
			c.conversations.Set(in.UserID, conv, c.opts.StateTTL)
			c.reply(ctx, in, msgAskFoodName)
			return
		}
		c.conversations.Set(in.UserID, mem.Conversation{Step: mem.StepCalories, FoodName: name}, c.opts.StateTTL)
		c.reply(ctx, in, msgAskCalories)

	case mem.StepCalories:
		calories, ok := parseCalories(in.Text)
		if !ok {
			c.conversations.Set(in.UserID, conv, c.opts.StateTTL)
			c.reply(ctx, in, msgInvalidCalories)
			return
		}
		c.conversations.Clear(in.UserID)
		c.logManualMeal(ctx, in, conv.FoodName, calories)

	default:
		c.conversations.Clear(in.UserID)
		c.reply(ctx, in, msgIdleHint)
	}
}

func parseCalories(text string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func (c *Controller) logManualMeal(ctx context.Context, in Incoming, food string, calories float64) {
	if _, err := c.tracker.AddMeal(ctx, in.UserID, food, calories, db_models.MealTypeManual, nil); err != nil {
		c.reply(ctx, in, msgMealFailed)
		return
	}

	total, err := c.tracker.DailyTotal(ctx, in.UserID, c.tracker.Now())
	if err != nil {
		c.reply(ctx, in, msgMealFailed)
		return
	}
	c.reply(ctx, in, mealLogged(food, calories, total))
}

func (c *Controller) handlePhoto(ctx context.Context, in Incoming) {
	if c.requireUser(ctx, in, msgPhotoFailed) == nil {
		return
	}

	data, filePath, err := c.files.Download(ctx, in.PhotoFileID)
	if err != nil {
		c.logger.Warn("failed to download photo", zap.Int64("user_id", in.UserID), zap.Error(err))
		c.reply(ctx, in, msgPhotoFailed)
		return
	}

	estimate, err := c.lookup.AnalyzePhoto(ctx, data)
	if err != nil {
		if isUpstreamFailure(err) {
			c.reply(ctx, in, msgPhotoUnrecognized)
			return
		}
		c.logger.Error("failed to analyze photo", zap.Int64("user_id", in.UserID), zap.Error(err))
		c.reply(ctx, in, msgPhotoFailed)
		return
	}

	ref := filePath
	if archived, err := c.photos.Save(ctx, in.UserID, data); err != nil {
		c.logger.Warn("photo archive failed, keeping file path", zap.Int64("user_id", in.UserID), zap.Error(err))
	} else if archived != "" {
		ref = archived
	}

	var photoRef *string
	if ref != "" {
		photoRef = &ref
	}
	if _, err := c.tracker.AddMeal(ctx, in.UserID, estimate.Name, estimate.Calories, db_models.MealTypePhoto, photoRef); err != nil {
		c.reply(ctx, in, msgMealFailed)
		return
	}

	total, err := c.tracker.DailyTotal(ctx, in.UserID, c.tracker.Now())
	if err != nil {
		c.reply(ctx, in, msgMealFailed)
		return
	}
	c.reply(ctx, in, photoLogged(estimate.Name, estimate.Calories, total))
}

func isUpstreamFailure(err error) bool {
	var apiErr *utils.APIError
	return errors.Is(err, utils.ErrImageTooSmall) ||
		errors.Is(err, utils.ErrInvalidImage) ||
		errors.Is(err, utils.ErrFoodNotFound) ||
		errors.Is(err, utils.ErrLookupTimeout) ||
		errors.As(err, &apiErr)
}

func (c *Controller) summary(ctx context.Context, in Incoming) {
	s, err := c.tracker.DaySummary(ctx, in.UserID, c.tracker.Now())
	if err != nil {
		if errors.Is(err, utils.ErrUserNotFound) {
			c.reply(ctx, in, msgNeedStart)
			return
		}
		c.reply(ctx, in, msgSummaryFailed)
		return
	}
	c.reply(ctx, in, summaryText(s))
}

func (c *Controller) history(ctx context.Context, in Incoming) {
	if c.requireUser(ctx, in, msgHistoryFailed) == nil {
		return
	}

	logs, err := c.tracker.RecentLogs(ctx, in.UserID, 7)
	if err != nil {
		c.reply(ctx, in, msgHistoryFailed)
		return
	}
	c.reply(ctx, in, historyText(logs))
}

func (c *Controller) settings(ctx context.Context, in Incoming) {
	user := c.requireUser(ctx, in, msgSettingsFailed)
	if user == nil {
		return
	}
	c.reply(ctx, in, settingsText(user))
}

func (c *Controller) setTarget(ctx context.Context, in Incoming) {
	arg := strings.Fields(in.Args)
	if len(arg) == 0 || !isDigits(arg[0]) {
		c.reply(ctx, in, msgTargetUsage)
		return
	}

	target, err := strconv.Atoi(arg[0])
	if err != nil || target < c.opts.MinTarget || target > c.opts.MaxTarget {
		c.reply(ctx, in, targetOutOfRange(c.opts.MinTarget, c.opts.MaxTarget))
		return
	}

	err = c.tracker.UpdateSettings(ctx, in.UserID, services.SettingsPatch{DailyTarget: &target})
	switch {
	case errors.Is(err, utils.ErrUserNotFound):
		c.reply(ctx, in, msgNeedStart)
	case err != nil:
		c.reply(ctx, in, msgTargetFailed)
	default:
		c.reply(ctx, in, targetUpdated(target))
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (c *Controller) toggleReminders(ctx context.Context, in Incoming) {
	user := c.requireUser(ctx, in, msgReminderFailed)
	if user == nil {
		return
	}

	enabled := !user.ReminderEnabled
	err := c.tracker.UpdateSettings(ctx, in.UserID, services.SettingsPatch{ReminderEnabled: &enabled})
	if err != nil {
		c.reply(ctx, in, msgReminderFailed)
		return
	}
	c.reply(ctx, in, remindersToggled(enabled))
}

func (c *Controller) reply(ctx context.Context, in Incoming, text string) {
	if err := c.messenger.Send(ctx, in.ChatID, text); err != nil {
		c.logger.Warn("failed to reply", zap.Int64("user_id", in.UserID), zap.Error(err))
	}
}
