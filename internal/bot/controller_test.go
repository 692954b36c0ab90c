package bot

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"calbot/internal/config"
	"calbot/internal/infra"
	"calbot/internal/models/db_models"
	"calbot/internal/repositories"
	"calbot/internal/services"
	mem "calbot/pkg/memcache"
	"calbot/pkg/utils"
)

type sentMessage struct {
	ChatID int64
	Text   string
}

type fakeMessenger struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (m *fakeMessenger) Send(_ context.Context, chatID int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMessage{ChatID: chatID, Text: text})
	return nil
}

func (m *fakeMessenger) last() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return ""
	}
	return m.sent[len(m.sent)-1].Text
}

type fakeFiles struct {
	data []byte
	err  error
}

func (f *fakeFiles) Download(context.Context, string) ([]byte, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	return f.data, "photos/file_1.jpg", nil
}

type fakeNutrition struct {
	info  services.FoodInfo
	err   error
	calls int
}

func (f *fakeNutrition) FetchCalories(_ context.Context, query string) (services.FoodInfo, error) {
	f.calls++
	if f.err != nil {
		return services.FoodInfo{}, f.err
	}
	info := f.info
	if info.Name == "" {
		info.Name = query
	}
	return info, nil
}

type fakePhotos struct {
	ref string
	err error
}

func (p *fakePhotos) Save(context.Context, int64, []byte) (string, error) {
	return p.ref, p.err
}

func colorPNG(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type ControllerTestSuite struct {
	suite.Suite
	ctx       context.Context
	now       time.Time
	tracker   services.TrackerServiceInterface
	nutrition *fakeNutrition
	files     *fakeFiles
	photos    *fakePhotos
	messenger *fakeMessenger
	ctrl      *Controller
}

func (s *ControllerTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

	db, err := infra.InitDatabase(config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"}, zap.NewNop())
	require.NoError(s.T(), err)
	s.T().Cleanup(func() { infra.CloseDatabase(db, zap.NewNop()) })

	s.tracker = services.NewTrackerService(
		repositories.NewUserRepository(db),
		repositories.NewMealRepository(db),
		repositories.NewDailyLogRepository(db),
		services.TrackerOptions{Location: time.UTC, DefaultTarget: 2000, Clock: func() time.Time { return s.now }},
		zap.NewNop(),
	)
	s.nutrition = &fakeNutrition{info: services.FoodInfo{Calories: 100}}
	lookup := services.NewFoodLookupService(s.nutrition, nil, nil, time.Hour, zap.NewNop())
	s.files = &fakeFiles{}
	s.photos = &fakePhotos{}
	s.messenger = &fakeMessenger{}

	s.ctrl = NewController(
		s.tracker, lookup, s.photos, s.files, s.messenger, mem.NewConversations(),
		ControllerOptions{StateTTL: 10 * time.Minute, MinTarget: 500, MaxTarget: 5000},
		zap.NewNop(),
	)
}

func TestControllerTestSuite(t *testing.T) {
	suite.Run(t, new(ControllerTestSuite))
}

func (s *ControllerTestSuite) command(userID int64, cmd, args string) string {
	s.ctrl.Handle(s.ctx, Incoming{UserID: userID, ChatID: userID, FirstName: "Ann", Username: "ann", Command: cmd, Args: args})
	return s.messenger.last()
}

func (s *ControllerTestSuite) text(userID int64, text string) string {
	s.ctrl.Handle(s.ctx, Incoming{UserID: userID, ChatID: userID, Text: text})
	return s.messenger.last()
}

func (s *ControllerTestSuite) photo(userID int64) string {
	s.ctrl.Handle(s.ctx, Incoming{UserID: userID, ChatID: userID, PhotoFileID: "file-1"})
	return s.messenger.last()
}

func (s *ControllerTestSuite) TestStart() {
	reply := s.command(1, "start", "")
	assert.Contains(s.T(), reply, "Welcome to CalorieTracker Bot, Ann!")

	reply = s.command(1, "start", "")
	assert.Contains(s.T(), reply, "Welcome back, Ann!")

	user, err := s.tracker.GetUser(s.ctx, 1)
	require.NoError(s.T(), err)
	require.NotNil(s.T(), user)
	assert.Equal(s.T(), "ann", user.Username)
}

func (s *ControllerTestSuite) TestHelpAndUnknown() {
	help := s.command(1, "help", "")
	for _, cmd := range []string{"/start", "/add", "/summary", "/history", "/settings", "/set_target", "/toggle_reminders", "/cancel"} {
		assert.Contains(s.T(), help, cmd)
	}
	assert.Equal(s.T(), msgUnknownCommand, s.command(1, "dance", ""))
}

func (s *ControllerTestSuite) TestAddConversation() {
	s.command(1, "start", "")

	assert.Equal(s.T(), msgAskFoodName, s.command(1, "add", ""))
	assert.Equal(s.T(), msgAskCalories, s.text(1, "Toast"))
	assert.Equal(s.T(), msgInvalidCalories, s.text(1, "lots"))
	assert.Equal(s.T(), msgInvalidCalories, s.text(1, "-5"))

	reply := s.text(1, "250")
	assert.Equal(s.T(), "✅ Logged Toast (250.0 calories)\nDaily total: 250.0 calories", reply)

	meals, err := s.tracker.DailyMeals(s.ctx, 1, s.now)
	require.NoError(s.T(), err)
	require.Len(s.T(), meals, 1)
	assert.Equal(s.T(), db_models.MealTypeManual, meals[0].MealType)

	// conversation is over
	assert.Equal(s.T(), msgIdleHint, s.text(1, "300"))
}

func (s *ControllerTestSuite) TestAddRequiresStart() {
	assert.Equal(s.T(), msgNeedStart, s.command(9, "add", ""))
	assert.Equal(s.T(), msgIdleHint, s.text(9, "Toast"))
}

func (s *ControllerTestSuite) TestCancel() {
	s.command(1, "start", "")
	s.command(1, "add", "")
	s.text(1, "Toast")

	assert.Equal(s.T(), msgCancelled, s.command(1, "cancel", ""))
	assert.Equal(s.T(), msgIdleHint, s.text(1, "250"))
	assert.Equal(s.T(), msgNothingToCancel, s.command(1, "cancel", ""))

	total, err := s.tracker.DailyTotal(s.ctx, 1, s.now)
	require.NoError(s.T(), err)
	assert.Zero(s.T(), total)
}

func (s *ControllerTestSuite) TestOtherCommandAbortsAdd() {
	s.command(1, "start", "")
	s.command(1, "add", "")
	s.command(1, "summary", "")

	assert.Equal(s.T(), msgIdleHint, s.text(1, "Toast"))
}

func (s *ControllerTestSuite) TestSummary() {
	assert.Equal(s.T(), msgNeedStart, s.command(1, "summary", ""))

	s.command(1, "start", "")
	reply := s.command(1, "summary", "")
	assert.Contains(s.T(), reply, "No meals logged today")
	assert.Contains(s.T(), reply, "Total: 0.0 / 2000 calories")
	assert.NotContains(s.T(), reply, "exceeded")

	_, err := s.tracker.AddMeal(s.ctx, 1, "Pizza", 1500, db_models.MealTypeManual, nil)
	require.NoError(s.T(), err)
	_, err = s.tracker.AddMeal(s.ctx, 1, "Cake", 1000, db_models.MealTypeManual, nil)
	require.NoError(s.T(), err)

	reply = s.command(1, "summary", "")
	assert.Contains(s.T(), reply, "🍽 Pizza: 1500.0 calories\n🍽 Cake: 1000.0 calories")
	assert.Contains(s.T(), reply, "Total: 2500.0 / 2000 calories")
	assert.Contains(s.T(), reply, "⚠️ Daily target exceeded!")
}

func (s *ControllerTestSuite) TestSettingsAndSetTarget() {
	assert.Equal(s.T(), msgNeedStart, s.command(1, "settings", ""))
	s.command(1, "start", "")

	assert.Contains(s.T(), s.command(1, "settings", ""), "Daily calorie target: 2000\nReminders: Enabled")

	tests := []struct {
		args  string
		reply string
	}{
		{"", msgTargetUsage},
		{"abc", msgTargetUsage},
		{"-100", msgTargetUsage},
		{"499", "Please enter a reasonable daily target between 500 and 5000 calories."},
		{"5001", "Please enter a reasonable daily target between 500 and 5000 calories."},
		{"1800", "✅ Daily calorie target updated to 1800 calories."},
	}
	for _, tt := range tests {
		assert.Equal(s.T(), tt.reply, s.command(1, "set_target", tt.args), "args %q", tt.args)
	}

	user, err := s.tracker.GetUser(s.ctx, 1)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 1800, user.DailyTarget)
}

func (s *ControllerTestSuite) TestSetTargetUnknownUser() {
	assert.Equal(s.T(), msgNeedStart, s.command(5, "set_target", "1500"))
}

func (s *ControllerTestSuite) TestToggleReminders() {
	s.command(1, "start", "")

	assert.Equal(s.T(), "✅ Reminders disabled.", s.command(1, "toggle_reminders", ""))
	assert.Contains(s.T(), s.command(1, "settings", ""), "Reminders: Disabled")
	assert.Equal(s.T(), "✅ Reminders enabled.", s.command(1, "toggle_reminders", ""))
}

func (s *ControllerTestSuite) TestHistory() {
	s.command(1, "start", "")
	assert.Contains(s.T(), s.command(1, "history", ""), "No daily summaries yet")

	day := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	require.NoError(s.T(), s.tracker.LogDailySummaryFor(s.ctx, 1, day, 2500, false))

	reply := s.command(1, "history", "")
	assert.Contains(s.T(), reply, "⚠️ 2026-10-17: 2500.0 calories")
}

func (s *ControllerTestSuite) TestPhoto() {
	s.command(1, "start", "")
	s.files.data = colorPNG(s.T(), 400, 400, color.RGBA{R: 220, G: 30, B: 30, A: 255})
	s.photos.ref = "https://cdn.example.com/meal-photos/1/x.png"

	reply := s.photo(1)
	assert.Equal(s.T(), "📸 Recognized: apple\nEstimated calories: 100.0\nDaily total: 100.0 calories", reply)

	meals, err := s.tracker.DailyMeals(s.ctx, 1, s.now)
	require.NoError(s.T(), err)
	require.Len(s.T(), meals, 1)
	assert.Equal(s.T(), db_models.MealTypePhoto, meals[0].MealType)
	require.NotNil(s.T(), meals[0].PhotoRef)
	assert.Equal(s.T(), s.photos.ref, *meals[0].PhotoRef)
}

func (s *ControllerTestSuite) TestPhoto_ArchiveFailureKeepsFilePath() {
	s.command(1, "start", "")
	s.files.data = colorPNG(s.T(), 400, 400, color.RGBA{R: 60, G: 180, B: 70, A: 255})
	s.photos.err = errors.New("s3 down")

	assert.Contains(s.T(), s.photo(1), "Recognized: salad")

	meals, err := s.tracker.DailyMeals(s.ctx, 1, s.now)
	require.NoError(s.T(), err)
	require.Len(s.T(), meals, 1)
	assert.Equal(s.T(), "photos/file_1.jpg", *meals[0].PhotoRef)
}

func (s *ControllerTestSuite) TestPhoto_UpstreamFailures() {
	s.command(1, "start", "")
	red := color.RGBA{R: 220, G: 30, B: 30, A: 255}

	s.files.data = colorPNG(s.T(), 50, 50, red)
	assert.Equal(s.T(), msgPhotoUnrecognized, s.photo(1))

	s.files.data = colorPNG(s.T(), 400, 400, red)
	s.nutrition.err = utils.ErrLookupTimeout
	assert.Equal(s.T(), msgPhotoUnrecognized, s.photo(1))

	s.nutrition.err = &utils.APIError{Status: 500}
	assert.Equal(s.T(), msgPhotoUnrecognized, s.photo(1))

	s.nutrition.err = utils.ErrFoodNotFound
	assert.Equal(s.T(), msgPhotoUnrecognized, s.photo(1))

	s.files.err = errors.New("telegram down")
	assert.Equal(s.T(), msgPhotoFailed, s.photo(1))

	total, err := s.tracker.DailyTotal(s.ctx, 1, s.now)
	require.NoError(s.T(), err)
	assert.Zero(s.T(), total)
}

func (s *ControllerTestSuite) TestPhoto_RequiresStart() {
	assert.Equal(s.T(), msgNeedStart, s.photo(3))
}

func TestIncomingFromUpdate(t *testing.T) {
	t.Run("Command", func(t *testing.T) {
		in, ok := IncomingFromUpdate(tgbotapi.Update{Message: &tgbotapi.Message{
			From:     &tgbotapi.User{ID: 7, FirstName: "Bo", UserName: "bo"},
			Chat:     &tgbotapi.Chat{ID: 70},
			Text:     "/set_target@calbot 1800",
			Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 18}},
		}})
		require.True(t, ok)
		assert.Equal(t, int64(7), in.UserID)
		assert.Equal(t, int64(70), in.ChatID)
		assert.Equal(t, "set_target", in.Command)
		assert.Equal(t, "1800", in.Args)
	})

	t.Run("PhotoUsesLargestSize", func(t *testing.T) {
		in, ok := IncomingFromUpdate(tgbotapi.Update{Message: &tgbotapi.Message{
			From:  &tgbotapi.User{ID: 7},
			Chat:  &tgbotapi.Chat{ID: 7},
			Photo: []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "large"}},
		}})
		require.True(t, ok)
		assert.Equal(t, "large", in.PhotoFileID)
		assert.Empty(t, in.Command)
	})

	t.Run("Text", func(t *testing.T) {
		in, ok := IncomingFromUpdate(tgbotapi.Update{Message: &tgbotapi.Message{
			From: &tgbotapi.User{ID: 7},
			Chat: &tgbotapi.Chat{ID: 7},
			Text: "banana",
		}})
		require.True(t, ok)
		assert.Equal(t, "banana", in.Text)
	})

	t.Run("NoMessage", func(t *testing.T) {
		_, ok := IncomingFromUpdate(tgbotapi.Update{UpdateID: 1})
		assert.False(t, ok)
	})
}
