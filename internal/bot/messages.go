package bot

import (
	"fmt"
	"strings"

	"calbot/internal/models/db_models"
	"calbot/internal/services"
)

const (
	msgHelp = "🤖 CalorieTracker Bot Help\n\n" +
		"Commands:\n" +
		"/start - Start the bot\n" +
		"/add - Manually add food and calories\n" +
		"/summary - View today's calorie summary\n" +
		"/history - View your last 7 daily summaries\n" +
		"/settings - Configure your preferences\n" +
		"/set_target <calories> - Set your daily calorie target\n" +
		"/toggle_reminders - Turn the evening reminder on or off\n" +
		"/cancel - Cancel the current operation\n" +
		"/help - Show this help message\n\n" +
		"📸 You can also send a photo of your food for automatic recognition!"

	msgAskFoodName     = "What food would you like to log? Please enter the name:"
	msgAskCalories     = "How many calories does it contain? Please enter a number:"
	msgInvalidCalories = "Please enter a valid number for calories."
	msgCancelled       = "Operation cancelled."
	msgNothingToCancel = "Nothing to cancel."
	msgNeedStart       = "Please use /start to set up your profile first."
	msgTargetUsage     = "Please provide a valid number. Example: /set_target 2000"
	msgUnknownCommand  = "Unknown command. Use /help to see what I can do."
	msgIdleHint        = "Send a photo of your food or use /add to log a meal. /help lists every command."

	msgPhotoUnrecognized = "Sorry, I couldn't recognize the food in this image. " +
		"Please try again or use /add to log manually."
	msgPhotoFailed = "Sorry, there was an error processing your photo. " +
		"Please try again or use /add to log manually."

	msgStartFailed    = "Sorry, there was an error starting the bot. Please try again later."
	msgSummaryFailed  = "Sorry, there was an error getting your summary. Please try again later."
	msgSettingsFailed = "Sorry, there was an error accessing your settings. Please try again later."
	msgTargetFailed   = "Sorry, there was an error updating your target. Please try again later."
	msgReminderFailed = "Sorry, there was an error updating your reminder settings. Please try again later."
	msgMealFailed     = "Sorry, there was an error saving your meal. Please try again later."
	msgHistoryFailed  = "Sorry, there was an error getting your history. Please try again later."
)

func welcomeNew(firstName string) string {
	return fmt.Sprintf("Welcome to CalorieTracker Bot, %s! 🎉\n\n", firstName) +
		"I'll help you track your daily calorie intake.\n" +
		"You can:\n" +
		"📸 Send a photo of your food\n" +
		"📝 Use /add to log manually\n" +
		"📊 Use /summary to see your daily total\n" +
		"⚙️ Use /settings to configure reminders"
}

func welcomeBack(firstName string) string {
	return fmt.Sprintf("Welcome back, %s! 🎉\n", firstName) +
		"Ready to track your calories?\n" +
		"Send a photo or use /add to get started!"
}

func mealLogged(food string, calories, dailyTotal float64) string {
	return fmt.Sprintf("✅ Logged %s (%.1f calories)\nDaily total: %.1f calories", food, calories, dailyTotal)
}

func photoLogged(food string, calories, dailyTotal float64) string {
	return fmt.Sprintf("📸 Recognized: %s\nEstimated calories: %.1f\nDaily total: %.1f calories", food, calories, dailyTotal)
}

func summaryText(s *services.DaySummary) string {
	var b strings.Builder
	b.WriteString("📊 Today's Calorie Summary\n\n")

	if len(s.Meals) == 0 {
		b.WriteString("No meals logged today\n")
	}
	for _, meal := range s.Meals {
		fmt.Fprintf(&b, "🍽 %s: %.1f calories\n", meal.FoodName, meal.Calories)
	}

	fmt.Fprintf(&b, "\nTotal: %.1f / %d calories", s.Total, s.Target)
	if !s.TargetMet {
		b.WriteString("\n⚠️ Daily target exceeded!")
	}
	return b.String()
}

func settingsText(u *db_models.User) string {
	reminders := "Disabled"
	if u.ReminderEnabled {
		reminders = "Enabled"
	}
	return "⚙️ Your Settings\n\n" +
		fmt.Sprintf("Daily calorie target: %d\n", u.DailyTarget) +
		fmt.Sprintf("Reminders: %s\n\n", reminders) +
		"Use these commands to modify:\n" +
		"/set_target <number> - Set daily calorie target\n" +
		"/toggle_reminders - Enable/disable reminders"
}

func targetOutOfRange(lo, hi int) string {
	return fmt.Sprintf("Please enter a reasonable daily target between %d and %d calories.", lo, hi)
}

func targetUpdated(target int) string {
	return fmt.Sprintf("✅ Daily calorie target updated to %d calories.", target)
}

func remindersToggled(enabled bool) string {
	if enabled {
		return "✅ Reminders enabled."
	}
	return "✅ Reminders disabled."
}

func historyText(logs []db_models.DailyLog) string {
	if len(logs) == 0 {
		return "No daily summaries yet. One is recorded every night at midnight."
	}

	var b strings.Builder
	b.WriteString("📅 Recent Daily Summaries\n")
	for _, l := range logs {
		status := "✅"
		if !l.TargetMet {
			status = "⚠️"
		}
		fmt.Fprintf(&b, "\n%s %s: %.1f calories", status, l.Date, l.TotalCalories)
	}
	return b.String()
}
