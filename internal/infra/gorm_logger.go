package infra

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

const slowQueryThreshold = 500 * time.Millisecond

// gormLogWriter forwards gorm's statement log to zap.
type gormLogWriter struct {
	logger *zap.Logger
}

func (w *gormLogWriter) Printf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if strings.Contains(msg, "SLOW SQL") {
		w.logger.Warn("slow query", zap.String("message", msg))
		return
	}
	w.logger.Error("query failed", zap.String("message", msg))
}

// newGormLogger reports failed and slow statements only. A missing row is an
// expected answer for the repositories, not an error.
func newGormLogger(log *zap.Logger) logger.Interface {
	return logger.New(
		&gormLogWriter{logger: log.Named("gorm")},
		logger.Config{
			SlowThreshold:             slowQueryThreshold,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}
