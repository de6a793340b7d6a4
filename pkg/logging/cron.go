package logging

import (
	"github.com/robfig/cron/v3"
)

// CronLogger adapts a Logger to cron.Logger. cron's Info output is noisy
// (one line per wake-up), so it is logged at debug level.
type CronLogger struct {
	logger *Logger
}

var _ cron.Logger = (*CronLogger)(nil)

// NewCronLogger creates a cron.Logger backed by l.
func NewCronLogger(l *Logger) *CronLogger {
	return &CronLogger{logger: l}
}

// Info implements cron.Logger.
func (c *CronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.logger.Debug("cron: "+msg, keysAndValues...)
}

// Error implements cron.Logger.
func (c *CronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.logger.Error("cron: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
