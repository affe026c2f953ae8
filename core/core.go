package core

import "github.com/hupe1980/mcpagents/logging"

// logSink is embedded by RunContext and ToolContext so flows and tools can
// log without nil checks.
type logSink struct {
	logger logging.Logger
}

func newLogSink(l logging.Logger) *logSink {
	if l == nil {
		return &logSink{logger: logging.NoOpLogger{}}
	}
	return &logSink{logger: l}
}

// Logger returns the logger backing the context; never nil.
func (s *logSink) Logger() logging.Logger { return s.logger }

func (s *logSink) LogDebug(msg string, args ...any) { s.logger.Debug(msg, args...) }

func (s *logSink) LogInfo(msg string, args ...any) { s.logger.Info(msg, args...) }

func (s *logSink) LogWarn(msg string, args ...any) { s.logger.Warn(msg, args...) }

func (s *logSink) LogError(msg string, args ...any) { s.logger.Error(msg, args...) }
