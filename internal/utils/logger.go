package utils

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// SanitizedLogger wraps logrus with automatic PII masking
type SanitizedLogger struct {
	*logrus.Logger
	masker *PIIMasker
}

// SanitizedEntry wraps logrus.Entry with automatic PII masking
type SanitizedEntry struct {
	*logrus.Entry
	masker *PIIMasker
}

// NewSanitizedLogger creates a new logger with PII masking enabled
func NewSanitizedLogger() *SanitizedLogger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})
	logger.SetOutput(os.Stdout)

	if os.Getenv("GIN_MODE") == "release" || os.Getenv("GO_ENV") == "production" {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	return &SanitizedLogger{
		Logger: logger,
		masker: NewPIIMasker(),
	}
}

// SetOutput sets the logger output
func (l *SanitizedLogger) SetOutput(output io.Writer) {
	l.Logger.SetOutput(output)
}

// SetLevelName parses and applies a level such as "info" or "debug".
// Unknown names leave the current level untouched.
func (l *SanitizedLogger) SetLevelName(name string) {
	if name == "" {
		return
	}
	level, err := logrus.ParseLevel(name)
	if err != nil {
		l.Logger.Warnf("unknown log level %q, keeping %s", name, l.Logger.GetLevel())
		return
	}
	l.Logger.SetLevel(level)
}

// Component returns an entry tagged with the emitting component and run.
func (l *SanitizedLogger) Component(component, runID string) *SanitizedEntry {
	fields := logrus.Fields{"component": component}
	if runID != "" {
		fields["run_id"] = runID
	}
	return l.WithFields(fields)
}

// WithField creates a sanitized entry with a single field
func (l *SanitizedLogger) WithField(key string, value interface{}) *SanitizedEntry {
	return &SanitizedEntry{
		Entry:  l.Logger.WithField(key, sanitizeValue(l.masker, key, value)),
		masker: l.masker,
	}
}

// WithFields creates a sanitized entry with multiple fields
func (l *SanitizedLogger) WithFields(fields logrus.Fields) *SanitizedEntry {
	return &SanitizedEntry{
		Entry:  l.Logger.WithFields(sanitizeFields(l.masker, fields)),
		masker: l.masker,
	}
}

// WithError creates a sanitized entry with an error
func (l *SanitizedLogger) WithError(err error) *SanitizedEntry {
	return &SanitizedEntry{
		Entry:  l.Logger.WithError(sanitizeError(l.masker, err)),
		masker: l.masker,
	}
}

// Info logs at info level with sanitization
func (l *SanitizedLogger) Info(args ...interface{}) {
	l.Logger.Info(sanitizeArgs(l.masker, args)...)
}

// Warn logs at warn level with sanitization
func (l *SanitizedLogger) Warn(args ...interface{}) {
	l.Logger.Warn(sanitizeArgs(l.masker, args)...)
}

// Error logs at error level with sanitization
func (l *SanitizedLogger) Error(args ...interface{}) {
	l.Logger.Error(sanitizeArgs(l.masker, args)...)
}

// Infof logs formatted at info level with sanitization
func (l *SanitizedLogger) Infof(format string, args ...interface{}) {
	l.Logger.Infof(l.masker.MaskAll(format), sanitizeArgs(l.masker, args)...)
}

// Warnf logs formatted at warn level with sanitization
func (l *SanitizedLogger) Warnf(format string, args ...interface{}) {
	l.Logger.Warnf(l.masker.MaskAll(format), sanitizeArgs(l.masker, args)...)
}

// Errorf logs formatted at error level with sanitization
func (l *SanitizedLogger) Errorf(format string, args ...interface{}) {
	l.Logger.Errorf(l.masker.MaskAll(format), sanitizeArgs(l.masker, args)...)
}

// SanitizedEntry methods

// WithField adds a sanitized field to the entry
func (e *SanitizedEntry) WithField(key string, value interface{}) *SanitizedEntry {
	return &SanitizedEntry{
		Entry:  e.Entry.WithField(key, sanitizeValue(e.masker, key, value)),
		masker: e.masker,
	}
}

// WithFields adds sanitized fields to the entry
func (e *SanitizedEntry) WithFields(fields logrus.Fields) *SanitizedEntry {
	return &SanitizedEntry{
		Entry:  e.Entry.WithFields(sanitizeFields(e.masker, fields)),
		masker: e.masker,
	}
}

// WithError adds a sanitized error to the entry
func (e *SanitizedEntry) WithError(err error) *SanitizedEntry {
	return &SanitizedEntry{
		Entry:  e.Entry.WithError(sanitizeError(e.masker, err)),
		masker: e.masker,
	}
}

func sensitiveKeys(m *PIIMasker) map[string]func(string) string {
	return map[string]func(string) string{
		"email":          m.MaskEmail,
		"customer_email": m.MaskEmail,
		"phone":          m.MaskPhone,
		"phone_number":   m.MaskPhone,
		"customer_name":  m.MaskName,
		"ip":             m.MaskIP,
		"client_ip":      m.MaskIP,
		"remote_addr":    m.MaskIP,
	}
}

func sanitizeValue(m *PIIMasker, key string, value interface{}) interface{} {
	strVal, ok := value.(string)
	if !ok {
		return value
	}
	if maskFunc, exists := sensitiveKeys(m)[key]; exists {
		return maskFunc(strVal)
	}
	return value
}

func sanitizeFields(m *PIIMasker, fields logrus.Fields) logrus.Fields {
	sanitized := make(logrus.Fields, len(fields))
	for key, value := range fields {
		sanitized[key] = sanitizeValue(m, key, value)
	}
	return sanitized
}

func sanitizeArgs(m *PIIMasker, args []interface{}) []interface{} {
	sanitized := make([]interface{}, len(args))
	for i, arg := range args {
		if strArg, ok := arg.(string); ok {
			sanitized[i] = m.MaskAll(strArg)
		} else {
			sanitized[i] = arg
		}
	}
	return sanitized
}

func sanitizeError(m *PIIMasker, err error) error {
	if err == nil {
		return nil
	}
	return &sanitizedError{original: err, masker: m}
}

// sanitizedError wraps an error with PII masking
type sanitizedError struct {
	original error
	masker   *PIIMasker
}

func (e *sanitizedError) Error() string {
	return e.masker.MaskAll(e.original.Error())
}

func (e *sanitizedError) Unwrap() error {
	return e.original
}

// Global sanitized logger instance
var Log = NewSanitizedLogger()
