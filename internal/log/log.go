package log

import (
	"io"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

var base = logrus.New()

// Setup configures the process logger: JSON lines, parsed level, and an
// optional file sink mirrored to stdout.
func Setup(level, file string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	base.SetLevel(lvl)
	base.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05Z07:00"})
	base.SetOutput(os.Stdout)

	if file != "" {
		f, err := os.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			base.Warnf("could not open log file %s: %v", file, err)
		} else {
			base.SetOutput(io.MultiWriter(os.Stdout, f))
		}
	}
}

func entry(c *fiber.Ctx, action string, fields map[string]any) *logrus.Entry {
	e := base.WithField("action", action)
	if c != nil {
		e = e.WithFields(logrus.Fields{
			"ip":     c.IP(),
			"method": c.Method(),
			"path":   c.Path(),
			"status": c.Response().StatusCode(),
		})
		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			e = e.WithField("req_id", rid)
		}
	}
	if len(fields) > 0 {
		e = e.WithField("fields", fields)
	}
	return e
}

func Info(c *fiber.Ctx, action string, fields map[string]any) {
	entry(c, action, fields).Info(action)
}

// Audit records an admin or state-changing action for later review.
func Audit(c *fiber.Ctx, action string, fields map[string]any) {
	entry(c, action, fields).WithField("audit", true).Info(action)
}

// Security records denied access, validation abuse and rate hits.
func Security(c *fiber.Ctx, action string, fields map[string]any) {
	entry(c, action, fields).Warn(action)
}

func Error(c *fiber.Ctx, action string, err error, fields map[string]any) {
	e := entry(c, action, fields)
	if err != nil {
		e = e.WithError(err)
	}
	e.Error(action)
}
