package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Attachment is a file sent along with a notification
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Notification is a rendered message for one recipient
type Notification struct {
	To          string
	ReplyTo     string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Notifier delivers notifications; swap the implementation for email, LINE or SMS
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to the log
type LogNotifier struct {
	logger *logrus.Logger
}

// NewLogNotifier creates a log-only notifier
func NewLogNotifier(logger *logrus.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify implements Notifier
func (l *LogNotifier) Notify(_ context.Context, n Notification) error {
	names := make([]string, 0, len(n.Attachments))
	for _, a := range n.Attachments {
		names = append(names, fmt.Sprintf("%s (%d bytes)", a.Filename, len(a.Data)))
	}
	l.logger.WithFields(logrus.Fields{
		"to":          n.To,
		"reply_to":    n.ReplyTo,
		"subject":     n.Subject,
		"attachments": names,
	}).Info("[notify] " + n.Body)
	return nil
}

// HumanTimeRange formats a booking window in the given IANA zone
func HumanTimeRange(start, end time.Time, timezone string) string {
	loc, err := time.LoadLocation(timezone)
	if err != nil || timezone == "" {
		loc = time.UTC
	}
	st, et := start.In(loc), end.In(loc)
	return fmt.Sprintf("%s to %s (%s)", st.Format("Mon 2 Jan 2006 15:04"), et.Format("15:04"), loc.String())
}
