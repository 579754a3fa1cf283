package poll

import (
	"fmt"
	"strings"
	"unicode/utf8"

	tele "gopkg.in/telebot.v3"
)

// Telegram Bot API limits for sendPoll.
const (
	MaxQuestionChars = 300
	MaxOptionChars   = 100
	MinOptions       = 2
	MaxOptions       = 12
)

const (
	ReminderQuestion = "When would you like to be reminded?"
	QuizQuestion     = "How many eggs do you need for a cake?"
	QuizCorrect      = 2
)

var (
	ReminderOptions = []string{"1 minute", "10 minutes", "30 minutes", "One Hour", "1 Day", "Custom"}
	QuizOptions     = []string{"1", "2", "4", "20"}
)

// Reminder is the regular poll sent for /poll. It must not be anonymous,
// otherwise Telegram does not deliver poll answers.
func Reminder() *tele.Poll {
	p := &tele.Poll{
		Type:            tele.PollRegular,
		Question:        ReminderQuestion,
		MultipleAnswers: true,
		Anonymous:       false,
	}
	p.AddOptions(ReminderOptions...)
	return p
}

func EggsQuiz() *tele.Poll {
	p := &tele.Poll{
		Type:          tele.PollQuiz,
		Question:      QuizQuestion,
		CorrectOption: QuizCorrect,
		Anonymous:     true,
	}
	p.AddOptions(QuizOptions...)
	return p
}

// Labels returns the option texts of p in order.
func Labels(p *tele.Poll) []string {
	labels := make([]string, 0, len(p.Options))
	for _, o := range p.Options {
		labels = append(labels, o.Text)
	}
	return labels
}

// ClosedCopy builds a regular poll with the question and options of src that
// is closed as soon as it is sent. Like any poll sent with default settings,
// it is anonymous.
func ClosedCopy(src *tele.Poll) (*tele.Poll, error) {
	if src == nil {
		return nil, fmt.Errorf("no poll to copy")
	}
	labels := Labels(src)
	if err := Validate(src.Question, labels); err != nil {
		return nil, err
	}

	p := &tele.Poll{
		Type:     tele.PollRegular,
		Question:  src.Question,
		Closed:    true,
		Anonymous: true,
	}
	p.AddOptions(labels...)
	return p, nil
}

func Validate(question string, options []string) error {
	if strings.TrimSpace(question) == "" {
		return fmt.Errorf("validation error: empty question")
	}
	if n := utf8.RuneCountInString(question); n > MaxQuestionChars {
		return fmt.Errorf("validation error: question length %d exceeds limit %d", n, MaxQuestionChars)
	}

	if len(options) < MinOptions || len(options) > MaxOptions {
		return fmt.Errorf("validation error: %d options, want %d to %d", len(options), MinOptions, MaxOptions)
	}
	for i, o := range options {
		if strings.TrimSpace(o) == "" {
			return fmt.Errorf("validation error: option %d is empty", i+1)
		}
		if n := utf8.RuneCountInString(o); n > MaxOptionChars {
			return fmt.Errorf("validation error: option %d length %d exceeds limit %d", i+1, n, MaxOptionChars)
		}
	}
	return nil
}
