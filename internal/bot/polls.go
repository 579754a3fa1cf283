package bot

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/eliseohh/pollbot/internal/poll"
	"github.com/eliseohh/pollbot/internal/session"
	tele "gopkg.in/telebot.v3"
)

const (
	// A poll is closed once exactly this many answers were recorded.
	pollAnswerLimit = 1
	// A tracked poll is closed when its update reports exactly this many voters.
	quizVoterLimit = 3

	previewText   = "Press the button to let the bot generate a preview for your poll"
	previewButton = "Press me!"
)

func (b *Bot) handlePoll(c tele.Context) error {
	p := poll.Reminder()
	msg, err := b.client.Send(c.Recipient(), p)
	if err != nil {
		return fmt.Errorf("send poll: %w", err)
	}
	if msg.Poll == nil {
		return fmt.Errorf("send poll: message %d has no poll", msg.ID)
	}

	sess := session.Session{
		PollID:    msg.Poll.ID,
		Kind:      session.KindPoll,
		Options:   poll.Labels(p),
		ChatID:    c.Chat().ID,
		MessageID: msg.ID,
	}
	if err := b.store.Put(sess); err != nil {
		return err
	}

	b.log.Info().
		Str("poll_id", sess.PollID).
		Int64("chat_id", sess.ChatID).
		Int("message_id", sess.MessageID).
		Msg("poll sent")
	return nil
}

func (b *Bot) handleQuiz(c tele.Context) error {
	msg, err := b.client.Send(c.Recipient(), poll.EggsQuiz(), &tele.SendOptions{ReplyTo: c.Message()})
	if err != nil {
		return fmt.Errorf("send quiz: %w", err)
	}
	if msg.Poll == nil {
		return fmt.Errorf("send quiz: message %d has no poll", msg.ID)
	}

	sess := session.Session{
		PollID:    msg.Poll.ID,
		Kind:      session.KindQuiz,
		ChatID:    c.Chat().ID,
		MessageID: msg.ID,
	}
	if err := b.store.Put(sess); err != nil {
		return err
	}

	b.log.Info().Str("poll_id", sess.PollID).Int64("chat_id", sess.ChatID).Msg("quiz sent")
	return nil
}

func (b *Bot) handlePreview(c tele.Context) error {
	markup := &tele.ReplyMarkup{
		ReplyKeyboard: [][]tele.ReplyButton{
			{{Text: previewButton, Poll: tele.PollAny}},
		},
		OneTimeKeyboard: true,
	}
	return c.Send(previewText, markup)
}

// handleReceivedPoll answers a poll submitted by the user with a closed copy.
func (b *Bot) handleReceivedPoll(m *tele.Message) error {
	if m.Chat == nil {
		return fmt.Errorf("preview poll: message %d has no chat", m.ID)
	}
	preview, err := poll.ClosedCopy(m.Poll)
	if err != nil {
		return fmt.Errorf("preview poll: %w", err)
	}

	opts := &tele.SendOptions{
		ReplyTo:     m,
		ReplyMarkup: &tele.ReplyMarkup{RemoveKeyboard: true},
	}
	if _, err := b.client.Send(m.Chat, preview, opts); err != nil {
		return fmt.Errorf("send preview: %w", err)
	}
	return nil
}

func (b *Bot) handlePollAnswer(c tele.Context) error {
	answer := c.PollAnswer()
	if answer == nil {
		return nil
	}

	sess, err := b.store.Get(answer.PollID)
	if errors.Is(err, session.ErrNotFound) {
		// Answer for a poll sent before the last restart.
		b.log.Warn().Str("poll_id", answer.PollID).Msg("answer for unknown poll")
		return nil
	}
	if err != nil {
		return err
	}
	if len(sess.Options) == 0 {
		b.log.Warn().Str("poll_id", answer.PollID).Str("kind", string(sess.Kind)).Msg("answer for poll without options")
		return nil
	}

	b.log.Info().Str("poll_id", answer.PollID).Ints("option_ids", answer.Options).Msg("poll answer")
	if len(answer.Options) == 0 {
		// Retracted vote.
		return nil
	}
	selected := answer.Options[0]
	if selected < 0 || selected >= len(sess.Options) {
		b.log.Warn().Str("poll_id", answer.PollID).Int("option_id", selected).Msg("option out of range")
		return nil
	}

	text := fmt.Sprintf("Sure! will remind you in %s", sess.Options[selected])
	if _, err := b.client.Send(tele.ChatID(sess.ChatID), text); err != nil {
		return fmt.Errorf("send answer reply: %w", err)
	}

	sess, err = b.store.RecordAnswer(answer.PollID)
	if err != nil {
		return err
	}
	if sess.Answers != pollAnswerLimit {
		return nil
	}

	b.log.Info().Str("poll_id", sess.PollID).Int("answers", sess.Answers).Msg("closing poll")
	if _, err := b.client.StopPoll(storedMessage(sess)); err != nil {
		return fmt.Errorf("stop poll %s: %w", sess.PollID, err)
	}
	return nil
}

// handlePollUpdate closes a tracked poll once it reaches quizVoterLimit voters.
func (b *Bot) handlePollUpdate(c tele.Context) error {
	p := c.Poll()
	if p == nil || p.Closed || p.VoterCount != quizVoterLimit {
		return nil
	}

	sess, err := b.store.Get(p.ID)
	if errors.Is(err, session.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	b.log.Info().Str("poll_id", sess.PollID).Int("voters", p.VoterCount).Msg("closing quiz")
	if _, err := b.client.StopPoll(storedMessage(sess)); err != nil {
		return fmt.Errorf("stop poll %s: %w", sess.PollID, err)
	}
	return nil
}

func storedMessage(s session.Session) *tele.StoredMessage {
	return &tele.StoredMessage{
		MessageID: strconv.Itoa(s.MessageID),
		ChatID:    s.ChatID,
	}
}
