package mailservice

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/exp/rand"

	"github.com/microblogcms/microblog/internal/common"
)

func NewMailService(mb common.MessageConsumer, host, username, password, sender string, port int, logger *slog.Logger) *MailService {
	ctx, cancel := context.WithCancel(context.Background())
	return &MailService{
		mb:     mb,
		m:      NewMailer(host, port, username, password, sender, NewTemplate()),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// SendActivationEmail consumes user.created messages and mails the activation
// token to the new account.
func (s *MailService) SendActivationEmail() {
	s.consume(common.UserCreatedKey, common.UserExchange, common.UserCreatedQueue, func(msg amqp.Delivery) {
		var data struct {
			Email string
			Token string
		}

		err := json.Unmarshal(msg.Body, &data)
		if err != nil {
			s.logger.Error("could not unmarshal message", slog.String("error", err.Error()))
			return
		}

		payload := struct {
			ActivationToken string
		}{
			ActivationToken: data.Token,
		}

		s.sendWithRetry(data.Email, payload, "activation_email.html")
	})
}

// SendCommentApprovedEmail consumes comment.approved messages and notifies the
// post author that a new comment went live on their post.
func (s *MailService) SendCommentApprovedEmail() {
	s.consume(common.CommentApprovedKey, common.CommentExchange, common.CommentApprovedQueue, func(msg amqp.Delivery) {
		var data struct {
			Email      string
			PostTitle  string
			PostID     int
			AuthorName string
			Content    string
		}

		err := json.Unmarshal(msg.Body, &data)
		if err != nil {
			s.logger.Error("could not unmarshal message", slog.String("error", err.Error()))
			return
		}

		payload := struct {
			PostTitle  string
			AuthorName string
			Content    string
		}{
			PostTitle:  data.PostTitle,
			AuthorName: data.AuthorName,
			Content:    data.Content,
		}

		s.sendWithRetry(data.Email, payload, "comment_approved_email.html")
	})
}

func (s *MailService) consume(key common.BindingKey, exchange common.Exchange, queue common.Queue, handle func(msg amqp.Delivery)) {
	msgs, err := s.mb.Consume(key, exchange, queue)
	if err != nil {
		s.logger.Error("could not consume message", slog.String("error", err.Error()))
		return
	}

	go func() {
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}

				handle(msg)
				msg.Ack(false)

			case <-s.ctx.Done():
				s.logger.Info("stopping consumer due to context cancellation", slog.String("queue", string(queue)))
				return
			}
		}
	}()
}

// sendWithRetry sends the email using exponential backoff with jitter. The
// message is given up on after five attempts, delivery is best effort.
func (s *MailService) sendWithRetry(email string, payload any, templateFile string) {
	const maxRetries = 5
	const baseDelay = 500 * time.Millisecond

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := s.m.send(email, payload, templateFile)
		if err == nil {
			s.logger.Info("email sent", slog.String("email", email), slog.String("template", templateFile))
			return
		}

		delay := time.Duration(rand.Int63n(int64(baseDelay) << uint(attempt)))
		s.logger.Info("delaying email", slog.String("email", email), slog.Int("attempt", attempt), slog.Duration("delay", delay))
		time.Sleep(delay)
	}

	s.logger.Error("could not send email", slog.String("email", email), slog.String("template", templateFile))
}

func (s *MailService) Close() {
	s.cancel()
}
