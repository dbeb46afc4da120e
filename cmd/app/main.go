package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/microblogcms/microblog/internal/commentservice"
	"github.com/microblogcms/microblog/internal/common"
	"github.com/microblogcms/microblog/internal/likeservice"
	"github.com/microblogcms/microblog/internal/mailservice"
	"github.com/microblogcms/microblog/internal/postservice"
	"github.com/microblogcms/microblog/internal/userservice"
)

type application struct {
	config         *Config
	logger         *slog.Logger
	userService    *userservice.UserService
	postService    *postservice.PostService
	likeService    *likeservice.LikeService
	commentService *commentservice.CommentService
	mailService    *mailservice.MailService
	broker         *common.MessageBroker
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := loadConfig(".env")
	if err != nil {
		logger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	db, err := common.NewDB(cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, 10, 5, 15*time.Minute)
	if err != nil {
		logger.Error("failed to connect to the database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer common.CloseDB(db)

	URI := fmt.Sprintf("amqp://%s:%s@%s:%s/", cfg.RabbitMQ.User, cfg.RabbitMQ.Password, cfg.RabbitMQ.Host, cfg.RabbitMQ.Port)
	broker, err := common.NewMessageBroker(URI)
	if err != nil {
		logger.Error("failed to connect to the message broker", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer broker.Close()

	err = common.SetupUserExchange(broker)
	if err != nil {
		logger.Error("failed to setup the user exchange", slog.String("error", err.Error()))
		os.Exit(1)
	}

	err = common.SetupCommentExchange(broker)
	if err != nil {
		logger.Error("failed to setup the comment exchange", slog.String("error", err.Error()))
		os.Exit(1)
	}

	cache := common.NewCache(5*time.Minute, 10*time.Minute)

	// per-user hourly quotas
	postLimiter := common.NewKeyedLimiter(10, time.Hour)
	commentLimiter := common.NewKeyedLimiter(30, time.Hour)
	likeLimiter := common.NewKeyedLimiter(100, time.Hour)

	app := &application{
		config:         cfg,
		logger:         logger,
		userService:    userservice.NewUserService(db, broker, logger),
		postService:    postservice.NewPostService(db, cache, postLimiter, logger),
		likeService:    likeservice.NewLikeService(db, cache, likeLimiter),
		commentService: commentservice.NewCommentService(db, broker, commentLimiter, logger),
		broker:         broker,
		mailService:    mailservice.NewMailService(broker, cfg.Mail.Host, cfg.Mail.User, cfg.Mail.Password, cfg.Mail.Sender, cfg.Mail.Port, logger),
	}
	defer app.mailService.Close()

	app.mailService.SendActivationEmail()
	app.mailService.SendCommentApprovedEmail()

	err = app.serve(cfg.Port)
	if err != nil {
		logger.Error("failed to start the server", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
