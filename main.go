package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"collab-service/internal/access"
	"collab-service/internal/clock"
	"collab-service/internal/config"
	"collab-service/internal/db"
	"collab-service/internal/handlers"
	"collab-service/internal/identity"
	"collab-service/internal/logging"
	"collab-service/internal/middleware"
	"collab-service/internal/observability"
	"collab-service/internal/rabbitmq"
	"collab-service/internal/repositories"
	"collab-service/internal/repositories/inmem"
	"collab-service/internal/scheduler"
	"collab-service/internal/services"
	"collab-service/internal/telemetry"
	"collab-service/internal/ws"
)

const serviceName = "collab-service"

var version = "dev"

type stores struct {
	users         repositories.UserRepository
	teams         repositories.TeamRepository
	channels      repositories.ChannelRepository
	messages      repositories.MessageRepository
	reads         repositories.ReadRepository
	notifications repositories.NotificationRepository
	tasks         repositories.TaskRepository
	meetings      repositories.MeetingRepository
	close         func() error
}

func openStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (stores, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		mem := inmem.New()
		return stores{
			users: mem, teams: mem, channels: mem, messages: mem, reads: mem,
			notifications: mem, tasks: mem, meetings: mem,
			close: func() error { return nil },
		}, nil
	}

	database, err := db.Connect(ctx, cfg.DBDSN, logger)
	if err != nil {
		return stores{}, err
	}
	return stores{
		users:         repositories.NewUserRepo(database),
		teams:         repositories.NewTeamRepo(database),
		channels:      repositories.NewChannelRepo(database),
		messages:      repositories.NewMessageRepo(database),
		reads:         repositories.NewReadRepo(database),
		notifications: repositories.NewNotificationRepo(database),
		tasks:         repositories.NewTaskRepo(database),
		meetings:      repositories.NewMeetingRepo(database),
		close:         database.Close,
	}, nil
}

func main() {
	envFile := pflag.String("env-file", ".env", "path to an optional .env file")
	addr := pflag.String("addr", "", "listen address, overrides PORT")
	pflag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		panic(err)
	}

	logger, err := logging.New(cfg.Environment)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	flushSentry, err := logging.InitSentry(cfg.SentryDSN, cfg.Environment, version)
	if err != nil {
		logger.Warn("sentry init failed", zap.Error(err))
	} else {
		defer flushSentry()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.OTLPEndpoint, serviceName, cfg.Environment, logger)
	if err != nil {
		logger.Warn("tracing init failed", zap.Error(err))
		shutdownTracing = func(context.Context) error { return nil }
	}

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err), zap.String("driver", cfg.StoreDriver))
	}
	defer st.close()

	publisher := rabbitmq.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, logger)
	defer publisher.Close()
	logger.Info("amqp publisher ready",
		zap.String("mode", rabbitmq.PublisherMode(publisher)),
		zap.String("reason", rabbitmq.PublisherNoopReason(publisher)))
	auditEmitter := telemetry.NewAuditEmitter(publisher, cfg.AMQP.AuditRoutingKey, serviceName, cfg.Environment, logger)
	mirror := observability.NewEventMirror(publisher)

	clk := clock.Real()
	hub := ws.NewHub(logger, ws.DefaultQueueSize)
	resolver := access.NewResolver(st.teams, st.channels)
	verifier := identity.NewVerifier(cfg.JWTSecret)

	notifier := services.NewNotificationService(st.notifications, st.users, hub, mirror, cfg.AMQP.NotifyRoutingKey, clk, logger)
	reads := services.NewReadTracker(st.reads, st.messages, st.channels, resolver, clk, logger)
	teamService := services.NewTeamService(st.teams, st.users, resolver, notifier, hub, clk, logger)
	channelService := services.NewChannelService(st.channels, st.teams, st.users, resolver, hub, clk, logger)
	messageService := services.NewMessageService(st.messages, resolver, reads, notifier, hub, clk, logger)
	taskService := services.NewTaskService(st.tasks, resolver, notifier, hub, clk, logger)
	meetingService := services.NewMeetingService(st.meetings, resolver, notifier, hub, clk, logger)

	runner := scheduler.NewRunner(logger, clk, meetingService.ReminderJob(cfg.ReminderInterval, cfg.ReminderLead))
	runner.Start()

	var limiter *middleware.RateLimiter
	if client := middleware.NewRedisClient(cfg.Redis); client != nil {
		defer client.Close()
		limiter = middleware.NewRateLimiter(middleware.NewRedisCounter(client), cfg.MessageRateLimit, time.Minute, logger)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterDebugRoutes(router, auditEmitter, cfg.DebugRoutes)

	teamHandler := handlers.NewTeamHandler(teamService, reads, auditEmitter)
	channelHandler := handlers.NewChannelHandler(channelService, reads, auditEmitter)
	messageHandler := handlers.NewMessageHandler(messageService, auditEmitter)
	notificationHandler := handlers.NewNotificationHandler(notifier)
	taskHandler := handlers.NewTaskHandler(taskService, auditEmitter)
	meetingHandler := handlers.NewMeetingHandler(meetingService)
	wsHandler := ws.NewHandler(hub, verifier, resolver, mirror, logger)

	api := router.Group("/", middleware.AuthMiddleware(verifier))

	api.POST("/teams", teamHandler.CreateTeam)
	api.GET("/teams", teamHandler.ListTeams)
	api.GET("/teams/:team_id", teamHandler.GetTeam)
	api.PATCH("/teams/:team_id", teamHandler.UpdateTeam)
	api.DELETE("/teams/:team_id", teamHandler.DeleteTeam)
	api.POST("/teams/:team_id/members", teamHandler.AddMember)
	api.DELETE("/teams/:team_id/members/:user_id", teamHandler.RemoveMember)
	api.PATCH("/teams/:team_id/members/:user_id", teamHandler.UpdateMemberRole)
	api.GET("/teams/:team_id/unread", teamHandler.UnreadCounts)

	api.POST("/teams/:team_id/channels", channelHandler.CreateChannel)
	api.GET("/teams/:team_id/channels", channelHandler.ListChannels)
	api.GET("/channels/:channel_id", channelHandler.GetChannel)
	api.PATCH("/channels/:channel_id", channelHandler.UpdateChannel)
	api.DELETE("/channels/:channel_id", channelHandler.DeleteChannel)
	api.POST("/channels/:channel_id/members", channelHandler.AddMember)
	api.DELETE("/channels/:channel_id/members/:user_id", channelHandler.RemoveMember)
	api.POST("/channels/:channel_id/read", channelHandler.MarkRead)
	api.GET("/channels/:channel_id/unread", channelHandler.UnreadCount)

	api.GET("/channels/:channel_id/messages", messageHandler.ListMessages)
	api.POST("/channels/:channel_id/messages", limiter.Handler("post_message"), messageHandler.PostMessage)
	api.GET("/channels/:channel_id/messages/search", messageHandler.SearchMessages)
	api.GET("/messages/:message_id", messageHandler.GetMessage)
	api.PATCH("/messages/:message_id", messageHandler.UpdateMessage)
	api.DELETE("/messages/:message_id", messageHandler.DeleteMessage)
	api.POST("/messages/:message_id/reactions", messageHandler.AddReaction)
	api.DELETE("/messages/:message_id/reactions", messageHandler.RemoveReaction)

	api.GET("/notifications", notificationHandler.ListNotifications)
	api.GET("/notifications/unread-count", notificationHandler.UnreadCount)
	api.POST("/notifications/read-all", notificationHandler.MarkAllRead)
	api.POST("/notifications/:id/read", notificationHandler.MarkRead)
	api.DELETE("/notifications/:id", notificationHandler.DeleteNotification)

	api.POST("/teams/:team_id/tasks", taskHandler.CreateTask)
	api.GET("/teams/:team_id/tasks", taskHandler.ListTasks)
	api.PATCH("/tasks/:task_id", taskHandler.UpdateTask)
	api.DELETE("/tasks/:task_id", taskHandler.DeleteTask)
	api.POST("/tasks/:task_id/status", taskHandler.UpdateStatus)

	api.POST("/teams/:team_id/meetings", meetingHandler.ScheduleMeeting)
	api.GET("/teams/:team_id/meetings", meetingHandler.ListMeetings)
	api.POST("/meetings/:meeting_id/start", meetingHandler.StartMeeting)
	api.POST("/meetings/:meeting_id/end", meetingHandler.EndMeeting)

	router.GET("/ws/teams/:team_id", wsHandler.Team)
	router.GET("/ws/channels/:channel_id", wsHandler.Channel)
	router.GET("/ws/me", wsHandler.Me)

	listen := *addr
	if listen == "" {
		listen = ":" + cfg.Port
	}
	srv := &http.Server{Addr: listen, Handler: router, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		logger.Info("http server listening", zap.String("addr", listen), zap.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	runner.Stop()
	hub.Close()
	messageService.Wait()
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracing shutdown", zap.Error(err))
	}
}
