package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	v1 "github.com/MYCE-Refactoring/myce-chat/cmd/api/router/v1"
	cacheAdapter "github.com/MYCE-Refactoring/myce-chat/internal/infrastructure/cache/adapter"
	"github.com/MYCE-Refactoring/myce-chat/internal/infrastructure/database"
	queueAdapter "github.com/MYCE-Refactoring/myce-chat/internal/infrastructure/queue/adapter"
	"github.com/MYCE-Refactoring/myce-chat/internal/infrastructure/realtime"
	aiAdapter "github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/application/ai/adapter"
	"github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/application/task"
	"github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/application/usecase"
	repoAdapter "github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/persistence/repository/adapter"
	chatHTTP "github.com/MYCE-Refactoring/myce-chat/internal/pkg/chat/presentation/http"
	dirAdapter "github.com/MYCE-Refactoring/myce-chat/internal/pkg/directory/adapter"
)

const (
	defaultIdleMinutes   = 10
	defaultSweepInterval = time.Minute
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := database.NewPoolFromEnv(ctx)
	if err != nil {
		cancel()
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer pool.Close()
	if err := database.EnsureSchema(ctx, pool); err != nil {
		cancel()
		log.Fatalf("failed to ensure schema: %v", err)
	}
	cancel()

	counters, err := cacheAdapter.NewRedisCounterCacheFromEnv()
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer counters.Close()

	queueClient, err := queueAdapter.NewAsynqClientFromEnv()
	if err != nil {
		log.Fatalf("failed to create queue client: %v", err)
	}
	defer queueClient.Close()

	queueServer, err := queueAdapter.NewAsynqServerFromEnv()
	if err != nil {
		log.Fatalf("failed to create queue server: %v", err)
	}

	assistant, err := aiAdapter.NewHTTPTextServiceFromEnv()
	if err != nil {
		log.Fatalf("failed to configure assistant service: %v", err)
	}

	hub := realtime.NewHub()
	defer hub.Close()

	rooms := repoAdapter.NewPgRoomRepository(pool)
	messages := repoAdapter.NewPgMessageRepository(pool)
	seq := repoAdapter.NewPgSequenceAllocator(pool)
	dir := dirAdapter.NewPgDirectory(pool)

	ucs := chatHTTP.UseCases{
		SendMessage:    usecase.NewSendMessageUseCase(rooms, messages, seq, counters, hub, assistant, dir),
		RequestHandoff: usecase.NewRequestHandoffUseCase(rooms, messages, seq, hub),
		CancelHandoff:  usecase.NewCancelHandoffUseCase(rooms, messages, seq, hub),
		AcceptHandoff:  usecase.NewAcceptHandoffUseCase(rooms, messages, seq, counters, hub, assistant, dir),
		Preempt:        usecase.NewPreemptInterveneUseCase(rooms, messages, seq, counters, hub, dir),
		ReturnToAI:     usecase.NewReturnToAIUseCase(rooms, messages, seq, hub),
		MarkRead:       usecase.NewMarkReadUseCase(rooms, messages, counters, hub),
		UnreadCount:    usecase.NewGetUnreadCountUseCase(rooms, messages, counters),
		BadgeCount:     usecase.NewGetBadgeCountUseCase(rooms, messages, counters),
		Messages:       usecase.NewGetMessagesUseCase(rooms, messages),
		RoomState:      usecase.NewGetRoomStateUseCase(rooms),
	}

	sweep := usecase.NewSweepIdleAdminsUseCase(rooms, messages, seq, hub, idleAfterFromEnv())
	task.RegisterSweepIdleAdminsTask(queueServer, sweep)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := queueServer.Run(rootCtx); err != nil {
			log.Printf("queue server stopped: %v", err)
		}
	}()
	task.StartSweepLoop(rootCtx, queueClient, sweepIntervalFromEnv())

	r := gin.Default()
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})
	v1.RegisterRoutes(r, ucs, hub)

	srv := &http.Server{Addr: listenAddr(), Handler: r}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server failed: %v", err)
		}
	}()
	log.Printf("chat service listening on %s", srv.Addr)

	<-rootCtx.Done()
	log.Println("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	if err := queueServer.Stop(shutdownCtx); err != nil {
		log.Printf("queue shutdown: %v", err)
	}
}

func listenAddr() string {
	if port := os.Getenv("PORT"); port != "" {
		return ":" + port
	}
	return ":8080"
}

func idleAfterFromEnv() time.Duration {
	minutes := defaultIdleMinutes
	if v := os.Getenv("CHAT_ADMIN_IDLE_MINUTES"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			minutes = i
		}
	}
	return time.Duration(minutes) * time.Minute
}

func sweepIntervalFromEnv() time.Duration {
	if v := os.Getenv("CHAT_SWEEP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return defaultSweepInterval
}
