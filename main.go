package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"reelcraft-server/modules/billing"
	"reelcraft-server/modules/brand"
	"reelcraft-server/modules/common/config"
	"reelcraft-server/modules/common/database"
	"reelcraft-server/modules/common/gemini"
	"reelcraft-server/modules/common/logger"
	"reelcraft-server/modules/common/org"
	"reelcraft-server/modules/common/quota"
	redisutil "reelcraft-server/modules/common/redis"
	"reelcraft-server/modules/common/storage"
	"reelcraft-server/modules/common/utils"
	"reelcraft-server/modules/drive"
	"reelcraft-server/modules/realtime"
	"reelcraft-server/modules/team"
	"reelcraft-server/modules/video"
)

var log = logger.For("main")

// CORS 헤더 추가
func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+org.TeamHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// 헬스 체크 엔드포인트
func healthCheck(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "reelcraft-server",
	})
}

func main() {
	// 환경변수 로드
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	logFormat := cfg.LogFormat
	if logFormat == "" {
		logFormat = "text"
		if cfg.IsProduction() {
			logFormat = "json"
		}
	}
	if err := logger.Init(logger.LogConfig{
		Level:      cfg.LogLevel,
		Format:     logFormat,
		Output:     cfg.LogOutput,
		Path:       cfg.LogPath,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAge,
		Compress:   cfg.LogCompress,
	}); err != nil {
		log.Fatalf("❌ Failed to initialize logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewClient(cfg)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	// Redis is optional: without it there is no dedupe, no drive queue and the feed is local only
	rdb := redisutil.Connect(ctx, cfg)
	if rdb == nil {
		log.Warn("⚠️ Running without Redis")
	} else {
		defer rdb.Close()
	}

	var quotaGate video.QuotaGate
	if cfg.DatabaseURL != "" {
		pg, err := quota.NewPgStore(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Warnf("⚠️ Direct Postgres unavailable, using RPC quota gate: %v", err)
		} else {
			defer pg.Close()
			quotaGate = pg
		}
	}
	if quotaGate == nil {
		quotaGate = quota.NewRPCStore(db.Supabase())
	}

	objects := storage.NewClient(cfg)
	guard := org.NewGuard(cfg.SupabaseJWTSecret, db)
	hub := realtime.NewHub()

	videoDeps := video.Deps{
		Store:    db,
		Provider: video.NewKieClient(cfg.KieBaseURL, cfg.KieAPIKey),
		Objects:  objects,
		Quota:    quotaGate,
	}
	var driveQueue drive.JobQueue
	if rdb != nil {
		videoDeps.Locker = redisutil.NewLocker(rdb, "kie-callback")
		videoDeps.Publisher = redisutil.NewPublisher(rdb, realtime.Channel)
		driveQueue = redisutil.NewQueue(rdb, drive.QueueName)

		go func() {
			if err := realtime.Relay(ctx, rdb, hub); err != nil {
				log.Errorf("❌ Status relay stopped: %v", err)
			}
		}()
	} else {
		videoDeps.Publisher = realtime.NewLocalPublisher(hub)
	}

	videoService := video.NewService(videoDeps, video.Options{
		Model:       cfg.KieModel,
		CallbackURL: cfg.CallbackURL(),
	})
	brandService := brand.NewService(db, gemini.NewClient(cfg.GeminiAPIKeys, cfg.GeminiModel))
	billingService := billing.NewService(db,
		billing.NewStripeCheckout(cfg.StripeSecretKey),
		billing.NewCatalog(cfg.StripePriceStarter, cfg.StripePricePro, cfg.StripePriceBusiness),
		cfg.StripeWebhookSecret, cfg.AppURL)
	teamService := team.NewService(db,
		team.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom),
		cfg.AppURL)
	driveService := drive.NewService(db, objects,
		drive.NewGoogleSourceFactory(cfg.GoogleClientID, cfg.GoogleClientSecret), driveQueue)

	// 백그라운드 작업 시작
	go video.StartTimeoutSweeper(ctx, videoService, video.SweepInterval)
	go drive.StartWorker(ctx, driveService)
	go hub.StartCleanup(ctx, realtime.CleanupInterval)

	// 라우터 설정
	r := mux.NewRouter()
	r.HandleFunc("/", healthCheck).Methods("GET")
	r.HandleFunc("/health", healthCheck).Methods("GET")

	video.NewHandler(videoService, guard, cfg.KieCallbackToken).RegisterRoutes(r)
	brand.NewHandler(brandService, guard).RegisterRoutes(r)
	billing.NewHandler(billingService, guard).RegisterRoutes(r)
	team.NewHandler(teamService, guard).RegisterRoutes(r)
	drive.NewHandler(driveService, guard).RegisterRoutes(r)
	realtime.NewHandler(hub, cfg.SupabaseJWTSecret, db).RegisterRoutes(r)

	// CORS outside the router: preflights match no route
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           enableCORS(logger.Middleware(r)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("🚀 ReelCraft server starting on port %s", cfg.Port)
		log.Infof("📡 WebSocket endpoint: ws://localhost:%s/ws", cfg.Port)
		log.Infof("❤️  Health check: http://localhost:%s/health", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ Server failed to start: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("🛑 Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("❌ Graceful shutdown failed: %v", err)
	}
	log.Info("👋 Server stopped")
}
