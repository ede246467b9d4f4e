package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quizzarium-backend/internal/cache"
	"quizzarium-backend/internal/config"
	"quizzarium-backend/internal/database"
	"quizzarium-backend/internal/handlers"
	"quizzarium-backend/internal/middleware"
	"quizzarium-backend/internal/models"
	"quizzarium-backend/internal/services"
	"quizzarium-backend/internal/storage"
	"quizzarium-backend/internal/telegram"
	"quizzarium-backend/internal/ws"

	_ "quizzarium-backend/docs"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Quizzarium API
// @version         1.0
// @description     Quiz authoring, leaderboards and support tickets
// @host            localhost:8080
// @BasePath        /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Enter "Bearer {token}"

const leaderboardTTL = 5 * time.Minute

func main() {
	cfg := config.Load()

	db := database.Connect(cfg)
	database.AutoMigrate(db)

	store := newStore(cfg)
	lb := newLeaderboardCache(cfg)

	hub := ws.NewHub()

	authService := services.NewAuthService(db, store, cfg.JWTSecret, cfg.AdminEmail)
	userService := services.NewUserService(db, store, lb)
	quizService := services.NewQuizService(db, store, lb)
	questionService := services.NewQuestionService(db, store)
	categoryService := services.NewCategoryService(db, store)
	resultService := services.NewResultService(db, lb)
	supportService := services.NewSupportService(db)

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if err := authService.EnsureAdmin(context.Background(), cfg.AdminEmail, cfg.AdminPassword); err != nil {
			log.Fatalf("failed to seed admin: %v", err)
		}
	}

	maxUpload := cfg.MaxUploadMB << 20
	userHandler := handlers.NewUserHandler(authService, userService, hub, maxUpload)
	quizHandler := handlers.NewQuizHandler(quizService, hub, maxUpload)
	questionHandler := handlers.NewQuestionHandler(questionService, maxUpload)
	categoryHandler := handlers.NewCategoryHandler(categoryService, quizService, maxUpload)
	resultHandler := handlers.NewResultHandler(resultService, hub)
	wsHandler := handlers.NewWSHandler(hub, resultService)

	r := gin.Default()
	r.MaxMultipartMemory = 8 << 20

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	if cfg.StorageBackend != "supabase" {
		r.Static(storage.PublicPrefix, cfg.UploadDir)
	}
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/ws/quiz/:id/leaderboard", wsHandler.HandleLeaderboard)

	var bot *telegram.Bot
	if cfg.BotToken != "" {
		client := telegram.NewClient(cfg.BotToken)
		handler := telegram.NewUpdateHandler(client, telegram.NewStateManager(), supportService, cfg.BotAdminChatID)
		bot = telegram.NewBot(client, handler, telegram.BotOptions{
			WebhookBaseURL: cfg.WebhookBaseURL,
			WebhookSecret:  cfg.WebhookSecret,
			PollTimeout:    cfg.BotPollTimeout,
		})
		if err := bot.Start(); err != nil {
			log.Printf("[SupportBot] disabled: %v", err)
			bot = nil
		} else if cfg.WebhookBaseURL != "" {
			r.POST("/webhook/bot/:secret", bot.HandleWebhook)
		}
	} else {
		log.Println("BOT_TOKEN not set, support bot disabled")
	}

	api := r.Group("/api")
	{
		api.POST("/user/register", userHandler.Register)
		api.POST("/user/login", userHandler.Login)

		api.GET("/quiz", quizHandler.ListQuizzes)
		api.GET("/quiz/:id", quizHandler.GetQuiz)
		api.GET("/category", categoryHandler.ListCategories)
		api.GET("/category/:id", categoryHandler.GetCategory)

		authed := api.Group("")
		authed.Use(middleware.JWTAuth(authService), middleware.RequireRoles(models.RoleClient, models.RoleAdmin))
		{
			authed.GET("/user/auth", userHandler.Check)
			authed.POST("/user/change-password", userHandler.ChangePassword)
			authed.PUT("/user/:user_id/avatar", userHandler.UpdateAvatar)
			authed.GET("/user/:user_id", userHandler.GetUser)

			authed.POST("/quiz", quizHandler.CreateQuiz)
			authed.PUT("/quiz/:id", quizHandler.UpdateQuiz)
			authed.DELETE("/quiz/:id", quizHandler.DeleteQuiz)
			authed.GET("/quiz/user/:user_id", quizHandler.ListUserQuizzes)

			authed.POST("/quiz/:id/submit", resultHandler.Submit)
			authed.GET("/quiz/result/:id", resultHandler.Leaderboard)
			authed.GET("/quiz/:id/my-result", resultHandler.MyResult)

			authed.GET("/quiz/:id/questions", questionHandler.ListQuestions)
			authed.POST("/quiz/:id/question", questionHandler.CreateQuestion)
			authed.GET("/quiz/:id/question/:question_id", questionHandler.GetQuestion)
			authed.PUT("/quiz/:id/question/:question_id", questionHandler.UpdateQuestion)
			authed.DELETE("/quiz/:id/question/:question_id", questionHandler.DeleteQuestion)
			authed.GET("/quiz/:id/question/:question_id/answers", questionHandler.ListAnswers)
			authed.POST("/quiz/:id/question/:question_id/answer", questionHandler.CreateAnswer)
			authed.PUT("/quiz/:id/question/:question_id/answer/:answer_id", questionHandler.UpdateAnswer)
			authed.DELETE("/quiz/:id/question/:question_id/answer/:answer_id", questionHandler.DeleteAnswer)
		}

		admin := api.Group("")
		admin.Use(middleware.JWTAuth(authService), middleware.RequireRoles(models.RoleAdmin))
		{
			admin.POST("/category", categoryHandler.CreateCategory)
			admin.PUT("/category/:id", categoryHandler.UpdateCategory)
			admin.DELETE("/category/:id", categoryHandler.DeleteCategory)

			admin.GET("/user/users", userHandler.ListUsers)
			admin.PUT("/user/:user_id/role", userHandler.SetRole)
			admin.PUT("/user/:user_id/block", userHandler.SetBlocked)
			admin.DELETE("/user/delete/:user_id", userHandler.DeleteUser)
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	go func() {
		log.Printf("server starting on :%s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Println("shutting down")
	if bot != nil {
		bot.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

func newStore(cfg *config.Config) storage.Store {
	if cfg.StorageBackend == "supabase" {
		if cfg.SupabaseURL == "" || cfg.SupabaseKey == "" {
			log.Fatal("STORAGE_BACKEND=supabase requires SUPABASE_URL and SUPABASE_KEY")
		}
		log.Printf("media stored in supabase bucket %q", cfg.SupabaseBucket)
		return storage.NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseKey, cfg.SupabaseBucket)
	}

	store, err := storage.NewDiskStore(cfg.UploadDir)
	if err != nil {
		log.Fatalf("failed to prepare upload dir: %v", err)
	}
	log.Printf("media stored in %s", cfg.UploadDir)
	return store
}

func newLeaderboardCache(cfg *config.Config) cache.LeaderboardCache {
	if cfg.RedisAddr == "" {
		log.Println("REDIS_ADDR not set, leaderboard cache disabled")
		return cache.Nop{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("redis unreachable (%v), leaderboard cache disabled", err)
		client.Close()
		return cache.Nop{}
	}
	return cache.NewRedisCache(client, leaderboardTTL)
}
