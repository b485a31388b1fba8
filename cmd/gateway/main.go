package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	api "github.com/brightclass/brightclass-lms/internal/api/http"
	"github.com/brightclass/brightclass-lms/internal/assessment"
	auth "github.com/brightclass/brightclass-lms/internal/auth/middleware"
	"github.com/brightclass/brightclass-lms/internal/config"
	"github.com/brightclass/brightclass-lms/internal/db"
	"github.com/brightclass/brightclass-lms/internal/logger"
	"github.com/brightclass/brightclass-lms/internal/notify"
	"github.com/brightclass/brightclass-lms/internal/rbac"
	"github.com/brightclass/brightclass-lms/internal/users"
)

func main() {
	cfg := config.FromEnv()

	log, err := logger.New(string(cfg.Mode))
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatal("db open failed", "err", err)
	}
	store := assessment.NewSQLStore(dbh, cfg.DBDriver, log)
	userDir := users.NewStore(dbh, log)

	// --- Notification sink (optional) ---
	var notifier notify.Notifier = notify.Nop{}
	if cfg.RedisAddr != "" {
		notifier, err = notify.NewRedis(cfg.RedisAddr, cfg.RedisChannel, log)
		if err != nil {
			log.Fatal("redis notifier", "err", err)
		}
	}

	svc := assessment.NewService(store, userDir, notifier, log)
	authSvc := auth.NewAuthService(cfg.AuthHMACSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	origins := cfg.CORSOriginsOffline
	if cfg.Mode == config.ModeOnline {
		origins = cfg.CORSOriginsOnline
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(authSvc, userDir))

	// Protected API (JWT → subject/role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))
		pr.Use(auth.AttachRoleFromDB(dbh, cfg.Mode == config.ModeOffline))

		// Authoring (teacher/admin)
		pr.With(rbac.Require("assessment:create")).
			Post("/assessments", api.CreateAssessmentHandler(store))
		pr.With(rbac.Require("assessment:create")).
			Put("/assessments/{assessmentID}", api.UpdateAssessmentHandler(store))
		pr.With(rbac.Require("assessment:delete")).
			Delete("/assessments/{assessmentID}", api.DeleteAssessmentHandler(store, cfg.CascadeTimeout, log))
		pr.With(rbac.Require("assessment:view-full")).
			Get("/assessments/{assessmentID}/full", api.GetAssessmentFullHandler(store))

		// Student/teacher reads
		pr.With(rbac.Require("assessment:view")).
			Get("/assessments", api.ListAssessmentsHandler(store))
		pr.With(rbac.Require("assessment:view")).
			Get("/assessments/{assessmentID}", api.GetAssessmentHandler(store))

		// Submission and results
		pr.With(rbac.Require("submission:create")).
			Post("/submissions", api.SubmitHandler(svc))
		pr.With(rbac.RequireAny("result:view-own", "result:view-all")).
			Get("/results", api.GetResultHandler(store))
		pr.With(rbac.RequireAny("result:view-own", "result:view-all")).
			Get("/results/{resultID}", api.GetDetailedResultHandler(store))
		pr.With(rbac.Require("result:view-all")).
			Get("/assessments/{assessmentID}/results", api.ListResultsHandler(store))

		// Users (teacher/admin)
		pr.With(rbac.Require("users:bulk_upsert")).
			Post("/users/bulk", api.BulkUpsertUsersHandler(userDir))
		pr.With(rbac.Require("users:list")).
			Get("/users", api.ListUsersHandler(userDir))
		pr.With(rbac.Require("user:change_password")).
			Post("/users/change-password", api.ChangePasswordHandler(userDir))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Info("listening", "addr", cfg.HTTPAddr, "mode", string(cfg.Mode), "db", cfg.DBDriver)
	log.Fatal("server exited", "err", http.ListenAndServe(cfg.HTTPAddr, r))
}
