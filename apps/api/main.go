package main

import (
	"context"
	"database/sql"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/validator/v10"

	echoapi "github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/tutor"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/core/video"
	appfs "github.com/trezcool/darasa/fs"
	"github.com/trezcool/darasa/services/baas"
	emailsvc "github.com/trezcool/darasa/services/email"
	"github.com/trezcool/darasa/services/llm"
	logsvc "github.com/trezcool/darasa/services/logger"
	"github.com/trezcool/darasa/storage/database"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
	sqlxrepos "github.com/trezcool/darasa/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	if conf.BaaS.BaseURL == "" {
		logger.Fatal("baas.baseURL is not set")
	}

	// set up the job store
	jobRepo, db, err := setUpJobStore(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up job store: %v", err), err)
	}
	if db != nil {
		defer func() {
			if err = db.Close(); err != nil {
				logger.Error("Failed to close database", err)
			}
		}()
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	course.InitValidators(validate, translator)

	core.ParseEmailTemplates(appfs.FS, conf, logger)

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	client := baas.NewClient(conf.BaaS, logger)
	usrSvc := user.NewService(client, validate, mailSvc, logger)
	courseSvc := course.NewService(client, validate, logger)
	videoSvc := video.NewService(client, jobRepo, conf.Video, logger)
	defer videoSvc.Close()

	var model tutor.Model
	if conf.AI.Mode == "llm" {
		provider, err := llm.NewProvider(context.Background(), conf.AI, logger)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up llm provider: %v", err), err)
		}
		model = llm.NewTutor(provider, conf.AI.MaxTokens)
	}
	tutorSvc := tutor.NewService(client, model, courseSvc, validate, logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:       conf,
		Logger:     logger,
		Validate:   validate,
		Translator: translator,
		UserSvc:    usrSvc,
		CourseSvc:  courseSvc,
		VideoSvc:   videoSvc,
		TutorSvc:   tutorSvc,
	})

	go server.Start()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// setUpJobStore returns the ingestion job repository: Postgres when the database is enabled, in memory otherwise.
func setUpJobStore(conf *core.Config) (video.Repository, *sql.DB, error) {
	if !conf.Database.Enabled {
		return inmemdb.NewJobRepository(inmemdb.Open()), nil, nil
	}

	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, nil, err
	}
	db, err := database.Open(conf)
	if err != nil {
		return nil, nil, err
	}
	if err = database.Migrate(db, "up"); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return sqlxrepos.NewJobRepository(db, database.Dialect), db, nil
}
