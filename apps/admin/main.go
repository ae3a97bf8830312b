package main

import (
	"database/sql"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/core/video"
	"github.com/trezcool/darasa/services/baas"
	logsvc "github.com/trezcool/darasa/services/logger"
	"github.com/trezcool/darasa/storage/database"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
	sqlxrepos "github.com/trezcool/darasa/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(false)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	client := baas.NewClient(conf.BaaS, logger)
	cli := commandLine{
		jobRepo: inmemdb.NewJobRepository(inmemdb.Open()),
		usrSvc:  user.NewService(client, validate, nil, logger),
		poller:  video.NewPoller(client, conf.Video, logger),
		out:     os.Stdout,
	}

	var db *sql.DB
	if conf.Database.Enabled {
		var err error
		if db, err = database.Open(conf); err != nil {
			logger.Fatal("opening database", err)
		}
		cli.db = db
		cli.jobRepo = sqlxrepos.NewJobRepository(db, database.Dialect)
	}

	err := cli.run(os.Args)
	if db != nil {
		_ = db.Close()
	}
	if err != nil {
		if err != errHelp {
			logger.Error("admin: "+err.Error(), err)
		}
		os.Exit(1)
	}
}
