package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/acanas/swad-core-sub004/core"
	"github.com/acanas/swad-core-sub004/core/group"
	"github.com/acanas/swad-core-sub004/core/hierarchy"
	logsvc "github.com/acanas/swad-core-sub004/services/logger"
	"github.com/acanas/swad-core-sub004/storage/database"
	sqlxrepos "github.com/acanas/swad-core-sub004/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := database.Open(conf)
	errAndDie(logger, err)
	defer db.Close()
	errAndDie(logger, database.Ping(context.Background(), db))

	if v, err := database.Version(db); err == nil {
		logger.Debug(fmt.Sprintf("database version %d", v))
	}

	// start CLI
	cli := commandLine{
		migrateFunc: func(command string, args ...string) error {
			return database.Run(db, command, args...)
		},
		usrRepo: sqlxrepos.NewUserRepository(db),
		groups: group.NewService(
			sqlxrepos.NewGroupRepository(db),
			sqlxrepos.NewTransactor(db),
			hierarchy.NewService(sqlxrepos.NewHierarchyRepository(db), conf),
			conf,
		),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %s", err), err)
		}
		_ = db.Close()
		os.Exit(1)
	}
}

func errAndDie(logger core.Logger, err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
