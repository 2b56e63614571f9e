package main

import (
	"log"
	"os"

	"github.com/openschool/campus/core"
	"github.com/openschool/campus/storage/database"
	sqlxrepos "github.com/openschool/campus/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)

	// start CLI
	cli := commandLine{
		db:      db.DB,
		usrRepo: sqlxrepos.NewUserRepository(db),
		enrRepo: sqlxrepos.NewEnrollmentRepository(db),
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
