package main

import (
	"database/sql"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/hklemm/dimdocs/backend"
	"github.com/hklemm/dimdocs/core"
	"github.com/hklemm/dimdocs/sqldb"
	"github.com/hklemm/dimdocs/sqldb/mysql"
	"github.com/hklemm/dimdocs/sqldb/sqlite3"
	"github.com/hklemm/dimdocs/util"
	_ "github.com/mattn/go-sqlite3"
	"github.com/xo/dburl"
)

func init() {
	log.SetFlags(0) // no log prefixes, on most systems systemd-journald adds them
}

func main() {

	var dbArg string // is in both FlagSets

	// defaults can come from config/server.ini, flags win

	var defaultListen = "127.0.0.1:8080"
	var defaultWindowMinutes = int(core.DefaultAttemptWindow / time.Minute)

	if cfg, err := util.Ini("server.ini"); err == nil {
		if v, ok := cfg["listen"]; ok {
			defaultListen = v
		}
		if v, ok := cfg["attempt-window-minutes"]; ok {
			if minutes, err := strconv.Atoi(v); err == nil && minutes > 0 {
				defaultWindowMinutes = minutes
			}
		}
	}

	// default FlagSet

	// MySQL: collation should be utf8mb4_unicode_ci
	flag.StringVar(&dbArg, "db", "sqlite3:dimdocs.sqlite3?_busy_timeout=10000&_journal=WAL&_sync=NORMAL&cache=shared", "sql database url, see github.com/xo/dburl")
	var listenAddr = flag.String("listen", defaultListen, "serve HTTP content at this `ip:port`")
	var windowMinutes = flag.Int("attempt-window", defaultWindowMinutes, "unlock throttling window in `minutes`")

	// init FlagSet

	var initFlags = flag.NewFlagSet("init", flag.ExitOnError)

	initFlags.StringVar(&dbArg, "db", "sqlite3:dimdocs.sqlite3?_busy_timeout=10000&_journal=WAL&_sync=NORMAL&cache=shared", "sql database url, see github.com/xo/dburl") // copied from above
	var initInsert = initFlags.Bool("insert", false, "creates the given dimension")
	var initRoot = initFlags.Bool("root", false, "creates a top-level folder for the given dimension")
	var dimensionName = initFlags.String("dimension", "", "specifies a dimension `name`")
	var folderName = initFlags.String("name", "", "specifies a folder `name`")

	if len(os.Args) > 1 && os.Args[1] == "init" {
		initFlags.Parse(os.Args[2:])
	} else {
		flag.Parse()
	}

	// database

	dbURL, err := dburl.Parse(dbArg)
	if err != nil {
		log.Printf("could not parse database url: %v", err)
		return
	}

	sqlDB, err := sql.Open(dbURL.Driver, dbURL.DSN)
	if err != nil {
		log.Printf("could not open sql database: %v", err)
		return
	}

	if err = sqlDB.Ping(); err != nil {
		log.Printf("could not ping sql database: %v", err)
		return
	}

	log.Printf("using database %s", dbURL.String())

	// assemble stuff

	var sessionStore scs.Store
	switch dbURL.Driver {
	case "mysql":
		sessionStore = mysql.NewSessionStore(sqlDB)
	case "sqlite3":
		sessionStore = sqlite3.NewSessionStore(sqlDB)
	default:
		log.Printf("unknown database backend: %s", dbURL.Driver)
		return
	}

	db := &core.CoreDB{}
	err = db.Init(sessionStore, "")
	if err != nil {
		log.Println(err) // log.Fatalln would not run deferred functions
		return
	}

	db.DimensionDB = sqldb.NewDimensionDB(sqlDB)
	db.ItemDB = sqldb.NewItemDB(sqlDB)
	db.LockDB = sqldb.NewLockDB(sqlDB)
	db.ShareDB = sqldb.NewShareDB(sqlDB)
	db.TaskLockDB = sqldb.NewTaskLockDB(sqlDB)

	db.AttemptWindow = time.Duration(*windowMinutes) * time.Minute
	db.SqlDB = sqlDB

	defer func() {
		log.Println("closing database")
		sqlDB.Close()
	}()

	// init

	if initFlags.Parsed() {
		switch {
		case *initInsert:
			if *dimensionName != "" {
				insertDimension(db, *dimensionName)
			}
		case *initRoot:
			if *dimensionName != "" && *folderName != "" {
				insertRootFolder(db, *dimensionName, *folderName)
			}
		}
		return
	}

	listen(db, *listenAddr)
}

func insertDimension(db *core.CoreDB, name string) {
	if err := db.InsertDimension(name); err != nil {
		log.Printf(`error creating dimension "%s": %v`, name, err)
	}
}

func insertRootFolder(db *core.CoreDB, dimensionName string, folderName string) {

	dimension, err := db.GetDimensionByName(dimensionName)
	if err != nil {
		log.Printf("error getting dimension %s: %v", dimensionName, err)
		return
	}

	var actor = core.Actor{
		Role:        core.Admin,
		DimensionID: dimension.ID(),
		Name:        "init",
	}

	if _, err := db.PerformCreate(actor, "init", 0, core.Folder, folderName); err != nil {
		log.Printf("error creating folder %s: %v", folderName, err)
		return
	}
}

func listen(db *core.CoreDB, addr string) {

	var waitingControllers sync.WaitGroup

	var router = backend.NewBackendRouter(db)

	var handler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		waitingControllers.Add(1)
		defer waitingControllers.Done()
		router.ServeHTTP(w, req)
	})

	// listener and listen

	sigintChannel := make(chan os.Signal, 1)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Println(err)
		return
	}

	log.Printf("listening to %s", addr)

	httpSrv := &http.Server{
		Handler:      db.SessionManager.LoadAndSave(handler),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := httpSrv.Serve(listener); err != nil {

			// don't panic, we want a graceful shutdown
			if err != http.ErrServerClosed {
				log.Printf("error listening: %v", err)
			}

			// ensure graceful shutdown
			sigintChannel <- os.Interrupt
		}
	}()

	// graceful shutdown

	signal.Notify(sigintChannel, os.Interrupt, syscall.SIGTERM) // SIGINT (Interrupt) or SIGTERM
	<-sigintChannel

	log.Println("shutting down")
	httpSrv.Close()

	waitingControllers.Wait()
}
