package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/namsral/flag"
	"go.uber.org/zap"

	katmannames "github.com/katmannames/katmannames"
	"github.com/katmannames/katmannames/cryptorand"
	"github.com/katmannames/katmannames/dict"
	"github.com/katmannames/katmannames/logger"
	"github.com/katmannames/katmannames/sqldb"
	"github.com/katmannames/katmannames/web"
)

func main() {
	var (
		addr      = flag.String("addr", ":8080", "HTTP service address")
		dbPath    = flag.String("db_path", "katmannames.db", "Path to the SQLite results DB file")
		wordsFile = flag.String("words_file", "words.txt", "Path to a newline-separated word pool")
		keyDir    = flag.String("key_dir", ".", "Directory holding the cookie key files")
		logLevel  = flag.String("log_level", "info", "Log level: debug, info, warn or error")
		grace     = flag.Duration("room_grace", 5*time.Minute, "How long an empty room lingers before cleanup")
		botDelay  = flag.Duration("bot_delay", 1500*time.Millisecond, "How long bots think before acting")
	)
	flag.Parse()

	if err := logger.Init(*logLevel); err != nil {
		zap.L().Fatal("failed to set up logging", zap.Error(err))
	}
	defer zap.L().Sync()

	words, err := dict.Load(*wordsFile)
	if err != nil {
		zap.L().Fatal("failed to load words", zap.Error(err))
	}
	if len(words) < katmannames.Size {
		zap.L().Fatal("word pool is too small", zap.Int("words", len(words)))
	}

	db, err := sqldb.New(*dbPath)
	if err != nil {
		zap.L().Fatal("failed to initialize datastore", zap.Error(err))
	}

	srv, err := web.New(web.Config{
		Source:      cryptorand.NewSource(),
		Words:       words,
		Results:     db,
		KeyDir:      *keyDir,
		BotDelay:    *botDelay,
		GracePeriod: *grace,
	})
	if err != nil {
		zap.L().Fatal("failed to initialize server", zap.Error(err))
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-c
		srv.Close()
		db.Close()
		os.Exit(1)
	}()

	zap.L().Info("server is running", zap.String("addr", *addr))
	if err := http.ListenAndServe(*addr, srv); err != nil {
		zap.L().Fatal("ListenAndServe", zap.Error(err))
	}
}
