package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"
	"go.etcd.io/bbolt"

	"github.com/jrsteele09/go-blog-server/ai"
	"github.com/jrsteele09/go-blog-server/auth"
	"github.com/jrsteele09/go-blog-server/credential"
	"github.com/jrsteele09/go-blog-server/internal/config"
	boltpostrepo "github.com/jrsteele09/go-blog-server/posts/boltrepo"
	"github.com/jrsteele09/go-blog-server/server"
	boltuserrepo "github.com/jrsteele09/go-blog-server/users/boltrepo"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatalf("Error running server: %s\n", err)
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Printf("Server stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	if c.GetTokenSecret() == "" {
		return errors.New("TOKEN_SECRET must be set")
	}
	displayAppname(c.GetAppName())

	handler, closeDB, err := buildServer(c)
	if err != nil {
		return err
	}
	defer closeDB()

	httpServer := &http.Server{Addr: c.GetPort(), Handler: handler}
	go listenAndServe(httpServer)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

func buildServer(c config.Config) (http.Handler, func(), error) {
	if err := os.MkdirAll(c.GetDataFolder(), 0o750); err != nil {
		return nil, nil, fmt.Errorf("create data folder: %w", err)
	}
	db, err := bbolt.Open(filepath.Join(c.GetDataFolder(), "blog.db"), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	closeDB := func() { _ = db.Close() }

	userRepo, err := boltuserrepo.New(db)
	if err != nil {
		closeDB()
		return nil, nil, err
	}
	postRepo, err := boltpostrepo.New(db)
	if err != nil {
		closeDB()
		return nil, nil, err
	}

	codec, err := credential.NewCodec(c.GetTokenSecret(), credential.WithTTL(c.GetTokenTTL()))
	if err != nil {
		closeDB()
		return nil, nil, err
	}
	authService, err := auth.NewService(auth.Repos{Users: userRepo}, codec)
	if err != nil {
		closeDB()
		return nil, nil, err
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	options := []server.ServerOption{server.WithLogger(logger)}
	if key := c.GetGeminiAPIKey(); key != "" {
		generator, err := ai.NewGeminiGenerator(key, c.GetGeminiModel())
		if err != nil {
			closeDB()
			return nil, nil, err
		}
		options = append(options, server.WithGenerator(generator))
	} else {
		logger.Warn().Msg("GEMINI_API_KEY not set, post generation disabled")
	}

	blogServer, err := server.New(c, authService, codec, postRepo, options...)
	if err != nil {
		closeDB()
		return nil, nil, err
	}
	return blogServer, closeDB, nil
}

func listenAndServe(server *http.Server) error {
	log.Printf("Server listening on %s\n", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
