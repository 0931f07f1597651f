package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/gastimer/pkg/config"
)

func (d *Daemon) setupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logrus.StandardLogger()))
	router.GET("/snapshot", d.getSnapshot)
	router.GET("/config", d.getConfig)
	router.PUT("/config", d.setConfig)
	router.POST("/start", d.start)
	router.POST("/confirm-wash", d.confirmWash)
	router.POST("/reset", d.reset)
	router.POST("/pause", d.pause)
	router.POST("/resume", d.resume)
	router.GET("/events", d.streamEvents)
	router.GET("/version", getVersion)

	return router
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		logrus.WithError(err).Error("failed to marshal payload")
		return "{}"
	}
	return string(b)
}

func Run(configPath string, unixSocketPath string, allowNonRoot bool) error {
	conf, err := config.NewFile(configPath)
	if err != nil {
		logrus.Fatalf("failed to parse config during startup: %v", err)
	}
	logrus.WithFields(conf.LogrusFields()).Infof("config loaded")

	d, err := New(conf)
	if err != nil {
		return err
	}
	router := d.setupRoutes()

	// Receive SIGHUP to reload config
	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGHUP)
		for range sigc {
			err := conf.Load()
			if err != nil {
				logrus.Errorf("failed to reload config: %v", err)
				continue
			}
			if err := d.ApplyConfig(); err != nil {
				logrus.WithFields(conf.LogrusFields()).Warnf("config reloaded and cues applied, but durations not applied: %v", err)
				continue
			}
			logrus.WithFields(conf.LogrusFields()).Infof("config reloaded")
		}
	}()

	// Cancelling ctx also ends open event streams, which would otherwise keep
	// Shutdown waiting.
	ctx, stopLoop := context.WithCancel(context.Background())
	srv := &http.Server{
		Handler:     router,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	// A stale socket from an unclean exit would make Listen fail.
	if _, err := os.Stat(unixSocketPath); err == nil {
		logrus.Warnf("removing stale socket %s", unixSocketPath)
		_ = os.Remove(unixSocketPath)
	}

	// Create the socket to listen on:
	l, err := net.Listen("unix", unixSocketPath)
	if err != nil {
		logrus.Fatal(err)
	}

	if conf.AllowNonRootAccess() || allowNonRoot {
		logrus.Infof("non-root access is allowed, changing permissions of %s to 0777", unixSocketPath)
		err = os.Chmod(unixSocketPath, 0777)
		if err != nil {
			logrus.Fatal(err)
		}
	}

	// Serve HTTP on unix socket
	go func() {
		logrus.Infof("http server listening on %s", l.Addr().String())
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatal(err)
		}
	}()

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		logrus.Debugln("poll loop starts")
		_ = d.ctl.Run(ctx)
	}()

	// Handle common process-killing signals, so we can gracefully shut down:
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	// Wait for a SIGINT or SIGTERM:
	sig := <-sigc
	logrus.Infof("caught signal \"%s\": shutting down.", sig)

	logrus.Info("stopping poll loop")
	stopLoop()
	<-loopDone

	logrus.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = srv.Shutdown(shutdownCtx)
	if err != nil {
		logrus.Errorf("failed to shutdown http server: %v", err)
	}
	cancel()

	logrus.Info("flushing notifications")
	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := d.Close(closeCtx); err != nil {
		logrus.Errorf("failed to flush notifications: %v", err)
	}
	cancel()

	logrus.Info("exiting")
	return nil
}
