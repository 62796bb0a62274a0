package services

import (
	"io"
	"os"
	"strings"

	"github.com/prbn021/seo-app/config"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger builds the application logger from logging configuration.
// File output is rotated by lumberjack. An unknown level falls back to info and is reported
// through the returned error alongside a usable logger.
func NewLogger(cfg config.LoggingConfig) (*logrus.Logger, error) {
	logger := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	logger.SetReportCaller(cfg.EnableCaller)

	var writers []io.Writer
	switch strings.ToLower(cfg.Output) {
	case "file":
		writers = append(writers, rotatingFile(cfg))
	case "both":
		writers = append(writers, os.Stdout, rotatingFile(cfg))
	default:
		writers = append(writers, os.Stdout)
	}
	logger.SetOutput(io.MultiWriter(writers...))

	return logger, err
}

func rotatingFile(cfg config.LoggingConfig) io.Writer {
	path := cfg.FilePath
	if path == "" {
		path = "logs/app.log"
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}
}
