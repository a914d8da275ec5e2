package main

import (
	"context"

	"github.com/datawire/dlib/dlog"
	"github.com/sirupsen/logrus"
)

func makeBaseLogger(ctx context.Context, level string) context.Context {
	logrusLogger := logrus.New()
	logrusLogger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrusLogger.SetLevel(lvl)

	logger := dlog.WrapLogrus(logrusLogger)
	dlog.SetFallbackLogger(logger)
	return dlog.WithLogger(ctx, logger)
}
