package main

import (
	"io"
	"log/slog"
)

func newTestApplication() *application {
	return &application{
		config: &Config{
			Port:        ":4000",
			Environment: "test",
			Version:     "test",
		},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}
