package main

import (
	"log/slog"
	"os"

	"github.com/kode4food/walkthrough/pkg/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("Command failed", log.Error(err))
		os.Exit(1)
	}
}
