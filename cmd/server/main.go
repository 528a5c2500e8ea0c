package main

import (
	"fmt"
	"os"

	"github.com/block/flight-control/internal/app"
)

func main() {
	a, err := app.New()
	if err != nil {
		fmt.Printf("Failed to initialize app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := a.Start(); err != nil {
		a.Log.Error("Failed to start background services", "error", err)
		os.Exit(1)
	}

	if err := a.Run(); err != nil {
		a.Log.Warn("Server failed", "error", err)
	}
}
