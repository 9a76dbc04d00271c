package main

import (
	"os"

	appLog "actcal/internal/log"
)

func main() {
	err := rootCmd.Execute()
	appLog.Sync()
	if err != nil {
		os.Exit(1)
	}
}
