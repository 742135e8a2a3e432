package main

import (
	"os"

	"ai-speech-transcribe-service/cmd/transcribectl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
