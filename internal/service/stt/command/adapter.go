// Package command runs a locally installed recognizer (a whisper.cpp or
// Vosk wrapper script, for example) once per clip.
//
// The command is invoked as
//
//	<command...> --audio <file.wav> [--language <tag>]
//
// and must print {"text": "..."} on stdout.
package command

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/mattn/go-shellwords"

	"ai-speech-transcribe-service/internal/service/audio"
	"ai-speech-transcribe-service/internal/service/stt"
)

// ProviderName is the registered name for the command backend.
const ProviderName = "command"

// Adapter implements stt.Recognizer by executing a local program.
type Adapter struct {
	args []string
}

type execResult struct {
	Text string `json:"text"`
}

// New parses command with shell quoting rules.
func New(command string) (*Adapter, error) {
	args, err := shellwords.NewParser().Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse stt command: %w", err)
	}
	if len(args) == 0 {
		return nil, errors.New("stt command is empty")
	}
	return &Adapter{args: args}, nil
}

// Name returns the provider name.
func (a *Adapter) Name() string { return ProviderName }

// Recognize runs the command against the clip's file.
func (a *Adapter) Recognize(ctx context.Context, clip *audio.Clip, language string) stt.Result {
	cmdArgs := append([]string{}, a.args[1:]...)
	cmdArgs = append(cmdArgs, "--audio", clip.Path)
	if language != "" {
		cmdArgs = append(cmdArgs, "--language", language)
	}

	cmd := exec.CommandContext(ctx, a.args[0], cmdArgs...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return stt.BackendError(fmt.Errorf("stt command failed: %w: %s", err, strings.TrimSpace(stderr.String())))
	}

	var resp execResult
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return stt.OtherError(fmt.Errorf("decode stt command output: %w", err))
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return stt.NoSpeech()
	}
	return stt.OK(text)
}

// Warm checks the program is installed.
func (a *Adapter) Warm(context.Context) error {
	if _, err := exec.LookPath(a.args[0]); err != nil {
		return fmt.Errorf("stt command not found: %w", err)
	}
	return nil
}
