package cmd

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"ai-speech-transcribe-service/internal/service/audio"
)

var skipCheck bool

var transcribeCmd = &cobra.Command{
	Use:   "transcribe <file.wav>",
	Short: "Upload a .wav file and print the transcript",
	Long: `Uploads a .wav file as the audio_data form field and prints the JSON
response. The file is decoded locally first so format problems are reported
before the upload; use --skip-check to send it as-is.`,
	Args: cobra.ExactArgs(1),
	RunE: runTranscribe,
}

func init() {
	transcribeCmd.Flags().BoolVar(&skipCheck, "skip-check", false, "Upload without decoding the file locally")
	rootCmd.AddCommand(transcribeCmd)
}

func runTranscribe(cmd *cobra.Command, args []string) error {
	path := args[0]

	if !skipCheck {
		clip, err := audio.Load(path)
		if err != nil {
			return fmt.Errorf("check %s: %w", path, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "WAV file: channels=%d sampleRate=%d bitsPerSample=%d duration=%v\n",
			clip.Channels, clip.SampleRate, clip.BitDepth, clip.Duration())
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	// Stream the multipart body instead of buffering the file.
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("audio_data", filepath.Base(path))
		if err == nil {
			_, err = io.Copy(part, f)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, endpoint("/api/transcribe"), pr)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()
	return printResponse(cmd.OutOrStdout(), resp)
}
