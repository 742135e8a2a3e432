package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"ai-speech-transcribe-service/internal/service/audio"
)

var (
	genDuration   time.Duration
	genSampleRate int
	genToneHz     float64
)

var genCmd = &cobra.Command{
	Use:   "gen <out.wav>",
	Short: "Write a silent or tone .wav file for smoke tests",
	Args:  cobra.ExactArgs(1),
	RunE:  runGen,
}

func init() {
	genCmd.Flags().DurationVar(&genDuration, "duration", time.Second, "Clip length")
	genCmd.Flags().IntVar(&genSampleRate, "rate", 16000, "Sample rate in Hz")
	genCmd.Flags().Float64Var(&genToneHz, "tone", 0, "Sine frequency in Hz; 0 writes silence")
	rootCmd.AddCommand(genCmd)
}

func runGen(cmd *cobra.Command, args []string) error {
	if genSampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", genSampleRate)
	}
	f, err := os.Create(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	if genToneHz <= 0 {
		err = audio.WriteSilence(f, genSampleRate, genDuration)
	} else {
		n := int(int64(genSampleRate) * int64(genDuration) / int64(time.Second))
		err = audio.Write(f, genSampleRate, audio.Tone(genSampleRate, genToneHz, 8000, n))
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%v at %d Hz)\n", args[0], genDuration, genSampleRate)
	return nil
}
