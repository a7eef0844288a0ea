package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var errSpeechDelivery = errors.New("speech delivery failed")

// sendSpeech synthesizes word and sends it as a voice note, or as a plain
// audio file when ffmpeg is not around to produce OGG/Opus
func (b *Bot) sendSpeech(ctx context.Context, chatID int64, word string) error {
	audio, err := b.service.Speak(ctx, word)
	if err != nil {
		return err
	}

	data, err := io.ReadAll(audio)
	if err != nil {
		return fmt.Errorf("%w: read audio: %v", errSpeechDelivery, err)
	}

	var upload tgbotapi.Chattable
	if voice, err := convertToVoice(ctx, data); err == nil {
		msg := tgbotapi.NewVoice(chatID, tgbotapi.FileBytes{Name: "word.ogg", Bytes: voice})
		msg.Caption = word
		upload = msg
	} else {
		b.log.Debug("voice conversion skipped", "error", err)
		msg := tgbotapi.NewAudio(chatID, tgbotapi.FileBytes{Name: "word.mp3", Bytes: data})
		msg.Caption = word
		upload = msg
	}

	if _, err := b.api.Send(upload); err != nil {
		return fmt.Errorf("%w: send: %v", errSpeechDelivery, err)
	}
	return nil
}

// convertToVoice converts synthesized audio to OGG/Opus using FFmpeg
func convertToVoice(ctx context.Context, audio []byte) ([]byte, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}

	inFile, err := os.CreateTemp("", "kid-reader-speech-*.in")
	if err != nil {
		return nil, fmt.Errorf("create temp input file: %w", err)
	}
	inPath := inFile.Name()

	outFile, err := os.CreateTemp("", "kid-reader-speech-*.ogg")
	if err != nil {
		inFile.Close()
		os.Remove(inPath)
		return nil, fmt.Errorf("create temp ogg file: %w", err)
	}
	outPath := outFile.Name()
	outFile.Close() // ffmpeg writes it

	defer func() {
		os.Remove(inPath)
		os.Remove(outPath)
	}()

	if _, err := inFile.Write(audio); err != nil {
		inFile.Close()
		return nil, fmt.Errorf("write audio data: %w", err)
	}
	if err := inFile.Close(); err != nil {
		return nil, fmt.Errorf("close input file: %w", err)
	}

	// -c:a libopus voice notes must be Opus in an OGG container
	// -ac 1 mono audio
	// -y overwrite output file
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", inPath,
		"-c:a", "libopus",
		"-ac", "1",
		"-y",
		outPath,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg conversion failed: %w: %s", err, stderr.String())
	}

	voice, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("read ogg file: %w", err)
	}
	return voice, nil
}
