package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"call-insights-go/internal/logger"
)

const maxReplyBytes = 8 << 20

// StatusError is a non-2xx reply from the transcription gateway.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("transcription gateway status %d: %s", e.Code, e.Body)
}

// GatewayTranscriber uploads the audio as multipart form data to
// <base>/transcribe. 5xx and network failures are retried until maxRetry
// elapses; 4xx replies are not.
type GatewayTranscriber struct {
	baseURL  string
	client   *http.Client
	maxRetry time.Duration
	log      *logrus.Entry
}

func NewGateway(baseURL string, maxRetry time.Duration, log *logger.Logger) *GatewayTranscriber {
	return &GatewayTranscriber{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{},
		maxRetry: maxRetry,
		log:      log.Component("transcription").WithField("backend", "gateway"),
	}
}

type gatewayReply struct {
	Text       string `json:"text"`
	Transcript string `json:"transcript"`
	Error      string `json:"error"`
}

func (g *GatewayTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	endpoint := g.baseURL + "/transcribe"

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = g.maxRetry
	var (
		text    string
		attempt int
	)
	op := func() error {
		attempt++
		// the form is rebuilt per attempt; a sent body cannot be replayed
		body, contentType, err := buildForm(audioPath)
		if err != nil {
			return backoff.Permanent(err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", contentType)

		resp, err := g.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			g.log.WithError(err).WithField("attempt", attempt).Warn("gateway request failed")
			return err
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))

		if resp.StatusCode >= 500 {
			g.log.WithField("status", resp.StatusCode).WithField("attempt", attempt).Warn("gateway server error")
			return &StatusError{Code: resp.StatusCode, Body: string(b)}
		}
		if resp.StatusCode >= 300 {
			return backoff.Permanent(&StatusError{Code: resp.StatusCode, Body: string(b)})
		}
		text, err = decodeReply(b)
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return "", fmt.Errorf("transcribe %s: %w", filepath.Base(audioPath), err)
	}
	g.log.WithField("attempts", attempt).WithField("chars", len(text)).Debug("transcript received")
	return text, nil
}

func buildForm(audioPath string) (io.Reader, string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	var b bytes.Buffer
	w := multipart.NewWriter(&b)
	fw, err := w.CreateFormFile("audio", filepath.Base(audioPath))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(fw, f); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("prompt", BuildTranscriptionPrompt()); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &b, w.FormDataContentType(), nil
}

// decodeReply accepts {"text": ...} (or "transcript") as well as a raw text
// body.
func decodeReply(body []byte) (string, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return "", errors.New("empty transcript")
	}
	if trimmed[0] != '{' {
		return string(trimmed), nil
	}
	var r gatewayReply
	if err := json.Unmarshal(trimmed, &r); err != nil {
		return string(trimmed), nil
	}
	switch {
	case r.Error != "":
		return "", fmt.Errorf("transcription gateway: %s", r.Error)
	case strings.TrimSpace(r.Text) != "":
		return r.Text, nil
	case strings.TrimSpace(r.Transcript) != "":
		return r.Transcript, nil
	default:
		return "", errors.New("empty transcript")
	}
}
