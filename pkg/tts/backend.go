package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/safepath/buddy/internal/httpc"
)

const providerBackend = "backend"

// Backend implements Provider against the buddy backend's /tts endpoint.
// The endpoint accepts {"text": "..."} and responds with raw audio bytes;
// the Content-Type header carries the format.
type Backend struct {
	config *Config
	client *http.Client
	logger *slog.Logger
}

// NewBackend creates a TTS provider for the buddy backend.
func NewBackend(opts ...Option) (*Backend, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Backend{
		config: cfg,
		client: httpc.NewClient(cfg.Timeout),
		logger: cfg.Logger.With("component", "tts.backend"),
	}, nil
}

// Synthesize converts text to audio, returning the complete audio buffer.
func (b *Backend) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	start := time.Now()

	payload := map[string]string{"text": text}
	if b.config.Voice != "" {
		payload["voice"] = b.config.Voice
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, WrapError(providerBackend, fmt.Errorf("marshal payload: %w", err))
	}

	url := b.config.BaseURL + "/tts"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, WrapError(providerBackend, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.doWithRetry(ctx, req, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	latency := time.Since(start).Milliseconds()

	if resp.StatusCode != http.StatusOK {
		return nil, parseAPIError(resp)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, WrapError(providerBackend, fmt.Errorf("read response: %w", err))
	}

	format := formatFromResponse(resp)

	b.logger.Debug("synthesized audio",
		"chars", len(text),
		"bytes", len(audio),
		"latency_ms", latency,
		"encoding", format.Encoding,
	)

	return &AudioResult{
		Audio:     audio,
		Format:    format,
		CharCount: len(text),
		LatencyMs: latency,
		Duration:  estimateDuration(len(audio), format),
	}, nil
}

// Health checks backend connectivity by synthesizing a short phrase.
func (b *Backend) Health(ctx context.Context) error {
	_, err := b.Synthesize(ctx, "ok")
	return err
}

// Close releases provider resources.
func (b *Backend) Close() error {
	b.client.CloseIdleConnections()
	return nil
}

// doWithRetry performs the request, retrying rate limits and server errors.
func (b *Backend) doWithRetry(ctx context.Context, req *http.Request, body []byte) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= b.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(b.config.RetryDelay * time.Duration(attempt)):
			}
			req.Body = io.NopCloser(bytes.NewReader(body))
		}

		resp, err := b.client.Do(req)
		if err != nil {
			lastErr = WrapError(providerBackend, err)
			continue
		}

		if resp.StatusCode == 429 || resp.StatusCode >= 500 {
			lastErr = parseAPIError(resp)
			b.logger.Warn("retrying request",
				"attempt", attempt+1,
				"status", resp.StatusCode,
			)
			continue
		}

		return resp, nil
	}

	return nil, lastErr
}

// parseAPIError reads an error response body. The backend reports errors as
// {"error": "..."} JSON.
func parseAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	var errResp struct {
		Error string `json:"error"`
	}
	message := string(body)
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		message = errResp.Error
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    message,
		Provider:   providerBackend,
	}
}

func formatFromResponse(resp *http.Response) AudioFormat {
	enc := EncodingFromMIME(resp.Header.Get("Content-Type"))
	return AudioFormat{
		Encoding:   enc,
		SampleRate: SampleRateFromEncoding(enc),
		Channels:   1,
		BitDepth:   16,
	}
}

// estimateDuration estimates playback duration from byte count. Compressed
// formats report zero; the player falls back to its safety timeout.
func estimateDuration(bytes int, format AudioFormat) time.Duration {
	if format.Encoding == EncodingMP3 {
		return 0
	}
	samples := bytes / 2
	seconds := float64(samples) / float64(format.SampleRate)
	return time.Duration(seconds * float64(time.Second))
}

// Verify Backend implements Provider at compile time.
var _ Provider = (*Backend)(nil)
