package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"colloquy/encoder"
	"colloquy/log"
)

const deepgramAPIURL = "https://api.deepgram.com/v1/listen?model=nova-3&language=en"

type Deepgram struct {
	apiKey string
	apiURL string
	client *http.Client
}

func NewDeepgram(apiKey string) *Deepgram {
	return &Deepgram{
		apiKey: apiKey,
		apiURL: deepgramAPIURL,
		client: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        1,
				MaxIdleConnsPerHost: 1,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
		},
	}
}

func (d *Deepgram) Name() string { return "deepgram" }

type deepgramResponse struct {
	Metadata struct {
		Duration float64 `json:"duration"`
	} `json:"metadata"`
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

func (d *Deepgram) Transcribe(ctx context.Context, pcm []byte) (Result, error) {
	audio, format := encoder.Encode(pcm, encoder.FormatFLAC)
	contentType := "audio/flac"
	if format == encoder.FormatWAV {
		contentType = "audio/wav"
	}

	req, err := http.NewRequestWithContext(ctx, "POST", d.apiURL, bytes.NewReader(audio))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Authorization", "Token "+d.apiKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := d.client.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, err
	}
	if resp.StatusCode != 200 {
		return Result{}, fmt.Errorf("deepgram API error %d: %s", resp.StatusCode, string(respBody))
	}

	var dgResp deepgramResponse
	if err := json.Unmarshal(respBody, &dgResp); err != nil {
		return Result{}, fmt.Errorf("deepgram response parse error: %w", err)
	}

	var text string
	var confidence float64
	if len(dgResp.Results.Channels) > 0 && len(dgResp.Results.Channels[0].Alternatives) > 0 {
		alt := dgResp.Results.Channels[0].Alternatives[0]
		text = alt.Transcript
		confidence = alt.Confidence
	}

	remaining := firstNonEmpty(resp.Header,
		"x-dg-ratelimit-remaining", "x-ratelimit-remaining", "ratelimit-remaining")
	limit := firstNonEmpty(resp.Header,
		"x-dg-ratelimit-limit", "x-ratelimit-limit", "ratelimit-limit")
	log.For("transcriber").Debug().
		Str("ratelimit", remaining+"/"+limit).
		Float64("audio_s", dgResp.Metadata.Duration).
		Msg("deepgram transcription done")

	return Result{
		Text:       text,
		Confidence: confidence,
		Duration:   dgResp.Metadata.Duration,
	}, nil
}
