package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"time"

	"colloquy/encoder"
	"colloquy/log"
)

const groqAPIURL = "https://api.groq.com/openai/v1/audio/transcriptions"

type Groq struct {
	apiKey string
	apiURL string
	client *http.Client
}

func NewGroq(apiKey string) *Groq {
	return &Groq{
		apiKey: apiKey,
		apiURL: groqAPIURL,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

func (g *Groq) Name() string { return "groq" }

type groqResponse struct {
	Text     string  `json:"text"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Text         string  `json:"text"`
		NoSpeechProb float64 `json:"no_speech_prob"`
		AvgLogProb   float64 `json:"avg_logprob"`
	} `json:"segments"`
}

func (g *Groq) Transcribe(ctx context.Context, pcm []byte) (Result, error) {
	audio, format := encoder.Encode(pcm, encoder.FormatFLAC)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "audio."+string(format))
	if err != nil {
		return Result{}, err
	}
	if _, err := part.Write(audio); err != nil {
		return Result{}, err
	}

	writer.WriteField("model", "whisper-large-v3-turbo")
	writer.WriteField("response_format", "verbose_json")
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, "POST", g.apiURL, &body)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := g.client.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, err
	}
	if resp.StatusCode != 200 {
		return Result{}, fmt.Errorf("groq API error %d: %s", resp.StatusCode, string(respBody))
	}

	var gResp groqResponse
	if err := json.Unmarshal(respBody, &gResp); err != nil {
		return Result{}, fmt.Errorf("groq response parse error: %w", err)
	}

	// Whisper reports per-segment log probabilities, not a confidence.
	// Averaging and exponentiating gives a rough [0,1] proxy.
	var confidence float64
	if len(gResp.Segments) > 0 {
		var logProbSum float64
		for _, seg := range gResp.Segments {
			logProbSum += seg.AvgLogProb
		}
		confidence = math.Exp(logProbSum / float64(len(gResp.Segments)))
	}

	remaining := firstNonEmpty(resp.Header, "x-ratelimit-remaining-requests")
	limit := firstNonEmpty(resp.Header, "x-ratelimit-limit-requests")
	log.For("transcriber").Debug().
		Str("ratelimit", remaining+"/"+limit).
		Float64("audio_s", gResp.Duration).
		Msg("groq transcription done")

	return Result{
		Text:       gResp.Text,
		Confidence: confidence,
		Duration:   gResp.Duration,
	}, nil
}
