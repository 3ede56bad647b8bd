package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const elevenLabsAPIURL = "https://api.elevenlabs.io"

// DefaultVoiceID is ElevenLabs' "Rachel" voice.
const DefaultVoiceID = "21m00Tcm4TlvDq8ikWAM"

type ElevenLabs struct {
	apiKey string
	apiURL string
	model  string
	client *http.Client

	// Speed in [0.7, 1.2]; zero means the voice default.
	Speed float64
}

func NewElevenLabs(apiKey string) *ElevenLabs {
	return &ElevenLabs{
		apiKey: apiKey,
		apiURL: elevenLabsAPIURL,
		model:  "eleven_turbo_v2_5",
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

func (e *ElevenLabs) Name() string { return "elevenlabs" }

type elevenLabsRequest struct {
	Text          string         `json:"text"`
	ModelID       string         `json:"model_id"`
	VoiceSettings *voiceSettings `json:"voice_settings,omitempty"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Speed           float64 `json:"speed,omitempty"`
}

// Synthesize requests raw PCM at the engine sample rate so the bytes can go
// straight to the playback device without decoding.
func (e *ElevenLabs) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if voice == "" {
		voice = DefaultVoiceID
	}

	body, err := json.Marshal(elevenLabsRequest{
		Text:    text,
		ModelID: e.model,
		VoiceSettings: &voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
			Speed:           e.Speed,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=pcm_16000", e.apiURL, url.PathEscape(voice))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("elevenlabs API error %d: %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}
