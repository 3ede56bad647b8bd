package transcriber

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"nhooyr.io/websocket"

	"colloquy/encoder"
)

const deepgramStreamURL = "wss://api.deepgram.com/v1/listen"

// streamChunkBytes is how much PCM goes into each websocket frame.
// 8 KiB is a quarter second of audio at the engine sample rate.
const streamChunkBytes = 8192

// DeepgramStream sends each turn over Deepgram's live websocket instead of
// the prerecorded endpoint. The turn is already complete when Transcribe is
// called, so the session is dialed, drained and closed per call.
type DeepgramStream struct {
	apiKey   string
	endpoint string
}

func NewDeepgramStream(apiKey string) *DeepgramStream {
	return &DeepgramStream{apiKey: apiKey, endpoint: deepgramStreamURL}
}

func (d *DeepgramStream) Name() string { return "deepgram-stream" }

type deepgramStreamResponse struct {
	Type         string `json:"type"`
	IsFinal      bool   `json:"is_final"`
	FromFinalize bool   `json:"from_finalize"`
	Channel      struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
}

func (d *DeepgramStream) Transcribe(ctx context.Context, pcm []byte) (Result, error) {
	endpoint, err := url.Parse(d.endpoint)
	if err != nil {
		return Result{}, err
	}
	q := endpoint.Query()
	q.Set("model", "nova-3")
	q.Set("encoding", "linear16")
	q.Set("sample_rate", fmt.Sprintf("%d", encoder.SampleRate))
	q.Set("channels", fmt.Sprintf("%d", encoder.Channels))
	endpoint.RawQuery = q.Encode()

	headers := http.Header{}
	headers.Set("Authorization", "Token "+d.apiKey)

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, endpoint.String(), &websocket.DialOptions{HTTPHeader: headers})
	if err != nil {
		return Result{}, err
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	for off := 0; off < len(pcm); off += streamChunkBytes {
		end := min(off+streamChunkBytes, len(pcm))
		if err := conn.Write(ctx, websocket.MessageBinary, pcm[off:end]); err != nil {
			return Result{}, err
		}
	}
	if err := conn.Write(ctx, websocket.MessageText, []byte(`{"type":"Finalize"}`)); err != nil {
		return Result{}, err
	}

	var parts []string
	var confidence float64
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return Result{}, err
		}

		var resp deepgramStreamResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			return Result{}, err
		}
		if resp.Type != "Results" || !resp.IsFinal {
			continue
		}
		if len(resp.Channel.Alternatives) > 0 {
			alt := resp.Channel.Alternatives[0]
			if t := strings.TrimSpace(alt.Transcript); t != "" {
				parts = append(parts, t)
				confidence = alt.Confidence
			}
		}
		if resp.FromFinalize {
			break
		}
	}

	return Result{
		Text:       strings.Join(parts, " "),
		Confidence: confidence,
		Duration:   float64(len(pcm)) / float64(encoder.BytesPerSecond),
	}, nil
}
