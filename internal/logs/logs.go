// Package logs pushes audit lines to a Loki compatible log backend.
package logs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/delta10/ows-discovery/internal/config"
)

const pushPath = "/loki/api/v1/push"

// Entry is the audit record of one discovery answered by the API.
type Entry struct {
	RequestID string `json:"request_id"`
	Route     string `json:"route"`
	URL       string `json:"url"`
	Type      string `json:"type,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	Subject   string `json:"subject,omitempty"`
}

type LogBackend struct {
	Config config.LogBackend
	Client *http.Client
}

func NewLogBackend(backend config.LogBackend) *LogBackend {
	return &LogBackend{
		Config: backend,
		Client: &http.Client{Timeout: 5 * time.Second},
	}
}

type Stream struct {
	Stream map[string]string `json:"stream"`
	Values [][]any           `json:"values"`
}

type Body struct {
	Streams []Stream `json:"streams"`
}

// Push writes an audit entry. The service type is a stream label, "none"
// when discovery failed.
func (l *LogBackend) Push(ctx context.Context, entry Entry) error {
	serviceType := entry.Type
	if serviceType == "" {
		serviceType = "none"
	}
	return l.WriteLog(ctx, map[string]string{"source": "ows-discovery", "service_type": serviceType}, entry)
}

// WriteLog pushes one JSON encoded line. Labels are merged over the labels
// configured for the backend.
func (l *LogBackend) WriteLog(ctx context.Context, labels map[string]string, line interface{}) error {
	pushURL, err := url.Parse(l.Config.BaseURL)
	if err != nil {
		return err
	}
	pushURL = pushURL.JoinPath(pushPath)

	marshalledLine, err := json.Marshal(line)
	if err != nil {
		return err
	}

	body := Body{
		Streams: []Stream{
			{
				Stream: l.labels(labels),
				Values: [][]any{
					{strconv.FormatInt(time.Now().UnixNano(), 10), string(marshalledLine)},
				},
			},
		},
	}

	marshalled, err := json.Marshal(body)
	if err != nil {
		return err
	}

	logRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, pushURL.String(), bytes.NewReader(marshalled))
	if err != nil {
		return err
	}
	logRequest.Header.Set("Content-Type", "application/json")

	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	logResponse, err := client.Do(logRequest)
	if err != nil {
		return err
	}
	defer logResponse.Body.Close()

	if logResponse.StatusCode != http.StatusNoContent {
		return fmt.Errorf("could not create log entry: received HTTP status %d", logResponse.StatusCode)
	}

	return nil
}

func (l *LogBackend) labels(extra map[string]string) map[string]string {
	stream := make(map[string]string, len(l.Config.Labels)+len(extra))
	for k, v := range l.Config.Labels {
		stream[k] = v
	}
	for k, v := range extra {
		stream[k] = v
	}
	return stream
}
