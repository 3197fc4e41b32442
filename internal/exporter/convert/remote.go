package convert

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ============================================================
// Remote Conversion Service
// ============================================================

// ErrJobTimeout — задание не завершилось за отведенное число опросов.
// Отличается от ошибки конвертации: сервис, возможно, еще работает.
var ErrJobTimeout = errors.New("conversion job timed out")

// maxDownloadSize ограничивает скачиваемый DWG (50MB).
const maxDownloadSize = 50 * 1024 * 1024

// RemoteConfig — настройки внешнего сервиса конвертации.
type RemoteConfig struct {
	APIKey       string
	BaseURL      string
	PollInterval time.Duration
	MaxPolls     int
}

func DefaultRemoteConfig() RemoteConfig {
	return RemoteConfig{
		PollInterval: 2 * time.Second,
		MaxPolls:     30, // суммарный потолок ожидания: interval × polls
	}
}

// RemoteService — стратегия через внешний job-based API:
// создать задание → опрашивать статус → скачать результат.
type RemoteService struct {
	cfg        RemoteConfig
	httpClient *http.Client
}

func NewRemoteService(cfg RemoteConfig) *RemoteService {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultRemoteConfig().PollInterval
	}
	if cfg.MaxPolls <= 0 {
		cfg.MaxPolls = DefaultRemoteConfig().MaxPolls
	}
	return &RemoteService{
		cfg: cfg,
		// редиректы клиент следует по умолчанию — ссылка на скачивание
		// обычно ведет в объектное хранилище
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (s *RemoteService) Name() string {
	return "remote-conversion"
}

func (s *RemoteService) Available() bool {
	return s.cfg.APIKey != "" && s.cfg.BaseURL != ""
}

// ============================================================
// Wire format
// ============================================================

type createJobRequest struct {
	InputFormat  string `json:"inputFormat"`
	OutputFormat string `json:"outputFormat"`
	File         string `json:"file"` // base64
}

type jobResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"` // pending, finished, error
	Result struct {
		URL string `json:"url"`
	} `json:"result"`
	Error string `json:"error"`
}

// Convert проводит полный цикл: import → convert → export.
func (s *RemoteService) Convert(ctx context.Context, dxf []byte) ([]byte, error) {
	jobID, err := s.createJob(ctx, dxf)
	if err != nil {
		return nil, err
	}

	url, err := s.waitForJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	return s.download(ctx, url)
}

func (s *RemoteService) createJob(ctx context.Context, dxf []byte) (string, error) {
	payload, err := json.Marshal(createJobRequest{
		InputFormat:  "dxf",
		OutputFormat: "dwg",
		File:         base64.StdEncoding.EncodeToString(dxf),
	})
	if err != nil {
		return "", fmt.Errorf("marshal job: %w", err)
	}

	var job jobResponse
	if err := s.doJSON(ctx, http.MethodPost, s.cfg.BaseURL+"/jobs", payload, &job); err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}
	if job.ID == "" {
		return "", fmt.Errorf("create job: empty job id")
	}
	return job.ID, nil
}

// waitForJob опрашивает статус с фиксированным интервалом не более
// MaxPolls раз; превышение — ErrJobTimeout, не ошибка конвертации.
func (s *RemoteService) waitForJob(ctx context.Context, jobID string) (string, error) {
	for poll := 0; poll < s.cfg.MaxPolls; poll++ {
		var job jobResponse
		if err := s.doJSON(ctx, http.MethodGet, s.cfg.BaseURL+"/jobs/"+jobID, nil, &job); err != nil {
			return "", fmt.Errorf("poll job %s: %w", jobID, err)
		}

		switch job.Status {
		case "finished":
			if job.Result.URL == "" {
				return "", fmt.Errorf("job %s finished without result url", jobID)
			}
			return job.Result.URL, nil
		case "error":
			return "", fmt.Errorf("job %s failed: %s", jobID, job.Error)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(s.cfg.PollInterval):
		}
	}
	return "", fmt.Errorf("job %s: %w", jobID, ErrJobTimeout)
}

func (s *RemoteService) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("download request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadSize))
	if err != nil {
		return nil, fmt.Errorf("download body: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("download: empty result")
	}
	return data, nil
}

func (s *RemoteService) doJSON(ctx context.Context, method, url string, body []byte, out *jobResponse) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadSize))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg := string(respBody)
		if len(msg) > 200 {
			msg = msg[:200] + "..."
		}
		return fmt.Errorf("status %d: %s", resp.StatusCode, msg)
	}
	return json.Unmarshal(respBody, out)
}
