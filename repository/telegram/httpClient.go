package telegramrepo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/AntonBabychP1T/ca/util/httpx"
)

type httpRepo struct {
	token  string
	client *http.Client
}

func NewHTTP(token string) Repo {
	return &httpRepo{token: token, client: httpx.Client()}
}

func (r *httpRepo) url(method string) string {
	return "https://api.telegram.org/bot" + r.token + "/" + method
}

func (r *httpRepo) SendMessage(ctx context.Context, chatID int64, text string) error {
	body, _ := json.Marshal(map[string]any{
		"chat_id": chatID,
		"text":    text,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url("sendMessage"), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("telegram sendMessage to chat %d failed: %s", chatID, resp.Status)
	}
	return nil
}

func (r *httpRepo) GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]Update, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url("getUpdates"), nil)
	if err != nil {
		return nil, err
	}
	q := req.URL.Query()
	q.Set("offset", strconv.FormatInt(offset, 10))
	q.Set("timeout", strconv.Itoa(timeoutSec))
	req.URL.RawQuery = q.Encode()

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("telegram getUpdates failed: %s", resp.Status)
	}

	var out struct {
		OK     bool     `json:"ok"`
		Result []Update `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if !out.OK {
		return nil, fmt.Errorf("telegram getUpdates: ok=false")
	}
	return out.Result, nil
}
