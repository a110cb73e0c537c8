package striperepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/AntonBabychP1T/ca/util/httpx"
)

const apiBase = "https://api.stripe.com/v1"

type httpRepo struct {
	apiKey     string
	successURL string
	cancelURL  string
	client     *http.Client
}

func NewHTTP(apiKey, successURL, cancelURL string) Repo {
	return &httpRepo{
		apiKey:     apiKey,
		successURL: successURL,
		cancelURL:  cancelURL,
		client:     httpx.Client(),
	}
}

func (r *httpRepo) CreateSession(ctx context.Context, req CreateSessionReq) (*Session, error) {
	currency := req.Currency
	if currency == "" {
		currency = "usd"
	}

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", r.successURL+"?session_id={CHECKOUT_SESSION_ID}")
	form.Set("cancel_url", r.cancelURL)
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", currency)
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(req.AmountCents, 10))
	form.Set("line_items[0][price_data][product_data][name]", req.Description)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		apiBase+"/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	httpReq.SetBasicAuth(r.apiKey, "")
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Idempotency-Key", uuid.NewString())

	return r.doSession(httpReq)
}

func (r *httpRepo) RetrieveSession(ctx context.Context, id string) (*Session, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		apiBase+"/checkout/sessions/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	httpReq.SetBasicAuth(r.apiKey, "")

	return r.doSession(httpReq)
}

func (r *httpRepo) doSession(req *http.Request) (*Session, error) {
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("stripe %s %s failed: %s", req.Method, req.URL.Path, resp.Status)
	}

	var out struct {
		ID     string `json:"id"`
		URL    string `json:"url"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, errors.New("stripe: empty session id")
	}
	return &Session{ID: out.ID, URL: out.URL, Status: out.Status}, nil
}
