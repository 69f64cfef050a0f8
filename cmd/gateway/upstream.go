package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"subscription-gateway/middleware/admission/domain"
)

// upstream entrega inscrições já admitidas ao serviço de persistência.
// Só campos canônicos atravessam o gateway; o corpo original é descartado.
type upstream struct {
	url    string
	client *http.Client
}

func newUpstream(url string, timeout time.Duration) *upstream {
	return &upstream{url: url, client: &http.Client{Timeout: timeout}}
}

func (u *upstream) Subscribe(ctx context.Context, fields domain.CanonicalFields) error {
	body, err := json.Marshal(fields)
	if err != nil {
		return errors.Wrap(err, "encode subscription")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "build upstream request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := u.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "upstream request")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Wrap(fmt.Errorf("status %d", resp.StatusCode), "upstream rejected subscription")
	}
	return nil
}
