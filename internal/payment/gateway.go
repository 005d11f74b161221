package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ignatzorin/studgig-backend/internal/config"
)

// GatewayClient HTTP клиент шлюза: подписывает запросы HMAC-SHA256 и
// передаёт адреса обратных вызовов.
type GatewayClient struct {
	httpClient  *http.Client
	name        string
	baseURL     string
	merchantID  string
	secret      string
	callbackURL string
}

// NewGatewayClient создаёт клиента шлюза. callbackBaseURL без имени шлюза,
// оно добавляется автоматически.
func NewGatewayClient(httpClient *http.Client, cfg config.GatewayConfig, callbackBaseURL string) *GatewayClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &GatewayClient{
		httpClient:  httpClient,
		name:        cfg.Name,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		merchantID:  cfg.MerchantID,
		secret:      cfg.Secret,
		callbackURL: strings.TrimRight(callbackBaseURL, "/") + "/" + cfg.Name,
	}
}

func (c *GatewayClient) Name() string { return c.name }

// Initiate создаёт платёж у провайдера.
func (c *GatewayClient) Initiate(ctx context.Context, req InitiateRequest) (string, error) {
	payload := map[string]interface{}{
		"merchant_id":    c.merchantID,
		"transaction_id": req.TransactionID,
		"amount":         req.Amount.StringFixed(2),
		"description":    req.Description,
		"customer_id":    req.PayerID.String(),
		"customer_email": req.PayerEmail,
		"success_url":    c.callbackURL + "/success",
		"fail_url":       c.callbackURL + "/fail",
		"cancel_url":     c.callbackURL + "/cancel",
		"ipn_url":        c.callbackURL + "/ipn",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/payments", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Signature", Sign(body, c.secret))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%s: initiate %w", c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("%s: unexpected status %s", c.name, resp.Status)
	}

	var apiResp struct {
		Success    bool   `json:"success"`
		GatewayURL string `json:"gateway_url"`
		Message    string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", fmt.Errorf("%s: decode response %w", c.name, err)
	}
	if !apiResp.Success || apiResp.GatewayURL == "" {
		return "", fmt.Errorf("%s: unsuccessful response: %s", c.name, apiResp.Message)
	}
	return apiResp.GatewayURL, nil
}

// VerifySignature проверяет подпись обратного вызова секретом шлюза.
func (c *GatewayClient) VerifySignature(body []byte, signature string) bool {
	return VerifyHMAC(body, signature, c.secret)
}
