package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const ipaymuSandboxBaseURL = "https://sandbox.ipaymu.com/api/v2"

// IpaymuConfig carries the gateway credentials and callback URLs. It is read
// from the environment exactly once at startup and handed to constructors so
// business logic never touches os.Getenv.
type IpaymuConfig struct {
	BaseURL        string
	VA             string // merchant virtual account id, sent as the "va" header
	APIKey         string // shared secret for request signatures
	ReturnURL      string // browser redirect after checkout
	CancelURL      string // browser redirect on cancel
	NotifyURL      string // server-to-server webhook
	VerifyCallback bool   // enforce the signature header on inbound webhooks
}

// LoadIpaymuConfig reads IPAYMU_* from the environment. Missing credentials
// are a configuration error and fatal at process start, never per-request.
func LoadIpaymuConfig() (IpaymuConfig, error) {
	cfg := IpaymuConfig{
		BaseURL:        os.Getenv("IPAYMU_BASE_URL"),
		VA:             os.Getenv("IPAYMU_VA"),
		APIKey:         os.Getenv("IPAYMU_API_KEY"),
		ReturnURL:      os.Getenv("IPAYMU_RETURN_URL"),
		CancelURL:      os.Getenv("IPAYMU_CANCEL_URL"),
		NotifyURL:      os.Getenv("IPAYMU_NOTIFY_URL"),
		VerifyCallback: strings.ToLower(os.Getenv("IPAYMU_VERIFY_CALLBACK")) != "false",
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = ipaymuSandboxBaseURL
	}
	if cfg.CancelURL == "" {
		cfg.CancelURL = cfg.ReturnURL
	}
	if cfg.VA == "" || cfg.APIKey == "" || cfg.ReturnURL == "" || cfg.NotifyURL == "" {
		return IpaymuConfig{}, fmt.Errorf("IPAYMU_VA, IPAYMU_API_KEY, IPAYMU_RETURN_URL dan IPAYMU_NOTIFY_URL wajib diisi")
	}
	return cfg, nil
}

// Ipaymu is the HTTP client for the iPaymu v2 API.
type Ipaymu struct {
	cfg    IpaymuConfig
	client *http.Client
}

func NewIpaymu(cfg IpaymuConfig) *Ipaymu {
	return &Ipaymu{
		cfg: cfg,
		// Gateway calls are blocking I/O on the request path; keep them bounded.
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (g *Ipaymu) Config() IpaymuConfig {
	return g.cfg
}

// Sign computes the iPaymu request signature for a JSON body:
// HMAC-SHA256 over "POST:{va}:{lowerhex(sha256(body))}:{apiKey}" keyed with
// the API key, hex encoded.
func (g *Ipaymu) Sign(body []byte) string {
	bodyHash := sha256.Sum256(body)
	stringToSign := "POST:" + g.cfg.VA + ":" + strings.ToLower(hex.EncodeToString(bodyHash[:])) + ":" + g.cfg.APIKey
	mac := hmac.New(sha256.New, []byte(g.cfg.APIKey))
	mac.Write([]byte(stringToSign))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyCallbackSignature checks an inbound webhook body against the same
// scheme used for outbound requests.
func (g *Ipaymu) VerifyCallbackSignature(body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	expected := g.Sign(body)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature))))
}

// RequireCallbackSignature reports whether inbound webhooks must carry a valid
// signature header.
func (g *Ipaymu) RequireCallbackSignature() bool {
	return g.cfg.VerifyCallback
}

// ipaymuTimestamp formats the gateway-local timestamp header (Asia/Jakarta,
// yyyymmddhhmmss).
func ipaymuTimestamp() string {
	loc, _ := time.LoadLocation("Asia/Jakarta")
	return time.Now().In(loc).Format("20060102150405")
}

// CheckoutRequest is the iPaymu redirect-payment request body.
type CheckoutRequest struct {
	Product     []string `json:"product"`
	Qty         []string `json:"qty"`
	Price       []string `json:"price"`
	ReturnURL   string   `json:"returnUrl"`
	CancelURL   string   `json:"cancelUrl"`
	NotifyURL   string   `json:"notifyUrl"`
	ReferenceID string   `json:"referenceId"`
	BuyerName   string   `json:"buyerName"`
	BuyerEmail  string   `json:"buyerEmail"`
	BuyerPhone  string   `json:"buyerPhone,omitempty"`
}

type ipaymuEnvelope struct {
	Status  int    `json:"Status"`
	Message string `json:"Message"`
	Data    struct {
		SessionID     string      `json:"SessionID"`
		URL           string      `json:"Url"`
		Via           string      `json:"Via"`
		TransactionID json.Number `json:"TransactionId"`
		StatusDesc    string      `json:"StatusDesc"`
	} `json:"Data"`
}

// CheckoutSession is the result of a successful payment creation.
type CheckoutSession struct {
	SessionID string
	URL       string
}

// TransactionStatus is the result of a status inquiry for an existing session.
type TransactionStatus struct {
	SessionID  string
	StatusDesc string
}

// Succeeded reports whether the gateway settled the transaction successfully.
// "berhasil" is iPaymu's success token and the single source of truth;
// everything else is not success.
func (s *TransactionStatus) Succeeded() bool {
	return s.StatusDesc == ipaymuSuccessToken
}

// Expired reports a transaction the gateway gave up on.
func (s *TransactionStatus) Expired() bool {
	desc := strings.ToLower(s.StatusDesc)
	return desc == "expired" || desc == "kadaluarsa"
}

// CreateCheckout registers a payment session and returns the checkout URL the
// payer is redirected to. The request is signed per iPaymu's scheme and
// retried once on transport errors; referenceId keys the retry on the gateway
// side so a duplicate submit does not double-charge.
func (g *Ipaymu) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	var env ipaymuEnvelope
	if err := g.post(ctx, "/payment", req, &env); err != nil {
		return nil, err
	}
	if env.Status != 200 {
		msg := env.Message
		if msg == "" {
			msg = "unknown error"
		}
		return nil, &GatewayError{Message: msg}
	}
	if env.Data.SessionID == "" || env.Data.URL == "" {
		return nil, &GatewayError{Message: "response tanpa SessionID/Url"}
	}
	return &CheckoutSession{SessionID: env.Data.SessionID, URL: env.Data.URL}, nil
}

// CheckTransaction asks the gateway for the current status of a session. Used
// by the pending-payment sweep when the webhook never arrived.
func (g *Ipaymu) CheckTransaction(ctx context.Context, sessionID string) (*TransactionStatus, error) {
	body := map[string]string{
		"transactionId": sessionID,
		"account":       g.cfg.VA,
	}
	var env ipaymuEnvelope
	if err := g.post(ctx, "/transaction", body, &env); err != nil {
		return nil, err
	}
	if env.Status != 200 {
		msg := env.Message
		if msg == "" {
			msg = "unknown error"
		}
		return nil, &GatewayError{Message: msg}
	}
	return &TransactionStatus{SessionID: sessionID, StatusDesc: env.Data.StatusDesc}, nil
}

func (g *Ipaymu) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	url := strings.TrimRight(g.cfg.BaseURL, "/") + path
	signature := g.Sign(body)

	var resp *http.Response
	backoff := time.Second
	// One bounded retry on transport/timeout errors. Gateway-level failures
	// (decoded responses) are never retried here.
	for attempt := 0; attempt < 2; attempt++ {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if reqErr != nil {
			return reqErr
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("va", g.cfg.VA)
		req.Header.Set("signature", signature)
		req.Header.Set("timestamp", ipaymuTimestamp())

		resp, err = g.client.Do(req)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return &GatewayError{Message: "request dibatalkan", Err: ctx.Err()}
		}
		time.Sleep(backoff)
		backoff *= 2
	}
	if err != nil {
		return &GatewayError{Message: "request gagal", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &GatewayError{Message: "baca response gagal", Err: err}
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &GatewayError{Message: fmt.Sprintf("response bukan JSON: %s", truncate(respBody, 256)), Err: err}
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
