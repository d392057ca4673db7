package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout bounds each backend round-trip.
const DefaultTimeout = 30 * time.Second

// HTTPClient is the real backend client.
type HTTPClient struct {
	baseURL    string
	propertyID string
	httpClient *http.Client
}

// HTTPClientOpts holds parameters for creating an HTTPClient.
type HTTPClientOpts struct {
	BaseURL    string // e.g. "https://api.hostgpt.example"
	PropertyID string // chatbot identifier all requests are scoped to
	HTTPClient *http.Client
	Timeout    time.Duration // used when HTTPClient is nil; defaults to DefaultTimeout
}

// NewHTTPClient creates an HTTPClient with the given options.
func NewHTTPClient(opts HTTPClientOpts) (*HTTPClient, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("api: base url is required")
	}
	if opts.PropertyID == "" {
		return nil, fmt.Errorf("api: property id is required")
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		propertyID: opts.PropertyID,
		httpClient: hc,
	}, nil
}

// endpoint builds a property-scoped URL path.
func (c *HTTPClient) endpoint(parts ...string) string {
	escaped := make([]string, 0, len(parts)+2)
	escaped = append(escaped, "chatbots", url.PathEscape(c.propertyID))
	for _, p := range parts {
		escaped = append(escaped, url.PathEscape(p))
	}
	return c.baseURL + "/api/" + strings.Join(escaped, "/")
}

// doJSON performs a JSON request and decodes a JSON response into out.
// Non-2xx responses are translated by decodeError.
func (c *HTTPClient) doJSON(ctx context.Context, method, rawURL string, body interface{}, headers map[string]string, op errOp, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: marshal %s request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return fmt.Errorf("api: build %s request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transientErr(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(op, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return transientErr(op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// GetChatInfo fetches the chatbot's public info.
func (c *HTTPClient) GetChatInfo(ctx context.Context) (*ChatInfo, error) {
	var info ChatInfo
	if err := c.doJSON(ctx, http.MethodGet, c.endpoint("info"), nil, nil, opChatInfo, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// IdentifyGuest resolves a phone/email pair into a guest record.
func (c *HTTPClient) IdentifyGuest(ctx context.Context, phone, email string) (*Identification, error) {
	body := map[string]string{}
	if phone != "" {
		body["phone"] = phone
	}
	if email != "" {
		body["email"] = email
	}
	var ident Identification
	if err := c.doJSON(ctx, http.MethodPost, c.endpoint("identify"), body, nil, opIdentify, &ident); err != nil {
		return nil, err
	}
	return &ident, nil
}

// conversationResponse is the creation response shape shared by both
// creation endpoints.
type conversationResponse struct {
	ConversationID string `json:"conversation_id"`
}

// CreateFreshConversation reserves a brand-new empty conversation for the
// guest. Used only by the silent-refresh path.
func (c *HTTPClient) CreateFreshConversation(ctx context.Context, guestID string) (string, error) {
	return c.createConversation(ctx, "fresh", guestID)
}

// CreateWelcomeConversation creates a conversation seeded with the
// property's welcome message. Used for genuinely new guests.
func (c *HTTPClient) CreateWelcomeConversation(ctx context.Context, guestID string) (string, error) {
	return c.createConversation(ctx, "welcome", guestID)
}

func (c *HTTPClient) createConversation(ctx context.Context, mode, guestID string) (string, error) {
	body := map[string]string{"guest_id": guestID, "mode": mode}
	var resp conversationResponse
	if err := c.doJSON(ctx, http.MethodPost, c.endpoint("conversations"), body, nil, opCreateConversation, &resp); err != nil {
		return "", err
	}
	return resp.ConversationID, nil
}

// messagesResponse wraps the message list.
type messagesResponse struct {
	Messages []Message `json:"messages"`
}

// ListConversationMessages fetches the authoritative, insertion-ordered
// message list for a conversation.
func (c *HTTPClient) ListConversationMessages(ctx context.Context, conversationID string) ([]Message, error) {
	var resp messagesResponse
	url := c.endpoint("conversations", conversationID, "messages")
	if err := c.doJSON(ctx, http.MethodGet, url, nil, nil, opListMessages, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// SendMessage sends a text message and returns the assistant's reply along
// with the (possibly newly bootstrapped) thread id.
func (c *HTTPClient) SendMessage(ctx context.Context, req SendRequest) (*SendResult, error) {
	headers := map[string]string{}
	if req.IdempotencyKey != "" {
		headers["Idempotency-Key"] = req.IdempotencyKey
	}
	var result SendResult
	if err := c.doJSON(ctx, http.MethodPost, c.endpoint("messages"), req, headers, opSend, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SendVoiceMessage uploads an encoded recording, which the backend
// transcribes and answers like a text message.
func (c *HTTPClient) SendVoiceMessage(ctx context.Context, req VoiceRequest) (*SendResult, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("audio", req.Filename)
	if err != nil {
		return nil, fmt.Errorf("api: build voice upload: %w", err)
	}
	if _, err := part.Write(req.Audio); err != nil {
		return nil, fmt.Errorf("api: build voice upload: %w", err)
	}
	fields := map[string]string{
		"mime_type":  req.MimeType,
		"thread_id":  req.ThreadID,
		"guest_id":   req.Guest.GuestID,
		"phone":      req.Guest.Phone,
		"email":      req.Guest.Email,
		"first_name": req.Guest.FirstName,
		"last_name":  req.Guest.LastName,
	}
	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := w.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("api: build voice upload: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("api: build voice upload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("voice-messages"), &buf)
	if err != nil {
		return nil, fmt.Errorf("api: build voice request: %w", err)
	}
	httpReq.Header.Set("Content-Type", w.FormDataContentType())
	if req.IdempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, transientErr(opSend, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeError(opSend, resp)
	}
	var result SendResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, transientErr(opSend, fmt.Errorf("decode response: %w", err))
	}
	return &result, nil
}

// GetStatus fetches the moderation verdict for a thread key.
func (c *HTTPClient) GetStatus(ctx context.Context, threadKey string) (*Status, error) {
	var status Status
	url := c.endpoint("status", threadKey)
	if err := c.doJSON(ctx, http.MethodGet, url, nil, nil, opStatus, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// SubmitCheckinDocuments uploads check-in documents for the guest.
func (c *HTTPClient) SubmitCheckinDocuments(ctx context.Context, files []CheckinFile, guest GuestFields) error {
	if len(files) == 0 {
		return fmt.Errorf("api: at least one document is required")
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for i, f := range files {
		part, err := w.CreateFormFile(fmt.Sprintf("documents[%d]", i), f.Name)
		if err != nil {
			return fmt.Errorf("api: build checkin upload: %w", err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return fmt.Errorf("api: build checkin upload: %w", err)
		}
	}
	fields := map[string]string{
		"guest_id":   guest.GuestID,
		"phone":      guest.Phone,
		"email":      guest.Email,
		"first_name": guest.FirstName,
		"last_name":  guest.LastName,
	}
	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := w.WriteField(k, v); err != nil {
			return fmt.Errorf("api: build checkin upload: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("api: build checkin upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("checkin-documents"), &buf)
	if err != nil {
		return fmt.Errorf("api: build checkin request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transientErr(opCheckin, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(opCheckin, resp)
	}
	return nil
}
