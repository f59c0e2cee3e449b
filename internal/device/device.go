// Package device notifies the push and chat services about the device bound
// to a new session.
package device

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"session_service/internal/lib/api"
	"session_service/internal/models"
)

var ErrUpstream = errors.New("upstream coordination failed")

const (
	pushDevicePath = "/push/device"
	chatCrashPath  = "/chat/crash"

	maxErrBody = 512
)

type Coordinator interface {
	NotifyFcmTokenChanged(ctx context.Context, userID int64, fcmToken string, client models.ClientInfo) error
	NotifyOtherDevicesEvicted(ctx context.Context, userID int64, fcmToken string, clientType models.ClientType, accessToken string) error
}

type fcmTokenRequest struct {
	UserID   int64  `json:"userId"`
	FcmToken string `json:"fcmToken"`
}

type crashRequest struct {
	ClientType string `json:"clientType"`
	UserID     int64  `json:"userId"`
	FcmToken   string `json:"fcmToken"`
}

// Client talks to both services through the gateway with one shared http.Client.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return NewWithHTTPClient(baseURL, &http.Client{Timeout: timeout})
}

func NewWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

func (c *Client) NotifyFcmTokenChanged(ctx context.Context, userID int64, fcmToken string, client models.ClientInfo) error {
	const op = "device.NotifyFcmTokenChanged"

	header := http.Header{}
	if client.Agent != "" {
		header.Set("User-Agent", client.Agent)
	}
	if client.IP != "" {
		header.Set("X-Forwarded-For", client.IP)
	}

	body := fcmTokenRequest{
		UserID:   userID,
		FcmToken: fcmToken,
	}

	if err := c.post(ctx, pushDevicePath, header, body); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// NotifyOtherDevicesEvicted asks the chat service to disconnect every other
// connection of userID under clientType. The device holding fcmToken is kept.
func (c *Client) NotifyOtherDevicesEvicted(
	ctx context.Context,
	userID int64,
	fcmToken string,
	clientType models.ClientType,
	accessToken string,
) error {
	const op = "device.NotifyOtherDevicesEvicted"

	header := http.Header{}
	header.Set(api.HeaderAccessToken, accessToken)

	body := crashRequest{
		ClientType: clientType.String(),
		UserID:     userID,
		FcmToken:   fcmToken,
	}

	if err := c.post(ctx, chatCrashPath, header, body); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (c *Client) post(ctx context.Context, path string, header http.Header, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: encode body: %v", ErrUpstream, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
		return fmt.Errorf("%w: POST %s: status %d: %s", ErrUpstream, path, resp.StatusCode, bytes.TrimSpace(msg))
	}

	_, _ = io.Copy(io.Discard, resp.Body)

	return nil
}
