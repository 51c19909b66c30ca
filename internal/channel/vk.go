// ABOUTME: VK Callback API adapter: confirmation echo, message_new intake, messages.send delivery
// ABOUTME: Callback responses follow VK's contract: the confirmation string, otherwise literal "ok"

package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Valey88/Profit-AI/internal/inbox"
	"github.com/Valey88/Profit-AI/internal/store"
)

const vkAPIVersion = "5.131"

// VKConfig configures the VK community integration.
type VKConfig struct {
	// AccessToken is the community token used for messages.send.
	AccessToken string
	// Confirmation is the string echoed back for confirmation events.
	Confirmation string
	// Secret, when set, must match the secret VK attaches to callbacks.
	Secret string
	// APIBase overrides the VK API endpoint, for tests.
	APIBase string
	Logger  *slog.Logger
}

// VK bridges a VK community to the inbox.
type VK struct {
	token        string
	confirmation string
	secret       string
	apiBase      string
	sink         Sink
	client       *http.Client
	logger       *slog.Logger
}

func NewVK(cfg VKConfig, sink Sink) *VK {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	apiBase := cfg.APIBase
	if apiBase == "" {
		apiBase = "https://api.vk.com"
	}
	return &VK{
		token:        cfg.AccessToken,
		confirmation: cfg.Confirmation,
		secret:       cfg.Secret,
		apiBase:      apiBase,
		sink:         sink,
		client:       &http.Client{Timeout: 10 * time.Second},
		logger:       logger.With("component", "vk"),
	}
}

// vkEvent is the Callback API envelope.
type vkEvent struct {
	Type    string          `json:"type"`
	Object  json.RawMessage `json:"object"`
	GroupID int64           `json:"group_id"`
	Secret  string          `json:"secret"`
}

// vkMessageNew is the message_new event object.
type vkMessageNew struct {
	Message struct {
		FromID int64  `json:"from_id"`
		PeerID int64  `json:"peer_id"`
		Text   string `json:"text"`
	} `json:"message"`
}

// WebhookHandler accepts Callback API events. Confirmation events are
// answered with the configured confirmation string; everything else with the
// literal "ok" VK expects, even when the payload is dropped.
func (v *VK) WebhookHandler(w http.ResponseWriter, r *http.Request) {
	var event vkEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		v.logger.Warn("undecodable vk event", "error", err)
		ackVK(w)
		return
	}

	if v.secret != "" && event.Secret != v.secret {
		v.logger.Warn("vk event with wrong secret", "group_id", event.GroupID)
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	switch event.Type {
	case "confirmation":
		io.WriteString(w, v.confirmation)

	case "message_new":
		var obj vkMessageNew
		if err := json.Unmarshal(event.Object, &obj); err != nil || obj.Message.Text == "" || obj.Message.PeerID == 0 {
			ackVK(w)
			return
		}
		_, err := v.sink.HandleInbound(r.Context(), inbox.InboundEvent{
			Channel:    store.ChannelVK,
			ExternalID: strconv.FormatInt(obj.Message.PeerID, 10),
			Text:       obj.Message.Text,
		})
		if err != nil {
			v.logger.Error("handling vk message", "error", err, "peer_id", obj.Message.PeerID)
			http.Error(w, "error", http.StatusInternalServerError)
			return
		}
		ackVK(w)

	default:
		ackVK(w)
	}
}

// Deliver sends text to a VK peer via messages.send. Satisfies
// inbox.Deliverer.
func (v *VK) Deliver(ctx context.Context, externalID, text string) error {
	peerID, err := strconv.ParseInt(externalID, 10, 64)
	if err != nil {
		return fmt.Errorf("parsing vk peer id %q: %w", externalID, err)
	}

	params := url.Values{
		"peer_id":      {strconv.FormatInt(peerID, 10)},
		"message":      {text},
		"random_id":    {strconv.FormatInt(rand.Int63(), 10)},
		"access_token": {v.token},
		"v":            {vkAPIVersion},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		v.apiBase+"/method/messages.send", nil)
	if err != nil {
		return fmt.Errorf("building vk request: %w", err)
	}
	req.URL.RawQuery = params.Encode()

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling messages.send: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		Error *struct {
			Code    int    `json:"error_code"`
			Message string `json:"error_msg"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decoding messages.send response: %w", err)
	}
	if result.Error != nil {
		return fmt.Errorf("vk messages.send failed: %d %s", result.Error.Code, result.Error.Message)
	}
	return nil
}

func ackVK(w http.ResponseWriter) {
	io.WriteString(w, "ok")
}

var _ inbox.Deliverer = (*VK)(nil)
