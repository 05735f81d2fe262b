package notify

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"movecar/internal/model"
)

// Default provider endpoints. Bark has no fixed endpoint: each owner
// configures their own server URL.
const (
	defaultPushplusURL   = "https://www.pushplus.plus/send"
	defaultServerchanURL = "https://sctapi.ftqq.com"
	defaultTelegramURL   = "https://api.telegram.org"

	dispatchTimeout = 10 * time.Second
)

// Message is the channel-independent notification payload. URL, when set,
// is attached as a deep link in whatever form the channel supports.
type Message struct {
	Title string
	Body  string
	URL   string
}

// Result is the outcome of a single dispatch attempt. Send never returns
// a Go error: transport and parse failures are folded into Err so that a
// third party's outage can't abort the request flow that triggered the
// notification.
type Result struct {
	Success bool              `json:"success"`
	Channel model.PushChannel `json:"channel"`
	Err     string            `json:"error,omitempty"`
}

// Dispatcher delivers messages through an owner's configured channel.
// One best-effort attempt per call, bounded by the client timeout; no
// retries.
type Dispatcher struct {
	client        *http.Client
	pushplusURL   string
	serverchanURL string
	telegramURL   string
	logger        *slog.Logger
}

func NewDispatcher(logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		client:        &http.Client{Timeout: dispatchTimeout},
		pushplusURL:   defaultPushplusURL,
		serverchanURL: defaultServerchanURL,
		telegramURL:   defaultTelegramURL,
		logger:        logger,
	}
}

// Send resolves the owner's channel tag against its stored config and
// performs the provider call. A declared channel whose config block is
// absent is reported as a failed Result: config and tag can drift if a
// record was written before validation tightened.
func (d *Dispatcher) Send(ctx context.Context, owner *model.Owner, msg Message) Result {
	var res Result
	switch owner.PushChannel {
	case model.ChannelBark:
		if owner.PushConfig.Bark == nil {
			res = failure(model.ChannelBark, "bark config missing")
			break
		}
		res = d.sendBark(ctx, owner.PushConfig.Bark, msg)
	case model.ChannelPushplus:
		if owner.PushConfig.Pushplus == nil {
			res = failure(model.ChannelPushplus, "pushplus config missing")
			break
		}
		res = d.sendPushplus(ctx, owner.PushConfig.Pushplus, msg)
	case model.ChannelServerchan:
		if owner.PushConfig.Serverchan == nil {
			res = failure(model.ChannelServerchan, "serverchan config missing")
			break
		}
		res = d.sendServerchan(ctx, owner.PushConfig.Serverchan, msg)
	case model.ChannelTelegram:
		if owner.PushConfig.Telegram == nil {
			res = failure(model.ChannelTelegram, "telegram config missing")
			break
		}
		res = d.sendTelegram(ctx, owner.PushConfig.Telegram, msg)
	default:
		res = failure(owner.PushChannel, "unknown push channel")
	}

	if !res.Success {
		d.logger.Warn("dispatch failed", "channel", res.Channel, "owner", owner.ID, "error", res.Err)
	}
	return res
}

// TestMessage is the payload sent by the owner's test-push endpoint.
func TestMessage() Message {
	return Message{
		Title: "Push test",
		Body:  "Your move-car notification channel is configured correctly. This is a test message.",
	}
}

func failure(channel model.PushChannel, errMsg string) Result {
	return Result{Success: false, Channel: channel, Err: errMsg}
}

func success(channel model.PushChannel) Result {
	return Result{Success: true, Channel: channel}
}
