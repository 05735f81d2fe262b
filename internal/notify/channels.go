package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"movecar/internal/model"
)

// sendBark delivers through a Bark server (iOS). Title and body ride in
// the path; success is a JSON body with code == 200.
func (d *Dispatcher) sendBark(ctx context.Context, cfg *model.BarkConfig, msg Message) Result {
	params := url.Values{}
	params.Set("group", "movecar")
	params.Set("sound", "alarm")
	params.Set("level", "timeSensitive")
	if msg.URL != "" {
		params.Set("url", msg.URL)
	}

	endpoint := fmt.Sprintf("%s/%s/%s/%s?%s",
		strings.TrimRight(cfg.ServerURL, "/"),
		cfg.Key,
		url.PathEscape(msg.Title),
		url.PathEscape(msg.Body),
		params.Encode(),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return failure(model.ChannelBark, err.Error())
	}

	var body struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	if err := d.do(req, &body); err != nil {
		return failure(model.ChannelBark, err.Error())
	}
	if body.Code != 200 {
		return failure(model.ChannelBark, fmt.Sprintf("bark returned code %d: %s", body.Code, body.Message))
	}
	return success(model.ChannelBark)
}

// sendPushplus delivers through Pushplus. HTML template; success is
// code == 200.
func (d *Dispatcher) sendPushplus(ctx context.Context, cfg *model.PushplusConfig, msg Message) Result {
	content := msg.Body
	if msg.URL != "" {
		content = fmt.Sprintf(`%s<br><br><a href="%s">Open details</a>`, msg.Body, msg.URL)
	}

	payload, err := json.Marshal(map[string]string{
		"token":    cfg.Token,
		"title":    msg.Title,
		"content":  content,
		"template": "html",
	})
	if err != nil {
		return failure(model.ChannelPushplus, err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.pushplusURL, bytes.NewReader(payload))
	if err != nil {
		return failure(model.ChannelPushplus, err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	var body struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := d.do(req, &body); err != nil {
		return failure(model.ChannelPushplus, err.Error())
	}
	if body.Code != 200 {
		return failure(model.ChannelPushplus, fmt.Sprintf("pushplus returned code %d: %s", body.Code, body.Msg))
	}
	return success(model.ChannelPushplus)
}

// sendServerchan delivers through ServerChan. Form-encoded to a
// sendkey-scoped endpoint; success is code == 0.
func (d *Dispatcher) sendServerchan(ctx context.Context, cfg *model.ServerchanConfig, msg Message) Result {
	desp := msg.Body
	if msg.URL != "" {
		desp = fmt.Sprintf("%s\n\n[Open details](%s)", msg.Body, msg.URL)
	}

	form := url.Values{}
	form.Set("title", msg.Title)
	form.Set("desp", desp)

	endpoint := fmt.Sprintf("%s/%s.send", strings.TrimRight(d.serverchanURL, "/"), cfg.SendKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return failure(model.ChannelServerchan, err.Error())
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var body struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	if err := d.do(req, &body); err != nil {
		return failure(model.ChannelServerchan, err.Error())
	}
	if body.Code != 0 {
		return failure(model.ChannelServerchan, fmt.Sprintf("serverchan returned code %d: %s", body.Code, body.Message))
	}
	return success(model.ChannelServerchan)
}

// sendTelegram delivers through a Telegram bot. HTML parse mode; success
// is ok == true.
func (d *Dispatcher) sendTelegram(ctx context.Context, cfg *model.TelegramConfig, msg Message) Result {
	text := fmt.Sprintf("<b>%s</b>\n\n%s", msg.Title, msg.Body)
	if msg.URL != "" {
		text += fmt.Sprintf("\n\n<a href=\"%s\">Open details</a>", msg.URL)
	}

	payload, err := json.Marshal(map[string]any{
		"chat_id":                  cfg.ChatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": false,
	})
	if err != nil {
		return failure(model.ChannelTelegram, err.Error())
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(d.telegramURL, "/"), cfg.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return failure(model.ChannelTelegram, err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	var body struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := d.do(req, &body); err != nil {
		return failure(model.ChannelTelegram, err.Error())
	}
	if !body.OK {
		return failure(model.ChannelTelegram, fmt.Sprintf("telegram rejected message: %s", body.Description))
	}
	return success(model.ChannelTelegram)
}

// do performs the request and decodes the provider's JSON reply into out.
func (d *Dispatcher) do(req *http.Request, out any) error {
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("provider request: %w", err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode provider response: %w", err)
	}
	return nil
}
