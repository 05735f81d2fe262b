package model

import "fmt"

// PushChannel identifies which notification provider an owner receives
// move requests through.
type PushChannel string

const (
	ChannelBark       PushChannel = "bark"
	ChannelPushplus   PushChannel = "pushplus"
	ChannelServerchan PushChannel = "serverchan"
	ChannelTelegram   PushChannel = "telegram"
)

// Valid reports whether c names a supported channel.
func (c PushChannel) Valid() bool {
	switch c {
	case ChannelBark, ChannelPushplus, ChannelServerchan, ChannelTelegram:
		return true
	}
	return false
}

// BarkConfig holds credentials for the Bark push service.
type BarkConfig struct {
	ServerURL string `json:"serverUrl"`
	Key       string `json:"key"`
}

// PushplusConfig holds the Pushplus access token.
type PushplusConfig struct {
	Token string `json:"token"`
}

// ServerchanConfig holds the ServerChan send key.
type ServerchanConfig struct {
	SendKey string `json:"sendKey"`
}

// TelegramConfig holds Telegram bot credentials.
type TelegramConfig struct {
	BotToken string `json:"botToken"`
	ChatID   string `json:"chatId"`
}

// PushConfig carries provider credentials. Only the block matching the
// owner's selected channel needs to be present.
type PushConfig struct {
	Bark       *BarkConfig       `json:"bark,omitempty"`
	Pushplus   *PushplusConfig   `json:"pushplus,omitempty"`
	Serverchan *ServerchanConfig `json:"serverchan,omitempty"`
	Telegram   *TelegramConfig   `json:"telegram,omitempty"`
}

// Validate checks that the config block for the given channel is present
// and complete.
func (p PushConfig) Validate(channel PushChannel) error {
	switch channel {
	case ChannelBark:
		if p.Bark == nil || p.Bark.ServerURL == "" || p.Bark.Key == "" {
			return fmt.Errorf("bark config requires serverUrl and key")
		}
	case ChannelPushplus:
		if p.Pushplus == nil || p.Pushplus.Token == "" {
			return fmt.Errorf("pushplus config requires token")
		}
	case ChannelServerchan:
		if p.Serverchan == nil || p.Serverchan.SendKey == "" {
			return fmt.Errorf("serverchan config requires sendKey")
		}
	case ChannelTelegram:
		if p.Telegram == nil || p.Telegram.BotToken == "" || p.Telegram.ChatID == "" {
			return fmt.Errorf("telegram config requires botToken and chatId")
		}
	default:
		return fmt.Errorf("unknown push channel %q", channel)
	}
	return nil
}
