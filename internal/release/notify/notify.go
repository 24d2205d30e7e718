// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

type Poster interface {
	Post(ctx context.Context, url string, contentType string, body []byte) (*http.Response, error)
}

type SlackConfig struct {
	HookUrl string
	Channel string
	Token   string
}

// SlackNotifier announces releases via a Slack incoming web hook.
type SlackNotifier struct {
	config SlackConfig
	poster Poster
}

type message struct {
	Channel     string       `json:"channel"`
	Color       string       `json:"color"`
	Attachments []attachment `json:"attachments"`
}

type attachment struct {
	Color    string `json:"color"`
	Title    string `json:"title"`
	Text     string `json:"text"`
	Fallback string `json:"fallback"`
}

const (
	color         = "good"
	title         = "dcos-cli"
	contentType   = "application/json"
	maxBodyLength = 512
)

var ErrNotification = errors.New("notification failed")

func NewSlackNotifier(config SlackConfig, poster Poster) *SlackNotifier {
	return &SlackNotifier{config: config, poster: poster}
}

// Enabled reports whether an API token is configured
func (n *SlackNotifier) Enabled() bool {
	return n.config.Token != ""
}

// Notify posts the release announcement. Without token, nothing is sent.
func (n *SlackNotifier) Notify(ctx context.Context, version string, urls []string) error {
	if !n.Enabled() {
		slog.Info("No Slack token configured, skipping notification")
		return nil
	}

	payload, err := json.Marshal(newMessage(n.config.Channel, version, urls))
	if err != nil {
		return fmt.Errorf("%w: could not marshal message: %w", ErrNotification, err)
	}

	hookUrl, err := n.hookUrl()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotification, err)
	}

	slog.Debug("Sending release notification", "channel", n.config.Channel, "version", version)

	response, err := n.poster.Post(ctx, hookUrl, contentType, payload)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotification, err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(response.Body, maxBodyLength))
		return fmt.Errorf("%w: status %d: %s", ErrNotification, response.StatusCode, strings.TrimSpace(string(body)))
	}

	slog.Info("Release notification sent", "channel", n.config.Channel)

	return nil
}

func (n *SlackNotifier) hookUrl() (string, error) {
	parsed, err := url.Parse(n.config.HookUrl)
	if err != nil {
		return "", fmt.Errorf("invalid hook URL: %w", err)
	}

	query := parsed.Query()
	query.Set("token", n.config.Token)
	parsed.RawQuery = query.Encode()

	return parsed.String(), nil
}

func newMessage(channel string, version string, urls []string) message {
	announcement := fmt.Sprintf("The DC/OS CLI %s has been released!", version)

	text := announcement + " :rocket:"
	if len(urls) > 0 {
		text += "\n" + strings.Join(urls, "\n")
	}

	return message{
		Channel: channel,
		Color:   color,
		Attachments: []attachment{{
			Color:    color,
			Title:    title,
			Text:     text,
			Fallback: "[dcos-cli] " + announcement,
		}},
	}
}
