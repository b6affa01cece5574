// Package slack posts price alerts to Slack incoming webhooks.
package slack

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/slack-go/slack"
)

// webhookClient never waits on a webhook for longer than Timeout, even when the
// caller's context has no deadline.
var webhookClient = &http.Client{Timeout: 10 * time.Second}

// PriceAlert describes a price change worth telling the user about.
type PriceAlert struct {
	ProductName   string
	BoardName     string
	Currency      string
	PreviousPrice *float64
	NewPrice      float64
	TargetPrice   *float64
	DropPercent   float64
	URL           string
}

// Text renders the alert as Slack mrkdwn.
func (a PriceAlert) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Price alert:* %s is now %s %s", a.ProductName, a.Currency, formatAmount(a.NewPrice))
	if a.PreviousPrice != nil {
		fmt.Fprintf(&b, " (was %s, down %.0f%%)", formatAmount(*a.PreviousPrice), a.DropPercent)
	}
	if a.TargetPrice != nil && a.NewPrice <= *a.TargetPrice {
		fmt.Fprintf(&b, "\nYour target of %s %s has been reached.", a.Currency, formatAmount(*a.TargetPrice))
	}
	if a.BoardName != "" {
		fmt.Fprintf(&b, "\nBoard: %s", a.BoardName)
	}
	if a.URL != "" {
		fmt.Fprintf(&b, "\n<%s|View product>", a.URL)
	}
	return b.String()
}

// SendPriceAlert posts alert to the incoming webhook at webhookURL.
func SendPriceAlert(ctx context.Context, webhookURL string, alert PriceAlert) error {
	if webhookURL == "" {
		return fmt.Errorf("SendPriceAlert: webhook URL is empty")
	}

	text := alert.Text()
	msg := &slack.WebhookMessage{
		Text: text,
		Blocks: &slack.Blocks{BlockSet: []slack.Block{
			slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, text, false, false), nil, nil),
		}},
	}
	if err := slack.PostWebhookCustomHTTPContext(ctx, webhookURL, webhookClient, msg); err != nil {
		return fmt.Errorf("failed to post price alert for %q: %w", alert.ProductName, err)
	}
	return nil
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
