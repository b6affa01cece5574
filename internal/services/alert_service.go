package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"productboards-backend/internal/crypto"
	"productboards-backend/internal/integrations/slack"
	"productboards-backend/internal/models"
	"productboards-backend/internal/store"

	"github.com/google/uuid"
)

// AlertNotifier delivers a price alert to a webhook.
type AlertNotifier func(ctx context.Context, webhookURL string, alert slack.PriceAlert) error

// alertDeliveryTimeout bounds a single webhook post.
const alertDeliveryTimeout = 10 * time.Second

// AlertService stores price alert preferences and fires alerts when prices drop.
type AlertService struct {
	store           store.Store
	sealer          *crypto.Sealer
	notify          AlertNotifier
	deliveryTimeout time.Duration
	log             *slog.Logger
}

func NewAlertService(s store.Store, sealer *crypto.Sealer, notify AlertNotifier) *AlertService {
	if notify == nil {
		notify = slack.SendPriceAlert
	}
	return &AlertService{
		store:           s,
		sealer:          sealer,
		notify:          notify,
		deliveryTimeout: alertDeliveryTimeout,
		log:             slog.Default().With("component", "alerts"),
	}
}

func (s *AlertService) preferences(ctx context.Context, userID uuid.UUID) (*models.AlertPreferences, error) {
	prefs, err := s.store.GetAlertPreferences(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return &models.AlertPreferences{UserID: userID, PriceDropThreshold: models.DefaultPriceDropThreshold}, nil
	}
	if err != nil {
		return nil, storeErr("get alert preferences", err)
	}
	return prefs, nil
}

func toAlertResponse(p *models.AlertPreferences) *models.AlertPreferencesResponse {
	return &models.AlertPreferencesResponse{
		EmailEnabled:           p.EmailEnabled,
		PriceDropThreshold:     p.PriceDropThreshold,
		SlackWebhookConfigured: len(p.SlackWebhookEncrypted) > 0,
	}
}

// Get returns the user's preferences, or the defaults if none were saved.
func (s *AlertService) Get(ctx context.Context, userID uuid.UUID) (*models.AlertPreferencesResponse, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	prefs, err := s.preferences(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toAlertResponse(prefs), nil
}

// Update applies the non-nil fields of req.
func (s *AlertService) Update(ctx context.Context, userID uuid.UUID, req models.AlertPreferencesRequest) (*models.AlertPreferencesResponse, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	prefs, err := s.preferences(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.EmailEnabled != nil {
		prefs.EmailEnabled = *req.EmailEnabled
	}
	if req.PriceDropThreshold != nil {
		if *req.PriceDropThreshold < 1 || *req.PriceDropThreshold > 100 {
			return nil, fmt.Errorf("%w: price_drop_threshold must be between 1 and 100", ErrInvalidArgument)
		}
		prefs.PriceDropThreshold = *req.PriceDropThreshold
	}
	if req.SlackWebhookURL != nil {
		webhook := strings.TrimSpace(*req.SlackWebhookURL)
		if webhook != "" {
			u, err := url.Parse(webhook)
			if err != nil || u.Scheme != "https" || u.Host == "" {
				return nil, fmt.Errorf("%w: slack_webhook_url must be an https URL", ErrInvalidArgument)
			}
		}
		sealed, err := s.sealer.SealString(webhook)
		if err != nil {
			return nil, fmt.Errorf("%w: seal webhook: %w", ErrStore, err)
		}
		prefs.SlackWebhookEncrypted = sealed
	}

	saved, err := s.store.UpsertAlertPreferences(ctx, store.UpsertAlertPreferencesParams{
		UserID:                userID,
		EmailEnabled:          prefs.EmailEnabled,
		PriceDropThreshold:    prefs.PriceDropThreshold,
		SlackWebhookEncrypted: prefs.SlackWebhookEncrypted,
	})
	if err != nil {
		return nil, storeErr("save alert preferences", err)
	}
	return toAlertResponse(saved), nil
}

// Evaluate decides whether a newly recorded price deserves an alert and sends it.
// An alert fires when the product has alerts enabled and the price either crossed the
// target price from above or fell by at least the user's threshold against previous.
// A price that stays at or below the target does not alert again.
func (s *AlertService) Evaluate(ctx context.Context, product *models.Product, link *models.ProductLink, previous *float64, recorded *models.PriceHistory) (bool, error) {
	if !product.PriceAlertEnabled {
		return false, nil
	}

	dropPercent := 0.0
	if previous != nil && *previous > 0 && recorded.Price < *previous {
		dropPercent = (*previous - recorded.Price) / *previous * 100
	}
	hitTarget := product.TargetPrice != nil && recorded.Price <= *product.TargetPrice &&
		(previous == nil || *previous > *product.TargetPrice)

	prefs, err := s.preferences(ctx, product.UserID)
	if err != nil {
		return false, err
	}
	if !hitTarget && (dropPercent == 0 || dropPercent < float64(prefs.PriceDropThreshold)) {
		return false, nil
	}

	webhook, err := s.sealer.OpenString(prefs.SlackWebhookEncrypted)
	if err != nil {
		return false, fmt.Errorf("open webhook for user %s: %w", product.UserID, err)
	}
	if webhook == "" {
		s.log.Debug("Price alert due but no webhook configured", "product_id", product.ID)
		return false, nil
	}

	boardName := ""
	if board, err := s.store.GetBoardByID(ctx, product.BoardID); err == nil {
		boardName = board.Name
	}
	alert := slack.PriceAlert{
		ProductName:   product.Name,
		BoardName:     boardName,
		Currency:      recorded.Currency,
		PreviousPrice: previous,
		NewPrice:      recorded.Price,
		TargetPrice:   product.TargetPrice,
		DropPercent:   dropPercent,
		URL:           link.URL,
	}
	notifyCtx, cancel := context.WithTimeout(ctx, s.deliveryTimeout)
	defer cancel()
	if err := s.notify(notifyCtx, webhook, alert); err != nil {
		return false, err
	}
	s.log.Info("Price alert sent", "product_id", product.ID, "price", recorded.Price, "drop_percent", dropPercent)
	return true, nil
}
