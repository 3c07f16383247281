package storage

import (
	"fmt"
	"time"

	"github.com/manav03panchal/medtime/internal/errors"
	"github.com/manav03panchal/medtime/internal/model"
)

// WebhookRepo provides operations for Webhook entities.
type WebhookRepo struct {
	db *DB
}

// NewWebhookRepo creates a new webhook repository.
func NewWebhookRepo(db *DB) *WebhookRepo {
	return &WebhookRepo{db: db}
}

// Create creates a new webhook.
func (r *WebhookRepo) Create(webhook *model.Webhook) error {
	if webhook.Key == "" {
		webhook.Key = model.GenerateWebhookKey(webhook.Name)
	}
	if webhook.CreatedAt.IsZero() {
		webhook.CreatedAt = time.Now()
	}
	return r.db.Set(webhook)
}

// Get retrieves a webhook by name.
func (r *WebhookRepo) Get(name string) (*model.Webhook, error) {
	webhook := &model.Webhook{}
	if err := r.db.Get(model.GenerateWebhookKey(name), webhook); err != nil {
		if IsErrKeyNotFound(err) {
			return nil, fmt.Errorf("%w: %s", errors.ErrWebhookNotFound, name)
		}
		return nil, err
	}
	return webhook, nil
}

// List retrieves all webhooks.
func (r *WebhookRepo) List() ([]*model.Webhook, error) {
	return GetAllByPrefix(r.db, model.PrefixWebhook+":", func() *model.Webhook {
		return &model.Webhook{}
	})
}

// ListFor returns the webhooks that accept notifications of type t.
func (r *WebhookRepo) ListFor(t model.NotificationType) ([]*model.Webhook, error) {
	all, err := r.List()
	if err != nil {
		return nil, err
	}

	var accepted []*model.Webhook
	for _, wh := range all {
		if wh.Accepts(t) {
			accepted = append(accepted, wh)
		}
	}
	return accepted, nil
}

// CountEnabled returns how many webhooks are enabled.
func (r *WebhookRepo) CountEnabled() (int, error) {
	all, err := r.List()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, wh := range all {
		if wh.Enabled {
			n++
		}
	}
	return n, nil
}

// Delete removes a webhook by name.
func (r *WebhookRepo) Delete(name string) error {
	exists, err := r.Exists(name)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", errors.ErrWebhookNotFound, name)
	}
	return r.db.Delete(model.GenerateWebhookKey(name))
}

// SetEnabled toggles a webhook.
func (r *WebhookRepo) SetEnabled(name string, enabled bool) error {
	webhook, err := r.Get(name)
	if err != nil {
		return err
	}
	webhook.Enabled = enabled
	return r.db.Set(webhook)
}

// UpdateLastUsed updates the last used timestamp and optionally the last error.
func (r *WebhookRepo) UpdateLastUsed(name string, lastErr error) error {
	webhook, err := r.Get(name)
	if err != nil {
		return err
	}

	webhook.LastUsed = time.Now()
	if lastErr != nil {
		webhook.LastError = lastErr.Error()
	} else {
		webhook.LastError = ""
	}

	return r.db.Set(webhook)
}

// Exists checks if a webhook with the given name exists.
func (r *WebhookRepo) Exists(name string) (bool, error) {
	return r.db.Exists(model.GenerateWebhookKey(name))
}
