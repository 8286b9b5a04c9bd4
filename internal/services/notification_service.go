package services

import (
	"context"
	"fmt"
	"time"

	"safecircle/internal/config"
	"safecircle/internal/models"
	"safecircle/internal/utils"
	"safecircle/pkg/logger"
	"safecircle/pkg/maps"
	"safecircle/pkg/push"
	"safecircle/pkg/sms"
)

// notificationService fans alerts out to recipients over SMS and push.
// Everything here is best-effort: delivery failures are recorded per
// contact and never propagate to the state machine that triggered them.
type notificationService struct {
	cfg      *config.SafetyConfig
	sms      sms.SMSProvider
	push     push.PushProvider
	geocoder maps.Geocoder
	from     string
	logger   *logger.Logger
	now      func() time.Time
}

func NewNotificationService(
	cfg *config.SafetyConfig,
	smsProvider sms.SMSProvider,
	pushProvider push.PushProvider,
	geocoder maps.Geocoder,
	from string,
	log *logger.Logger,
) RecipientNotifier {
	return &notificationService{
		cfg:      cfg,
		sms:      smsProvider,
		push:     pushProvider,
		geocoder: geocoder,
		from:     from,
		logger:   log,
		now:      time.Now,
	}
}

func (n *notificationService) NotifyRecipients(ctx context.Context, contacts []*models.Contact, payload *AlertPayload) []models.NotifiedContact {
	message := n.composeMessage(ctx, payload)

	notified := make([]models.NotifiedContact, 0, len(contacts))
	for _, contact := range contacts {
		notified = append(notified, n.notifyOne(ctx, contact, payload, message)...)
	}

	return notified
}

func (n *notificationService) notifyOne(ctx context.Context, contact *models.Contact, payload *AlertPayload, message string) []models.NotifiedContact {
	var results []models.NotifiedContact

	if n.cfg.NotifySMSEnabled && n.sms != nil && contact.Phone != "" {
		delivered := true
		_, err := n.sms.SendSMS(ctx, &sms.SMSRequest{
			To:      utils.NormalizePhone(contact.Phone),
			From:    n.from,
			Message: message,
			Type:    "transactional",
		})
		if err != nil {
			delivered = false
			n.logger.WithError(err).WithFields(map[string]interface{}{
				"contact_id": contact.ID.Hex(),
				"phone":      utils.MaskPhone(contact.Phone),
			}).Warn("sms notification failed")
		}
		results = append(results, models.NotifiedContact{
			ContactID:    contact.ID,
			Name:         contact.DisplayName,
			Phone:        contact.Phone,
			NotifyMethod: "sms",
			NotifiedAt:   n.now(),
			Delivered:    delivered,
		})
	}

	if n.cfg.NotifyPushEnabled && n.push != nil && contact.PushToken != "" {
		delivered := true
		_, err := n.push.SendNotification(ctx, &push.NotificationRequest{
			Token: contact.PushToken,
			Title: n.pushTitle(payload),
			Body:  message,
			Data: map[string]string{
				"kind":      payload.Kind,
				"user_id":   payload.UserID.Hex(),
				"share_url": payload.ShareURL,
			},
			Sound:    "default",
			Priority: "high",
		})
		if err != nil {
			delivered = false
			n.logger.WithError(err).WithField("contact_id", contact.ID.Hex()).Warn("push notification failed")
		}
		results = append(results, models.NotifiedContact{
			ContactID:    contact.ID,
			Name:         contact.DisplayName,
			Phone:        contact.Phone,
			NotifyMethod: "push",
			NotifiedAt:   n.now(),
			Delivered:    delivered,
		})
	}

	return results
}

func (n *notificationService) composeMessage(ctx context.Context, payload *AlertPayload) string {
	var body string
	switch payload.Kind {
	case "sos":
		body = "EMERGENCY: your contact needs help."
		if payload.Message != "" {
			body = fmt.Sprintf("EMERGENCY: %s", payload.Message)
		}
	case "share_invite":
		body = "Your contact is sharing their live location with you."
	case "share_stopped":
		body = "Your contact stopped sharing their location."
	default:
		body = payload.Message
	}

	if payload.Position != nil {
		place := n.describePosition(ctx, payload.Position)
		if place != "" {
			body = fmt.Sprintf("%s Near %s.", body, place)
		} else {
			body = fmt.Sprintf("%s At %.5f,%.5f.", body, payload.Position.Latitude, payload.Position.Longitude)
		}
	}

	if payload.ShareURL != "" {
		body = fmt.Sprintf("%s Follow live: %s", body, payload.ShareURL)
	}

	return body
}

// describePosition reverse-geocodes the fix into a street address when
// the geocoder is configured. Failures fall back to raw coordinates.
func (n *notificationService) describePosition(ctx context.Context, position *models.Position) string {
	if !n.cfg.GeocodeNotification || n.geocoder == nil {
		return position.Address
	}
	if position.Address != "" {
		return position.Address
	}

	address, err := n.geocoder.ReverseGeocode(ctx, position.Latitude, position.Longitude)
	if err != nil {
		n.logger.WithError(err).Debug("reverse geocode failed")
		return ""
	}

	position.Address = address
	return address
}

func (n *notificationService) pushTitle(payload *AlertPayload) string {
	switch payload.Kind {
	case "sos":
		return "Emergency alert"
	case "share_invite":
		return "Live location"
	default:
		return utils.AppName
	}
}
