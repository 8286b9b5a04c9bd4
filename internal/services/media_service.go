package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"safecircle/internal/models"
	"safecircle/internal/repositories/interfaces"
	"safecircle/internal/utils"
	"safecircle/pkg/logger"
	"safecircle/pkg/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MediaService stores audio/photo/video evidence captured during an SOS
// and attaches it to the event record.
type MediaService interface {
	AttachEvidence(ctx context.Context, userID, eventID primitive.ObjectID, mediaType, contentType string, size int64, reader io.Reader) (*models.MediaAttachment, error)

	// EvidenceURL returns a time-limited link to a stored attachment.
	EvidenceURL(ctx context.Context, userID, eventID primitive.ObjectID, key string) (string, error)
}

type mediaService struct {
	provider storage.EvidenceStore
	sosRepo  interfaces.SOSRepository
	logger   *logger.Logger
	now      func() time.Time
}

const evidenceURLTTL = 15 * time.Minute

func NewMediaService(provider storage.EvidenceStore, sosRepo interfaces.SOSRepository, log *logger.Logger) MediaService {
	return &mediaService{
		provider: provider,
		sosRepo:  sosRepo,
		logger:   log,
		now:      time.Now,
	}
}

func (m *mediaService) AttachEvidence(ctx context.Context, userID, eventID primitive.ObjectID, mediaType, contentType string, size int64, reader io.Reader) (*models.MediaAttachment, error) {
	if err := checkEvidenceSize(mediaType, size); err != nil {
		return nil, err
	}

	event, err := m.sosRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	if event.UserID != userID {
		return nil, fmt.Errorf("%w: event belongs to another user", ErrNotFound)
	}

	key := fmt.Sprintf("sos/%s/%s-%d", eventID.Hex(), mediaType, m.now().UnixNano())
	uploaded, err := m.provider.Upload(ctx, &storage.UploadRequest{
		Key:         key,
		Reader:      reader,
		ContentType: contentType,
		Size:        size,
		Metadata: map[string]string{
			"sos_event_id": eventID.Hex(),
			"user_id":      userID.Hex(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload evidence: %w", err)
	}

	attachment := models.MediaAttachment{
		Type:       mediaType,
		Key:        uploaded.Key,
		URL:        uploaded.URL,
		Size:       size,
		UploadedAt: m.now(),
	}

	if err := m.sosRepo.AddMediaAttachment(ctx, eventID, attachment); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreWriteFailed, err)
	}

	m.logger.WithUserID(userID).WithFields(map[string]interface{}{
		"event_id": eventID.Hex(),
		"type":     mediaType,
		"size":     size,
	}).Info("evidence attached to sos event")

	return &attachment, nil
}

func (m *mediaService) EvidenceURL(ctx context.Context, userID, eventID primitive.ObjectID, key string) (string, error) {
	event, err := m.sosRepo.GetByID(ctx, eventID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	if event.UserID != userID {
		return "", fmt.Errorf("%w: event belongs to another user", ErrNotFound)
	}

	found := false
	for _, attachment := range event.MediaAttachments {
		if attachment.Key == key {
			found = true
			break
		}
	}
	if !found {
		return "", fmt.Errorf("%w: no attachment with key %q", ErrNotFound, key)
	}

	return m.provider.SignedURL(ctx, key, evidenceURLTTL)
}

func checkEvidenceSize(mediaType string, size int64) error {
	var limit int64
	switch mediaType {
	case "audio":
		limit = utils.MaxAudioSize
	case "photo":
		limit = utils.MaxPhotoSize
	case "video":
		limit = utils.MaxVideoSize
	default:
		return fmt.Errorf("unknown media type %q", mediaType)
	}

	if size > limit {
		return fmt.Errorf("%s exceeds size limit of %d bytes", mediaType, limit)
	}
	return nil
}
