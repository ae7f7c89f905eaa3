package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/layer-3/herald/core"
	"github.com/layer-3/herald/ports"
	"go.uber.org/zap"
)

// BuildTextMetadata returns a v2 text-only publication document for content
// posted by handle
func BuildTextMetadata(handle, content string) core.PublicationMetadata {
	return core.PublicationMetadata{
		Version:          "2.0.0",
		MetadataID:       uuid.NewString(),
		Content:          content,
		Description:      content,
		Name:             fmt.Sprintf("Post by @%s", handle),
		ExternalURL:      fmt.Sprintf("https://lenster.xyz/u/%s", handle),
		MainContentFocus: "TEXT_ONLY",
		Attributes:       []core.MetadataAttribute{},
		Locale:           "en-US",
	}
}

// MetadataService checks publication documents and resolves profiles. None of
// it is on the signing path.
type MetadataService struct {
	validator ports.MetadataValidator
	profiles  ports.ProfileDirectory
	sessions  *SessionManager
	logger    *zap.Logger
}

// NewMetadataService creates a new metadata service
func NewMetadataService(validator ports.MetadataValidator, profiles ports.ProfileDirectory, sessions *SessionManager, logger *zap.Logger) *MetadataService {
	return &MetadataService{validator: validator, profiles: profiles, sessions: sessions, logger: logger}
}

// Validate asks the service whether metadata is acceptable. The current
// session is used when there is one.
func (s *MetadataService) Validate(ctx context.Context, metadata core.PublicationMetadata) (core.MetadataValidation, error) {
	var bearer string
	if session, ok := s.sessions.CurrentSession(ctx); ok {
		bearer = session.AccessToken
	}
	verdict, err := s.validator.ValidateMetadata(ctx, metadata, bearer)
	if err != nil {
		return core.MetadataValidation{}, err
	}
	if !verdict.Valid {
		s.logger.Info("Publication metadata rejected",
			zap.String("metadataId", metadata.MetadataID),
			zap.String("reason", verdict.Reason),
		)
	}
	return verdict, nil
}

// DefaultProfile returns the default profile of the session address
func (s *MetadataService) DefaultProfile(ctx context.Context) (*core.Profile, error) {
	session, ok := s.sessions.CurrentSession(ctx)
	if !ok {
		return nil, core.NewError(core.StageRequest, core.ErrNoSession, "", nil)
	}
	profile, err := s.profiles.DefaultProfile(ctx, session.Address)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, core.NewError(core.StageRequest, core.ErrInvalidRequest,
			fmt.Sprintf("%s has no default profile", session.Address.Hex()), nil)
	}
	return profile, nil
}
