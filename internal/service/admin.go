package service

import (
	"bytes"
	"context"
	"fmt"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"taxgateway/internal/auth"
	"taxgateway/internal/models"
)

// AdminSession runs the admin login-and-update flow. Authentication always
// completes before the body is read or the settings store is contacted.
type AdminSession struct {
	verifier *auth.Verifier
	settings *SettingsGateway
	logger   *zap.Logger
}

func NewAdminSession(verifier *auth.Verifier, settings *SettingsGateway, logger *zap.Logger) *AdminSession {
	return &AdminSession{verifier: verifier, settings: settings, logger: logger}
}

// Authenticate checks the authorization header only.
func (s *AdminSession) Authenticate(header string) (models.Credential, error) {
	cred, err := s.verifier.Authenticate(header)
	if err != nil {
		s.logger.Debug("admin request rejected", zap.Error(err))
		return models.Credential{}, err
	}
	return cred, nil
}

// Login authenticates the caller and applies the patch encoded in body. A
// nil error with Success false means the request was valid but changed
// nothing.
func (s *AdminSession) Login(ctx context.Context, header string, body []byte) (models.UpdateOutcome, error) {
	cred, err := s.Authenticate(header)
	if err != nil {
		return models.UpdateOutcome{}, err
	}
	s.logger.Debug("admin authenticated", zap.String("username", cred.Username))

	patch, err := decodePatch(body)
	if err != nil {
		return models.UpdateOutcome{}, err
	}

	outcome, err := s.settings.Update(ctx, patch, cred)
	if err != nil {
		s.logger.Error("admin settings update failed",
			zap.String("username", cred.Username),
			zap.Error(err))
		return models.UpdateOutcome{}, err
	}

	s.logger.Info("admin settings update",
		zap.String("username", cred.Username),
		zap.Bool("success", outcome.Success),
		zap.Strings("updated", outcome.UpdatedFields))
	return outcome, nil
}

// decodePatch treats an empty body as an empty patch.
func decodePatch(body []byte) (models.UpdateRequest, error) {
	var patch models.UpdateRequest
	if len(bytes.TrimSpace(body)) == 0 {
		return patch, nil
	}
	if err := json.Unmarshal(body, &patch); err != nil {
		return models.UpdateRequest{}, fmt.Errorf("%w: %w", models.ErrInvalidSettings, err)
	}
	return patch, nil
}
