package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"taxgateway/internal/models"
)

const MessageNoFieldsUpdated = "No fields were updated"

// DeductionStore is the remote owner of the deduction settings record.
type DeductionStore interface {
	Fetch(ctx context.Context) (models.DeductionSettings, error)
	Update(ctx context.Context, cred models.Credential, patch models.UpdateRequest) (models.DeductionSettings, error)
}

// SettingsGateway reads and patches deduction settings. Nothing is cached:
// every call goes to the store.
type SettingsGateway struct {
	store  DeductionStore
	logger *zap.Logger
}

func NewSettingsGateway(store DeductionStore, logger *zap.Logger) *SettingsGateway {
	return &SettingsGateway{store: store, logger: logger}
}

func (g *SettingsGateway) Fetch(ctx context.Context) (models.DeductionSettings, error) {
	s, err := g.store.Fetch(ctx)
	if err != nil {
		return models.DeductionSettings{}, fmt.Errorf("fetch deductions: %w", err)
	}
	return s, nil
}

// Update forwards the present fields of patch and reports which of them the
// store confirmed with exactly the intended value.
func (g *SettingsGateway) Update(
	ctx context.Context,
	patch models.UpdateRequest,
	cred models.Credential,
) (models.UpdateOutcome, error) {
	if patch.IsEmpty() {
		return noFieldsUpdated(), nil
	}
	if err := patch.Validate(); err != nil {
		return models.UpdateOutcome{}, err
	}

	confirmed, err := g.store.Update(ctx, cred, patch)
	if err != nil {
		return models.UpdateOutcome{}, fmt.Errorf("update deductions: %w", err)
	}

	fields := confirmedFields(patch, confirmed)
	if len(fields) == 0 {
		g.logger.Warn("store accepted deduction update without applying it",
			zap.Any("confirmed", confirmed))
		return noFieldsUpdated(), nil
	}

	return models.UpdateOutcome{
		UpdatedFields: fields,
		Success:       true,
		Message:       "Updated successfully: " + strings.Join(fields, ", "),
	}, nil
}

func confirmedFields(patch models.UpdateRequest, confirmed models.DeductionSettings) []string {
	fields := []string{}
	if patch.PersonalDeduction != nil && confirmed.PersonalDeduction == *patch.PersonalDeduction {
		fields = append(fields, models.FieldPersonalDeduction)
	}
	if patch.KReceipt != nil && confirmed.KReceipt == *patch.KReceipt {
		fields = append(fields, models.FieldKReceipt)
	}
	return fields
}

func noFieldsUpdated() models.UpdateOutcome {
	return models.UpdateOutcome{
		UpdatedFields: []string{},
		Success:       false,
		Message:       MessageNoFieldsUpdated,
	}
}
