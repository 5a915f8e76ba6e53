package usecase

import (
	"context"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

// 監査ログの読み取り。書き込みは各usecaseが行う。
type AuditQueryUsecase struct {
	audits repo.AuditLogRepository
}

func NewAuditQueryUsecase(audits repo.AuditLogRepository) *AuditQueryUsecase {
	return &AuditQueryUsecase{audits: audits}
}

func (u *AuditQueryUsecase) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	if f.Page < 1 {
		return []model.AuditLog{}, NewValidationError("invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return []model.AuditLog{}, NewValidationError("invalid limit")
	}

	logs, err := u.audits.List(ctx, f)
	if err != nil {
		return []model.AuditLog{}, NewPersistenceError("list audit logs", err)
	}
	return logs, nil
}
