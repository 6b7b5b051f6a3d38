package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-tenant-guard/entitlement"
	apperrors "github.com/jrsteele09/go-tenant-guard/internal/errors"
	"github.com/jrsteele09/go-tenant-guard/tenants"
	"github.com/jrsteele09/go-tenant-guard/users"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	_ tenants.Repo     = (*Repository)(nil)
	_ users.UserRepo   = (*UserRepository)(nil)
	_ entitlement.Repo = (*Repository)(nil)
)

// Repository implements the tenant registry and the entitlement store.
type Repository struct {
	db     *gorm.DB
	logger zerolog.Logger
}

func NewRepository(db *gorm.DB, logger zerolog.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// UserRepository implements users.UserRepo. It is a separate type because
// the tenant and user registries share method names.
type UserRepository struct {
	db     *gorm.DB
	logger zerolog.Logger
}

func NewUserRepository(db *gorm.DB, logger zerolog.Logger) *UserRepository {
	return &UserRepository{db: db, logger: logger}
}

func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Tenants

func (r *Repository) Upsert(ctx context.Context, tenant *tenants.Tenant) error {
	if tenant.ID == "" {
		tenant.ID = uuid.New().String()
	}
	if tenant.CreatedAt.IsZero() {
		tenant.CreatedAt = time.Now().UTC()
	}
	row := tenantModelFromEntity(tenant)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "domain", "active"}),
	}).Create(&row).Error
	if err != nil {
		return logError(r.logger, "tenant_repo_upsert_failed", err, "tenant_id", tenant.ID)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, tenantID string) (*tenants.Tenant, error) {
	var row tenantModel
	err := r.db.WithContext(ctx).Where("id = ?", tenantID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTenantNotFound
		}
		return nil, logError(r.logger, "tenant_repo_get_failed", err, "tenant_id", tenantID)
	}
	return row.toEntity(), nil
}

func (r *Repository) List(ctx context.Context, offset, limit int) ([]*tenants.Tenant, error) {
	var rows []tenantModel
	tx := r.db.WithContext(ctx).Order("id ASC").Offset(offset)
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if err := tx.Find(&rows).Error; err != nil {
		return nil, logError(r.logger, "tenant_repo_list_failed", err)
	}
	list := make([]*tenants.Tenant, 0, len(rows))
	for _, row := range rows {
		list = append(list, row.toEntity())
	}
	return list, nil
}

func (r *Repository) SetActive(ctx context.Context, tenantID string, active bool) error {
	result := r.db.WithContext(ctx).Model(&tenantModel{}).
		Where("id = ?", tenantID).
		Update("active", active)
	if result.Error != nil {
		return logError(r.logger, "tenant_repo_set_active_failed", result.Error, "tenant_id", tenantID)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrTenantNotFound
	}
	return nil
}

// Licenses

func (r *Repository) GetLicense(ctx context.Context, tenantID string) (*entitlement.License, error) {
	var row licenseModel
	err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrLicenseNotFound
		}
		return nil, logError(r.logger, "license_repo_get_failed", err, "tenant_id", tenantID)
	}
	return row.toEntity(), nil
}

func (r *Repository) UpsertLicense(ctx context.Context, license *entitlement.License) error {
	row := licenseModelFromEntity(license)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tenant_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"plan", "expiry_date", "user_limit", "grace_period_days", "status", "updated_at",
		}),
	}).Create(&row).Error
	if err != nil {
		return logError(r.logger, "license_repo_upsert_failed", err, "tenant_id", license.TenantID)
	}
	return nil
}

func (r *Repository) ListLicenses(ctx context.Context) ([]*entitlement.License, error) {
	var rows []licenseModel
	if err := r.db.WithContext(ctx).Order("tenant_id ASC").Find(&rows).Error; err != nil {
		return nil, logError(r.logger, "license_repo_list_failed", err)
	}
	list := make([]*entitlement.License, 0, len(rows))
	for _, row := range rows {
		list = append(list, row.toEntity())
	}
	return list, nil
}

func (r *Repository) UpdateLicenseStatus(ctx context.Context, tenantID string, status entitlement.LicenseStatus, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&licenseModel{}).
		Where("tenant_id = ?", tenantID).
		Updates(map[string]any{
			"status":     string(status),
			"updated_at": at.UTC(),
		})
	if result.Error != nil {
		return logError(r.logger, "license_repo_update_status_failed", result.Error, "tenant_id", tenantID)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrLicenseNotFound
	}
	return nil
}

func (r *Repository) ExpireLicense(ctx context.Context, tenantID string, at time.Time) (int, error) {
	disabled := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&licenseModel{}).
			Where("tenant_id = ?", tenantID).
			Updates(map[string]any{
				"status":     string(entitlement.StatusExpired),
				"updated_at": at.UTC(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperrors.ErrLicenseNotFound
		}

		result = tx.Model(&tenantModuleModel{}).
			Where("tenant_id = ? AND enabled = ?", tenantID, true).
			Where("module_code NOT IN (?)", tx.Model(&moduleModel{}).Select("code").Where("core = ?", true)).
			Updates(map[string]any{
				"enabled":    false,
				"updated_at": at.UTC(),
			})
		if result.Error != nil {
			return result.Error
		}
		disabled = int(result.RowsAffected)
		return nil
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrLicenseNotFound) {
			return 0, err
		}
		return 0, logError(r.logger, "license_repo_expire_failed", err, "tenant_id", tenantID)
	}
	return disabled, nil
}

// Modules

func (r *Repository) GetModule(ctx context.Context, code string) (*entitlement.Module, error) {
	var row moduleModel
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrModuleNotFound
		}
		return nil, logError(r.logger, "module_repo_get_failed", err, "module", code)
	}
	return row.toEntity(), nil
}

func (r *Repository) UpsertModule(ctx context.Context, module *entitlement.Module) error {
	row := moduleModel{Code: module.Code, Name: module.Name, Core: module.Core}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "core"}),
	}).Create(&row).Error
	if err != nil {
		return logError(r.logger, "module_repo_upsert_failed", err, "module", module.Code)
	}
	return nil
}

func (r *Repository) ListModules(ctx context.Context) ([]*entitlement.Module, error) {
	var rows []moduleModel
	if err := r.db.WithContext(ctx).Order("code ASC").Find(&rows).Error; err != nil {
		return nil, logError(r.logger, "module_repo_list_failed", err)
	}
	list := make([]*entitlement.Module, 0, len(rows))
	for _, row := range rows {
		list = append(list, row.toEntity())
	}
	return list, nil
}

func (r *Repository) GetTenantModule(ctx context.Context, tenantID, code string) (*entitlement.TenantModule, bool, error) {
	var row tenantModuleModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND module_code = ?", tenantID, code).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, logError(r.logger, "tenant_module_repo_get_failed", err, "tenant_id", tenantID, "module", code)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) SetTenantModule(ctx context.Context, tenantID, code string, enabled bool, at time.Time) error {
	row := tenantModuleModel{TenantID: tenantID, ModuleCode: code, Enabled: enabled, UpdatedAt: at.UTC()}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "module_code"}},
		DoUpdates: clause.AssignmentColumns([]string{"enabled", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return logError(r.logger, "tenant_module_repo_set_failed", err, "tenant_id", tenantID, "module", code)
	}
	return nil
}

func (r *Repository) ListTenantModules(ctx context.Context, tenantID string) ([]*entitlement.TenantModule, error) {
	var rows []tenantModuleModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("module_code ASC").
		Find(&rows).Error; err != nil {
		return nil, logError(r.logger, "tenant_module_repo_list_failed", err, "tenant_id", tenantID)
	}
	list := make([]*entitlement.TenantModule, 0, len(rows))
	for _, row := range rows {
		list = append(list, row.toEntity())
	}
	return list, nil
}

// Users

func (r *UserRepository) Upsert(ctx context.Context, user *users.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.DateJoined.IsZero() {
		user.DateJoined = time.Now().UTC()
	}
	row := userModelFromEntity(user)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"email", "password_hash", "first_name", "last_name", "tenants", "verified", "blocked", "last_login",
		}),
	}).Create(&row).Error
	if err != nil {
		return logError(r.logger, "user_repo_upsert_failed", err, "user_id", user.ID)
	}
	return nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	return r.getWhere(ctx, "email = ?", normaliseEmail(email))
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*users.User, error) {
	return r.getWhere(ctx, "id = ?", id)
}

func (r *UserRepository) getWhere(ctx context.Context, query string, arg string) (*users.User, error) {
	var row userModel
	err := r.db.WithContext(ctx).Where(query, arg).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, logError(r.logger, "user_repo_get_failed", err)
	}
	return row.toEntity(), nil
}

func (r *UserRepository) CountByTenant(ctx context.Context, tenantID string) (int, error) {
	filter, err := json.Marshal([]map[string]string{{"tenant_id": tenantID}})
	if err != nil {
		return 0, err
	}
	var n int64
	err = r.db.WithContext(ctx).Model(&userModel{}).
		Where("tenants @> ?::jsonb", string(filter)).
		Count(&n).Error
	if err != nil {
		return 0, logError(r.logger, "user_repo_count_failed", err, "tenant_id", tenantID)
	}
	return int(n), nil
}

func (r *UserRepository) SetBlocked(ctx context.Context, id string, blocked bool) error {
	return r.update(ctx, id, "blocked", blocked)
}

func (r *UserRepository) SetVerified(ctx context.Context, id string, verified bool) error {
	return r.update(ctx, id, "verified", verified)
}

func (r *UserRepository) SetLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.update(ctx, id, "last_login", at.UTC())
}

func (r *UserRepository) update(ctx context.Context, id, column string, value any) error {
	result := r.db.WithContext(ctx).Model(&userModel{}).Where("id = ?", id).Update(column, value)
	if result.Error != nil {
		return logError(r.logger, "user_repo_update_failed", result.Error, "user_id", id, "column", column)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

func logError(logger zerolog.Logger, event string, err error, attrs ...any) error {
	logger.Error().Err(err).Str("event", event).Fields(attrs).Msg("repository operation failed")
	return err
}
