package accountsdb

import (
	"context"
	"database/sql"
	"time"

	"github.com/neoromantic/telegram-sync-cli/internal/domain/account"
	"gorm.io/gorm"
)

// accountModel is the persistence shape for the account entity, kept
// distinct from domain.Account the way the teacher's workspace_gorm.go
// separates workspaceModel from workspace.Workspace.
type accountModel struct {
	ID          int64          `gorm:"primaryKey;autoIncrement"`
	Phone       string         `gorm:"column:phone;uniqueIndex;not null"`
	DisplayName sql.NullString `gorm:"column:display_name"`
	Username    sql.NullString `gorm:"column:username"`
	Label       sql.NullString `gorm:"column:label"`
	SessionBlob []byte         `gorm:"column:session_blob"`
	Active      bool           `gorm:"column:active;default:false;index"`
	CreatedAt   int64          `gorm:"column:created_at;not null"`
	UpdatedAt   int64          `gorm:"column:updated_at;not null"`
}

func (accountModel) TableName() string { return "accounts" }

// Repository implements account.Repository over GORM.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func toModel(a account.Account) accountModel {
	return accountModel{
		ID:          a.ID,
		Phone:       a.Phone,
		DisplayName: sql.NullString{String: a.DisplayName, Valid: a.DisplayName != ""},
		Username:    sql.NullString{String: a.Username, Valid: a.Username != ""},
		Label:       sql.NullString{String: a.Label, Valid: a.Label != ""},
		SessionBlob: a.SessionBlob,
		Active:      a.Active,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func fromModel(m accountModel) account.Account {
	return account.Account{
		ID:          m.ID,
		Phone:       m.Phone,
		DisplayName: m.DisplayName.String,
		Username:    m.Username.String,
		Label:       m.Label.String,
		SessionBlob: m.SessionBlob,
		Active:      m.Active,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func (r *Repository) Create(ctx context.Context, a account.Account) (account.Account, error) {
	now := time.Now().Unix()
	a.CreatedAt, a.UpdatedAt = now, now
	model := toModel(a)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return account.Account{}, err
	}
	return fromModel(model), nil
}

func (r *Repository) List(ctx context.Context) ([]account.Account, error) {
	var models []accountModel
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]account.Account, len(models))
	for i, m := range models {
		out[i] = fromModel(m)
	}
	return out, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (*account.Account, error) {
	var m accountModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	a := fromModel(m)
	return &a, nil
}

func (r *Repository) GetActive(ctx context.Context) (*account.Account, error) {
	var m accountModel
	if err := r.db.WithContext(ctx).First(&m, "active = ?", true).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	a := fromModel(m)
	return &a, nil
}

// SetActive clears the flag on every other account inside one
// transaction, preserving "at most one active account" (spec §3.1).
func (r *Repository) SetActive(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().Unix()
		if err := tx.Model(&accountModel{}).Where("id != ?", id).
			Updates(map[string]any{"active": false, "updated_at": now}).Error; err != nil {
			return err
		}
		res := tx.Model(&accountModel{}).Where("id = ?", id).
			Updates(map[string]any{"active": true, "updated_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&accountModel{}, "id = ?", id).Error
}

func (r *Repository) Count(ctx context.Context) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&accountModel{}).Count(&count).Error
	return int(count), err
}
