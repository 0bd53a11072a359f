package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/kodacci/o-monitor-rest/internal/user/domain"
)

type userRow struct {
	ID           int64   `gorm:"primaryKey;autoIncrement"`
	Login        string  `gorm:"size:255;not null;index"`
	Name         string  `gorm:"size:255;not null;default:''"`
	Email        string  `gorm:"size:255;not null;default:''"`
	PasswordHash string  `gorm:"size:255;not null"`
	Privilege    string  `gorm:"size:16;not null;default:USER"`
	TokenID      *string `gorm:"size:64"`
	Deleted      bool    `gorm:"not null;default:false"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

func (userRow) TableName() string { return "users" }

// GormRepository is the embedded (SQLite) user store.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository returns a user repository backed by db.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// AutoMigrate creates or updates the users table.
func (r *GormRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&userRow{})
}

func (r *GormRepository) active(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&userRow{}).Where("deleted = ?", false)
}

func (r *GormRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.first(r.active(ctx).Where("id = ?", id))
}

func (r *GormRepository) GetByLogin(ctx context.Context, login string) (*domain.User, error) {
	return r.first(r.active(ctx).Where("login = ?", login))
}

func (r *GormRepository) first(q *gorm.DB) (*domain.User, error) {
	var row userRow
	if err := q.Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *GormRepository) GetTokenID(ctx context.Context, id int64) (string, error) {
	u, err := r.GetByID(ctx, id)
	if err != nil || u == nil || u.TokenID == nil {
		return "", err
	}
	return *u.TokenID, nil
}

func (r *GormRepository) SetTokenID(ctx context.Context, id int64, tokenID string) error {
	return r.active(ctx).Where("id = ?", id).Updates(map[string]any{
		"token_id":   tokenID,
		"updated_at": time.Now().UTC(),
	}).Error
}

func (r *GormRepository) List(ctx context.Context) ([]*domain.User, error) {
	var rows []userRow
	if err := r.active(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*domain.User, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

func (r *GormRepository) Create(ctx context.Context, u *domain.User) error {
	row := userRow{
		Login:        u.Login,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Privilege:    string(u.Privilege),
		CreatedAt:    u.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return err
	}
	u.ID = row.ID
	u.CreatedAt = row.CreatedAt
	u.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *GormRepository) Update(ctx context.Context, u *domain.User) error {
	u.UpdatedAt = time.Now().UTC()
	return r.active(ctx).Where("id = ?", u.ID).Updates(map[string]any{
		"login":         u.Login,
		"name":          u.Name,
		"email":         u.Email,
		"password_hash": u.PasswordHash,
		"privilege":     string(u.Privilege),
		"updated_at":    u.UpdatedAt,
	}).Error
}

func (r *GormRepository) SoftDelete(ctx context.Context, id int64) (int64, error) {
	now := time.Now().UTC()
	res := r.active(ctx).Where("id = ?", id).Updates(map[string]any{
		"deleted":    true,
		"deleted_at": now,
		"updated_at": now,
		"token_id":   nil,
	})
	return res.RowsAffected, res.Error
}

func (r *GormRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.active(ctx).Count(&n).Error
	return n, err
}

func (row *userRow) toDomain() *domain.User {
	return &domain.User{
		ID:           row.ID,
		Login:        row.Login,
		Name:         row.Name,
		Email:        row.Email,
		PasswordHash: row.PasswordHash,
		Privilege:    domain.Privilege(row.Privilege),
		TokenID:      row.TokenID,
		Deleted:      row.Deleted,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
		DeletedAt:    row.DeletedAt,
	}
}
