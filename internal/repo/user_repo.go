package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cbanluta2700/agrismart--sub002/internal/domain"
)

// UpsertUser sets the display name for id, creating the row when missing.
func UpsertUser(ctx context.Context, db *gorm.DB, id, displayName string) (*domain.User, error) {
	now := time.Now().UTC()
	u := &domain.User{ID: id, DisplayName: displayName, CreatedAt: now, UpdatedAt: now}
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"display_name", "updated_at"}),
	}).Create(u).Error
	if err != nil {
		return nil, err
	}
	return u, nil
}

// EnsureUsers inserts an empty-named row for every id that has none yet.
func EnsureUsers(ctx context.Context, db *gorm.DB, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	now := time.Now().UTC()
	rows := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, domain.User{ID: id, CreatedAt: now, UpdatedAt: now})
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(&rows).Error
}

// DisplayNames maps each known id to its display name. Unknown ids and
// users without a name are absent.
func DisplayNames(ctx context.Context, db *gorm.DB, ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []domain.User
	if err := db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.DisplayName != "" {
			out[u.ID] = u.DisplayName
		}
	}
	return out, nil
}
