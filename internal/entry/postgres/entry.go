package postgres

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "github.com/reimagine-business/donna/internal"
	entryDatamodel "github.com/reimagine-business/donna/internal/core/datamodel/entry"
	"github.com/reimagine-business/donna/internal/entry"
)

// EntryRepository implements entry.Repository using GORM. All reads and
// writes are scoped by user id; Transact hands callers a repository bound
// to one database transaction.
type EntryRepository struct {
	db *gorm.DB
}

func NewEntryRepository(db *gorm.DB) entry.Repository {
	return &EntryRepository{db: db}
}

func (r *EntryRepository) Create(e *entry.Entry) error {
	return r.db.Create(entry.ToDataModel(e)).Error
}

func (r *EntryRepository) GetByID(id, userID string) (*entry.Entry, error) {
	var dm entryDatamodel.Entry
	err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&dm).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrEntryNotFound
		}
		return nil, apperrors.NewStoreError("failed to load entry", err)
	}
	return entry.FromDataModel(&dm), nil
}

// GetByIDForUpdate locks the row until the surrounding transaction ends.
// SQLite (used by the in-memory test suite) has no FOR UPDATE; its
// single-writer model makes the lock redundant there anyway.
func (r *EntryRepository) GetByIDForUpdate(id, userID string) (*entry.Entry, error) {
	q := r.db
	if r.db.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var dm entryDatamodel.Entry
	err := q.Where("id = ? AND user_id = ?", id, userID).First(&dm).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrEntryNotFound
		}
		return nil, apperrors.NewStoreError("failed to load entry for update", err)
	}
	return entry.FromDataModel(&dm), nil
}

func (r *EntryRepository) ListByUser(userID string) ([]*entry.Entry, error) {
	var dms []*entryDatamodel.Entry
	err := r.db.Where("user_id = ?", userID).
		Order("entry_date DESC, created_at DESC").
		Find(&dms).Error
	if err != nil {
		return nil, err
	}
	return entry.FromDataModelSlice(dms), nil
}

func (r *EntryRepository) Update(e *entry.Entry) error {
	dm := entry.ToDataModel(e)
	// Save with Select("*") so nil-able columns (remaining_amount,
	// settled_at, source_entry_id) are written even when cleared.
	return r.db.Model(&entryDatamodel.Entry{}).
		Where("id = ? AND user_id = ?", e.ID, e.UserID).
		Select("*").
		Omit("id", "created_at").
		Updates(dm).Error
}

func (r *EntryRepository) Delete(id, userID string) error {
	result := r.db.Where("id = ? AND user_id = ?", id, userID).
		Delete(&entryDatamodel.Entry{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrEntryNotFound
	}
	return nil
}

func (r *EntryRepository) CountRealizations(sourceID, userID string) (int64, error) {
	var count int64
	err := r.db.Model(&entryDatamodel.Entry{}).
		Where("source_entry_id = ? AND user_id = ?", sourceID, userID).
		Count(&count).Error
	return count, err
}

func (r *EntryRepository) Transact(fn func(entry.Repository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&EntryRepository{db: tx})
	})
}
