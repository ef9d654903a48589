package catalog

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Filter narrows product listings. Empty fields are ignored.
type Filter struct {
	Language   string
	Category   string
	ProductKey string
}

// Repository persists products.
type Repository interface {
	List(ctx context.Context, f Filter) ([]Product, error)
	Get(ctx context.Context, id uint) (Product, error)
	GetByKey(ctx context.Context, key, language string) (Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, id uint, changes map[string]any) (Product, error)
	Delete(ctx context.Context, id uint) error
}

// GormRepository implements Repository on top of GORM.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository wraps an open GORM connection.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) List(ctx context.Context, f Filter) ([]Product, error) {
	q := r.db.WithContext(ctx).Model(&Product{})
	if f.Language != "" {
		q = q.Where("language = ?", f.Language)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.ProductKey != "" {
		q = q.Where("product_key = ?", f.ProductKey)
	}
	products := []Product{}
	if err := q.Order("id ASC").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *GormRepository) Get(ctx context.Context, id uint) (Product, error) {
	var p Product
	err := r.db.WithContext(ctx).First(&p, id).Error
	return p, translate(err)
}

func (r *GormRepository) GetByKey(ctx context.Context, key, language string) (Product, error) {
	var p Product
	err := r.db.WithContext(ctx).
		Where("product_key = ? AND language = ?", key, language).
		First(&p).Error
	return p, translate(err)
}

func (r *GormRepository) Create(ctx context.Context, p *Product) error {
	return translate(r.db.WithContext(ctx).Create(p).Error)
}

// Update applies column changes and returns the stored row.
func (r *GormRepository) Update(ctx context.Context, id uint, changes map[string]any) (Product, error) {
	var out Product
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&out, id).Error; err != nil {
			return err
		}
		if len(changes) == 0 {
			return nil
		}
		if err := tx.Model(&out).Updates(changes).Error; err != nil {
			return err
		}
		return tx.First(&out, id).Error
	})
	return out, translate(err)
}

func (r *GormRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&Product{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}
