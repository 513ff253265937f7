package products

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/healios-dev/healios-backend/pkg/db/models"
	"github.com/healios-dev/healios-backend/pkg/pagination"
)

// ProductRepository encapsulates catalog persistence.
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindBySlug(ctx context.Context, slug string) (*models.Product, error)
	List(ctx context.Context, cursor *pagination.Cursor, limit int, category string) ([]models.Product, error)
	Create(ctx context.Context, product *models.Product) (*models.Product, error)
	Update(ctx context.Context, product *models.Product) (*models.Product, error)
}

type gormProductRepository struct {
	db *gorm.DB
}

// NewRepository binds the repository to the provided GORM handle.
func NewRepository(db *gorm.DB) ProductRepository {
	return &gormProductRepository{db: db}
}

func (r *gormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var row models.Product
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *gormProductRepository) FindBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var row models.Product
	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *gormProductRepository) List(ctx context.Context, cursor *pagination.Cursor, limit int, category string) ([]models.Product, error) {
	q := r.db.WithContext(ctx).Where("active = ?", true).
		Order("created_at DESC").Order("id DESC").Limit(limit)
	if cursor != nil {
		q = q.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}
	if category != "" {
		q = q.Where("? = ANY(categories)", category)
	}
	var rows []models.Product
	err := q.Find(&rows).Error
	return rows, err
}

func (r *gormProductRepository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

func (r *gormProductRepository) Update(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Save(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}
