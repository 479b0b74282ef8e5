package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"betonflow/internal/cache"
	"betonflow/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Directory resource names as exposed under /api/directories/{resource}.
// They match the storage keys of the legacy client.
const (
	ResCounterparties     = "counterparties"
	ResConcreteGrades     = "concreteGrades"
	ResWarehouses         = "warehouses"
	ResMaterials          = "materials"
	ResDrivers            = "drivers"
	ResVehicles           = "vehicles"
	ResPrices             = "prices"
	ResAdditionalServices = "additionalServices"
)

// DirectoryService is the CRUD layer over the master-data collections.
// Reads are memoized in the TTL cache; any write invalidates the resource's
// keys by pattern.
type DirectoryService interface {
	List(ctx context.Context, resource string, includeInactive bool) (interface{}, error)
	Get(ctx context.Context, resource, id string) (interface{}, error)
	Create(ctx context.Context, resource string, payload json.RawMessage) (interface{}, error)
	Update(ctx context.Context, resource, id string, payload json.RawMessage) (interface{}, error)
	Delete(ctx context.Context, resource, id string) error

	DirectoryLookup
	GetDriver(ctx context.Context, id uuid.UUID) (*model.Driver, error)
	GetVehicle(ctx context.Context, id uuid.UUID) (*model.Vehicle, error)
	GetDriverByUserID(ctx context.Context, userID uuid.UUID) (*model.Driver, error)
}

type directoryService struct {
	db    *gorm.DB
	cache *cache.Cache
	ttl   time.Duration
}

func NewDirectoryService(db *gorm.DB, c *cache.Cache, ttl time.Duration) DirectoryService {
	return &directoryService{db: db, cache: c, ttl: ttl}
}

// resourceOps are the type-erased CRUD closures for one directory resource.
type resourceOps struct {
	list   func(ctx context.Context, includeInactive bool) (interface{}, error)
	get    func(ctx context.Context, id uuid.UUID) (interface{}, error)
	create func(ctx context.Context, payload json.RawMessage) (interface{}, error)
	update func(ctx context.Context, id uuid.UUID, payload json.RawMessage) (interface{}, error)
	delete func(ctx context.Context, id uuid.UUID) error
}

func opsFor[T any](s *directoryService) resourceOps {
	return resourceOps{
		list: func(ctx context.Context, includeInactive bool) (interface{}, error) {
			var items []T
			q := s.db.WithContext(ctx)
			if !includeInactive {
				q = q.Where("is_active = ?", true)
			}
			if err := q.Order("created_at DESC").Find(&items).Error; err != nil {
				return nil, err
			}
			return items, nil
		},
		get: func(ctx context.Context, id uuid.UUID) (interface{}, error) {
			var item T
			if err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
				return nil, fmt.Errorf("%w: entry", ErrNotFound)
			}
			return &item, nil
		},
		create: func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
			var item T
			if err := json.Unmarshal(payload, &item); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
			}
			if err := s.db.WithContext(ctx).Create(&item).Error; err != nil {
				return nil, err
			}
			return &item, nil
		},
		update: func(ctx context.Context, id uuid.UUID, payload json.RawMessage) (interface{}, error) {
			var item T
			if err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
				return nil, fmt.Errorf("%w: entry", ErrNotFound)
			}
			if err := json.Unmarshal(payload, &item); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
			}
			if err := s.db.WithContext(ctx).Save(&item).Error; err != nil {
				return nil, err
			}
			return &item, nil
		},
		delete: func(ctx context.Context, id uuid.UUID) error {
			// Soft delete: directory entries stay referenceable from history.
			res := s.db.WithContext(ctx).Model(new(T)).Where("id = ?", id).Update("is_active", false)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("%w: entry", ErrNotFound)
			}
			return nil
		},
	}
}

func (s *directoryService) ops(resource string) (resourceOps, error) {
	switch resource {
	case ResCounterparties:
		return opsFor[model.Counterparty](s), nil
	case ResConcreteGrades:
		return opsFor[model.ConcreteGrade](s), nil
	case ResWarehouses:
		return opsFor[model.Warehouse](s), nil
	case ResMaterials:
		return opsFor[model.Material](s), nil
	case ResDrivers:
		return opsFor[model.Driver](s), nil
	case ResVehicles:
		return opsFor[model.Vehicle](s), nil
	case ResPrices:
		return opsFor[model.Price](s), nil
	case ResAdditionalServices:
		return opsFor[model.AdditionalService](s), nil
	}
	return resourceOps{}, fmt.Errorf("%w: unknown directory %q", ErrNotFound, resource)
}

func (s *directoryService) List(ctx context.Context, resource string, includeInactive bool) (interface{}, error) {
	ops, err := s.ops(resource)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("directories:%s:list:%t", resource, includeInactive)
	return s.cache.GetOrSet(key, s.ttl, func() (interface{}, error) {
		return ops.list(ctx, includeInactive)
	})
}

func (s *directoryService) Get(ctx context.Context, resource, id string) (interface{}, error) {
	ops, err := s.ops(resource)
	if err != nil {
		return nil, err
	}
	eid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: id", ErrInvalidInput)
	}
	return ops.get(ctx, eid)
}

func (s *directoryService) Create(ctx context.Context, resource string, payload json.RawMessage) (interface{}, error) {
	ops, err := s.ops(resource)
	if err != nil {
		return nil, err
	}
	item, err := ops.create(ctx, payload)
	if err != nil {
		return nil, err
	}
	s.invalidate(resource)
	return item, nil
}

func (s *directoryService) Update(ctx context.Context, resource, id string, payload json.RawMessage) (interface{}, error) {
	ops, err := s.ops(resource)
	if err != nil {
		return nil, err
	}
	eid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: id", ErrInvalidInput)
	}
	item, err := ops.update(ctx, eid, payload)
	if err != nil {
		return nil, err
	}
	s.invalidate(resource)
	return item, nil
}

func (s *directoryService) Delete(ctx context.Context, resource, id string) error {
	ops, err := s.ops(resource)
	if err != nil {
		return err
	}
	eid, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: id", ErrInvalidInput)
	}
	if err := ops.delete(ctx, eid); err != nil {
		return err
	}
	s.invalidate(resource)
	return nil
}

func (s *directoryService) invalidate(resource string) {
	s.cache.DeletePattern("directories:" + resource + ":*")
}

// --- Typed lookups used by the order/invoice workflows ---

func (s *directoryService) GetCounterparty(ctx context.Context, id uuid.UUID) (*model.Counterparty, error) {
	var item model.Counterparty
	if err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *directoryService) GetConcreteGrade(ctx context.Context, id uuid.UUID) (*model.ConcreteGrade, error) {
	var item model.ConcreteGrade
	if err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *directoryService) GetWarehouse(ctx context.Context, id uuid.UUID) (*model.Warehouse, error) {
	var item model.Warehouse
	if err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *directoryService) GetAdditionalService(ctx context.Context, id uuid.UUID) (*model.AdditionalService, error) {
	var item model.AdditionalService
	if err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *directoryService) GetDriver(ctx context.Context, id uuid.UUID) (*model.Driver, error) {
	var item model.Driver
	if err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *directoryService) GetVehicle(ctx context.Context, id uuid.UUID) (*model.Vehicle, error) {
	var item model.Vehicle
	if err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *directoryService) GetDriverByUserID(ctx context.Context, userID uuid.UUID) (*model.Driver, error) {
	var item model.Driver
	if err := s.db.WithContext(ctx).First(&item, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// CurrentPrice returns the latest active price for a grade effective at the
// given time.
func (s *directoryService) CurrentPrice(ctx context.Context, gradeID uuid.UUID, at time.Time) (*model.Price, error) {
	var price model.Price
	if err := s.db.WithContext(ctx).
		Where("concrete_grade_id = ? AND is_active = ? AND effective_from <= ?", gradeID, true, at).
		Order("effective_from DESC").
		First(&price).Error; err != nil {
		return nil, err
	}
	return &price, nil
}
