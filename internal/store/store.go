package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gopkg.in/guregu/null.v4"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"parking-reservation-backend/internal/booking"
	"parking-reservation-backend/internal/model"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Store defines the interface for all database operations.
type Store interface {
	UpsertSpots(ctx context.Context, spots []booking.Spot) error
	UpdateSpotStatus(ctx context.Context, now time.Time, spots []booking.Spot) ([]string, error)

	SaveSubscription(ctx context.Context, sub *model.PushSubscription, spotIDs []string) error
	GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error

	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB, logger *zap.Logger) Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &gormStore{db: db, logger: logger}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// UpdateSpotStatus records status transitions transactionally and returns the
// IDs of spots that became available since the previous observation.
func (s *gormStore) UpdateSpotStatus(ctx context.Context, now time.Time, spots []booking.Spot) ([]string, error) {
	openRecords, err := s.fetchOpenStatuses(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch open spot statuses: %w", err)
	}

	var becameAvailable []string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, spot := range spots {
			if spot.ID == "" {
				continue
			}
			oldRecord, exists := openRecords[spot.ID]

			if exists {
				if string(spot.Status) != oldRecord.Status {
					if err := archiveRecord(tx, oldRecord, now); err != nil {
						return err
					}

					if spot.Status == booking.SpotAvailable {
						if err := tx.Delete(&model.SpotStatusOpen{}, "spot_id = ?", oldRecord.SpotID).Error; err != nil {
							return fmt.Errorf("failed to delete open status for spot %s: %w", oldRecord.SpotID, err)
						}
						becameAvailable = append(becameAvailable, spot.ID)
					} else {
						updated := model.SpotStatusOpen{SpotID: spot.ID, ObservedAt: now, Status: string(spot.Status)}
						if err := tx.Save(&updated).Error; err != nil {
							return fmt.Errorf("failed to update open status for spot %s: %w", spot.ID, err)
						}
					}
				}
				// Seen in the feed.
				delete(openRecords, spot.ID)
			} else if spot.Status != booking.SpotAvailable {
				created := model.SpotStatusOpen{SpotID: spot.ID, ObservedAt: now, Status: string(spot.Status)}
				if err := tx.Create(&created).Error; err != nil {
					return fmt.Errorf("failed to create open status for spot %s: %w", spot.ID, err)
				}
			}
		}

		// Spots that vanished from the feed are closed without a notification.
		for _, remaining := range openRecords {
			if err := archiveRecord(tx, remaining, now); err != nil {
				return err
			}
			if err := tx.Delete(&model.SpotStatusOpen{}, "spot_id = ?", remaining.SpotID).Error; err != nil {
				return fmt.Errorf("failed to delete open status for spot %s: %w", remaining.SpotID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return becameAvailable, nil
}

// archiveRecord moves a finished status period into the history table.
func archiveRecord(tx *gorm.DB, record model.SpotStatusOpen, observedAt time.Time) error {
	history := model.SpotStatusHistory{
		SpotID:      record.SpotID,
		ObservedAt:  observedAt,
		Status:      record.Status,
		PeriodStart: record.ObservedAt,
		PeriodEnd:   observedAt,
	}
	if err := tx.Create(&history).Error; err != nil {
		return fmt.Errorf("failed to archive status for spot %s: %w", record.SpotID, err)
	}
	return nil
}

// UpsertSpots writes spot metadata, skipping rows that did not change.
func (s *gormStore) UpsertSpots(ctx context.Context, spots []booking.Spot) error {
	existing, err := s.fetchAllSpots(ctx)
	if err != nil {
		s.logger.Warn("could not pre-fetch spots", zap.Error(err))
		existing = make(map[string]model.Spot)
	}

	var toUpsert []model.Spot
	for _, spot := range spots {
		if spot.ID == "" {
			s.logger.Warn("skipping spot without id", zap.String("label", spot.Label))
			continue
		}
		row, changed := prepareSpot(spot, existing)
		if changed {
			toUpsert = append(toUpsert, row)
		}
	}

	if len(toUpsert) == 0 {
		return nil
	}
	s.logger.Info("batch upserting spots", zap.Int("count", len(toUpsert)))
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"label", "zone", "latitude", "longitude", "updated_at"}),
	}).Create(&toUpsert).Error
}

func prepareSpot(spot booking.Spot, existing map[string]model.Spot) (model.Spot, bool) {
	row := model.Spot{
		ID:        spot.ID,
		Label:     spot.Label,
		Zone:      null.NewString(spot.Zone, spot.Zone != ""),
		Latitude:  null.NewFloat(spot.Latitude, spot.Latitude != 0 || spot.Longitude != 0),
		Longitude: null.NewFloat(spot.Longitude, spot.Latitude != 0 || spot.Longitude != 0),
	}
	if row.Label == "" {
		row.Label = spot.ID
	}

	if old, ok := existing[row.ID]; ok {
		if old.Label == row.Label &&
			old.Zone == row.Zone &&
			old.Latitude == row.Latitude &&
			old.Longitude == row.Longitude {
			return row, false
		}
	}
	return row, true
}

// SaveSubscription creates or replaces a subscription and the spots it watches.
// An endpoint already owned by another user is left alone and ErrNotFound is
// returned.
func (s *gormStore) SaveSubscription(ctx context.Context, sub *model.PushSubscription, spotIDs []string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth", "user_id"}),
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Expr{SQL: "push_subscriptions.user_id IS NULL OR push_subscriptions.user_id = excluded.user_id"},
			}},
		}).Omit("Spots").Create(sub)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		var spots []*model.Spot
		if len(spotIDs) > 0 {
			if err := tx.Where("id IN ?", spotIDs).Find(&spots).Error; err != nil {
				return err
			}
		}
		return tx.Model(sub).Association("Spots").Replace(spots)
	})
}

// GetSubscription loads a subscription with its watched spots.
func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	err := s.db.WithContext(ctx).Preload("Spots").First(&sub, "endpoint = ?", endpoint).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// DeleteSubscription removes a subscription and its spot mappings.
func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub := model.PushSubscription{Endpoint: endpoint}
		if err := tx.Model(&sub).Association("Spots").Clear(); err != nil {
			return err
		}
		return tx.Delete(&sub).Error
	})
}

func (s *gormStore) fetchOpenStatuses(ctx context.Context) (map[string]model.SpotStatusOpen, error) {
	var records []model.SpotStatusOpen
	if err := s.db.WithContext(ctx).Find(&records).Error; err != nil {
		return nil, err
	}
	recordMap := make(map[string]model.SpotStatusOpen, len(records))
	for _, r := range records {
		recordMap[r.SpotID] = r
	}
	return recordMap, nil
}

func (s *gormStore) fetchAllSpots(ctx context.Context) (map[string]model.Spot, error) {
	var spots []model.Spot
	if err := s.db.WithContext(ctx).Find(&spots).Error; err != nil {
		return nil, err
	}
	spotMap := make(map[string]model.Spot, len(spots))
	for _, sp := range spots {
		spotMap[sp.ID] = sp
	}
	return spotMap, nil
}
