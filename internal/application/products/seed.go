package products

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"lamf-backend/internal/domain"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

//go:embed seed_products.yaml
var defaultSeed []byte

type seedFile struct {
	Products []ProductInput `yaml:"products"`
}

// LoadSeed reads a product seed file. An empty path selects the built-in catalog.
func LoadSeed(path string) ([]ProductInput, error) {
	raw := defaultSeed
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read product seed %s: %w", path, err)
		}
		raw = b
	}
	var f seedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse product seed: %w", err)
	}
	return f.Products, nil
}

// Seed fills an empty catalog and returns how many products were inserted.
// A catalog that already has rows is left alone.
func (s *Service) Seed(ctx context.Context, path string) (int, error) {
	var existing int64
	if err := s.DB.WithContext(ctx).Model(&domain.LoanProduct{}).Count(&existing).Error; err != nil {
		return 0, err
	}
	if existing > 0 {
		log.Info().Int64("count", existing).Msg("loan products already exist, skipping seed")
		return 0, nil
	}
	inputs, err := LoadSeed(path)
	if err != nil {
		return 0, err
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, in := range inputs {
			p := in.toDomain()
			if err := Validate(p); err != nil {
				return fmt.Errorf("seed product %d (%s): %w", i, in.Name, err)
			}
			if err := tx.Create(p).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	log.Info().Int("count", len(inputs)).Msg("loan products seeded")
	return len(inputs), nil
}
