package coupons

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// SeedFile is the YAML layout of COUPONS_SEED_FILE.
type SeedFile struct {
	Coupons []CreateParams `yaml:"coupons"`
}

// DefaultSeeds are the promotional codes available on a fresh start.
func DefaultSeeds() []CreateParams {
	return []CreateParams{
		{Code: "WELCOME10", Discount: ptr(10.0), Type: "percentage", MaxDiscount: ptr(50.0)},
		{Code: "SAVE20", Discount: ptr(20.0), Type: "fixed", MinAmount: ptr(100.0)},
	}
}

// LoadSeedFile reads coupon seeds from a YAML file.
func LoadSeedFile(path string) ([]CreateParams, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var f SeedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return f.Coupons, nil
}

// Seed creates each coupon, skipping codes that already exist.
func (s *Service) Seed(ctx context.Context, seeds []CreateParams) error {
	created := 0
	for _, p := range seeds {
		_, err := s.Create(ctx, p)
		if errors.Is(err, ErrConflict) {
			continue
		}
		if err != nil {
			return fmt.Errorf("seed %s: %w", p.Code, err)
		}
		created++
	}
	s.logger.Info("coupons seeded", zap.Int("created", created), zap.Int("total", len(seeds)))
	return nil
}

func ptr[T any](v T) *T { return &v }
