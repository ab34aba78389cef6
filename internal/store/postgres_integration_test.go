//go:build postgres_integration

package store

import (
	"context"
	"os"
	"testing"

	"fleetroute/internal/model"
)

func TestPostgresConnectivityAndMigrate(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}
	p, err := NewPostgres(dsn)
	if err != nil {
		t.Fatalf("NewPostgres: %v", err)
	}
	if err := p.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if err := p.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	rec, err := p.CreateInstance(context.Background(), "t_it", model.InstanceIn{
		Capacity: 2,
		Shops:    []model.ShopIn{{ID: "a", X: 1, Demand: 1}},
	})
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	defer func() { _ = p.DeleteInstance(context.Background(), "t_it", rec.ID) }()
	got, err := p.GetInstance(context.Background(), "t_it", rec.ID)
	if err != nil {
		t.Fatalf("GetInstance: %v", err)
	}
	if len(got.Spec.Shops) != 1 || got.Spec.Shops[0].ID != "a" {
		t.Fatalf("round trip mismatch: %+v", got.Spec)
	}
}
