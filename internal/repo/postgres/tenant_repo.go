package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wanderstay/wanderstay-bookings/internal/domain"
)

// TenantRepository reads the identity subsystem's principal profile,
// used for invoice rendering and notification addressing.
type TenantRepository interface {
	FindByID(ctx context.Context, id int64) (*domain.Tenant, error)
}

type tenantRepository struct {
	pool *pgxpool.Pool
}

func NewTenantRepository(pool *pgxpool.Pool) TenantRepository {
	return &tenantRepository{pool: pool}
}

func (r *tenantRepository) FindByID(ctx context.Context, id int64) (*domain.Tenant, error) {
	const q = `SELECT id, name, email, phone FROM tenants WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var t domain.Tenant
	err := r.pool.QueryRow(ctx, q, id).Scan(&t.ID, &t.Name, &t.Email, &t.Phone)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
