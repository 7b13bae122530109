package tyre

import (
	"context"

	"github.com/mpapenbr/racestore/pkg/db/backend"
	"github.com/mpapenbr/racestore/pkg/model"
	"github.com/mpapenbr/racestore/pkg/repository"
)

func Ensure(ctx context.Context, conn repository.Querier, name string) (int64, error) {
	return repository.EnsureByName(ctx, conn, "tyre_compounds", name)
}

func LoadAll(ctx context.Context, conn repository.Querier) ([]model.Named, error) {
	return backend.Select[model.Named](ctx, conn,
		"select id,name from tyre_compounds order by name", nil)
}
