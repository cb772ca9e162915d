package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dealscout/dealscout/internal/cache"
	"github.com/dealscout/dealscout/internal/db"
	"github.com/dealscout/dealscout/internal/model"
)

var migrateSeed bool

// defaultFacets seeds an empty development database.
var defaultFacets = map[model.FacetKind][]string{
	model.FacetCuisine: {
		"American", "Chinese", "French", "Greek", "Indian", "Italian", "Japanese",
		"Korean", "Mediterranean", "Mexican", "Middle Eastern", "Thai", "Vietnamese",
	},
	model.FacetDietary: {
		"Dairy-Free", "Gluten-Free", "Halal", "Keto", "Kosher", "Nut-Free", "Vegan", "Vegetarian",
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the development schema",
	Long:  "Creates the tables discovery and the lifecycle sweep read and write. Production schemas are owned by the collaborating services; use this for local and test databases.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "migrate", migrateSeed)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := db.Migrate(ctx, env.Pool); err != nil {
			return eris.Wrap(err, "migrate")
		}
		zap.L().Info("schema ready")

		if !migrateSeed {
			return nil
		}
		var invalidator facetInvalidator
		if env.Redis != nil {
			invalidator = cache.NewFacetCache(env.Redis, 0)
		}
		return seedFacets(ctx, env.Pool, invalidator)
	},
}

type facetInvalidator interface {
	Invalidate(ctx context.Context) error
}

// seedFacets loads defaultFacets and drops cached catalogs so the next
// request sees the new rows.
func seedFacets(ctx context.Context, pool db.Pool, inv facetInvalidator) error {
	for _, kind := range model.FacetKinds {
		n, err := db.SeedNames(ctx, pool, kind.Table(), defaultFacets[kind])
		if err != nil {
			return err
		}
		zap.L().Info("seeded facet catalog",
			zap.String("kind", string(kind)),
			zap.Int64("inserted", n),
		)
	}
	if inv != nil {
		if err := inv.Invalidate(ctx); err != nil {
			zap.L().Warn("could not invalidate cached facet catalogs", zap.Error(err))
		}
	}
	return nil
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateSeed, "seed", false, "insert the default cuisine and dietary preference catalogs")
	rootCmd.AddCommand(migrateCmd)
}
