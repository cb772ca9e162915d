package db

import (
	"context"

	"github.com/rotisserie/eris"
)

// schema is the development/test schema. In production these tables are owned
// by the partner and profile services; discovery only reads them and the
// lifecycle sweep only writes deals.status.
const schema = `
CREATE TABLE IF NOT EXISTS partners (
	id            BIGSERIAL PRIMARY KEY,
	business_name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS restaurants (
	id           BIGSERIAL PRIMARY KEY,
	partner_id   BIGINT REFERENCES partners(id),
	name         TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	street       TEXT NOT NULL DEFAULT '',
	city         TEXT NOT NULL DEFAULT '',
	province     TEXT NOT NULL DEFAULT '',
	postal_code  TEXT NOT NULL DEFAULT '',
	country      TEXT NOT NULL DEFAULT '',
	latitude     DOUBLE PRECISION,
	longitude    DOUBLE PRECISION,
	rating_avg   DOUBLE PRECISION NOT NULL DEFAULT 0,
	rating_count INTEGER NOT NULL DEFAULT 0,
	is_active    BOOLEAN NOT NULL DEFAULT false,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS deals (
	id            BIGSERIAL PRIMARY KEY,
	restaurant_id BIGINT NOT NULL REFERENCES restaurants(id) ON DELETE CASCADE,
	title         TEXT NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL DEFAULT 'draft'
	              CHECK (status IN ('draft', 'active', 'expired', 'archived')),
	start_date    DATE NOT NULL,
	end_date      DATE NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS cuisines (
	id   BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS dietary_preferences (
	id   BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS deal_cuisines (
	deal_id    BIGINT NOT NULL REFERENCES deals(id) ON DELETE CASCADE,
	cuisine_id BIGINT NOT NULL REFERENCES cuisines(id) ON DELETE CASCADE,
	PRIMARY KEY (deal_id, cuisine_id)
);

CREATE TABLE IF NOT EXISTS deal_dietary_preferences (
	deal_id               BIGINT NOT NULL REFERENCES deals(id) ON DELETE CASCADE,
	dietary_preference_id BIGINT NOT NULL REFERENCES dietary_preferences(id) ON DELETE CASCADE,
	PRIMARY KEY (deal_id, dietary_preference_id)
);

CREATE TABLE IF NOT EXISTS restaurant_bookmarks (
	user_id        TEXT NOT NULL,
	restaurant_id  BIGINT NOT NULL REFERENCES restaurants(id) ON DELETE CASCADE,
	notify_on_deal BOOLEAN NOT NULL DEFAULT false,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (user_id, restaurant_id)
);

CREATE TABLE IF NOT EXISTS deal_bookmarks (
	user_id    TEXT NOT NULL,
	deal_id    BIGINT NOT NULL REFERENCES deals(id) ON DELETE CASCADE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (user_id, deal_id)
);

CREATE INDEX IF NOT EXISTS idx_restaurants_active ON restaurants(is_active);
CREATE INDEX IF NOT EXISTS idx_deals_status_dates ON deals(status, start_date, end_date);
CREATE INDEX IF NOT EXISTS idx_deals_restaurant_status ON deals(restaurant_id, status);
CREATE INDEX IF NOT EXISTS idx_deal_cuisines_cuisine ON deal_cuisines(cuisine_id);
CREATE INDEX IF NOT EXISTS idx_deal_dietary_pref ON deal_dietary_preferences(dietary_preference_id);
`

// Migrate creates the discovery tables if they do not exist.
func Migrate(ctx context.Context, pool Pool) error {
	_, err := pool.Exec(ctx, schema)
	return eris.Wrap(err, "db: migrate")
}
