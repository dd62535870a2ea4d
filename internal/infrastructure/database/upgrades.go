package database

import (
	"context"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"

	"github.com/bridge-service/bridge_service/pkg/logger"
)

// CurrentSchemaVersion is the bridge settings layout version this build
// expects. Bump it together with a new entry in upgrades.
const CurrentSchemaVersion = 2

// upgrades maps a target version to the one-shot step that produces it.
// Steps are one-directional, idempotent, and applied strictly in order,
// each at most once, gated by the stored schema_version.
var upgrades = map[int]func(*sqlx.Tx) error{
	2: upgradeToV2,
}

// RunSchemaUpgrades applies any pending settings-layout upgrades. DDL lives
// in golang-migrate files; this handles value-level reshaping of the
// bridge_settings store between releases.
func RunSchemaUpgrades(ctx context.Context, db *sqlx.DB, log *logger.Logger) error {
	return WithTransaction(ctx, db, func(tx *sqlx.Tx) error {
		var stored int
		err := tx.QueryRowx(
			`SELECT (value->>'version')::int FROM bridge_settings WHERE key = 'schema_version' FOR UPDATE`,
		).Scan(&stored)
		if err != nil {
			return fmt.Errorf("read schema version: %w", err)
		}

		if stored >= CurrentSchemaVersion {
			log.Debug("Schema up to date", "version", stored)
			return nil
		}

		for _, version := range pendingVersions(stored, CurrentSchemaVersion) {
			step, ok := upgrades[version]
			if !ok {
				return fmt.Errorf("no upgrade step registered for schema version %d", version)
			}
			if err := step(tx); err != nil {
				return fmt.Errorf("upgrade to schema version %d: %w", version, err)
			}
			log.Info("Applied schema upgrade", "version", version)
		}

		_, err = tx.Exec(
			`UPDATE bridge_settings SET value = jsonb_build_object('version', $1::int) WHERE key = 'schema_version'`,
			CurrentSchemaVersion,
		)
		if err != nil {
			return fmt.Errorf("store schema version: %w", err)
		}

		return nil
	})
}

// pendingVersions lists the versions to apply, ascending, to move from
// stored to target.
func pendingVersions(stored, target int) []int {
	var versions []int
	for v := stored + 1; v <= target; v++ {
		versions = append(versions, v)
	}
	sort.Ints(versions)
	return versions
}

// upgradeToV2 collapses the legacy split fee keys into the composite
// fee_rate value and removes them. Installations created at v2 or later
// never have the legacy keys, so the step is a safe no-op for them.
func upgradeToV2(tx *sqlx.Tx) error {
	var numerator, denominator int64
	var haveLegacy bool

	err := tx.QueryRowx(
		`SELECT COALESCE(n.value->>'value', '')  <> '' AND COALESCE(d.value->>'value', '') <> '',
		        COALESCE((n.value->>'value')::bigint, 0),
		        COALESCE((d.value->>'value')::bigint, 1)
		 FROM (SELECT value FROM bridge_settings WHERE key = 'service_fee_numerator') n
		 FULL OUTER JOIN (SELECT value FROM bridge_settings WHERE key = 'service_fee_denominator') d ON true`,
	).Scan(&haveLegacy, &numerator, &denominator)
	if err != nil {
		// No legacy rows at all
		return nil
	}

	if haveLegacy {
		_, err = tx.Exec(
			`INSERT INTO bridge_settings (key, value)
			 VALUES ('fee_rate', jsonb_build_object('numerator', $1::bigint, 'denominator', $2::bigint))
			 ON CONFLICT (key) DO NOTHING`,
			numerator, denominator,
		)
		if err != nil {
			return fmt.Errorf("write composite fee rate: %w", err)
		}
	}

	_, err = tx.Exec(`DELETE FROM bridge_settings WHERE key IN ('service_fee_numerator', 'service_fee_denominator')`)
	if err != nil {
		return fmt.Errorf("drop legacy fee keys: %w", err)
	}

	return nil
}
