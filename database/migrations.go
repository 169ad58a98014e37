/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultMigrationCollection records applied migrations.
const DefaultMigrationCollection = "mongeasy_migrations"

// Migration represents an applied migration record stored in the database.
type Migration struct {
	Version     string    `bson:"_id" json:"version"`
	Name        string    `bson:"name" json:"name"`
	AppliedAt   time.Time `bson:"applied_at" json:"applied_at"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
}

// MigrationFunc is a migration step.
type MigrationFunc func(ctx context.Context, db *mongo.Database) error

// MigrationItem describes a single migration version with up/down functions.
type MigrationItem struct {
	Version     string
	Name        string
	Description string
	Up          MigrationFunc
	Down        MigrationFunc
}

var ErrNoDownMigration = errors.New("migration has no down step")

var (
	migrationsMu     sync.RWMutex
	globalMigrations []MigrationItem
)

// RegisterMigration adds migrations run by every MigrationManager.
func RegisterMigration(items ...MigrationItem) {
	migrationsMu.Lock()
	defer migrationsMu.Unlock()
	globalMigrations = append(globalMigrations, items...)
}

// MigrationManager syncs registered models into the database and runs
// versioned migrations once each.
type MigrationManager struct {
	db       *mongo.Database
	config   DataMigrateConfig
	logger   Logger
	registry ModelRegistry
	items    []MigrationItem
}

// NewMigrationManager constructs a MigrationManager over db using the default
// model registry.
func NewMigrationManager(db *mongo.Database, cfg DataMigrateConfig, logger Logger) *MigrationManager {
	if logger == nil {
		logger = GetLogger()
	}
	if cfg.MigrationCollection == "" {
		cfg.MigrationCollection = DefaultMigrationCollection
	}
	return &MigrationManager{db: db, config: cfg, logger: logger, registry: defaultRegistry}
}

// AddMigration adds migrations for this manager only.
func (mm *MigrationManager) AddMigration(items ...MigrationItem) {
	mm.items = append(mm.items, items...)
}

func (mm *MigrationManager) migrations() []MigrationItem {
	migrationsMu.RLock()
	all := append([]MigrationItem{}, globalMigrations...)
	migrationsMu.RUnlock()
	all = append(all, mm.items...)
	sort.SliceStable(all, func(i, j int) bool { return all[i].Version < all[j].Version })
	return all
}

// RunMigrations synchronizes collections, validators, and indexes when schema
// sync is enabled, then executes pending migrations in ascending version order.
func (mm *MigrationManager) RunMigrations(ctx context.Context) error {
	if mm.db == nil {
		return ErrNotInitialized
	}

	if mm.config.EnableSchemaSync {
		if err := mm.SynchronizeSchema(ctx); err != nil {
			return fmt.Errorf("sync schema failed: %w", err)
		}
	}

	for _, migration := range mm.migrations() {
		if err := mm.runMigration(ctx, migration); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", migration.Version, err)
		}
	}

	mm.logger.Info("Database migrations completed!")
	return nil
}

func (mm *MigrationManager) records() *mongo.Collection {
	return mm.db.Collection(mm.config.MigrationCollection)
}

func (mm *MigrationManager) runMigration(ctx context.Context, migration MigrationItem) error {
	n, err := mm.records().CountDocuments(ctx, bson.M{"_id": migration.Version})
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	if migration.Up != nil {
		if err := migration.Up(ctx, mm.db); err != nil {
			return err
		}
	}

	record := Migration{
		Version:     migration.Version,
		Name:        migration.Name,
		AppliedAt:   time.Now().UTC(),
		Description: migration.Description,
	}
	if _, err := mm.records().InsertOne(ctx, record); err != nil {
		// another process applied it first
		if is, kind := IsMongoError(err); is && kind == DuplicateKeyErr {
			return nil
		}
		return err
	}

	mm.logger.Info("Migration executed successfully", "version", migration.Version, "name", migration.Name)
	return nil
}

// GetAppliedMigrations returns migration records ordered by version.
func (mm *MigrationManager) GetAppliedMigrations(ctx context.Context) ([]Migration, error) {
	cur, err := mm.records().Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var out []Migration
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RollbackMigration runs the down step of version and removes its record.
func (mm *MigrationManager) RollbackMigration(ctx context.Context, version string) error {
	for _, m := range mm.migrations() {
		if m.Version != version {
			continue
		}
		if m.Down == nil {
			return fmt.Errorf("%w: %s", ErrNoDownMigration, version)
		}
		if err := m.Down(ctx, mm.db); err != nil {
			return err
		}
		_, err := mm.records().DeleteOne(ctx, bson.M{"_id": version})
		if err == nil {
			mm.logger.Info("Migration rolled back", "version", version, "name", m.Name)
		}
		return err
	}
	return fmt.Errorf("unknown migration version %s", version)
}

// SynchronizeSchema creates missing collections of registered models, applies
// their validators, and creates declared indexes.
func (mm *MigrationManager) SynchronizeSchema(ctx context.Context) error {
	names, err := mm.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	existing := make(map[string]bool, len(names))
	for _, n := range names {
		existing[n] = true
	}

	for _, model := range mm.registry.Models() {
		name := model.CollectionName()
		var validator bson.M
		if vm, ok := model.(ValidatedModel); ok {
			validator = vm.JSONSchema()
		}

		if !existing[name] {
			if err := mm.createCollection(ctx, name, validator); err != nil {
				return err
			}
			existing[name] = true
		} else if validator != nil && mm.config.AllowValidatorUpdate {
			if err := mm.updateValidator(ctx, name, validator); err != nil {
				return err
			}
		}

		if im, ok := model.(IndexedModel); ok && mm.config.AllowIndexAdd {
			if err := mm.syncIndexes(ctx, mm.db.Collection(name), im.Indexes()); err != nil {
				return fmt.Errorf("sync indexes of %s: %w", name, err)
			}
		}
	}
	return nil
}

func (mm *MigrationManager) createCollection(ctx context.Context, name string, validator bson.M) error {
	opts := options.CreateCollection()
	if validator != nil {
		opts.SetValidator(validator)
		if mm.config.ValidationLevel != "" {
			opts.SetValidationLevel(mm.config.ValidationLevel)
		}
		if mm.config.ValidationAction != "" {
			opts.SetValidationAction(mm.config.ValidationAction)
		}
	}
	err := mm.db.CreateCollection(ctx, name, opts)
	if is, kind := IsMongoError(err); is && kind == NamespaceExistsErr {
		return nil
	}
	if err != nil {
		return fmt.Errorf("create collection %s: %w", name, err)
	}
	mm.logger.Info("Collection created", "collection", name, "validator", validator != nil)
	return nil
}

func (mm *MigrationManager) updateValidator(ctx context.Context, name string, validator bson.M) error {
	cmd := bson.D{{Key: "collMod", Value: name}, {Key: "validator", Value: validator}}
	if mm.config.ValidationLevel != "" {
		cmd = append(cmd, bson.E{Key: "validationLevel", Value: mm.config.ValidationLevel})
	}
	if mm.config.ValidationAction != "" {
		cmd = append(cmd, bson.E{Key: "validationAction", Value: mm.config.ValidationAction})
	}
	if err := mm.db.RunCommand(ctx, cmd).Err(); err != nil {
		return fmt.Errorf("update validator of %s: %w", name, err)
	}
	mm.logger.Debug("Collection validator updated", "collection", name)
	return nil
}

func (mm *MigrationManager) syncIndexes(ctx context.Context, coll *mongo.Collection, want []mongo.IndexModel) error {
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return err
	}
	var specs []struct {
		Name string `bson:"name"`
	}
	if err := cur.All(ctx, &specs); err != nil {
		return err
	}
	have := make(map[string]bool, len(specs))
	for _, s := range specs {
		have[s.Name] = true
	}

	wanted := make(map[string]bool, len(want))
	var missing []mongo.IndexModel
	for _, idx := range want {
		name := IndexName(idx)
		wanted[name] = true
		if name == "" || !have[name] {
			missing = append(missing, idx)
		}
	}
	if len(missing) > 0 {
		created, err := coll.Indexes().CreateMany(ctx, missing)
		if err != nil {
			return err
		}
		mm.logger.Info("Indexes created", "collection", coll.Name(), "indexes", strings.Join(created, ","))
	}

	if !mm.config.AllowIndexDrop {
		return nil
	}
	for name := range have {
		if name == "_id_" || wanted[name] {
			continue
		}
		if _, err := coll.Indexes().DropOne(ctx, name); err != nil {
			return err
		}
		mm.logger.Info("Index dropped", "collection", coll.Name(), "index", name)
	}
	return nil
}

// IndexName returns the explicit index name, or the name the server derives
// from the keys ("a_1_b_-1"). It is empty when the keys are not ordered.
func IndexName(idx mongo.IndexModel) string {
	if idx.Options != nil && idx.Options.Name != nil {
		return *idx.Options.Name
	}
	keys, ok := idx.Keys.(bson.D)
	if !ok {
		return ""
	}
	parts := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		parts = append(parts, k.Key, fmt.Sprint(k.Value))
	}
	return strings.Join(parts, "_")
}
