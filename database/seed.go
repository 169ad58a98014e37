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
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/yaml.v3"
)

// SeedManager loads seed files and inserts their documents. Files live in
// <root>/common and <root>/environments/<env> and are named
// NNN_<collection>.json|yaml|yml; JSON is MongoDB Extended JSON. Both formats
// hold a single document or a list of documents, and are run through
// text/template with the environment variables plus ENVIRONMENT and TIMESTAMP.
type SeedManager struct {
	db          *mongo.Database
	environment string
	rootPath    string
	logger      Logger
}

// SeedFileInfo describes a seed file to be loaded during initialization.
type SeedFileInfo struct {
	Path        string
	Name        string
	Collection  string
	Order       int
	Environment string
	ModTime     time.Time
}

// ExecutionResult contains the outcome of loading a single seed file.
type ExecutionResult struct {
	File     string
	Success  bool
	Error    error
	Duration time.Duration
	Inserted int64
	Skipped  int64
}

var seedFilePattern = regexp.MustCompile(`^(?:(\d+)_)?(.+)\.(json|ya?ml)$`)

// NewSeedManager creates a seed loader for cfg.Environment rooted at cfg.Filepath.
func NewSeedManager(db *mongo.Database, cfg DataInitConfig, logger Logger) *SeedManager {
	if logger == nil {
		logger = GetLogger()
	}
	s := &SeedManager{db: db, environment: cfg.Environment, rootPath: cfg.Filepath, logger: logger}
	if s.rootPath == "" {
		s.rootPath = "data"
	}
	if s.environment == "" {
		s.environment = "dev"
	}
	return s
}

// SetRootPath sets the root directory from which seed files are loaded.
func (s *SeedManager) SetRootPath(path string) {
	s.rootPath = path
}

// InitData loads every seed file, common files first, each group by order.
func (s *SeedManager) InitData(ctx context.Context) error {
	_, err := s.ExecuteInitialization(ctx)
	return err
}

// ExecuteInitialization is InitData returning the per-file results. It stops
// at the first failing file.
func (s *SeedManager) ExecuteInitialization(ctx context.Context) ([]ExecutionResult, error) {
	s.logger.Info("Starting data initialization", "environment", s.environment, "path", s.rootPath)

	files, err := s.GetSeedFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to get seed files: %w", err)
	}
	if len(files) == 0 {
		s.logger.Info("No seed files found to load")
		return nil, nil
	}

	results := make([]ExecutionResult, 0, len(files))
	for _, file := range files {
		result := s.loadFile(ctx, file)
		results = append(results, result)
		if !result.Success {
			s.logger.Error("Seed file failed", "file", result.File, "error", result.Error)
			return results, fmt.Errorf("seed file %s failed: %w", result.File, result.Error)
		}
		s.logger.Info("Seed file loaded", "file", result.File, "collection", file.Collection,
			"inserted", result.Inserted, "skipped", result.Skipped, "duration", result.Duration)
	}

	s.logger.Info("Data initialization completed", "total_files", len(results), "environment", s.environment)
	return results, nil
}

// GetSeedFiles returns the seed files from the common and environment dirs.
func (s *SeedManager) GetSeedFiles() ([]SeedFileInfo, error) {
	var files []SeedFileInfo

	common, err := s.filesFromDir(filepath.Join(s.rootPath, "common"), "common")
	if err != nil {
		return nil, fmt.Errorf("failed to get common seed files: %w", err)
	}
	files = append(files, common...)

	envFiles, err := s.filesFromDir(filepath.Join(s.rootPath, "environments", s.environment), s.environment)
	if err != nil {
		return nil, fmt.Errorf("failed to get environment seed files: %w", err)
	}
	files = append(files, envFiles...)

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].Environment != files[j].Environment {
			return files[i].Environment == "common"
		}
		if files[i].Order != files[j].Order {
			return files[i].Order < files[j].Order
		}
		return files[i].Name < files[j].Name
	})
	return files, nil
}

func (s *SeedManager) filesFromDir(dir, environment string) ([]SeedFileInfo, error) {
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	var files []SeedFileInfo
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		m := seedFilePattern.FindStringSubmatch(strings.ToLower(d.Name()))
		if m == nil {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		order := 999
		if m[1] != "" {
			order, _ = strconv.Atoi(m[1])
		}
		// keep the collection's original case
		name := strings.TrimSuffix(d.Name(), filepath.Ext(d.Name()))
		if m[1] != "" {
			name = name[len(m[1])+1:]
		}
		files = append(files, SeedFileInfo{
			Path:        path,
			Name:        d.Name(),
			Collection:  name,
			Order:       order,
			Environment: environment,
			ModTime:     info.ModTime(),
		})
		return nil
	})
	return files, err
}

func (s *SeedManager) loadFile(ctx context.Context, file SeedFileInfo) ExecutionResult {
	start := time.Now()
	result := ExecutionResult{File: file.Path}
	defer func() { result.Duration = time.Since(start) }()

	content, err := os.ReadFile(file.Path)
	if err != nil {
		result.Error = fmt.Errorf("failed to read file: %w", err)
		return result
	}
	content, err = s.replaceEnvVariables(content)
	if err != nil {
		result.Error = err
		return result
	}
	docs, err := ParseSeedDocuments(filepath.Ext(file.Path), content)
	if err != nil {
		result.Error = err
		return result
	}
	if len(docs) == 0 {
		result.Success = true
		return result
	}

	result.Inserted, result.Skipped, result.Error = insertIgnoringDuplicates(ctx, s.db.Collection(file.Collection), docs)
	result.Success = result.Error == nil
	result.Duration = time.Since(start)
	return result
}

// insertIgnoringDuplicates inserts docs unordered. Documents whose _id already
// exists are counted as skipped, so seeds with fixed ids can be rerun.
func insertIgnoringDuplicates(ctx context.Context, coll *mongo.Collection, docs []any) (inserted, skipped int64, err error) {
	_, err = coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err == nil {
		return int64(len(docs)), 0, nil
	}
	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) || bwe.WriteConcernError != nil {
		return 0, 0, err
	}
	for _, we := range bwe.WriteErrors {
		if !isDuplicateKeyCode(we.Code) {
			return 0, 0, err
		}
	}
	skipped = int64(len(bwe.WriteErrors))
	return int64(len(docs)) - skipped, skipped, nil
}

func isDuplicateKeyCode(code int) bool {
	return code == 11000 || code == 11001 || code == 12582
}

// ParseSeedDocuments decodes seed content by file extension.
func ParseSeedDocuments(ext string, content []byte) ([]any, error) {
	trimmed := bytes.TrimSpace(content)
	if len(trimmed) == 0 {
		return nil, nil
	}
	switch strings.ToLower(ext) {
	case ".json":
		if trimmed[0] == '[' {
			var wrapped struct {
				Docs []bson.M `bson:"docs"`
			}
			doc := append(append([]byte(`{"docs":`), trimmed...), '}')
			if err := bson.UnmarshalExtJSON(doc, false, &wrapped); err != nil {
				return nil, fmt.Errorf("parse extended json: %w", err)
			}
			return toAnySlice(wrapped.Docs), nil
		}
		var one bson.M
		if err := bson.UnmarshalExtJSON(trimmed, false, &one); err != nil {
			return nil, fmt.Errorf("parse extended json: %w", err)
		}
		return []any{one}, nil
	case ".yaml", ".yml":
		var node any
		if err := yaml.Unmarshal(trimmed, &node); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
		switch v := node.(type) {
		case []any:
			for i, d := range v {
				if _, ok := d.(map[string]any); !ok {
					return nil, fmt.Errorf("parse yaml: item %d is not a document", i)
				}
			}
			return v, nil
		case map[string]any:
			return []any{v}, nil
		}
		return nil, fmt.Errorf("parse yaml: expected a document or a list of documents")
	}
	return nil, fmt.Errorf("unsupported seed file extension %q", ext)
}

func toAnySlice(docs []bson.M) []any {
	out := make([]any, len(docs))
	for i, d := range docs {
		out[i] = d
	}
	return out
}

func (s *SeedManager) replaceEnvVariables(content []byte) ([]byte, error) {
	tmpl, err := template.New("seed").Option("missingkey=zero").Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	vars := make(map[string]string)
	for _, env := range os.Environ() {
		if k, v, ok := strings.Cut(env, "="); ok {
			vars[k] = v
		}
	}
	vars["ENVIRONMENT"] = s.environment
	vars["TIMESTAMP"] = time.Now().Format("2006-01-02 15:04:05")

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return nil, fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.Bytes(), nil
}
