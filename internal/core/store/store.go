// Package store persists the subsidy catalogue, eligibility rule sets and
// match run history, and assembles the per-business dataset the rule engine
// evaluates against.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/agrimatch/agrimatch/internal/core/db"
	"github.com/agrimatch/agrimatch/internal/types"
)

// Store wraps the named-query layer with domain-shaped operations.
type Store struct {
	q *db.Queries
}

// New creates a Store over a loaded query set.
func New(q *db.Queries) *Store {
	return &Store{q: q}
}

// Ping verifies database connectivity, for health checks.
func (s *Store) Ping() error {
	return s.q.DB().Ping()
}

// Subsidy is a catalogue entry. Rule sets are stored separately, keyed by
// subsidy id, and replaced wholesale on update.
type Subsidy struct {
	ID          string `db:"id" json:"id"`
	Code        string `db:"code" json:"code"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description"`
	CreatedAt   string `db:"created_at" json:"created_at"`
	UpdatedAt   string `db:"updated_at" json:"updated_at"`
}

// MatchRun is a persisted evaluation of one business against the catalogue.
type MatchRun struct {
	ID         string      `db:"id" json:"run_id"`
	BusinessID string      `db:"business_id" json:"business_id"`
	CreatedAt  string      `db:"created_at" json:"created_at"`
	Items      []MatchItem `json:"items"`
}

// MatchItem is the outcome for a single subsidy within a run.
type MatchItem struct {
	SubsidyCode string             `json:"subsidy_code"`
	Passed      bool               `json:"passed"`
	Score       float64            `json:"score"`
	Details     []types.RuleDetail `json:"details"`
}

// ruleRow mirrors the eligibility_rule table. Optional rule attributes are
// nullable so stored rules round-trip without inventing defaults.
type ruleRow struct {
	SubsidyID   string   `db:"subsidy_id"`
	SubsidyCode string   `db:"subsidy_code"`
	Position    int      `db:"position"`
	Field       string   `db:"field"`
	Op          string   `db:"op"`
	ValueJSON   string   `db:"value_json"`
	Aggregate   string   `db:"aggregate"`
	Weight      *float64 `db:"weight"`
	Threshold   *float64 `db:"threshold"`
	MinCount    *int     `db:"min_count"`
	Required    *int     `db:"required"`
}

// UpsertSubsidy inserts or updates a catalogue entry and returns it.
func (s *Store) UpsertSubsidy(code, name, description string) (Subsidy, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	id := types.NewSubsidyID()

	if _, err := s.q.Exec("upsert-subsidy", string(id), code, name, description, now, now); err != nil {
		return Subsidy{}, fmt.Errorf("failed to upsert subsidy %s: %w", code, err)
	}

	return s.SubsidyByCode(code)
}

// SubsidyByCode looks up one catalogue entry.
func (s *Store) SubsidyByCode(code string) (Subsidy, error) {
	var sub Subsidy
	if err := s.q.Get("get-subsidy-by-code", &sub, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Subsidy{}, types.ErrSubsidyNotFound
		}
		return Subsidy{}, fmt.Errorf("failed to get subsidy %s: %w", code, err)
	}
	return sub, nil
}

// ListSubsidies returns the catalogue ordered by code.
func (s *Store) ListSubsidies() ([]Subsidy, error) {
	subsidies := []Subsidy{}
	if err := s.q.Select("list-subsidies", &subsidies); err != nil {
		return nil, fmt.Errorf("failed to list subsidies: %w", err)
	}
	return subsidies, nil
}

// SaveRuleSet replaces the stored rule set for a subsidy. Delete and
// re-insert run in one transaction so readers never observe a partial set.
func (s *Store) SaveRuleSet(code string, rs types.RuleSet) error {
	sub, err := s.SubsidyByCode(code)
	if err != nil {
		return err
	}

	deleteSQL, err := s.q.Raw("delete-eligibility-rules")
	if err != nil {
		return err
	}
	insertSQL, err := s.q.Raw("insert-eligibility-rule")
	if err != nil {
		return err
	}

	tx, err := s.q.DB().Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := tx.Exec(deleteSQL, sub.ID); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete rules for %s: %w", code, err)
	}

	for i, rule := range rs.All {
		valueJSON, err := json.Marshal(rule.Value)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to encode rule value: %w", err)
		}

		var required *int
		if rule.Required != nil {
			v := 0
			if *rule.Required {
				v = 1
			}
			required = &v
		}

		if _, err := tx.Exec(insertSQL,
			sub.ID, i, rule.Field, rule.Op, string(valueJSON), rule.Aggregate,
			rule.Weight, rule.Threshold, rule.Min, required,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert rule %d for %s: %w", i, code, err)
		}
	}

	return tx.Commit()
}

// RuleSet returns the stored rule set for one subsidy.
func (s *Store) RuleSet(code string) (types.RuleSet, error) {
	sub, err := s.SubsidyByCode(code)
	if err != nil {
		return types.RuleSet{}, err
	}

	rows := []ruleRow{}
	if err := s.q.Select("list-eligibility-rules", &rows, sub.ID); err != nil {
		return types.RuleSet{}, fmt.Errorf("failed to list rules for %s: %w", code, err)
	}

	return rowsToRuleSet(rows)
}

// RuleSets returns every stored rule set keyed by subsidy code. Subsidies
// without rules map to an empty rule set, which evaluates as eligible.
func (s *Store) RuleSets() (map[string]types.RuleSet, error) {
	subsidies, err := s.ListSubsidies()
	if err != nil {
		return nil, err
	}

	rows := []ruleRow{}
	if err := s.q.Select("list-all-eligibility-rules", &rows); err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}

	byCode := make(map[string][]ruleRow)
	for _, r := range rows {
		byCode[r.SubsidyCode] = append(byCode[r.SubsidyCode], r)
	}

	out := make(map[string]types.RuleSet, len(subsidies))
	for _, sub := range subsidies {
		rs, err := rowsToRuleSet(byCode[sub.Code])
		if err != nil {
			return nil, fmt.Errorf("subsidy %s: %w", sub.Code, err)
		}
		out[sub.Code] = rs
	}

	return out, nil
}

func rowsToRuleSet(rows []ruleRow) (types.RuleSet, error) {
	rs := types.RuleSet{All: []types.Rule{}}
	for _, r := range rows {
		var value any
		if err := json.Unmarshal([]byte(r.ValueJSON), &value); err != nil {
			return types.RuleSet{}, fmt.Errorf("failed to decode rule value at position %d: %w", r.Position, err)
		}

		var required *bool
		if r.Required != nil {
			v := *r.Required != 0
			required = &v
		}

		rs.All = append(rs.All, types.Rule{
			Field:     r.Field,
			Op:        r.Op,
			Value:     value,
			Aggregate: r.Aggregate,
			Weight:    r.Weight,
			Threshold: r.Threshold,
			Min:       r.MinCount,
			Required:  required,
		})
	}
	return rs, nil
}

// datasetQueries maps collection names to their named queries. Column names
// become record field names, so the engine's field paths address them
// directly (e.g. "field.crop", "finance.annual_revenue").
var datasetQueries = map[string]string{
	"users":   "list-users-by-business",
	"field":   "list-fields-by-business",
	"cattle":  "list-cattle-by-business",
	"finance": "list-finance-by-business",
}

// LoadDataset assembles all collections for one business. Collections with
// no rows are present and empty, which the engine treats as such rather
// than as an error.
func (s *Store) LoadDataset(businessID string) (types.Dataset, error) {
	dataset := make(types.Dataset, len(datasetQueries))

	for collection, query := range datasetQueries {
		records, err := s.loadCollection(query, businessID)
		if err != nil {
			return nil, fmt.Errorf("failed to load collection %s: %w", collection, err)
		}
		dataset[collection] = records
	}

	return dataset, nil
}

func (s *Store) loadCollection(query, businessID string) ([]types.Record, error) {
	rows, err := s.q.Queryx(query, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []types.Record{}
	for rows.Next() {
		m := map[string]interface{}{}
		if err := rows.MapScan(m); err != nil {
			return nil, err
		}

		rec := make(types.Record, len(m))
		for k, v := range m {
			// Drivers hand back TEXT columns as []byte.
			if b, ok := v.([]byte); ok {
				rec[k] = string(b)
			} else {
				rec[k] = v
			}
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// CreateMatchRun persists a run and its per-subsidy outcomes atomically.
// created_at is the timestamp embedded in the UUIDv7 run ID, so the stored
// column and the ID can never disagree about when the run happened.
func (s *Store) CreateMatchRun(businessID string, items []MatchItem) (MatchRun, error) {
	runID := types.NewMatchRunID()
	now := types.MatchRunTime(runID).UTC().Format(time.RFC3339)

	insertRunSQL, err := s.q.Raw("insert-match-run")
	if err != nil {
		return MatchRun{}, err
	}
	insertItemSQL, err := s.q.Raw("insert-match-item")
	if err != nil {
		return MatchRun{}, err
	}

	tx, err := s.q.DB().Beginx()
	if err != nil {
		return MatchRun{}, fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := tx.Exec(insertRunSQL, string(runID), businessID, now); err != nil {
		tx.Rollback()
		return MatchRun{}, fmt.Errorf("failed to insert match run: %w", err)
	}

	for _, item := range items {
		detailsJSON, err := json.Marshal(item.Details)
		if err != nil {
			tx.Rollback()
			return MatchRun{}, fmt.Errorf("failed to encode details for %s: %w", item.SubsidyCode, err)
		}

		passed := 0
		if item.Passed {
			passed = 1
		}

		if _, err := tx.Exec(insertItemSQL, string(runID), item.SubsidyCode, passed, item.Score, string(detailsJSON)); err != nil {
			tx.Rollback()
			return MatchRun{}, fmt.Errorf("failed to insert match item %s: %w", item.SubsidyCode, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return MatchRun{}, err
	}

	return MatchRun{ID: string(runID), BusinessID: businessID, CreatedAt: now, Items: items}, nil
}

// GetMatchRun loads a run and its items, ranked passed-first then by score.
func (s *Store) GetMatchRun(runID string) (MatchRun, error) {
	var run MatchRun
	if err := s.q.Get("get-match-run", &run, runID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return MatchRun{}, types.ErrMatchRunNotFound
		}
		return MatchRun{}, fmt.Errorf("failed to get match run %s: %w", runID, err)
	}

	type itemRow struct {
		RunID       string  `db:"run_id"`
		SubsidyCode string  `db:"subsidy_code"`
		Passed      int     `db:"passed"`
		Score       float64 `db:"score"`
		DetailsJSON string  `db:"details_json"`
	}

	rows := []itemRow{}
	if err := s.q.Select("list-match-items", &rows, runID); err != nil {
		return MatchRun{}, fmt.Errorf("failed to list match items for %s: %w", runID, err)
	}

	run.Items = make([]MatchItem, 0, len(rows))
	for _, r := range rows {
		details := []types.RuleDetail{}
		if err := json.Unmarshal([]byte(r.DetailsJSON), &details); err != nil {
			return MatchRun{}, fmt.Errorf("failed to decode details for %s: %w", r.SubsidyCode, err)
		}
		run.Items = append(run.Items, MatchItem{
			SubsidyCode: r.SubsidyCode,
			Passed:      r.Passed != 0,
			Score:       r.Score,
			Details:     details,
		})
	}

	return run, nil
}

// APIKey is a stored credential record, looked up by HMAC hash.
type APIKey struct {
	KeyHash    string  `db:"key_hash"`
	SecretID   string  `db:"secret_id"`
	Name       string  `db:"name"`
	CreatedAt  string  `db:"created_at"`
	LastUsedAt *string `db:"last_used_at"`
	Revoked    int     `db:"revoked"`
}

// GetAPIKeyByHash returns the key record for a computed hash, if any.
func (s *Store) GetAPIKeyByHash(keyHash string) (*APIKey, error) {
	var key APIKey
	if err := s.q.Get("get-api-key-by-hash", &key, keyHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up api key: %w", err)
	}
	return &key, nil
}

// InsertAPIKey stores a new credential hash.
func (s *Store) InsertAPIKey(keyHash, secretID, name string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := s.q.Exec("insert-api-key", keyHash, secretID, name, now); err != nil {
		return fmt.Errorf("failed to insert api key: %w", err)
	}
	return nil
}

// RevokeAPIKey marks a credential as revoked; it keeps authenticating
// record lookups but every authentication attempt is refused.
func (s *Store) RevokeAPIKey(keyHash string) error {
	res, err := s.q.Exec("revoke-api-key", keyHash)
	if err != nil {
		return fmt.Errorf("failed to revoke api key: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("no api key found for hash")
	}
	return nil
}

// TouchAPIKey records when a key last authenticated. Best effort; callers
// log rather than fail the request on error.
func (s *Store) TouchAPIKey(keyHash string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.q.Exec("update-api-key-last-used", now, keyHash)
	return err
}
