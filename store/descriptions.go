// Package store persists generation results in the scribe database.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/teranos/scribe/errors"
	"github.com/teranos/scribe/pulse/generate"
)

// Description is one stored generation result
type Description struct {
	ID              int64           `json:"id"`
	ItemID          string          `json:"item_id"`
	Description     string          `json:"description"`
	SuggestedName   string          `json:"suggested_name,omitempty"`
	ConfidenceScore float64         `json:"confidence_score"`
	ModelUsed       string          `json:"model_used,omitempty"`
	PromptVersion   string          `json:"prompt_version,omitempty"`
	Payload         generate.Result `json:"payload"`
	CreatedAt       time.Time       `json:"created_at"`
}

// DescriptionStore saves results into ai_descriptions. It is the engine's
// Sink and the catalog's source of already generated table descriptions.
type DescriptionStore struct {
	db            *sql.DB
	promptVersion string
	now           func() time.Time
}

// NewDescriptionStore creates a store that tags rows with promptVersion
func NewDescriptionStore(db *sql.DB, promptVersion string) *DescriptionStore {
	return &DescriptionStore{db: db, promptVersion: promptVersion, now: time.Now}
}

// Save implements generate.Sink. Every save appends a row; the newest row
// for an item is its current description.
func (s *DescriptionStore) Save(ctx context.Context, itemID string, result generate.Result) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return generate.Permanent(errors.Wrapf(err, "failed to encode result for %s", itemID))
	}

	query := `
		INSERT INTO ai_descriptions (
			item_id, description, suggested_name, confidence_score,
			model_used, prompt_version, payload, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		itemID,
		nullString(result, "description"),
		nullString(result, "suggested_name"),
		nullFloat(result, "confidence_score"),
		nullString(result, "model_used"),
		sql.NullString{String: s.promptVersion, Valid: s.promptVersion != ""},
		string(payload),
		s.now().UTC(),
	)
	if err != nil {
		return errors.Wrapf(err, "failed to save description for %s", itemID)
	}
	return nil
}

const descriptionColumns = `id, item_id, description, suggested_name, confidence_score, model_used, prompt_version, payload, created_at`

// Latest returns the newest description of an item
func (s *DescriptionStore) Latest(ctx context.Context, itemID string) (*Description, error) {
	query := `SELECT ` + descriptionColumns + ` FROM ai_descriptions WHERE item_id = ? ORDER BY id DESC LIMIT 1`

	d, err := scanDescription(s.db.QueryRowContext(ctx, query, itemID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFoundError("no description for %s", itemID)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get description for %s", itemID)
	}
	return d, nil
}

// Description implements catalog.DescriptionSource
func (s *DescriptionStore) Description(ctx context.Context, itemID string) (string, bool, error) {
	d, err := s.Latest(ctx, itemID)
	if errors.IsNotFoundError(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return d.Description, d.Description != "", nil
}

// List returns every stored description, oldest first
func (s *DescriptionStore) List(ctx context.Context) ([]*Description, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+descriptionColumns+` FROM ai_descriptions ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list descriptions")
	}
	defer rows.Close()

	var out []*Description
	for rows.Next() {
		d, err := scanDescription(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan description")
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate descriptions")
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanDescription(row scanner) (*Description, error) {
	var (
		d             Description
		description   sql.NullString
		suggestedName sql.NullString
		confidence    sql.NullFloat64
		modelUsed     sql.NullString
		promptVersion sql.NullString
		payload       string
	)
	if err := row.Scan(&d.ID, &d.ItemID, &description, &suggestedName, &confidence,
		&modelUsed, &promptVersion, &payload, &d.CreatedAt); err != nil {
		return nil, err
	}
	d.Description = description.String
	d.SuggestedName = suggestedName.String
	d.ConfidenceScore = confidence.Float64
	d.ModelUsed = modelUsed.String
	d.PromptVersion = promptVersion.String
	if err := json.Unmarshal([]byte(payload), &d.Payload); err != nil {
		return nil, errors.Wrapf(err, "corrupt payload for description %d", d.ID)
	}
	return &d, nil
}

func nullString(r generate.Result, key string) sql.NullString {
	s, ok := r[key].(string)
	return sql.NullString{String: s, Valid: ok}
}

func nullFloat(r generate.Result, key string) sql.NullFloat64 {
	switch v := r[key].(type) {
	case float64:
		return sql.NullFloat64{Float64: v, Valid: true}
	case float32:
		return sql.NullFloat64{Float64: float64(v), Valid: true}
	case int:
		return sql.NullFloat64{Float64: float64(v), Valid: true}
	default:
		return sql.NullFloat64{}
	}
}
