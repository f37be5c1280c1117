package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/corvelia/finrag/internal/core/domain"
	"github.com/corvelia/finrag/internal/core/ports"
)

// ExampleRepository stores the gold evaluation dataset and the verdicts
// produced by evaluation runs.
type ExampleRepository struct {
	db *sql.DB
}

func NewExampleRepository(db *sql.DB) *ExampleRepository {
	return &ExampleRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *ExampleRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/eval startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS eval_examples (
	id TEXT PRIMARY KEY,
	question TEXT NOT NULL,
	retrieved JSONB NOT NULL DEFAULT '[]'::jsonb,
	answer TEXT NOT NULL DEFAULT '',
	gold_chunk_ids JSONB NOT NULL DEFAULT '[]'::jsonb,
	answerable BOOLEAN NOT NULL DEFAULT TRUE,
	reference_answer TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS eval_verdicts (
	run_id TEXT NOT NULL,
	example_id TEXT NOT NULL REFERENCES eval_examples(id),
	key TEXT NOT NULL,
	score DOUBLE PRECISION,
	comment TEXT NOT NULL DEFAULT '',
	extra JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (run_id, example_id, key)
);

CREATE INDEX IF NOT EXISTS idx_eval_verdicts_run ON eval_verdicts(run_id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *ExampleRepository) InsertExample(ctx context.Context, example domain.EvaluationExample) error {
	retrievedJSON, err := json.Marshal(example.Retrieved)
	if err != nil {
		return fmt.Errorf("marshal retrieved: %w", err)
	}
	goldJSON, err := json.Marshal(example.GoldChunkIDs)
	if err != nil {
		return fmt.Errorf("marshal gold chunk ids: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO eval_examples (id, question, retrieved, answer, gold_chunk_ids, answerable, reference_answer)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id) DO UPDATE SET
	question = EXCLUDED.question,
	retrieved = EXCLUDED.retrieved,
	answer = EXCLUDED.answer,
	gold_chunk_ids = EXCLUDED.gold_chunk_ids,
	answerable = EXCLUDED.answerable,
	reference_answer = EXCLUDED.reference_answer
`,
		example.ID, example.Question, retrievedJSON, example.Answer, goldJSON,
		example.Answerable, example.ReferenceAnswer,
	)
	if err != nil {
		return fmt.Errorf("insert example: %w", err)
	}
	return nil
}

func (r *ExampleRepository) ListExamples(ctx context.Context) ([]domain.EvaluationExample, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, question, retrieved, answer, gold_chunk_ids, answerable, reference_answer
FROM eval_examples
ORDER BY id
`)
	if err != nil {
		return nil, fmt.Errorf("query examples: %w", err)
	}
	defer rows.Close()

	var out []domain.EvaluationExample
	for rows.Next() {
		var example domain.EvaluationExample
		var retrievedRaw, goldRaw []byte
		if err := rows.Scan(
			&example.ID, &example.Question, &retrievedRaw, &example.Answer,
			&goldRaw, &example.Answerable, &example.ReferenceAnswer,
		); err != nil {
			return nil, fmt.Errorf("scan example: %w", err)
		}
		if err := json.Unmarshal(retrievedRaw, &example.Retrieved); err != nil {
			return nil, fmt.Errorf("unmarshal retrieved for %s: %w", example.ID, err)
		}
		if err := json.Unmarshal(goldRaw, &example.GoldChunkIDs); err != nil {
			return nil, fmt.Errorf("unmarshal gold chunk ids for %s: %w", example.ID, err)
		}
		out = append(out, example)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate examples: %w", err)
	}
	return out, nil
}

func (r *ExampleRepository) SaveVerdicts(ctx context.Context, runID, exampleID string, verdicts []domain.JudgeVerdict) error {
	if len(verdicts) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin verdicts tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, verdict := range verdicts {
		var extraJSON any
		if verdict.Extra != nil {
			raw, err := json.Marshal(verdict.Extra)
			if err != nil {
				return fmt.Errorf("marshal verdict extra: %w", err)
			}
			extraJSON = raw
		}

		var score any
		if verdict.Score != nil {
			score = *verdict.Score
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO eval_verdicts (run_id, example_id, key, score, comment, extra)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (run_id, example_id, key) DO UPDATE SET
	score = EXCLUDED.score,
	comment = EXCLUDED.comment,
	extra = EXCLUDED.extra
`, runID, exampleID, verdict.Key, score, verdict.Comment, extraJSON); err != nil {
			return fmt.Errorf("insert verdict %s: %w", verdict.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit verdicts tx: %w", err)
	}
	return nil
}

var _ ports.ExampleStore = (*ExampleRepository)(nil)
