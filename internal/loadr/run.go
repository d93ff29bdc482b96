package loadr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/vaibhaw-/QueryGate/internal/querygate/logger"
)

// Op kinds.
const (
	OpSelect    = "select"
	OpExport    = "export"
	OpDangerous = "dangerous"
	OpInvalid   = "invalid"
)

// Outcome classes reported in Stats.
const (
	OutcomeOK          = "ok"
	OutcomeRejected    = "rejected"
	OutcomeSQLError    = "sql_error"
	OutcomeRateLimited = "rate_limited"
	OutcomeFailed      = "failed"
)

// subjectHeader mirrors server.SubjectHeader.
const subjectHeader = "X-QueryGate-Subject"

// Op is one generated gateway request.
type Op struct {
	Kind   string
	Query  string
	Format string
}

// Stats counts outcomes per class and ops per kind.
type Stats struct {
	Outcomes map[string]int `json:"outcomes"`
	Kinds    map[string]int `json:"kinds"`
}

// GenerateOps builds cfg.TotalOps operations. A fixed seed yields the
// same sequence.
func GenerateOps(cfg RunConfig) []Op {
	f := gofakeit.New(uint64(cfg.Seed))
	ops := make([]Op, 0, cfg.TotalOps)
	for i := 0; i < cfg.TotalOps; i++ {
		ops = append(ops, generateOp(f, cfg, i))
	}
	return ops
}

func pickOpKind(f *gofakeit.Faker, cfg RunConfig) string {
	p := f.Float64()
	m := cfg.Mix
	switch {
	case p < m.Select:
		return OpSelect
	case p < m.Select+m.Export:
		return OpExport
	case p < m.Select+m.Export+m.Dangerous:
		return OpDangerous
	default:
		return OpInvalid
	}
}

func generateOp(f *gofakeit.Faker, cfg RunConfig, seq int) Op {
	kind := pickOpKind(f, cfg)
	op := Op{Kind: kind}
	switch kind {
	case OpSelect:
		op.Query = selectQuery(f)
	case OpExport:
		op.Query = selectQuery(f)
		op.Format = pick(f, ExportFormats)
	case OpDangerous:
		op.Query = dangerousQuery(f)
	default:
		op.Query = fmt.Sprintf("SELECT * FROM missing_%s LIMIT 5", strings.ToLower(f.LetterN(6)))
	}
	if cfg.RunID != "" && kind != OpDangerous {
		op.Query += fmt.Sprintf(" /* run_id=%s op=%d */", cfg.RunID, seq)
	}
	return op
}

func selectQuery(f *gofakeit.Faker) string {
	switch f.Number(0, 3) {
	case 0:
		return fmt.Sprintf("SELECT customer_id, name, email FROM customers WHERE city = '%s' LIMIT %d",
			sqlEscape(f.City()), f.Number(5, 50))
	case 1:
		return fmt.Sprintf("SELECT product_id, name, price FROM products WHERE category = '%s' AND price < %d ORDER BY price",
			pick(f, Categories), f.Number(20, 400))
	case 2:
		return fmt.Sprintf("SELECT status, COUNT(*) AS n FROM orders WHERE status = '%s' GROUP BY status",
			pick(f, OrderStatuses))
	default:
		return fmt.Sprintf(`WITH recent AS (SELECT customer_id, quantity FROM orders WHERE quantity >= %d)
SELECT c.name, SUM(r.quantity) AS units FROM recent r JOIN customers c ON c.customer_id = r.customer_id GROUP BY c.name ORDER BY units DESC LIMIT 10`,
			f.Number(1, 4))
	}
}

func dangerousQuery(f *gofakeit.Faker) string {
	table := pick(f, FixtureTables)
	switch f.Number(0, 3) {
	case 0:
		return fmt.Sprintf("SELECT 1; DROP TABLE %s;", table)
	case 1:
		return fmt.Sprintf("DELETE FROM %s", table)
	case 2:
		return fmt.Sprintf("UPDATE %s SET name = 'x'", table)
	default:
		return fmt.Sprintf("TRUNCATE %s", table)
	}
}

// Run drives the workload against cfg.Gateway with cfg.Concurrency
// workers and returns the outcome counts.
func Run(ctx context.Context, cfg RunConfig, client *http.Client) (Stats, error) {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	base := strings.TrimRight(cfg.Gateway, "/")

	logger.L().Infow("loadr: starting run",
		"run_id", cfg.RunID,
		"gateway", base,
		"ops", cfg.TotalOps,
		"concurrency", cfg.Concurrency,
		"seed", cfg.Seed)

	ops := GenerateOps(cfg)
	opsCh := make(chan Op, len(ops))
	for _, op := range ops {
		opsCh <- op
	}
	close(opsCh)

	stats := Stats{Outcomes: map[string]int{}, Kinds: map[string]int{}}
	var statsMu sync.Mutex
	var wg sync.WaitGroup

	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for op := range opsCh {
				if ctx.Err() != nil {
					return
				}
				outcome, err := send(ctx, client, base, cfg.Subject, op)
				if err != nil {
					logger.L().Debugw("loadr: request failed", "worker", workerID, "kind", op.Kind, "error", err)
				}
				statsMu.Lock()
				stats.Outcomes[outcome]++
				stats.Kinds[op.Kind]++
				statsMu.Unlock()
			}
			logger.L().Debugw("loadr: worker finished", "worker", workerID)
		}(w)
	}
	wg.Wait()

	logger.L().Infow("loadr: run complete",
		"ok", stats.Outcomes[OutcomeOK],
		"rejected", stats.Outcomes[OutcomeRejected],
		"sql_error", stats.Outcomes[OutcomeSQLError],
		"rate_limited", stats.Outcomes[OutcomeRateLimited],
		"failed", stats.Outcomes[OutcomeFailed])
	return stats, ctx.Err()
}

type errorBody struct {
	Message string `json:"message"`
}

// send posts one op and classifies the response.
func send(ctx context.Context, client *http.Client, base, subject string, op Op) (string, error) {
	path := "/api/query/execute"
	payload := map[string]string{"query": op.Query}
	if op.Kind == OpExport {
		path = "/api/query/export"
		payload["format"] = op.Format
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return OutcomeFailed, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, base+path, bytes.NewReader(body))
	if err != nil {
		return OutcomeFailed, err
	}
	req.Header.Set("Content-Type", "application/json")
	if subject != "" {
		req.Header.Set(subjectHeader, subject)
	}

	resp, err := client.Do(req)
	if err != nil {
		return OutcomeFailed, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		_, _ = io.Copy(io.Discard, resp.Body)
		return OutcomeOK, nil
	case http.StatusTooManyRequests:
		return OutcomeRateLimited, nil
	case http.StatusBadRequest:
		var eb errorBody
		if err := json.NewDecoder(resp.Body).Decode(&eb); err != nil {
			return OutcomeFailed, fmt.Errorf("decode error body: %w", err)
		}
		if strings.HasPrefix(eb.Message, "invalid query") {
			return OutcomeRejected, nil
		}
		return OutcomeSQLError, nil
	default:
		return OutcomeFailed, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
}
