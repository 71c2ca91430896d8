//go:build integration

package integration

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/welldanyogia/webrana-crm-intake/internal/ai"
	"github.com/welldanyogia/webrana-crm-intake/internal/commands"
	"github.com/welldanyogia/webrana-crm-intake/internal/crm"
	"github.com/welldanyogia/webrana-crm-intake/internal/database"
	"github.com/welldanyogia/webrana-crm-intake/internal/events"
	"github.com/welldanyogia/webrana-crm-intake/internal/intake"
	"github.com/welldanyogia/webrana-crm-intake/internal/normalizer"
	"github.com/welldanyogia/webrana-crm-intake/internal/repository"
	"gorm.io/gorm"
)

// analysisReply is a canned LLM answer with a mid confidence score so
// processed emails land in pending review.
const analysisReply = `{
  "summary": "Buyer asks for a quote for 50 seats.",
  "key_points": ["50 seats", "quote requested"],
  "intent": "inquiry",
  "entities": [{"type": "company", "value": "Acme", "confidence": 0.9}],
  "task_recommendations": [
    {"title": "Send quote", "description": "Prepare a 50 seat quote", "priority": "high", "due_date": "2026-11-01"}
  ],
  "deal_recommendations": [
    {"deal_stage": "proposal", "value": 5000, "notes": "50 seat opportunity"}
  ],
  "confidence": {"overall_score": 0.6, "reasoning": "Clear request, unknown budget"}
}`

// cannedAI answers every prompt with the same reply
type cannedAI struct {
	reply string
}

func (c cannedAI) Complete(_ context.Context, _, _ string) (string, error) {
	return c.reply, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startPostgres runs a disposable PostgreSQL container and returns a
// migrated connection. The container is terminated on test cleanup.
func startPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "crm_intake_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s port=%s user=test password=test dbname=crm_intake_test sslmode=disable", host, port.Port())
	db, err := database.Connect(dsn, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	require.NoError(t, database.Migrate(db))
	return db
}

// pipeline is the production object graph over a real database and a canned AI.
type pipeline struct {
	repo      repository.IntakeRepository
	processor *intake.ProcessInboundEmail
	submitter *intake.SubmitDecision
}

func newPipeline(db *gorm.DB) *pipeline {
	log := discardLogger()
	repo := repository.NewIntakeRepository(db)
	workItems := repository.NewWorkItemRepository(db)

	return &pipeline{
		repo: repo,
		processor: intake.NewProcessInboundEmail(&intake.ProcessInboundEmailConfig{
			Normalizer: normalizer.New(),
			CRM:        crm.NewProvider(repository.NewContactRepository(db)),
			Engine:     ai.NewEngine(cannedAI{reply: analysisReply}, log),
			Repository: repo,
			Publisher:  events.NewLogPublisher(log),
			Logger:     log,
		}),
		submitter: intake.NewSubmitDecision(&intake.SubmitDecisionConfig{
			Repository: repo,
			Tasks:      commands.NewTaskService(workItems, log),
			Deals:      commands.NewDealService(workItems, log),
			Publisher:  events.NewLogPublisher(log),
			Logger:     log,
		}),
	}
}
