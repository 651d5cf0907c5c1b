package integration

import (
	"context"
	"log"
	"os"
	"testing"

	"archelon-assistant-be/internal/constant"
	"archelon-assistant-be/internal/entity"
	"archelon-assistant-be/internal/repository/specification"
	"archelon-assistant-be/internal/repository/unitofwork"
	"archelon-assistant-be/pkg/database"
	"archelon-assistant-be/pkg/rag/history"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
)

func TestGormConnection(t *testing.T) {
	// Load .env from root
	err := godotenv.Load("../../.env")
	if err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		t.Fatalf("Failed to connect to DB: %v", err)
	}

	// Verify Wiring
	uowFactory := unitofwork.NewRepositoryFactory(gormDB)
	uow := uowFactory.NewUnitOfWork(context.Background())

	assert.NotNil(t, uow.ChatSessionRepository())
	assert.NotNil(t, uow.ConversationTurnRepository())

	// Basic Ping
	sqlDB, _ := gormDB.DB()
	err = sqlDB.Ping()
	assert.NoError(t, err)
	t.Log("Successfully connected to DB and initialized UnitOfWork Factory")

	userId := uuid.New()
	sessionId := uuid.New()

	t.Run("Check Session Lifecycle", func(t *testing.T) {
		ctx := context.Background()
		session := &entity.ChatSession{
			Id:     sessionId,
			UserId: userId,
			Title:  "Integration Test Session " + uuid.New().String(),
		}
		err := uow.ChatSessionRepository().Create(ctx, session)
		assert.NoError(t, err)

		found, err := uow.ChatSessionRepository().FindOne(ctx,
			specification.ByID{ID: sessionId},
			specification.UserOwnedBy{UserID: userId},
		)
		assert.NoError(t, err)
		assert.NotNil(t, found)
		assert.Equal(t, session.Title, found.Title)

		// A different user must not see the session.
		stranger, err := uow.ChatSessionRepository().FindOne(ctx,
			specification.ByID{ID: sessionId},
			specification.UserOwnedBy{UserID: uuid.New()},
		)
		assert.NoError(t, err)
		assert.Nil(t, stranger)
	})

	t.Run("Check History Window Ordering", func(t *testing.T) {
		ctx := context.Background()
		loader := history.NewLoader(uowFactory, 4)

		err := loader.AppendExchange(ctx, userId, sessionId, "first question", "first answer")
		assert.NoError(t, err)
		err = loader.AppendExchange(ctx, userId, sessionId, "second question", "second answer")
		assert.NoError(t, err)
		err = loader.AppendExchange(ctx, userId, sessionId, "third question", "third answer")
		assert.NoError(t, err)

		// The window keeps only the most recent 4 of the 6 turns, in
		// chronological order.
		turns, err := loader.RecentTurns(ctx, userId, sessionId)
		assert.NoError(t, err)
		assert.Len(t, turns, 4)
		assert.Equal(t, "second question", turns[0].Content)
		assert.Equal(t, constant.TurnRoleUser, turns[0].Role)
		assert.Equal(t, "third answer", turns[3].Content)
		assert.Equal(t, constant.TurnRoleAssistant, turns[3].Role)

		messages, err := loader.RecentMessages(ctx, userId, sessionId)
		assert.NoError(t, err)
		assert.Len(t, messages, 4)
		assert.Equal(t, "assistant", messages[3].Role)
	})

	t.Run("Check Clear And Cleanup", func(t *testing.T) {
		ctx := context.Background()
		loader := history.NewLoader(uowFactory, 4)

		err := loader.Clear(ctx, userId, sessionId)
		assert.NoError(t, err)

		count, err := uow.ConversationTurnRepository().Count(ctx, userId, sessionId)
		assert.NoError(t, err)
		assert.Zero(t, count)

		err = uow.ChatSessionRepository().Delete(ctx, sessionId)
		assert.NoError(t, err)
	})
}
