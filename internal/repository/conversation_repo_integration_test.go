package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/nuno7lopes-collab/ORYA-WebApp-sub007/internal/models"
)

var (
	testDBOnce sync.Once
	testDBPool *pgxpool.Pool
	testDBErr  error
)

func TestConversationUpsertConvergesUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	repo := NewConversationRepository(pool)

	orgID := createTestOrganization(t, ctx, pool)
	customerID := createTestProfile(t, ctx, pool, "customer")
	professionalID := createTestProfile(t, ctx, pool, "professional")
	contextID := fmt.Sprintf("booking-%d", time.Now().UnixNano())
	t.Cleanup(func() { cleanupTestConversations(t, ctx, pool, orgID, customerID, professionalID) })

	members := []models.ConversationMember{
		{UserID: customerID, Role: models.MemberRoleMember, DisplayAs: models.DisplayAsOrganization},
		{UserID: professionalID, Role: models.MemberRoleMember, DisplayAs: models.DisplayAsProfessional, OrganizationID: &orgID},
		{UserID: "staff-itest", Role: models.MemberRoleAdmin, DisplayAs: models.DisplayAsOrganization, HiddenFromCustomer: true, OrganizationID: &orgID},
	}
	newConversation := func(title string) *models.Conversation {
		return &models.Conversation{
			OrganizationID:  orgID,
			Type:            models.ConversationTypeChannel,
			ContextType:     models.ContextTypeBooking,
			ContextID:       contextID,
			CustomerID:      customerID,
			ProfessionalID:  &professionalID,
			Title:           title,
			CreatedByUserID: "staff-itest",
		}
	}

	const writers = 4
	ids := make(chan int64, writers)
	errs := make(chan error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			detail, err := repo.CreateWithMembers(ctx, newConversation(fmt.Sprintf("writer %d", n)), members)
			if err != nil {
				errs <- err
				return
			}
			ids <- detail.ID
		}(i)
	}
	wg.Wait()
	close(ids)
	close(errs)

	for err := range errs {
		t.Fatalf("CreateWithMembers: %v", err)
	}

	var conversationID int64
	for id := range ids {
		if conversationID == 0 {
			conversationID = id
			continue
		}
		if id != conversationID {
			t.Fatalf("writers diverged: got conversations %d and %d", conversationID, id)
		}
	}

	var rowCount int
	err := pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM chat_conversations
		WHERE organization_id = $1 AND context_type = $2 AND context_id = $3 AND customer_id = $4
	`, orgID, models.ContextTypeBooking, contextID, customerID).Scan(&rowCount)
	if err != nil {
		t.Fatalf("count conversations: %v", err)
	}
	if rowCount != 1 {
		t.Fatalf("expected a single conversation row, got %d", rowCount)
	}

	var memberCount int
	if err := pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM chat_conversation_members WHERE conversation_id = $1",
		conversationID,
	).Scan(&memberCount); err != nil {
		t.Fatalf("count members: %v", err)
	}
	if memberCount != len(members) {
		t.Fatalf("expected %d member rows, got %d", len(members), memberCount)
	}
}

func TestConversationUpsertKeepsFirstTitle(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	repo := NewConversationRepository(pool)

	orgID := createTestOrganization(t, ctx, pool)
	customerID := createTestProfile(t, ctx, pool, "customer")
	contextID := fmt.Sprintf("booking-%d", time.Now().UnixNano())
	t.Cleanup(func() { cleanupTestConversations(t, ctx, pool, orgID, customerID) })

	members := []models.ConversationMember{
		{UserID: customerID, Role: models.MemberRoleMember, DisplayAs: models.DisplayAsOrganization},
	}
	conversation := func(title string) *models.Conversation {
		return &models.Conversation{
			OrganizationID:  orgID,
			Type:            models.ConversationTypeChannel,
			ContextType:     models.ContextTypeBooking,
			ContextID:       contextID,
			CustomerID:      customerID,
			Title:           title,
			CreatedByUserID: "staff-itest",
		}
	}

	first, err := repo.CreateWithMembers(ctx, conversation("Maria Silva"), members)
	if err != nil {
		t.Fatalf("first CreateWithMembers: %v", err)
	}
	second, err := repo.CreateWithMembers(ctx, conversation("someone else"), members)
	if err != nil {
		t.Fatalf("second CreateWithMembers: %v", err)
	}

	if second.ID != first.ID {
		t.Fatalf("expected reuse of conversation %d, got %d", first.ID, second.ID)
	}
	if second.Title != "Maria Silva" {
		t.Fatalf("expected original title to survive, got %q", second.Title)
	}

	found, err := repo.FindByBooking(ctx, orgID, contextID, customerID)
	if err != nil {
		t.Fatalf("FindByBooking: %v", err)
	}
	if found.ID != first.ID || len(found.Members) != 1 {
		t.Fatalf("unexpected lookup result %+v", found.Conversation)
	}
}

func integrationTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	testDBOnce.Do(func() {
		_ = godotenv.Load(".env")
		_ = godotenv.Load(filepath.Join("..", "..", ".env"))

		dbURL := os.Getenv("DB_URL")
		if dbURL == "" {
			testDBErr = fmt.Errorf("DB_URL is not set")
			return
		}

		cfg, err := pgxpool.ParseConfig(dbURL)
		if err != nil {
			testDBErr = err
			return
		}

		testDBPool, testDBErr = pgxpool.NewWithConfig(context.Background(), cfg)
		if testDBErr != nil {
			return
		}
		testDBErr = testDBPool.Ping(context.Background())
	})

	if testDBErr != nil {
		t.Skipf("skipping integration test: %v", testDBErr)
	}
	return testDBPool
}

func createTestOrganization(t *testing.T, ctx context.Context, pool *pgxpool.Pool) int64 {
	t.Helper()

	var id int64
	err := pool.QueryRow(ctx,
		"INSERT INTO organizations (public_name) VALUES ($1) RETURNING id",
		fmt.Sprintf("itest org %d", time.Now().UnixNano()),
	).Scan(&id)
	if err != nil {
		t.Fatalf("create organization: %v", err)
	}
	return id
}

func createTestProfile(t *testing.T, ctx context.Context, pool *pgxpool.Pool, label string) string {
	t.Helper()

	id := fmt.Sprintf("itest-%s-%d", label, time.Now().UnixNano())
	if _, err := pool.Exec(ctx,
		"INSERT INTO profiles (id, full_name) VALUES ($1, $2)",
		id, "Test "+label,
	); err != nil {
		t.Fatalf("create profile %s: %v", label, err)
	}
	return id
}

func cleanupTestConversations(t *testing.T, ctx context.Context, pool *pgxpool.Pool, orgID int64, profileIDs ...string) {
	t.Helper()

	if _, err := pool.Exec(ctx, "DELETE FROM chat_conversations WHERE organization_id = $1", orgID); err != nil {
		t.Fatalf("cleanup conversations: %v", err)
	}
	if _, err := pool.Exec(ctx, "DELETE FROM organizations WHERE id = $1", orgID); err != nil {
		t.Fatalf("cleanup organization: %v", err)
	}
	if len(profileIDs) > 0 {
		if _, err := pool.Exec(ctx, "DELETE FROM profiles WHERE id = ANY($1)", profileIDs); err != nil {
			t.Fatalf("cleanup profiles: %v", err)
		}
	}
}
