package memory_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dropDatabas3/agentgate/internal/store/core"
	"github.com/dropDatabas3/agentgate/internal/store/memory"
)

func newPendingRequest(t *testing.T, s *memory.Store, id string, ttl time.Duration) *core.AuthRequest {
	t.Helper()
	now := time.Now().UTC()
	r := &core.AuthRequest{
		RequestID:       id,
		ClientID:        "client_test",
		RedirectURI:     "https://app.example.com/cb",
		State:           "st-123",
		CodeChallenge:   "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM",
		ChallengeMethod: "S256",
		Scope:           "openid profile",
		Status:          core.StatusPending,
		CreatedAt:       now,
		ExpiresAt:       now.Add(ttl),
	}
	if err := s.CreateAuthRequest(context.Background(), r); err != nil {
		t.Fatalf("create request: %v", err)
	}
	return r
}

func TestAuthRequestLifecycle(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	newPendingRequest(t, s, "req_1", 10*time.Minute)

	if err := s.MarkAuthenticated(ctx, "req_1", "agent_a", "gpt-4o", "code_abc"); err != nil {
		t.Fatalf("mark authenticated: %v", err)
	}
	// segunda transición sobre el mismo request: conflicto
	if err := s.MarkAuthenticated(ctx, "req_1", "agent_b", "m", "code_xyz"); err != core.ErrConflict {
		t.Fatalf("want ErrConflict, got %v", err)
	}

	got, err := s.ResolveCode(ctx, "code_abc")
	if err != nil || got.RequestID != "req_1" || got.AgentID != "agent_a" {
		t.Fatalf("resolve code: %+v err=%v", got, err)
	}

	done, err := s.CompleteAuthRequest(ctx, "req_1")
	if err != nil || done.Status != core.StatusCompleted || done.Code != "code_abc" {
		t.Fatalf("complete: %+v err=%v", done, err)
	}
	// completed es terminal
	if _, err := s.CompleteAuthRequest(ctx, "req_1"); err != core.ErrConflict {
		t.Fatalf("segunda completación: want ErrConflict, got %v", err)
	}
}

func TestCompleteAuthRequestSingleWinner(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	newPendingRequest(t, s, "req_race", 10*time.Minute)
	if err := s.MarkAuthenticated(ctx, "req_race", "agent_a", "m", "code_race"); err != nil {
		t.Fatalf("mark: %v", err)
	}

	const pollers = 32
	var wins int64
	var wg sync.WaitGroup
	wg.Add(pollers)
	for i := 0; i < pollers; i++ {
		go func() {
			defer wg.Done()
			if _, err := s.CompleteAuthRequest(ctx, "req_race"); err == nil {
				atomic.AddInt64(&wins, 1)
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("exactamente un poll debe ganar el code, ganaron %d", wins)
	}
}

func TestFailAndExpireTransitions(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	newPendingRequest(t, s, "req_fail", 10*time.Minute)
	if err := s.FailAuthRequest(ctx, "req_fail", "Invalid agent credentials"); err != nil {
		t.Fatalf("fail: %v", err)
	}
	r, _ := s.GetAuthRequest(ctx, "req_fail")
	if r.Status != core.StatusError || r.Error != "Invalid agent credentials" {
		t.Fatalf("estado tras fail: %+v", r)
	}
	// error es terminal
	if err := s.ExpireAuthRequest(ctx, "req_fail"); err != core.ErrConflict {
		t.Fatalf("expire sobre error: want ErrConflict, got %v", err)
	}

	newPendingRequest(t, s, "req_exp", 10*time.Minute)
	if err := s.ExpireAuthRequest(ctx, "req_exp"); err != nil {
		t.Fatalf("expire: %v", err)
	}
	if err := s.FailAuthRequest(ctx, "req_exp", "x"); err != core.ErrConflict {
		t.Fatalf("fail sobre expired: want ErrConflict, got %v", err)
	}
}

func TestConsumeCodeDeletesBoth(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	newPendingRequest(t, s, "req_c", 10*time.Minute)
	_ = s.MarkAuthenticated(ctx, "req_c", "agent_a", "m", "code_c")

	if err := s.ConsumeCode(ctx, "code_c"); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if _, err := s.ResolveCode(ctx, "code_c"); err != core.ErrNotFound {
		t.Fatalf("code debería estar borrado, got %v", err)
	}
	if _, err := s.GetAuthRequest(ctx, "req_c"); err != core.ErrNotFound {
		t.Fatalf("request debería estar borrado, got %v", err)
	}
	// idempotencia del segundo consume: not found
	if err := s.ConsumeCode(ctx, "code_c"); err != core.ErrNotFound {
		t.Fatalf("segundo consume: want ErrNotFound, got %v", err)
	}
}

func newTokenPair(t *testing.T, s *memory.Store, tokenID, refreshHash string) {
	t.Helper()
	now := time.Now().UTC()
	tok := &core.Token{
		TokenID:          tokenID,
		AccessHash:       "ah-" + tokenID,
		RefreshHash:      refreshHash,
		AgentID:          "agent_a",
		ClientID:         "client_test",
		Model:            "gpt-4o",
		Scope:            "openid profile",
		AccessExpiresAt:  now.Add(time.Hour),
		RefreshExpiresAt: now.Add(720 * time.Hour),
		CreatedAt:        now,
	}
	re := &core.RefreshEntry{
		TokenHash: refreshHash,
		TokenID:   tokenID,
		AgentID:   "agent_a",
		ClientID:  "client_test",
		IssuedAt:  now,
		ExpiresAt: now.Add(720 * time.Hour),
	}
	if err := s.CreateToken(context.Background(), tok, re); err != nil {
		t.Fatalf("create token: %v", err)
	}
}

func TestRevokeTokenCascadesToRefresh(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	newTokenPair(t, s, "tok_1", "rh_1")

	if err := s.RevokeToken(ctx, "tok_1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	tok, _ := s.GetToken(ctx, "tok_1")
	if !tok.Revoked {
		t.Fatal("token debería quedar revocado")
	}
	re, _ := s.GetRefreshByHash(ctx, "rh_1")
	if !re.Revoked {
		t.Fatal("el refresh ligado debería quedar revocado (cascada)")
	}
	// idempotente
	if err := s.RevokeToken(ctx, "tok_1"); err != nil {
		t.Fatalf("segundo revoke: %v", err)
	}
}

func TestRevokeRefreshCascadesToToken(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	newTokenPair(t, s, "tok_2", "rh_2")

	if err := s.RevokeRefresh(ctx, "rh_2"); err != nil {
		t.Fatalf("revoke refresh: %v", err)
	}
	tok, _ := s.GetToken(ctx, "tok_2")
	if !tok.Revoked {
		t.Fatal("el access ligado debería quedar revocado (cascada)")
	}
}

func TestRebindRefreshPointsRevocationAtNewToken(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	newTokenPair(t, s, "tok_old", "rh_3")

	// refresh grant: token nuevo comparte el hash, la entrada se re-liga
	now := time.Now().UTC()
	newTok := &core.Token{
		TokenID:          "tok_new",
		AccessHash:       "ah-tok_new",
		RefreshHash:      "rh_3",
		AgentID:          "agent_a",
		ClientID:         "client_test",
		Model:            "gpt-4o",
		Scope:            "openid profile",
		AccessExpiresAt:  now.Add(time.Hour),
		RefreshExpiresAt: now.Add(720 * time.Hour),
		CreatedAt:        now,
	}
	if err := s.CreateToken(ctx, newTok, nil); err != nil {
		t.Fatalf("create new token: %v", err)
	}
	if err := s.RebindRefresh(ctx, "rh_3", "tok_new"); err != nil {
		t.Fatalf("rebind: %v", err)
	}

	if err := s.RevokeRefresh(ctx, "rh_3"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	tok, _ := s.GetToken(ctx, "tok_new")
	if !tok.Revoked {
		t.Fatal("revocar el refresh debe alcanzar al access NUEVO")
	}
}

func TestFindTokenByAccessHash(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	newTokenPair(t, s, "tok_f", "rh_f")

	tok, err := s.FindTokenByAccessHash(ctx, "ah-tok_f")
	if err != nil || tok.TokenID != "tok_f" {
		t.Fatalf("find: %+v err=%v", tok, err)
	}
	if _, err := s.FindTokenByAccessHash(ctx, "no-existe"); err != core.ErrNotFound {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestSweepExpired(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	newPendingRequest(t, s, "req_viejo", -time.Minute) // ya vencido
	newPendingRequest(t, s, "req_vivo", 10*time.Minute)

	// refresh vencido
	now := time.Now().UTC()
	tok := &core.Token{
		TokenID: "tok_s", AccessHash: "ah-s", RefreshHash: "rh_s",
		AgentID: "a", ClientID: "c",
		AccessExpiresAt: now.Add(-2 * time.Hour), RefreshExpiresAt: now.Add(-time.Hour),
		CreatedAt: now.Add(-3 * time.Hour),
	}
	re := &core.RefreshEntry{
		TokenHash: "rh_s", TokenID: "tok_s", AgentID: "a", ClientID: "c",
		IssuedAt: now.Add(-3 * time.Hour), ExpiresAt: now.Add(-time.Hour),
	}
	if err := s.CreateToken(ctx, tok, re); err != nil {
		t.Fatalf("create: %v", err)
	}

	reqs, refs, err := s.SweepExpired(ctx, now)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if reqs != 1 || refs != 1 {
		t.Fatalf("sweep: reqs=%d refs=%d", reqs, refs)
	}
	if _, err := s.GetAuthRequest(ctx, "req_viejo"); err != core.ErrNotFound {
		t.Fatal("req_viejo debería estar barrido")
	}
	if _, err := s.GetAuthRequest(ctx, "req_vivo"); err != nil {
		t.Fatal("req_vivo no debería barrerse")
	}
	if _, err := s.GetRefreshByHash(ctx, "rh_s"); err != core.ErrNotFound {
		t.Fatal("rh_s debería estar barrido")
	}
}

func TestAgentClientCRUD(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	now := time.Now().UTC()

	a := &core.Agent{AgentID: "agent_x", SecretHash: "h", UserEmail: "u@e.co", CreatedAt: now}
	if err := s.CreateAgent(ctx, a); err != nil {
		t.Fatalf("create agent: %v", err)
	}
	if err := s.CreateAgent(ctx, a); err != core.ErrConflict {
		t.Fatalf("duplicado: want ErrConflict, got %v", err)
	}

	cl := &core.Client{
		ClientID: "client_x", SecretHash: "h", Name: "App",
		RedirectURIs: []string{"https://a.com/cb"},
		GrantTypes:   []string{"authorization_code", "refresh_token"},
		CreatedAt:    now,
	}
	if err := s.CreateClient(ctx, cl); err != nil {
		t.Fatalf("create client: %v", err)
	}

	// update parcial: solo el nombre
	if err := s.UpdateClient(ctx, &core.Client{ClientID: "client_x", Name: "App v2"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := s.GetClient(ctx, "client_x")
	if got.Name != "App v2" || len(got.RedirectURIs) != 1 {
		t.Fatalf("update parcial: %+v", got)
	}

	if err := s.DeleteAgent(ctx, "agent_x"); err != nil {
		t.Fatalf("delete agent: %v", err)
	}
	if _, err := s.GetAgent(ctx, "agent_x"); err != core.ErrNotFound {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
