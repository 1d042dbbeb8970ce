package handlers_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/agentgate/internal/app"
	memcache "github.com/dropDatabas3/agentgate/internal/cache/memory"
	httpx "github.com/dropDatabas3/agentgate/internal/http"
	"github.com/dropDatabas3/agentgate/internal/http/handlers"
	"github.com/dropDatabas3/agentgate/internal/jwt"
	memstore "github.com/dropDatabas3/agentgate/internal/store/memory"
)

// Vector de RFC 7636 Apéndice B.
const (
	pkceVerifier  = "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	pkceChallenge = "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"
	callbackURI   = "https://app.example.com/cb"
)

var requestIDRe = regexp.MustCompile(`name="agentgate-request-id" content="([^"]+)"`)

type testEnv struct {
	t      *testing.T
	server *httptest.Server

	agentID     string
	agentSecret string
}

func newTestEnv(t *testing.T, requestTTL time.Duration) *testEnv {
	t.Helper()
	c := &app.Container{
		Store:        memstore.New(),
		Issuer:       jwt.NewIssuer("agentgate-test", []byte("test-secret-key"), time.Hour),
		Cache:        memcache.New(time.Hour),
		RefreshTTL:   720 * time.Hour,
		RequestTTL:   requestTTL,
		DefaultScope: "openid profile",
	}

	mux := httpx.NewMux(httpx.MuxDeps{
		Authorize:   handlers.NewOAuthAuthorizeHandler(c),
		AgentAuth:   handlers.NewAgentAuthenticateHandler(c),
		CheckStatus: handlers.NewCheckStatusHandler(c),
		Token:       handlers.NewOAuthTokenHandler(c),
		Introspect:  handlers.NewOAuthIntrospectHandler(c),
		Revoke:      handlers.NewOAuthRevokeHandler(c),
		Discovery:   handlers.NewDiscoveryHandler("agentgate-test", "http://localhost:8080"),
		JWKS:        handlers.NewJWKSHandler(),
		Readyz:      handlers.NewReadyzHandler(c, nil),
		Admin: []httpx.AdminRegistrar{
			handlers.NewAdminAgentsHandler(c),
			handlers.NewAdminClientsHandler(c),
		},
	})

	env := &testEnv{t: t, server: httptest.NewServer(mux)}
	t.Cleanup(env.server.Close)

	// Un agent de fábrica para los flujos.
	created := env.postJSON("/api/admin/agents", map[string]any{
		"user_email": "owner@example.com",
		"user_name":  "Owner",
	}, http.StatusCreated)
	env.agentID = created["agent_id"].(string)
	env.agentSecret = created["agent_secret"].(string)
	return env
}

func (e *testEnv) postJSON(path string, body map[string]any, wantStatus int) map[string]any {
	e.t.Helper()
	b, err := json.Marshal(body)
	require.NoError(e.t, err)
	resp, err := http.Post(e.server.URL+path, "application/json", strings.NewReader(string(b)))
	require.NoError(e.t, err)
	defer resp.Body.Close()
	require.Equal(e.t, wantStatus, resp.StatusCode)
	var out map[string]any
	require.NoError(e.t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (e *testEnv) postForm(path string, form url.Values, wantStatus int) map[string]any {
	e.t.Helper()
	resp, err := http.PostForm(e.server.URL+path, form)
	require.NoError(e.t, err)
	defer resp.Body.Close()
	require.Equal(e.t, wantStatus, resp.StatusCode)
	var out map[string]any
	require.NoError(e.t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (e *testEnv) getJSON(path string, wantStatus int) map[string]any {
	e.t.Helper()
	resp, err := http.Get(e.server.URL + path)
	require.NoError(e.t, err)
	defer resp.Body.Close()
	require.Equal(e.t, wantStatus, resp.StatusCode)
	var out map[string]any
	require.NoError(e.t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// createClient registra un client y devuelve (client_id, client_secret).
func (e *testEnv) createClient(name string) (string, string) {
	e.t.Helper()
	out := e.postJSON("/api/admin/clients", map[string]any{
		"client_name":   name,
		"redirect_uris": []string{callbackURI},
	}, http.StatusCreated)
	return out["client_id"].(string), out["client_secret"].(string)
}

// beginAuthorize dispara GET /authorize y extrae el request_id de la landing.
func (e *testEnv) beginAuthorize(clientID, state string) string {
	e.t.Helper()
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", clientID)
	q.Set("redirect_uri", callbackURI)
	q.Set("state", state)
	q.Set("code_challenge", pkceChallenge)
	q.Set("code_challenge_method", "S256")

	resp, err := http.Get(e.server.URL + "/authorize?" + q.Encode())
	require.NoError(e.t, err)
	defer resp.Body.Close()
	require.Equal(e.t, http.StatusOK, resp.StatusCode)
	require.Contains(e.t, resp.Header.Get("Content-Type"), "text/html")

	body, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)
	m := requestIDRe.FindStringSubmatch(string(body))
	require.Len(e.t, m, 2, "la landing debe embeber el request_id")
	return m[1]
}

// authenticateAgent completa el canal trasero con las credenciales de fábrica.
func (e *testEnv) authenticateAgent(requestID, model string) {
	e.t.Helper()
	out := e.postJSON("/api/agent/authenticate", map[string]any{
		"request_id":   requestID,
		"agent_id":     e.agentID,
		"agent_secret": e.agentSecret,
		"model":        model,
	}, http.StatusOK)
	require.Equal(e.t, true, out["success"])
}

func TestAuthorizationCodeFlowHappyPath(t *testing.T) {
	env := newTestEnv(t, 10*time.Minute)
	clientID, clientSecret := env.createClient("Test App")

	requestID := env.beginAuthorize(clientID, "st-abc")

	// pendiente hasta que el agente aparezca
	st := env.getJSON("/api/check-status?request_id="+requestID, http.StatusOK)
	require.Equal(t, "pending", st["status"])

	env.authenticateAgent(requestID, "gpt-4o")

	// primer poll: entrega única del code
	st = env.getJSON("/api/check-status?request_id="+requestID, http.StatusOK)
	require.Equal(t, "authenticated", st["status"])
	code := st["code"].(string)
	require.True(t, strings.HasPrefix(code, "code_"))
	require.Equal(t, "st-abc", st["state"])
	require.Contains(t, st["redirect_uri"].(string), "code="+url.QueryEscape(code))
	require.Contains(t, st["redirect_uri"].(string), "state=st-abc")

	// segundo poll: completed, sin code
	st = env.getJSON("/api/check-status?request_id="+requestID, http.StatusOK)
	require.Equal(t, "completed", st["status"])
	require.NotContains(t, st, "code")

	// canje
	tok := env.postForm("/token", url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"code_verifier": {pkceVerifier},
		"client_id":     {clientID},
		"client_secret": {clientSecret},
	}, http.StatusOK)
	access := tok["access_token"].(string)
	refresh := tok["refresh_token"].(string)
	require.True(t, strings.HasPrefix(refresh, "rt_"))
	require.Equal(t, "Bearer", tok["token_type"])
	require.InDelta(t, 3600, tok["expires_in"].(float64), 5)
	require.Equal(t, "openid profile", tok["scope"])

	// replay del code: invalid_grant
	replay := env.postForm("/token", url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"code_verifier": {pkceVerifier},
		"client_id":     {clientID},
		"client_secret": {clientSecret},
	}, http.StatusBadRequest)
	require.Equal(t, "invalid_grant", replay["error"])

	// introspección del access
	intro := env.postForm("/introspect", url.Values{
		"token":         {access},
		"client_id":     {clientID},
		"client_secret": {clientSecret},
	}, http.StatusOK)
	require.Equal(t, true, intro["active"])
	require.Equal(t, env.agentID, intro["sub"])
	require.Equal(t, "gpt-4o", intro["model"])
	require.Equal(t, "Bearer", intro["token_type"])
}

func TestWrongVerifierConsumesCode(t *testing.T) {
	env := newTestEnv(t, 10*time.Minute)
	clientID, clientSecret := env.createClient("Test App")

	requestID := env.beginAuthorize(clientID, "st-1")
	env.authenticateAgent(requestID, "gpt-4o")
	st := env.getJSON("/api/check-status?request_id="+requestID, http.StatusOK)
	code := st["code"].(string)

	bad := env.postForm("/token", url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"code_verifier": {"wrong"},
		"client_id":     {clientID},
		"client_secret": {clientSecret},
	}, http.StatusBadRequest)
	require.Equal(t, "invalid_grant", bad["error"])

	// el code quedó consumido: el verifier correcto ya no sirve
	again := env.postForm("/token", url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"code_verifier": {pkceVerifier},
		"client_id":     {clientID},
		"client_secret": {clientSecret},
	}, http.StatusBadRequest)
	require.Equal(t, "invalid_grant", again["error"])
}

func TestRefreshThenRevokeCascades(t *testing.T) {
	env := newTestEnv(t, 10*time.Minute)
	clientID, clientSecret := env.createClient("Test App")

	requestID := env.beginAuthorize(clientID, "st-2")
	env.authenticateAgent(requestID, "claude-3")
	st := env.getJSON("/api/check-status?request_id="+requestID, http.StatusOK)
	code := st["code"].(string)

	tok := env.postForm("/token", url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"code_verifier": {pkceVerifier},
		"client_id":     {clientID},
		"client_secret": {clientSecret},
	}, http.StatusOK)
	refresh := tok["refresh_token"].(string)

	// refresh: access nuevo, MISMO refresh token
	ref := env.postForm("/token", url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refresh},
		"client_id":     {clientID},
		"client_secret": {clientSecret},
	}, http.StatusOK)
	newAccess := ref["access_token"].(string)
	require.Equal(t, refresh, ref["refresh_token"])
	require.NotEqual(t, tok["access_token"], newAccess)

	// revocar el refresh alcanza al access nuevo
	_ = env.postForm("/revoke", url.Values{
		"token":           {refresh},
		"token_type_hint": {"refresh_token"},
		"client_id":       {clientID},
		"client_secret":   {clientSecret},
	}, http.StatusOK)

	intro := env.postForm("/introspect", url.Values{
		"token":         {newAccess},
		"client_id":     {clientID},
		"client_secret": {clientSecret},
	}, http.StatusOK)
	require.Equal(t, false, intro["active"])

	introRT := env.postForm("/introspect", url.Values{
		"token":           {refresh},
		"token_type_hint": {"refresh_token"},
		"client_id":       {clientID},
		"client_secret":   {clientSecret},
	}, http.StatusOK)
	require.Equal(t, false, introRT["active"])

	// refresh revocado no emite más tokens
	denied := env.postForm("/token", url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refresh},
		"client_id":     {clientID},
		"client_secret": {clientSecret},
	}, http.StatusBadRequest)
	require.Equal(t, "invalid_grant", denied["error"])
}

func TestExpiredRequestFlow(t *testing.T) {
	// TTL negativo: el request nace vencido
	env := newTestEnv(t, -time.Second)
	clientID, _ := env.createClient("Test App")

	requestID := env.beginAuthorize(clientID, "st-3")

	b, _ := json.Marshal(map[string]any{
		"request_id":   requestID,
		"agent_id":     env.agentID,
		"agent_secret": env.agentSecret,
		"model":        "gpt-4o",
	})
	resp, err := http.Post(env.server.URL+"/api/agent/authenticate", "application/json", strings.NewReader(string(b)))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, "request_expired", out["error"])

	st := env.getJSON("/api/check-status?request_id="+requestID, http.StatusOK)
	require.Equal(t, "error", st["status"])
}

func TestOneShotInvalidCredentials(t *testing.T) {
	env := newTestEnv(t, 10*time.Minute)
	clientID, _ := env.createClient("Test App")
	requestID := env.beginAuthorize(clientID, "st-4")

	b, _ := json.Marshal(map[string]any{
		"request_id":   requestID,
		"agent_id":     env.agentID,
		"agent_secret": "incorrecto",
		"model":        "gpt-4o",
	})
	resp, err := http.Post(env.server.URL+"/api/agent/authenticate", "application/json", strings.NewReader(string(b)))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// one-shot: el request quedó en error, ni el secret correcto lo rescata
	st := env.getJSON("/api/check-status?request_id="+requestID, http.StatusOK)
	require.Equal(t, "error", st["status"])
	require.Equal(t, "Invalid agent credentials", st["error"])
}

func TestCrossClientIsolation(t *testing.T) {
	env := newTestEnv(t, 10*time.Minute)
	clientA, secretA := env.createClient("App A")
	clientB, secretB := env.createClient("App B")

	requestID := env.beginAuthorize(clientA, "st-5")
	env.authenticateAgent(requestID, "gpt-4o")
	st := env.getJSON("/api/check-status?request_id="+requestID, http.StatusOK)
	code := st["code"].(string)

	// B no puede canjear el code de A
	denied := env.postForm("/token", url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"code_verifier": {pkceVerifier},
		"client_id":     {clientB},
		"client_secret": {secretB},
	}, http.StatusBadRequest)
	require.Equal(t, "invalid_grant", denied["error"])

	// A canjea normalmente
	tok := env.postForm("/token", url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"code_verifier": {pkceVerifier},
		"client_id":     {clientA},
		"client_secret": {secretA},
	}, http.StatusOK)
	access := tok["access_token"].(string)
	refresh := tok["refresh_token"].(string)

	// introspección cruzada: inactivo para B
	intro := env.postForm("/introspect", url.Values{
		"token":         {access},
		"client_id":     {clientB},
		"client_secret": {secretB},
	}, http.StatusOK)
	require.Equal(t, false, intro["active"])

	// B tampoco puede refrescar el token de A
	ref := env.postForm("/token", url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refresh},
		"client_id":     {clientB},
		"client_secret": {secretB},
	}, http.StatusBadRequest)
	require.Equal(t, "invalid_grant", ref["error"])

	// revocación cruzada es un no-op silencioso (fachada 200)
	_ = env.postForm("/revoke", url.Values{
		"token":         {access},
		"client_id":     {clientB},
		"client_secret": {secretB},
	}, http.StatusOK)
	still := env.postForm("/introspect", url.Values{
		"token":         {access},
		"client_id":     {clientA},
		"client_secret": {secretA},
	}, http.StatusOK)
	require.Equal(t, true, still["active"])
}

func TestDiscoveryAndJWKS(t *testing.T) {
	env := newTestEnv(t, 10*time.Minute)

	doc := env.getJSON("/.well-known/oauth-authorization-server", http.StatusOK)
	require.Equal(t, "agentgate-test", doc["issuer"])
	require.Equal(t, []any{"code"}, doc["response_types_supported"])
	require.Equal(t, []any{"S256"}, doc["code_challenge_methods_supported"])
	require.Equal(t, []any{"authorization_code", "refresh_token"}, doc["grant_types_supported"])

	jwks := env.getJSON("/.well-known/jwks.json", http.StatusOK)
	require.Equal(t, []any{}, jwks["keys"])
}

func TestAuthorizeValidationRendersErrorPage(t *testing.T) {
	env := newTestEnv(t, 10*time.Minute)
	clientID, _ := env.createClient("Test App")

	cases := []url.Values{
		// response_type incorrecto
		{"response_type": {"token"}, "client_id": {clientID}, "redirect_uri": {callbackURI}, "state": {"s"}, "code_challenge": {pkceChallenge}, "code_challenge_method": {"S256"}},
		// method plain prohibido
		{"response_type": {"code"}, "client_id": {clientID}, "redirect_uri": {callbackURI}, "state": {"s"}, "code_challenge": {pkceChallenge}, "code_challenge_method": {"plain"}},
		// redirect no registrado
		{"response_type": {"code"}, "client_id": {clientID}, "redirect_uri": {"https://evil.example.com/cb"}, "state": {"s"}, "code_challenge": {pkceChallenge}, "code_challenge_method": {"S256"}},
		// client desconocido
		{"response_type": {"code"}, "client_id": {"client_nope"}, "redirect_uri": {callbackURI}, "state": {"s"}, "code_challenge": {pkceChallenge}, "code_challenge_method": {"S256"}},
	}
	for _, q := range cases {
		resp, err := http.Get(env.server.URL + "/authorize?" + q.Encode())
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Contains(t, resp.Header.Get("Content-Type"), "text/html")
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)
		require.Contains(t, string(body), "Authorization error")
		require.NotContains(t, string(body), "agentgate-request-id")
	}
}

func TestUnsupportedGrantType(t *testing.T) {
	env := newTestEnv(t, 10*time.Minute)
	out := env.postForm("/token", url.Values{"grant_type": {"password"}}, http.StatusBadRequest)
	require.Equal(t, "unsupported_grant_type", out["error"])
}
