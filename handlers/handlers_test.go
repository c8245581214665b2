package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/prefeitura-digital/prompt-router/app"
	"github.com/prefeitura-digital/prompt-router/auth"
	"github.com/prefeitura-digital/prompt-router/config"
	"github.com/prefeitura-digital/prompt-router/middleware"
	"github.com/prefeitura-digital/prompt-router/models"
	"github.com/prefeitura-digital/prompt-router/repositories/postgres"
	"github.com/prefeitura-digital/prompt-router/routes"
	"github.com/prefeitura-digital/prompt-router/services/dispatch"
	"github.com/prefeitura-digital/prompt-router/services/history"
	"github.com/prefeitura-digital/prompt-router/services/orchestrator"
	"github.com/prefeitura-digital/prompt-router/services/providers"
	"github.com/prefeitura-digital/prompt-router/services/registry"
	"github.com/prefeitura-digital/prompt-router/services/selection"
	"github.com/prefeitura-digital/prompt-router/services/templates"
)

// --- in-memory repositories ---

type memoryProviderRepo struct {
	mu     sync.Mutex
	stored []*models.Provider
}

func (r *memoryProviderRepo) LoadAll(_ context.Context) ([]*models.Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Provider, len(r.stored))
	for i, p := range r.stored {
		clone := *p
		out[i] = &clone
	}
	return out, nil
}

func (r *memoryProviderRepo) SaveAll(_ context.Context, providers []*models.Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stored = make([]*models.Provider, len(providers))
	for i, p := range providers {
		clone := *p
		r.stored[i] = &clone
	}
	return nil
}

type memoryHistoryRepo struct {
	mu      sync.Mutex
	records []*models.PromptRecord
}

func (r *memoryHistoryRepo) Insert(_ context.Context, record *models.PromptRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *record
	r.records = append(r.records, &clone)
	return nil
}

func (r *memoryHistoryRepo) GetByID(_ context.Context, id uuid.UUID) (*models.PromptRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ID == id {
			clone := *rec
			return &clone, nil
		}
	}
	return nil, history.ErrRecordNotFound
}

func (r *memoryHistoryRepo) ListByUser(_ context.Context, userID string, limit, offset int) ([]*models.PromptRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.PromptRecord
	for i := len(r.records) - 1; i >= 0; i-- {
		if r.records[i].UserID == userID {
			clone := *r.records[i]
			out = append(out, &clone)
		}
	}
	return window(out, limit, offset), nil
}

func (r *memoryHistoryRepo) ListAll(_ context.Context, limit, offset int) ([]*models.PromptRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.PromptRecord
	for i := len(r.records) - 1; i >= 0; i-- {
		clone := *r.records[i]
		out = append(out, &clone)
	}
	return window(out, limit, offset), nil
}

func (r *memoryHistoryRepo) Count(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records), nil
}

func window(records []*models.PromptRecord, limit, offset int) []*models.PromptRecord {
	if offset >= len(records) {
		return nil
	}
	records = records[offset:]
	if limit < len(records) {
		records = records[:limit]
	}
	return records
}

type memoryTemplateRepo struct {
	mu     sync.Mutex
	stored []*models.PromptTemplate
}

func (r *memoryTemplateRepo) Insert(_ context.Context, template *models.PromptTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *template
	r.stored = append(r.stored, &clone)
	return nil
}

func (r *memoryTemplateRepo) GetByID(_ context.Context, id uuid.UUID) (*models.PromptTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tpl := range r.stored {
		if tpl.ID == id {
			clone := *tpl
			return &clone, nil
		}
	}
	return nil, templates.ErrTemplateNotFound
}

func (r *memoryTemplateRepo) ListVisible(_ context.Context, userID string) ([]*models.PromptTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.PromptTemplate
	for i := len(r.stored) - 1; i >= 0; i-- {
		if r.stored[i].CreatedBy == userID || r.stored[i].IsPublic {
			clone := *r.stored[i]
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *memoryTemplateRepo) ListAll(_ context.Context) ([]*models.PromptTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.PromptTemplate
	for i := len(r.stored) - 1; i >= 0; i-- {
		clone := *r.stored[i]
		out = append(out, &clone)
	}
	return out, nil
}

func (r *memoryTemplateRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, tpl := range r.stored {
		if tpl.ID == id {
			r.stored = append(r.stored[:i], r.stored[i+1:]...)
			return nil
		}
	}
	return templates.ErrTemplateNotFound
}

type memoryUserRepo struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: map[string]*models.User{}}
}

func (r *memoryUserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, postgres.ErrUserNotFound
	}
	clone := *user
	return &clone, nil
}

func (r *memoryUserRepo) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *memoryUserRepo) UpdatePreferredModel(_ context.Context, userID, providerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return postgres.ErrUserNotFound
	}
	user.PreferredModel = providerID
	return nil
}

// --- scripted adapter ---

type scriptedAdapter struct {
	family  models.Family
	results map[string]func() (string, error)
}

func (a *scriptedAdapter) Family() models.Family { return a.family }

func (a *scriptedAdapter) Generate(_ context.Context, _ string, provider *models.Provider) (string, error) {
	if fn, ok := a.results[provider.ID]; ok {
		return fn()
	}
	return "", providers.NewMissingCredentialError(provider)
}

// --- fixture ---

type fixture struct {
	deps      *app.Dependencies
	router    http.Handler
	providers *memoryProviderRepo
	historyDB *memoryHistoryRepo
	users     *memoryUserRepo
	adapter   *scriptedAdapter
}

func testCatalog() []*models.Provider {
	return []*models.Provider{
		{
			ID: "gemini", DisplayName: "Gemini 1.5 Pro", Family: models.FamilyGoogle,
			Endpoint: "gemini-1.5-pro", MaxTokens: 4096, Temperature: 0.7,
			Priority: 1, Enabled: true, IsDefault: true,
		},
		{
			ID: "claude", DisplayName: "Claude 3 Opus", Family: models.FamilyAnthropic,
			Endpoint: "claude-3-opus-20240229", Credential: "sk-ant-test",
			MaxTokens: 4096, Temperature: 0.7, Priority: 2, Enabled: true,
		},
		{
			ID: "gpt4", DisplayName: "GPT-4", Family: models.FamilyOpenAI,
			Endpoint: "gpt-4", MaxTokens: 4096, Temperature: 0.7,
			Priority: 3, Enabled: false,
		},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()

	providerRepo := &memoryProviderRepo{stored: testCatalog()}
	historyRepo := &memoryHistoryRepo{}
	templateRepo := &memoryTemplateRepo{}
	userRepo := newMemoryUserRepo()

	reg := registry.NewRegistry(providerRepo, logger)
	require.NoError(t, reg.Load(context.Background()))

	adapter := &scriptedAdapter{
		family: models.FamilyGoogle,
		results: map[string]func() (string, error){
			"gemini": func() (string, error) { return "## Ofício\n\nTexto gerado.", nil },
		},
	}
	claudeAdapter := &scriptedAdapter{
		family: models.FamilyAnthropic,
		results: map[string]func() (string, error){
			"claude": func() (string, error) { return "resposta claude", nil },
		},
	}
	resolver := providers.NewResolver(adapter, claudeAdapter)

	dispatcher := dispatch.NewDispatcher(reg, resolver, dispatch.Options{
		MaxAttempts: 2,
		Sleep:       func(context.Context, time.Duration) error { return nil },
	}, logger)

	recorder := history.NewRecorder(historyRepo, logger)
	policy := selection.NewPolicy(reg)
	orch := orchestrator.NewService(policy, dispatcher, recorder, userRepo, logger)

	tokens := auth.NewTokenService("test-secret", time.Hour)
	deps := &app.Dependencies{
		Config:         &config.Config{},
		Logger:         logger,
		Users:          userRepo,
		History:        historyRepo,
		Registry:       reg,
		Policy:         policy,
		Dispatcher:     dispatcher,
		Recorder:       recorder,
		Templates:      templates.NewStore(templateRepo, logger),
		Orchestrator:   orch,
		Tokens:         tokens,
		AuthMiddleware: middleware.NewAuthMiddleware(tokens, logger),
	}

	return &fixture{
		deps:      deps,
		router:    routes.SetupRoutes(deps),
		providers: providerRepo,
		historyDB: historyRepo,
		users:     userRepo,
		adapter:   adapter,
	}
}

func (f *fixture) addUser(t *testing.T, id, password string, role models.UserRole) *models.User {
	t.Helper()
	user := &models.User{ID: id, Role: role, Department: "gabinete"}
	require.NoError(t, user.SetPassword(password))
	require.NoError(t, f.users.Create(context.Background(), user))
	return user
}

func (f *fixture) token(t *testing.T, user *models.User) string {
	t.Helper()
	token, err := f.deps.Tokens.Issue(user)
	require.NoError(t, err)
	return token
}

func (f *fixture) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst))
}

// --- auth ---

func TestLoginHandler(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "maria", "segredo123", models.RoleUser)

	t.Run("valid credentials issue a token", func(t *testing.T) {
		rec := f.request(t, http.MethodPost, "/auth/login", "", map[string]string{
			"username": "maria", "password": "segredo123",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Token string       `json:"token"`
			User  *models.User `json:"user"`
		}
		decodeBody(t, rec, &resp)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "maria", resp.User.ID)

		claims, err := f.deps.Tokens.Validate(resp.Token)
		require.NoError(t, err)
		assert.Equal(t, "maria", claims.UserID)
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := f.request(t, http.MethodPost, "/auth/login", "", map[string]string{
			"username": "maria", "password": "errada",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		rec := f.request(t, http.MethodPost, "/auth/login", "", map[string]string{
			"username": "ninguem", "password": "qualquer",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := f.request(t, http.MethodPost, "/auth/login", "", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRegisterHandler(t *testing.T) {
	f := newFixture(t)
	admin := f.addUser(t, "chefe", "senha-admin", models.RoleAdmin)
	user := f.addUser(t, "joao", "senha-user", models.RoleUser)

	t.Run("admin creates an account", func(t *testing.T) {
		rec := f.request(t, http.MethodPost, "/api/v1/users", f.token(t, admin), map[string]string{
			"username": "ana", "password": "nova-senha", "department": "protocolo",
		})
		require.Equal(t, http.StatusCreated, rec.Code)

		login := f.request(t, http.MethodPost, "/auth/login", "", map[string]string{
			"username": "ana", "password": "nova-senha",
		})
		assert.Equal(t, http.StatusOK, login.Code)
	})

	t.Run("unknown role falls back to user", func(t *testing.T) {
		rec := f.request(t, http.MethodPost, "/api/v1/users", f.token(t, admin), map[string]string{
			"username": "pedro", "password": "abc12345", "role": "superchefe",
		})
		require.Equal(t, http.StatusCreated, rec.Code)

		created, err := f.users.GetByID(context.Background(), "pedro")
		require.NoError(t, err)
		assert.Equal(t, models.RoleUser, created.Role)
	})

	t.Run("non-admin is forbidden", func(t *testing.T) {
		rec := f.request(t, http.MethodPost, "/api/v1/users", f.token(t, user), map[string]string{
			"username": "intruso", "password": "x",
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

// --- generation ---

func TestGenerateHandler(t *testing.T) {
	f := newFixture(t)
	user := f.addUser(t, "maria", "segredo123", models.RoleUser)
	token := f.token(t, user)

	t.Run("successful generation", func(t *testing.T) {
		rec := f.request(t, http.MethodPost, "/api/v1/generate", token, map[string]interface{}{
			"prompt":   "Redija um ofício",
			"metadata": map[string]string{"document_type": "ofício"},
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var result orchestrator.Result
		decodeBody(t, rec, &result)
		assert.True(t, result.Outcome)
		assert.Equal(t, "gemini", result.ProviderUsed)
		assert.Contains(t, result.Text, "Texto gerado")
		assert.Contains(t, result.HTML, "<h2")
		assert.NotEmpty(t, result.RecordID)

		count, err := f.historyDB.Count(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("explicit model override", func(t *testing.T) {
		rec := f.request(t, http.MethodPost, "/api/v1/generate", token, map[string]string{
			"prompt": "olá", "model_id": "claude",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var result orchestrator.Result
		decodeBody(t, rec, &result)
		assert.True(t, result.Outcome)
		assert.Equal(t, "claude", result.ProviderUsed)
	})

	t.Run("dispatch failure still returns 200 with record", func(t *testing.T) {
		failing := newFixture(t)
		failing.adapter.results["gemini"] = func() (string, error) {
			return "", &providers.PermanentError{Provider: "gemini", Reason: "key revoked"}
		}
		require.NoError(t, failing.deps.Registry.Remove(context.Background(), "claude"))
		failUser := failing.addUser(t, "maria", "segredo123", models.RoleUser)

		rec := failing.request(t, http.MethodPost, "/api/v1/generate", failing.token(t, failUser), map[string]string{
			"prompt": "olá", "model_id": "gemini",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var result orchestrator.Result
		decodeBody(t, rec, &result)
		assert.False(t, result.Outcome)
		assert.Contains(t, result.Text, "ERRO")
		assert.NotEmpty(t, result.Error)

		count, err := failing.historyDB.Count(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("empty prompt", func(t *testing.T) {
		rec := f.request(t, http.MethodPost, "/api/v1/generate", token, map[string]string{"prompt": ""})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("no token", func(t *testing.T) {
		rec := f.request(t, http.MethodPost, "/api/v1/generate", "", map[string]string{"prompt": "olá"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestListModelsHandler(t *testing.T) {
	f := newFixture(t)
	user := f.addUser(t, "maria", "segredo123", models.RoleUser)

	rec := f.request(t, http.MethodGet, "/api/v1/models", f.token(t, user), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Models []struct {
			ID          string `json:"id"`
			DisplayName string `json:"display_name"`
			IsDefault   bool   `json:"is_default"`
		} `json:"models"`
	}
	decodeBody(t, rec, &resp)

	require.Len(t, resp.Models, 2, "disabled providers stay hidden")
	assert.Equal(t, "gemini", resp.Models[0].ID)
	assert.True(t, resp.Models[0].IsDefault)
	assert.Equal(t, "claude", resp.Models[1].ID)
	assert.NotContains(t, rec.Body.String(), "credential")
}

// --- history ---

func TestHistoryHandlers(t *testing.T) {
	f := newFixture(t)
	owner := f.addUser(t, "maria", "segredo123", models.RoleUser)
	other := f.addUser(t, "joao", "outra-senha", models.RoleUser)
	admin := f.addUser(t, "chefe", "senha-admin", models.RoleAdmin)

	gen := f.request(t, http.MethodPost, "/api/v1/generate", f.token(t, owner), map[string]string{
		"prompt": "Redija um ofício",
	})
	require.Equal(t, http.StatusOK, gen.Code)

	var genResult orchestrator.Result
	decodeBody(t, gen, &genResult)
	recordID := genResult.RecordID
	require.NotEmpty(t, recordID)

	t.Run("owner lists own records", func(t *testing.T) {
		rec := f.request(t, http.MethodGet, "/api/v1/history", f.token(t, owner), nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Records []models.PromptRecord `json:"records"`
			Count   int                   `json:"count"`
		}
		decodeBody(t, rec, &resp)
		require.Equal(t, 1, resp.Count)
		assert.Equal(t, "maria", resp.Records[0].UserID)
	})

	t.Run("other user sees nothing", func(t *testing.T) {
		rec := f.request(t, http.MethodGet, "/api/v1/history", f.token(t, other), nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Count int `json:"count"`
		}
		decodeBody(t, rec, &resp)
		assert.Zero(t, resp.Count)
	})

	t.Run("get renders response html", func(t *testing.T) {
		rec := f.request(t, http.MethodGet, "/api/v1/history/"+recordID, f.token(t, owner), nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Prompt       string `json:"prompt"`
			ResponseHTML string `json:"response_html"`
		}
		decodeBody(t, rec, &resp)
		assert.Equal(t, "Redija um ofício", resp.Prompt)
		assert.Contains(t, resp.ResponseHTML, "<h2")
	})

	t.Run("get denied for non-owner", func(t *testing.T) {
		rec := f.request(t, http.MethodGet, "/api/v1/history/"+recordID, f.token(t, other), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("admin reads any record", func(t *testing.T) {
		rec := f.request(t, http.MethodGet, "/api/v1/history/"+recordID, f.token(t, admin), nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("export serves an html attachment", func(t *testing.T) {
		rec := f.request(t, http.MethodGet, "/api/v1/history/"+recordID+"/export", f.token(t, owner), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "resposta-"+recordID)
		assert.Contains(t, rec.Body.String(), "<h2")
	})

	t.Run("malformed record id", func(t *testing.T) {
		rec := f.request(t, http.MethodGet, "/api/v1/history/nao-e-uuid", f.token(t, owner), nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

// --- provider administration ---

func TestProviderHandlers(t *testing.T) {
	f := newFixture(t)
	admin := f.addUser(t, "chefe", "senha-admin", models.RoleAdmin)
	user := f.addUser(t, "maria", "segredo123", models.RoleUser)
	adminToken := f.token(t, admin)

	t.Run("non-admin is forbidden", func(t *testing.T) {
		rec := f.request(t, http.MethodGet, "/api/v1/providers", f.token(t, user), nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("list includes disabled and hides credentials", func(t *testing.T) {
		rec := f.request(t, http.MethodGet, "/api/v1/providers", adminToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Providers []struct {
				ID            string `json:"id"`
				Credential    string `json:"credential"`
				HasCredential bool   `json:"has_credential"`
			} `json:"providers"`
		}
		decodeBody(t, rec, &resp)
		require.Len(t, resp.Providers, 3)

		ids := make([]string, 0, 3)
		for _, p := range resp.Providers {
			ids = append(ids, p.ID)
			assert.Empty(t, p.Credential)
		}
		sort.Strings(ids)
		assert.Equal(t, []string{"claude", "gemini", "gpt4"}, ids)
		assert.NotContains(t, rec.Body.String(), "sk-ant-test")
	})

	t.Run("upsert a new provider", func(t *testing.T) {
		rec := f.request(t, http.MethodPut, "/api/v1/providers/deepseek", adminToken, map[string]interface{}{
			"display_name": "DeepSeek Coder",
			"family":       "deepseek",
			"endpoint":     "deepseek-coder",
			"credential":   "sk-ds-test",
			"max_tokens":   4096,
			"temperature":  0.7,
			"priority":     7,
			"enabled":      true,
		})
		require.Equal(t, http.StatusOK, rec.Code)

		listed := f.request(t, http.MethodGet, "/api/v1/models", adminToken, nil)
		assert.Contains(t, listed.Body.String(), "deepseek")
	})

	t.Run("omitted credential keeps the stored one", func(t *testing.T) {
		rec := f.request(t, http.MethodPut, "/api/v1/providers/claude", adminToken, map[string]interface{}{
			"display_name": "Claude 3 Opus",
			"family":       "anthropic",
			"endpoint":     "claude-3-opus-20240229",
			"max_tokens":   4096,
			"temperature":  0.5,
			"priority":     2,
			"enabled":      true,
		})
		require.Equal(t, http.StatusOK, rec.Code)

		stored, err := f.deps.Registry.Get("claude")
		require.NoError(t, err)
		assert.Equal(t, "sk-ant-test", stored.Credential)
		assert.Equal(t, 0.5, stored.Temperature)
	})

	t.Run("upsert rejects an unknown family", func(t *testing.T) {
		rec := f.request(t, http.MethodPut, "/api/v1/providers/misterio", adminToken, map[string]interface{}{
			"display_name": "Misterio",
			"family":       "misterio",
			"endpoint":     "misterio-1",
			"max_tokens":   4096,
			"temperature":  0.7,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("replace rejects duplicate ids", func(t *testing.T) {
		dup := map[string]interface{}{
			"id": "gemini", "display_name": "Gemini", "family": "google",
			"endpoint": "gemini-1.5-pro", "max_tokens": 4096, "temperature": 0.7,
			"enabled": true,
		}
		rec := f.request(t, http.MethodPut, "/api/v1/providers", adminToken, map[string]interface{}{
			"providers": []map[string]interface{}{dup, dup},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("replace installs a whole catalog", func(t *testing.T) {
		rec := f.request(t, http.MethodPut, "/api/v1/providers", adminToken, map[string]interface{}{
			"providers": []map[string]interface{}{
				{
					"id": "gemini", "display_name": "Gemini 1.5 Pro", "family": "google",
					"endpoint": "gemini-1.5-pro", "max_tokens": 4096, "temperature": 0.7,
					"priority": 1, "enabled": true, "is_default": true,
				},
			},
		})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, f.deps.Registry.All(), 1)
	})

	t.Run("delete removes the provider", func(t *testing.T) {
		rec := f.request(t, http.MethodDelete, "/api/v1/providers/gemini", adminToken, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = f.request(t, http.MethodDelete, "/api/v1/providers/gemini", adminToken, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

// --- user self-service ---

func TestUserHandlers(t *testing.T) {
	f := newFixture(t)
	user := f.addUser(t, "maria", "segredo123", models.RoleUser)
	token := f.token(t, user)

	t.Run("me returns own record without hash", func(t *testing.T) {
		rec := f.request(t, http.MethodGet, "/api/v1/users/me", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var me models.User
		decodeBody(t, rec, &me)
		assert.Equal(t, "maria", me.ID)
		assert.NotContains(t, rec.Body.String(), "password_hash")
	})

	t.Run("set preferred model", func(t *testing.T) {
		rec := f.request(t, http.MethodPut, "/api/v1/users/me/preferred-model", token, map[string]string{
			"provider_id": "claude",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		stored, err := f.users.GetByID(context.Background(), "maria")
		require.NoError(t, err)
		assert.Equal(t, "claude", stored.PreferredModel)
	})

	t.Run("preferred model steers generation", func(t *testing.T) {
		rec := f.request(t, http.MethodPost, "/api/v1/generate", token, map[string]string{
			"prompt": "olá",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var result orchestrator.Result
		decodeBody(t, rec, &result)
		assert.Equal(t, "claude", result.ProviderUsed)
	})

	t.Run("unknown provider id rejected", func(t *testing.T) {
		rec := f.request(t, http.MethodPut, "/api/v1/users/me/preferred-model", token, map[string]string{
			"provider_id": "inexistente",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("clearing the preference", func(t *testing.T) {
		rec := f.request(t, http.MethodPut, "/api/v1/users/me/preferred-model", token, map[string]string{
			"provider_id": "",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		stored, err := f.users.GetByID(context.Background(), "maria")
		require.NoError(t, err)
		assert.Empty(t, stored.PreferredModel)
	})
}

// --- prompt templates ---

func TestTemplateHandlers(t *testing.T) {
	f := newFixture(t)
	maria := f.addUser(t, "maria", "segredo123", models.RoleUser)
	joao := f.addUser(t, "joao", "outra-senha", models.RoleUser)
	admin := f.addUser(t, "chefe", "senha-admin", models.RoleAdmin)
	mariaToken := f.token(t, maria)
	joaoToken := f.token(t, joao)

	var privateID, publicID string

	t.Run("save a private template", func(t *testing.T) {
		rec := f.request(t, http.MethodPost, "/api/v1/templates", mariaToken, map[string]interface{}{
			"title":   "Ofício padrão",
			"content": "Redija um ofício sobre {assunto}",
		})
		require.Equal(t, http.StatusCreated, rec.Code)

		var created models.PromptTemplate
		decodeBody(t, rec, &created)
		assert.Equal(t, "maria", created.CreatedBy)
		assert.False(t, created.IsPublic)
		privateID = created.ID.String()
	})

	t.Run("save a public template", func(t *testing.T) {
		rec := f.request(t, http.MethodPost, "/api/v1/templates", mariaToken, map[string]interface{}{
			"title":     "Comunicado geral",
			"content":   "Escreva um comunicado sobre {tema}",
			"is_public": true,
		})
		require.Equal(t, http.StatusCreated, rec.Code)

		var created models.PromptTemplate
		decodeBody(t, rec, &created)
		assert.True(t, created.IsPublic)
		publicID = created.ID.String()
	})

	t.Run("missing title rejected", func(t *testing.T) {
		rec := f.request(t, http.MethodPost, "/api/v1/templates", mariaToken, map[string]interface{}{
			"content": "sem título",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("owner lists own plus public", func(t *testing.T) {
		rec := f.request(t, http.MethodGet, "/api/v1/templates", mariaToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Count int `json:"count"`
		}
		decodeBody(t, rec, &resp)
		assert.Equal(t, 2, resp.Count)
	})

	t.Run("other user sees only the public one", func(t *testing.T) {
		rec := f.request(t, http.MethodGet, "/api/v1/templates", joaoToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Templates []models.PromptTemplate `json:"templates"`
			Count     int                     `json:"count"`
		}
		decodeBody(t, rec, &resp)
		require.Equal(t, 1, resp.Count)
		assert.Equal(t, publicID, resp.Templates[0].ID.String())
	})

	t.Run("admin lists everything", func(t *testing.T) {
		rec := f.request(t, http.MethodGet, "/api/v1/templates", f.token(t, admin), nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Count int `json:"count"`
		}
		decodeBody(t, rec, &resp)
		assert.Equal(t, 2, resp.Count)
	})

	t.Run("private template hidden from others", func(t *testing.T) {
		rec := f.request(t, http.MethodGet, "/api/v1/templates/"+privateID, joaoToken, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = f.request(t, http.MethodGet, "/api/v1/templates/"+privateID, mariaToken, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("public visibility does not grant deletion", func(t *testing.T) {
		rec := f.request(t, http.MethodDelete, "/api/v1/templates/"+publicID, joaoToken, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("owner deletes own template", func(t *testing.T) {
		rec := f.request(t, http.MethodDelete, "/api/v1/templates/"+privateID, mariaToken, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = f.request(t, http.MethodGet, "/api/v1/templates/"+privateID, mariaToken, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed template id", func(t *testing.T) {
		rec := f.request(t, http.MethodGet, "/api/v1/templates/nao-e-uuid", mariaToken, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("no token", func(t *testing.T) {
		rec := f.request(t, http.MethodGet, "/api/v1/templates", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

// --- health ---

func TestHealthCheck(t *testing.T) {
	f := newFixture(t)
	rec := f.request(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}
