package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/sekolah-backend/internal/config"
	"github.com/stemsi/sekolah-backend/internal/handler"
	"github.com/stemsi/sekolah-backend/internal/model"
	"github.com/stemsi/sekolah-backend/internal/repository/memory"
	"github.com/stemsi/sekolah-backend/internal/router"
	"github.com/stemsi/sekolah-backend/internal/service"
	"github.com/stemsi/sekolah-backend/internal/validator"
)

type mutexLocker struct{ mu sync.Mutex }

func (l *mutexLocker) Lock(context.Context, uuid.UUID) (func(), error) {
	l.mu.Lock()
	return l.mu.Unlock, nil
}

type noCache struct{}

func (noCache) Get(context.Context, uuid.UUID) ([]model.Concession, int64, bool) {
	return nil, 0, false
}
func (noCache) Set(context.Context, uuid.UUID, int64, []model.Concession) {}
func (noCache) Invalidate(context.Context, uuid.UUID)                     {}

type noAudit struct{}

func (noAudit) Publish(context.Context, model.ConcessionAuditEvent) {}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
	Metadata struct {
		RequestID string `json:"request_id"`
	} `json:"metadata"`
}

type testServer struct {
	engine *gin.Engine
	auth   *service.AuthService
	db     *memory.DB
}

func newTestServer(t *testing.T, mutate ...func(*config.Config)) *testServer {
	t.Helper()
	validator.Setup()

	cfg := &config.Config{
		GinMode:            gin.TestMode,
		JWTSecret:          "router-test-secret",
		JWTExpiry:          time.Hour,
		WriteRatePerMinute: 100,
		CompressMinBytes:   1024,
	}
	for _, m := range mutate {
		m(cfg)
	}

	db := memory.New()
	feeGroups := memory.NewFeeGroups(db)
	concessions := memory.NewConcessions(db)
	locker := &mutexLocker{}
	log := zerolog.Nop()

	concessionService := service.NewConcessionService(concessions, feeGroups, locker, noCache{}, noAudit{}, log)
	feeGroupService := service.NewFeeGroupService(feeGroups, locker, noCache{}, log)
	auth := service.NewAuthService(cfg)

	engine := router.SetupRouter(auth, &router.Handlers{
		Concession: handler.NewConcessionHandler(concessionService, log),
		FeeGroup:   handler.NewFeeGroupHandler(feeGroupService, log),
		System:     handler.NewSystemHandler(nil, log),
	}, cfg)

	return &testServer{engine: engine, auth: auth, db: db}
}

func (s *testServer) token(t *testing.T, branchID uuid.UUID, role model.Role) string {
	t.Helper()
	tok, err := s.auth.GenerateToken("user-"+string(role), branchID, role)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Encoding") == "" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func (s *testServer) createFeeGroup(t *testing.T, adminToken, name string) uuid.UUID {
	t.Helper()
	rec, env := s.do(t, http.MethodPost, "/api/v1/fee-groups", adminToken, gin.H{"name": name, "periodicity": "monthly"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var data struct {
		FeeGroup model.FeeGroup `json:"fee_group"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data.FeeGroup.ID
}

func discounts(lines ...any) []gin.H {
	var out []gin.H
	for i := 0; i+1 < len(lines); i += 2 {
		out = append(out, gin.H{"fees_group": lines[i], "percentage": lines[i+1]})
	}
	return out
}

func TestConcessionScenarios(t *testing.T) {
	s := newTestServer(t)
	branch := uuid.New()
	admin := s.token(t, branch, model.RoleAdmin)
	g1 := s.createFeeGroup(t, admin, "Tuition")
	g2 := s.createFeeGroup(t, admin, "Transport")

	t.Run("full coverage is created", func(t *testing.T) {
		rec, env := s.do(t, http.MethodPost, "/api/v1/concessions", admin,
			gin.H{"category": "EWS", "discounts": discounts(g1, 10, g2, 20)})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var data struct {
			Concession struct {
				ID        uuid.UUID `json:"id"`
				Category  string    `json:"category"`
				Discounts []struct {
					FeesGroup  model.FeeGroupRef `json:"fees_group"`
					Percentage float64           `json:"percentage"`
				} `json:"discounts"`
			} `json:"concession"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &data))
		assert.Equal(t, "EWS", data.Concession.Category)
		require.Len(t, data.Concession.Discounts, 2)
		assert.Equal(t, "Tuition", data.Concession.Discounts[0].FeesGroup.Name)
		assert.Equal(t, float64(20), data.Concession.Discounts[1].Percentage)
		assert.NotEmpty(t, env.Metadata.RequestID)
	})

	t.Run("missing group is reported", func(t *testing.T) {
		rec, env := s.do(t, http.MethodPost, "/api/v1/concessions", admin,
			gin.H{"category": "EWS", "discounts": discounts(g1, 10)})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
		assert.Equal(t, "Discounts must be provided for all fee groups. Missing: "+g2.String(), env.Error.Message)
	})

	t.Run("out of range percentage", func(t *testing.T) {
		rec, env := s.do(t, http.MethodPost, "/api/v1/concessions", admin,
			gin.H{"category": "EWS", "discounts": discounts(g1, 150)})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		require.NotNil(t, env.Error)
		assert.Contains(t, env.Error.Message, g1.String())
		assert.Contains(t, env.Error.Message, "between 0 and 100")
	})

	t.Run("invalid category", func(t *testing.T) {
		rec, env := s.do(t, http.MethodPost, "/api/v1/concessions", admin,
			gin.H{"category": "Bogus", "discounts": discounts(g1, 10, g2, 10)})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "Invalid category", env.Error.Message)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec, env := s.do(t, http.MethodPost, "/api/v1/concessions", admin, `{"category":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "INVALID_PAYLOAD", env.Error.Code)
	})
}

func TestConcessionAcrossBranches(t *testing.T) {
	s := newTestServer(t)
	branchA, branchB := uuid.New(), uuid.New()
	adminA := s.token(t, branchA, model.RoleAdmin)
	adminB := s.token(t, branchB, model.RoleAdmin)

	ga := s.createFeeGroup(t, adminA, "Tuition")
	gb := s.createFeeGroup(t, adminB, "Tuition")

	rec, env := s.do(t, http.MethodPost, "/api/v1/concessions", adminA,
		gin.H{"category": "EWS", "discounts": discounts(ga, 10)})
	require.Equal(t, http.StatusCreated, rec.Code)
	var data struct {
		Concession model.Concession `json:"concession"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	path := "/api/v1/concessions/" + data.Concession.ID.String()

	rec, _ = s.do(t, http.MethodPut, path, adminB, gin.H{"category": "EWS", "discounts": discounts(gb, 10)})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = s.do(t, http.MethodGet, path, adminB, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = s.do(t, http.MethodDelete, path, adminB, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env = s.do(t, http.MethodGet, "/api/v1/concessions", adminB, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"concessions":[]}`, string(env.Data))

	rec, _ = s.do(t, http.MethodGet, path, adminA, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestConcessionLifecycle(t *testing.T) {
	s := newTestServer(t)
	branch := uuid.New()
	admin := s.token(t, branch, model.RoleAdmin)
	g1 := s.createFeeGroup(t, admin, "Tuition")

	rec, env := s.do(t, http.MethodPost, "/api/v1/concessions", admin,
		gin.H{"category": "Other", "discounts": discounts(g1, "12.5")})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var data struct {
		Concession model.Concession `json:"concession"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	path := "/api/v1/concessions/" + data.Concession.ID.String()

	g2 := s.createFeeGroup(t, admin, "Library")

	rec, env = s.do(t, http.MethodPut, path, admin, gin.H{"category": "Other", "discounts": discounts(g1, 15)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Discounts must be provided for all fee groups. Missing: "+g2.String(), env.Error.Message)

	rec, _ = s.do(t, http.MethodPut, path, admin, gin.H{"category": "Other", "discounts": discounts(g1, 15, g2, 0)})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = s.do(t, http.MethodDelete, "/api/v1/fee-groups/"+g2.String(), admin, nil)
	assert.Equal(t, http.StatusConflict, rec.Code, "referenced fee group cannot be deleted")

	rec, env = s.do(t, http.MethodDelete, path, admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Concession deleted successfully"}`, string(env.Data))
	assert.Zero(t, s.db.ConcessionCount(branch))

	rec, _ = s.do(t, http.MethodDelete, path, admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env = s.do(t, http.MethodPut, "/api/v1/concessions/not-a-uuid", admin, gin.H{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_ID", env.Error.Code)
}

func TestConcessionReadEndpoints(t *testing.T) {
	s := newTestServer(t)
	branch := uuid.New()
	admin := s.token(t, branch, model.RoleAdmin)
	g1 := s.createFeeGroup(t, admin, "Tuition")

	parent := s.token(t, branch, model.RoleParent)
	rec, env := s.do(t, http.MethodGet, "/api/v1/concessions/fee-groups", parent, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"fee_groups":[{"id":"`+g1.String()+`","name":"Tuition"}]}`, string(env.Data))

	teacher := s.token(t, branch, model.RoleTeacher)
	rec, env = s.do(t, http.MethodGet, "/api/v1/concessions/categories", teacher, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cats struct {
		Categories []string `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &cats))
	assert.Len(t, cats.Categories, 12)
	assert.Equal(t, "EWS", cats.Categories[0])
}

func TestAccessControl(t *testing.T) {
	s := newTestServer(t)
	branch := uuid.New()

	t.Run("no token", func(t *testing.T) {
		rec, env := s.do(t, http.MethodGet, "/api/v1/concessions", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "TOKEN_REQUIRED", env.Error.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		rec, env := s.do(t, http.MethodGet, "/api/v1/concessions", "abc.def.ghi", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "TOKEN_INVALID", env.Error.Code)
	})

	t.Run("unknown role", func(t *testing.T) {
		rec, env := s.do(t, http.MethodGet, "/api/v1/concessions", s.token(t, branch, model.Role("student")), nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "FORBIDDEN", env.Error.Code)
	})

	t.Run("fee group admin only", func(t *testing.T) {
		rec, _ := s.do(t, http.MethodPost, "/api/v1/fee-groups", s.token(t, branch, model.RoleTeacher),
			gin.H{"name": "Tuition", "periodicity": "monthly"})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("token without branch", func(t *testing.T) {
		rec, env := s.do(t, http.MethodGet, "/api/v1/concessions", s.token(t, uuid.Nil, model.RoleAdmin), nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "BRANCH_MISSING", env.Error.Code)
	})

	t.Run("missing branch wins over bad input", func(t *testing.T) {
		noBranch := s.token(t, uuid.Nil, model.RoleAdmin)
		cases := []struct {
			method, path string
		}{
			{http.MethodPost, "/api/v1/concessions"},
			{http.MethodPut, "/api/v1/concessions/not-a-uuid"},
			{http.MethodPost, "/api/v1/fee-groups"},
			{http.MethodPut, "/api/v1/fee-groups/not-a-uuid"},
		}
		for _, tc := range cases {
			rec, env := s.do(t, tc.method, tc.path, noBranch, `{"category":`)
			assert.Equal(t, http.StatusBadRequest, rec.Code, tc.path)
			require.NotNil(t, env.Error, tc.path)
			assert.Equal(t, "BRANCH_MISSING", env.Error.Code, "%s %s", tc.method, tc.path)
		}
	})
}

func TestSystemStatusAdminOnly(t *testing.T) {
	s := newTestServer(t)
	branch := uuid.New()

	rec, _ := s.do(t, http.MethodGet, "/api/v1/system/status", s.token(t, branch, model.RoleParent), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env := s.do(t, http.MethodGet, "/api/v1/system/status", s.token(t, branch, model.RoleAdmin), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status struct {
		QueueAudit int64  `json:"queue_audit"`
		GoVersion  string `json:"go_version"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.Equal(t, int64(-1), status.QueueAudit)
	assert.NotEmpty(t, status.GoVersion)
}

func TestFeeGroupValidation(t *testing.T) {
	s := newTestServer(t)
	admin := s.token(t, uuid.New(), model.RoleAdmin)

	rec, env := s.do(t, http.MethodPost, "/api/v1/fee-groups", admin, gin.H{"name": "Tuition", "periodicity": "weekly"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "periodicity must be one of monthly, quarterly, half_yearly, yearly, one_time", env.Error.Fields["periodicity"])

	s.createFeeGroup(t, admin, "Tuition")
	rec, env = s.do(t, http.MethodPost, "/api/v1/fee-groups", admin, gin.H{"name": "Tuition", "periodicity": "yearly"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CONFLICT", env.Error.Code)
}

func TestWriteRateLimit(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.WriteRatePerMinute = 2 })
	admin := s.token(t, uuid.New(), model.RoleAdmin)

	s.createFeeGroup(t, admin, "Tuition")
	s.createFeeGroup(t, admin, "Transport")

	rec, env := s.do(t, http.MethodPost, "/api/v1/fee-groups", admin, gin.H{"name": "Library", "periodicity": "yearly"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", env.Error.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	rec, _ = s.do(t, http.MethodGet, "/api/v1/fee-groups", admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code, "reads are not limited")
}

func TestBrotliResponses(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.CompressMinBytes = 64 })
	admin := s.token(t, uuid.New(), model.RoleAdmin)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/concessions/categories", nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	req.Header.Set("Accept-Encoding", "gzip, br")
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "br", rec.Header().Get("Content-Encoding"))

	plain, err := io.ReadAll(brotli.NewReader(rec.Body))
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(plain), "Early Enrollment Concession"))

	rec, _ = s.do(t, http.MethodGet, "/health", "", nil)
	assert.Empty(t, rec.Header().Get("Content-Encoding"), "no br without Accept-Encoding")
}
