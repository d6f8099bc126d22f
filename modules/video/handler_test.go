package video

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"reelcraft-server/modules/common/auth"
	"reelcraft-server/modules/common/model"
	"reelcraft-server/modules/common/org"
	"reelcraft-server/modules/common/utils"
)

const (
	jwtSecret     = "handler-secret"
	callbackToken = "cb-token"
)

type fakeMembers map[string]*model.TeamMember

func (f fakeMembers) FetchMember(ctx context.Context, teamID, userID string) (*model.TeamMember, error) {
	if m, ok := f[teamID+"/"+userID]; ok {
		return m, nil
	}
	return nil, model.ErrNotFound
}

func newTestRouter(env *testEnv) *mux.Router {
	members := fakeMembers{
		testTeam + "/user-1": {TeamID: testTeam, UserID: "user-1", Role: model.RoleMember},
	}
	r := mux.NewRouter()
	NewHandler(env.service, org.NewGuard(jwtSecret, members), callbackToken).RegisterRoutes(r)
	return r
}

func bearer(t *testing.T, sub string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(jwtSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func generateRequest(t *testing.T, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/videos/generate", strings.NewReader(body))
	req.Header.Set("Authorization", bearer(t, "user-1"))
	req.Header.Set(org.TeamHeader, testTeam)
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) utils.ErrorResponse {
	t.Helper()
	var body utils.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHandleGenerate_Accepted(t *testing.T) {
	env := newTestEnv()
	rec := httptest.NewRecorder()
	newTestRouter(env).ServeHTTP(rec, generateRequest(t, `{"imageId":"img-1","prompt":"spin","durationSeconds":16}`))

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp GenerationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.Segments)
	assert.Equal(t, "task-1", resp.KieTaskID)
}

func TestHandleGenerate_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		setup    func(env *testEnv)
		status   int
		code     string
		errorMsg string
	}{
		{
			name:   "quota exceeded",
			body:   `{"imageId":"img-1","prompt":"spin"}`,
			setup:  func(env *testEnv) { env.quota.used, env.quota.limit = 3, 3 },
			status: http.StatusPaymentRequired,
			code:   ErrCodeQuotaExceeded,
		},
		{
			name: "provider error",
			body: `{"imageId":"img-1","prompt":"spin"}`,
			setup: func(env *testEnv) {
				env.provider.generateErr = &ProviderError{Code: 422, Message: "prompt rejected by safety filter"}
			},
			status:   http.StatusBadGateway,
			code:     ErrCodeProvider,
			errorMsg: "prompt rejected by safety filter",
		},
		{
			name:   "unknown image",
			body:   `{"imageId":"nope","prompt":"spin"}`,
			status: http.StatusNotFound,
			code:   ErrCodeImageNotFound,
		},
		{
			name:   "duration out of range",
			body:   `{"imageId":"img-1","prompt":"spin","durationSeconds":65}`,
			status: http.StatusBadRequest,
			code:   utils.ErrCodeInvalidRequest,
		},
		{
			name:   "malformed body",
			body:   `{"imageId":`,
			status: http.StatusBadRequest,
			code:   utils.ErrCodeInvalidRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			if tt.setup != nil {
				tt.setup(env)
			}
			rec := httptest.NewRecorder()
			newTestRouter(env).ServeHTTP(rec, generateRequest(t, tt.body))

			assert.Equal(t, tt.status, rec.Code)
			body := decodeError(t, rec)
			assert.False(t, body.Success)
			assert.Equal(t, tt.code, body.ErrorCode)
			if tt.errorMsg != "" {
				assert.Equal(t, tt.errorMsg, body.Error)
			}
		})
	}
}

func TestHandleGenerate_RequiresMembership(t *testing.T) {
	env := newTestEnv()
	router := newTestRouter(env)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/videos/generate", strings.NewReader(`{}`))
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req = generateRequest(t, `{"imageId":"img-1","prompt":"spin"}`)
	req.Header.Set("Authorization", bearer(t, "stranger"))
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, env.provider.generates)
}

func postCallback(router http.Handler, token, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/kie?token="+token, strings.NewReader(body))
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleCallback(t *testing.T) {
	env := newTestEnv()
	router := newTestRouter(env)
	resp := dispatch(t, env, GenerationRequest{ImageID: "img-1", Prompt: "p"})

	rec := postCallback(router, "wrong", `{"code":200,"data":{"taskId":"task-1"}}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postCallback(router, callbackToken, `{"msg":"no code"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postCallback(router, callbackToken, `{"code":200,"data":{"taskId":"unknown"}}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"outcome":"ignored"`)

	rec = postCallback(router, callbackToken,
		`{"code":200,"msg":"success","data":{"taskId":"task-1","info":{"resultUrls":["https://provider.test/a.mp4"]}}}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"outcome":"completed"`)
	assert.Equal(t, model.StatusCompleted, env.store.get(resp.VideoID).Status)
}

func TestHandleCallback_StoreErrorAsksForRetry(t *testing.T) {
	env := newTestEnv()
	env.store.lookupErr = errors.New("connection refused")

	rec := postCallback(newTestRouter(env), callbackToken, `{"code":200,"data":{"taskId":"task-1"}}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, utils.ErrCodeInternal, decodeError(t, rec).ErrorCode)
}

func TestHandleGetAndDelete(t *testing.T) {
	env := newTestEnv()
	router := newTestRouter(env)
	resp := dispatch(t, env, GenerationRequest{ImageID: "img-1", Prompt: "p"})

	req := httptest.NewRequest(http.MethodGet, "/api/videos/"+resp.VideoID, nil)
	req.Header.Set("Authorization", bearer(t, "user-1"))
	req.Header.Set(org.TeamHeader, testTeam)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), resp.VideoID)

	req = httptest.NewRequest(http.MethodDelete, "/api/videos/"+resp.VideoID, nil)
	req.Header.Set("Authorization", bearer(t, "user-1"))
	req.Header.Set(org.TeamHeader, testTeam)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/videos/"+resp.VideoID, nil)
	req.Header.Set("Authorization", bearer(t, "user-1"))
	req.Header.Set(org.TeamHeader, testTeam)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, ErrCodeVideoNotFound, decodeError(t, rec).ErrorCode)
}
