package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chachabrian/chefbook-backend/internal/middleware"
	"github.com/chachabrian/chefbook-backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type stubResolver map[string]services.Principal

func (r stubResolver) Resolve(_ context.Context, credential string) (services.Principal, error) {
	p, ok := r[credential]
	if !ok {
		return nil, services.ErrUnauthenticated
	}
	return p, nil
}

func setupAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	resolver := stubResolver{"tok-ria": services.Requester{ID: 7, Name: "ria"}}

	whoami := func(c *gin.Context) {
		p, _ := middleware.CurrentPrincipal(c)
		c.JSON(200, gin.H{"id": p.PrincipalID()})
	}

	r := gin.New()
	r.GET("/api/ws", middleware.WebSocketAuthMiddleware(resolver), whoami)
	r.GET("/api/bookings/requester", middleware.AuthMiddleware(resolver), whoami)
	return r
}

func get(r *gin.Engine, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddlewareBearerHeader(t *testing.T) {
	r := setupAuthRouter()

	assert.Equal(t, http.StatusOK, get(r, "/api/bookings/requester", "tok-ria").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/api/bookings/requester", "tok-bad").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/api/bookings/requester", "").Code)
}

func TestQueryTokenOnlyOnWebSocketRoute(t *testing.T) {
	r := setupAuthRouter()

	w := get(r, "/api/bookings/requester?token=tok-ria", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Authorization header required")

	assert.Equal(t, http.StatusOK, get(r, "/api/ws?token=tok-ria", "").Code)
	assert.Equal(t, http.StatusOK, get(r, "/api/ws", "tok-ria").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/api/ws?token=tok-bad", "").Code)
}
