package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/campusconnect/campus-api/internal/dto"
	"github.com/campusconnect/campus-api/internal/handler"
	"github.com/campusconnect/campus-api/internal/models"
	"github.com/campusconnect/campus-api/internal/repository"
	"github.com/campusconnect/campus-api/internal/service"
)

func authAs(userID string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("user_id", userID)
		return c.Next()
	}
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, json.Unmarshal(body, target))
}

func setupFriendApp(t *testing.T, userID string) (*fiber.App, service.FriendService) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Friendship{}, &models.PrivacySettings{}, &models.Profile{}))

	validate := validator.New(validator.WithRequiredStructEnabled())
	profiles := repository.NewProfileRepository(db)
	friendService := service.NewFriendService(repository.NewFriendRepository(db), profiles, nil, validate, zerolog.Nop())
	friendHandler := handler.NewFriendHandler(friendService, validate, zerolog.Nop())

	app := fiber.New()
	group := app.Group("/api/v1/friends", authAs(userID))
	friendHandler.Register(group)
	return app, friendService
}

func TestFriendHandlerRequestAndPending(t *testing.T) {
	app, _ := setupFriendApp(t, "bob")

	payload, _ := json.Marshal(map[string]string{"addressee_id": "bob"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/friends/requests", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	// bob -> bob is a self request.
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	payload, _ = json.Marshal(map[string]string{"addressee_id": "alice"})
	req = httptest.NewRequest(http.MethodPost, "/api/v1/friends/requests", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		Data dto.FriendshipResponse `json:"data"`
	}
	decodeResponse(t, resp, &created)
	require.Equal(t, models.FriendStatusPending, created.Data.Status)
	require.Equal(t, "bob", created.Data.RequesterID)

	// Sending again conflicts.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/friends/requests", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestFriendHandlerAcceptAuthorization(t *testing.T) {
	app, svc := setupFriendApp(t, "bob")

	request, err := svc.Request(context.Background(), "bob", dto.FriendRequestCreate{AddresseeID: "alice"})
	require.NoError(t, err)

	// bob is the requester, not the addressee.
	req := httptest.NewRequest(http.MethodPatch, fmt.Sprintf("/api/v1/friends/requests/%d/accept", request.ID), nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	req = httptest.NewRequest(http.MethodPatch, "/api/v1/friends/requests/999/accept", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	req = httptest.NewRequest(http.MethodPatch, "/api/v1/friends/requests/abc/accept", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
