package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"trackrequestd/internal/controller"
	"trackrequestd/internal/model"
	"trackrequestd/internal/store"
	"trackrequestd/internal/trackrequest"
)

// Deps bundles everything a route handler needs; routes hold no state of
// their own beyond these references.
type Deps struct {
	Controller *controller.Controller
	Store      store.Store
	Search     trackrequest.SearchProvider
	Radio      trackrequest.RadioManager
}

type createRequestBody struct {
	UserId          int64                `json:"user_id" binding:"required"`
	Metadata        model.AudioMetadata  `json:"metadata" binding:"required"`
	Options         model.RequestOptions `json:"options"`
	TargetChannelId int64                `json:"target_channel_id" binding:"required"`
}

type createRequestResponse struct {
	RequestId string `json:"request_id"`
}

func setupRoutes(r *gin.Engine, deps Deps, auth0 Auth0Config, readyProbe func() bool) {
	api := r.Group("/")

	api.GET("/healthz", func(c *gin.Context) {
		if readyProbe != nil && !readyProbe() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "starting"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if err := deps.Search.CheckConnection(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search adapter unreachable"})
			return
		}
		if err := deps.Radio.CheckConnection(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "radio manager unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	requests := api.Group("/requests")
	requests.Use(auth0Middleware(auth0))
	{
		requests.POST("", handleCreateRequest(deps))
		requests.GET("", handleListRequests(deps))
		requests.GET("/:id", handleGetRequest(deps))
	}
}

// authorizedUser requires the request's user_id query param to match the
// authenticated caller, writing the appropriate error response and
// returning ok=false otherwise.
func authorizedUser(c *gin.Context) (model.UserId, bool) {
	userId, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id query param is required"})
		return 0, false
	}

	caller, ok := currentUser(c)
	if !ok || int64(caller) != userId {
		c.JSON(http.StatusForbidden, gin.H{"error": "user_id does not match authenticated caller"})
		return 0, false
	}
	return model.UserId(userId), true
}

func handleCreateRequest(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body createRequestBody
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		caller, ok := currentUser(c)
		if !ok || int64(caller) != body.UserId {
			c.JSON(http.StatusForbidden, gin.H{"error": "user_id does not match authenticated caller"})
			return
		}

		req, err := deps.Controller.CreateRequest(
			c.Request.Context(),
			model.UserId(body.UserId),
			body.Metadata,
			body.Options,
			model.RadioManagerChannelId(body.TargetChannelId),
		)
		if errors.Is(err, trackrequest.ErrAlreadyExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "track already exists on channel"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create request"})
			return
		}

		c.JSON(http.StatusCreated, createRequestResponse{RequestId: string(req)})
	}
}

func handleListRequests(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId, ok := authorizedUser(c)
		if !ok {
			return
		}

		statuses, err := deps.Store.GetAllStatuses(c.Request.Context(), userId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load statuses"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"statuses": statuses})
	}
}

func handleGetRequest(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId, ok := authorizedUser(c)
		if !ok {
			return
		}

		statuses, err := deps.Store.GetAllStatuses(c.Request.Context(), userId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load statuses"})
			return
		}

		status, ok := statuses[model.RequestId(c.Param("id"))]
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "request not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": status})
	}
}
