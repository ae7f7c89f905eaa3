package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/herald/core"
	"github.com/layer-3/herald/service"
	"go.uber.org/zap"
)

// Handlers contains HTTP handlers for session and publication endpoints
type Handlers struct {
	sessions  *service.SessionManager
	publisher *service.Publisher
	metadata  *service.MetadataService
	retry     service.RetryPolicy
	logger    *zap.Logger
}

// NewHandlers creates new handlers
func NewHandlers(
	sessions *service.SessionManager,
	publisher *service.Publisher,
	metadata *service.MetadataService,
	retry service.RetryPolicy,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		sessions:  sessions,
		publisher: publisher,
		metadata:  metadata,
		retry:     retry,
		logger:    logger,
	}
}

type publicationRequest struct {
	Kind                  string `json:"kind" binding:"required,oneof=post comment mirror"`
	ProfileID             string `json:"profileId" binding:"required"`
	ContentURI            string `json:"contentUri"`
	PublicationID         string `json:"publicationId"`
	CollectModule         string `json:"collectModule" binding:"omitempty,oneof=free revert"`
	FollowerOnlyCollect   bool   `json:"followerOnlyCollect"`
	FollowerOnlyReference bool   `json:"followerOnlyReference"`
}

func (r publicationRequest) action() core.ActionRequest {
	return core.ActionRequest{
		Kind:          core.ActionKind(r.Kind),
		ProfileID:     r.ProfileID,
		ContentURI:    r.ContentURI,
		PublicationID: r.PublicationID,
		CollectModule: core.CollectModule{
			Kind:         core.CollectKind(r.CollectModule),
			FollowerOnly: r.FollowerOnlyCollect,
		},
		ReferenceModule: core.ReferenceModule{FollowerOnly: r.FollowerOnlyReference},
	}
}

// Login authenticates the bound signer, replacing any current session
func (h *Handlers) Login(c *gin.Context) {
	signer := h.sessions.Signer()
	if signer == nil {
		h.fail(c, core.NewError(core.StageAuth, core.ErrSignerUnavailable, "no signer bound", nil))
		return
	}

	ctx := c.Request.Context()
	if _, err := service.Retry(ctx, h.retry, h.logger, func(ctx context.Context) (core.Session, error) {
		return h.sessions.Authenticate(ctx, signer.Address())
	}); err != nil {
		h.fail(c, err)
		return
	}

	info, err := h.sessions.Info(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// Session describes the current session
func (h *Handlers) Session(c *gin.Context) {
	info, err := h.sessions.Info(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// Logout ends the current session
func (h *Handlers) Logout(c *gin.Context) {
	if err := h.sessions.Logout(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Profile returns the default profile of the session address
func (h *Handlers) Profile(c *gin.Context) {
	profile, err := h.metadata.DefaultProfile(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// Publish authorizes and submits a post, comment or mirror
func (h *Handlers) Publish(c *gin.Context) {
	var req publicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "detail": err.Error()})
		return
	}

	action := req.action()
	tx, err := service.Retry(c.Request.Context(), h.retry, h.logger, func(ctx context.Context) (core.TxHandle, error) {
		return h.publisher.Publish(ctx, action)
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, tx)
}

// ValidateMetadata builds a text publication document and asks the service
// whether it is acceptable
func (h *Handlers) ValidateMetadata(c *gin.Context) {
	var req struct {
		Handle  string `json:"handle" binding:"required"`
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "detail": err.Error()})
		return
	}

	doc := service.BuildTextMetadata(req.Handle, req.Content)
	verdict, err := h.metadata.Validate(c.Request.Context(), doc)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"metadata": doc, "validation": verdict})
}

func (h *Handlers) fail(c *gin.Context, err error) {
	status := statusFor(err)
	body := gin.H{"error": err.Error()}
	if stage, ok := core.StageOf(err); ok {
		body["stage"] = stage
	}
	if reason, ok := core.RevertReason(err); ok {
		body["revertReason"] = reason
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, body)
}

// statusFor maps a classified error to a response status
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrNoSession),
		errors.Is(err, core.ErrUnauthorized),
		errors.Is(err, core.ErrAuthRejected):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrUserRejected):
		return http.StatusForbidden
	case errors.Is(err, core.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrContractRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrNetworkUnavailable),
		errors.Is(err, core.ErrNoChallenge),
		errors.Is(err, core.ErrPayloadMismatch),
		errors.Is(err, core.ErrPayloadStripFailure),
		errors.Is(err, core.ErrMalformedSignature),
		errors.Is(err, core.ErrInvalidPayload):
		return http.StatusBadGateway
	case errors.Is(err, core.ErrSignerUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
