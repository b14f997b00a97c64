package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smartbee/auth-service/internal/auth/dto"
	authErrors "github.com/smartbee/auth-service/internal/auth/errors"
	"github.com/smartbee/auth-service/internal/auth/model"
	"github.com/smartbee/auth-service/internal/auth/service"
	"github.com/smartbee/auth-service/internal/repo"
	"github.com/smartbee/auth-service/internal/transport/http/middleware"
)

type Handler struct {
	svc   service.AuthService
	users repo.UserRepo
	log   *zap.Logger
}

func NewHandler(svc service.AuthService, users repo.UserRepo, log *zap.Logger) *Handler {
	return &Handler{svc: svc, users: users, log: log}
}

type userResponse struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Status string `json:"status"`
}

func toUserResponse(u model.User) userResponse {
	return userResponse{
		ID:     u.ID.String(),
		Email:  u.Email,
		Name:   u.Name,
		Role:   string(u.Role),
		Status: string(u.Status),
	}
}

type tokenResponse struct {
	Token        string       `json:"token"`
	RefreshToken string       `json:"refreshToken"`
	ExpiresIn    int          `json:"expiresIn"`
	User         userResponse `json:"user"`
}

func toTokenResponse(pair model.TokenPair) tokenResponse {
	return tokenResponse{
		Token:        pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    int(pair.AccessTTL.Seconds()),
		User:         toUserResponse(pair.User),
	}
}

// RegisterRoutes wires the auth surface. guard runs only on the routes that
// need a verified identity; login/register/refresh stay public.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	guard := middleware.Authenticate(h.svc, h.log)

	auth := r.Group("/api/auth")
	{
		auth.POST("/register", h.register)
		auth.POST("/login", h.login)
		auth.POST("/refresh", h.refresh)
		auth.POST("/logout", h.logout)
		auth.GET("/me", guard, h.me)
	}

	users := r.Group("/api/users", guard, middleware.RequireRoles(model.RoleAdmin))
	{
		users.GET("", h.listUsers)
		users.PATCH("/:id/status", h.updateUserStatus)
		users.DELETE("/:id", h.deleteUser)
	}
}

func (h *Handler) register(c *gin.Context) {
	var body dto.RegisterDTO
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	pair, err := h.svc.Register(c.Request.Context(), body)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toTokenResponse(pair))
}

func (h *Handler) login(c *gin.Context) {
	var body dto.LoginDTO
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	pair, err := h.svc.Login(c.Request.Context(), body)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTokenResponse(pair))
}

func (h *Handler) refresh(c *gin.Context) {
	var body dto.RefreshDTO
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	pair, err := h.svc.Refresh(c.Request.Context(), body)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTokenResponse(pair))
}

func (h *Handler) logout(c *gin.Context) {
	var body dto.LogoutDTO
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	if err := h.svc.Logout(c.Request.Context(), body); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h *Handler) me(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "authentication required"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":    identity.ID.String(),
		"email": identity.Email,
		"role":  string(identity.Role),
	})
}

func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.users.ListUsers(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	c.JSON(http.StatusOK, gin.H{"users": out})
}

type statusRequest struct {
	Status string `json:"status" binding:"required,oneof=active inactive"`
}

// updateUserStatus flips an account between active and inactive. Deactivation
// takes effect on the next guard pass: existing tokens stop resolving.
func (h *Handler) updateUserStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid user id"})
		return
	}

	var body statusRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	user, err := h.users.GetUserByID(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	user.Status = model.Status(body.Status)
	if err := h.users.UpdateUser(c.Request.Context(), user); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

func (h *Handler) deleteUser(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid user id"})
		return
	}

	if err := h.users.DeleteUser(c.Request.Context(), id); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case authErrors.IsInvalidArgument(err):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	case authErrors.IsInvalidCredentials(err):
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid credentials"})
	case authErrors.IsInactiveAccount(err):
		c.JSON(http.StatusUnauthorized, gin.H{"message": "account is inactive"})
	case authErrors.IsInvalidToken(err) || authErrors.IsExpiredToken(err):
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid token"})
	case authErrors.IsForbidden(err):
		c.JSON(http.StatusForbidden, gin.H{"message": "access denied"})
	case authErrors.IsAlreadyExists(err):
		c.JSON(http.StatusConflict, gin.H{"message": "email already registered"})
	case authErrors.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"message": "not found"})
	default:
		h.log.Error("unhandled error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal server error"})
	}
}
