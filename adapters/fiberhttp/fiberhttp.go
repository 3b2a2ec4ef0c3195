// Package fiberhttp wires the auth service onto a Fiber router. It owns
// nothing but translation: request bodies to service inputs, service errors
// to the response envelope and status codes.
package fiberhttp

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"

	"github.com/mreyes/latch/core"
	"github.com/mreyes/latch/crypto"
	"github.com/mreyes/latch/services"
)

type Adapter struct {
	auth   *services.AuthService
	logger zerolog.Logger
}

func New(auth *services.AuthService, logger zerolog.Logger) *Adapter {
	return &Adapter{auth: auth, logger: logger}
}

// Register mounts the auth surface under basePath.
func (a *Adapter) Register(router fiber.Router, basePath string) {
	group := router.Group(basePath)

	group.Post("/register", a.register)
	group.Post("/login", a.login)
	group.Get("/profile", a.RequireAuth, a.profile)
	group.Get("/logout", a.RequireAuth, a.logout)
}

func (a *Adapter) register(c fiber.Ctx) error {
	var input core.RegisterRequest
	if err := c.Bind().Body(&input); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}

	result, err := a.auth.Register(c.Context(), input)
	if err != nil {
		return a.fromErr(c, err)
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"success": true,
		"user":    result.User,
		"token":   result.Token,
	})
}

func (a *Adapter) login(c fiber.Ctx) error {
	var input core.LoginRequest
	if err := c.Bind().Body(&input); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}

	result, err := a.auth.Login(c.Context(), input)
	if err != nil {
		return a.fromErr(c, err)
	}
	if !result.Granted() {
		return fail(c, http.StatusUnauthorized, core.ErrInvalidCredentials.Error())
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"principal": result.Principal,
		"token":     result.Token,
	})
}

func (a *Adapter) profile(c fiber.Ctx) error {
	user, err := a.auth.Profile(c.Context(), tokenFromCtx(c))
	if err != nil {
		return a.fromErr(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    user,
	})
}

func (a *Adapter) logout(c fiber.Ctx) error {
	if err := a.auth.Logout(c.Context(), tokenFromCtx(c)); err != nil {
		return a.fromErr(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "logged out",
	})
}

const localsToken = "latch_token"

// RequireAuth validates the Authorization header, resolves the principal
// and stores both in the request context for downstream handlers.
func (a *Adapter) RequireAuth(c fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return fail(c, http.StatusUnauthorized, core.ErrMissingAuthHeader.Error())
	}

	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return fail(c, http.StatusUnauthorized, core.ErrInvalidAuthHeader.Error())
	}

	principal, err := a.auth.ResolveToken(c.Context(), token)
	if err != nil {
		return a.fromErr(c, err)
	}

	c.Locals(localsToken, token)
	c.Locals("principal", principal)

	return c.Next()
}

// PrincipalFromCtx returns the principal stored by RequireAuth, or nil.
func PrincipalFromCtx(c fiber.Ctx) *core.Principal {
	principal, _ := c.Locals("principal").(*core.Principal)
	return principal
}

func tokenFromCtx(c fiber.Ctx) string {
	token, _ := c.Locals(localsToken).(string)
	return token
}

func fail(c fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}

// fromErr maps the error taxonomy onto the HTTP surface.
func (a *Adapter) fromErr(c fiber.Ctx, err error) error {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error().Err(err).Int("status", status).Msg("auth request failed")
	}
	return fail(c, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrUsernameRequired),
		errors.Is(err, core.ErrPasswordRequired),
		errors.Is(err, crypto.ErrPlaintextRequired):
		return http.StatusBadRequest

	case errors.Is(err, core.ErrInvalidCredentials),
		errors.Is(err, core.ErrInvalidToken),
		errors.Is(err, core.ErrTokenExpired),
		errors.Is(err, core.ErrSessionNotFound),
		errors.Is(err, core.ErrSessionExpired),
		errors.Is(err, core.ErrMissingAuthHeader),
		errors.Is(err, core.ErrInvalidAuthHeader):
		return http.StatusUnauthorized

	case errors.Is(err, core.ErrUserNotFound):
		return http.StatusNotFound

	case errors.Is(err, core.ErrUserExists),
		errors.Is(err, core.ErrDuplicateProvider):
		return http.StatusConflict

	case errors.Is(err, core.ErrStoreTimeout):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}
