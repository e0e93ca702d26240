package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/labook/users-api/internal/api/metrics"
	"github.com/labook/users-api/internal/api/middleware"
	"github.com/labook/users-api/internal/core/domain"
	"github.com/labook/users-api/internal/core/ports"
)

// UserHandler handles HTTP requests for account operations.
type UserHandler struct {
	service ports.UserService
}

func NewUserHandler(service ports.UserService) *UserHandler {
	return &UserHandler{service: service}
}

// Signup handles POST /users/signup.
//
// @Summary      Create an account
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      signupRequest  true  "Account details"
// @Success      201   {object}  authResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /users/signup [post]
func (h *UserHandler) Signup(c echo.Context) (err error) {
	defer observe("signup", &err)

	var req signupRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	out, err := h.service.Signup(c.Request().Context(), req.toInput())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toAuthResponse(out))
}

// Login handles POST /users/login.
//
// @Summary      Login
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  authResponse
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /users/login [post]
func (h *UserHandler) Login(c echo.Context) (err error) {
	defer observe("login", &err)

	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	out, err := h.service.Login(c.Request().Context(), req.toInput())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAuthResponse(out))
}

// List handles GET /users?q=. ADMIN only.
//
// @Summary      List users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        q    query     string  false  "Case-insensitive name filter"
// @Success      200  {array}   domain.UserView
// @Failure      400  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /users [get]
func (h *UserHandler) List(c echo.Context) (err error) {
	defer observe(string(domain.OpListUsers), &err)

	users, err := h.service.ListUsers(c.Request().Context(), ports.ListUsersInput{
		Query: c.QueryParam("q"),
		Token: middleware.TokenFrom(c),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

// Get handles GET /users/:id. ADMIN and MASTER only.
//
// @Summary      Get a user by id
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User id"
// @Success      200  {object}  domain.UserView
// @Failure      400  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /users/{id} [get]
func (h *UserHandler) Get(c echo.Context) (err error) {
	defer observe(string(domain.OpReadUser), &err)

	user, err := h.service.GetUserByID(c.Request().Context(), ports.GetUserInput{
		ID:    c.Param("id"),
		Token: middleware.TokenFrom(c),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// Delete handles DELETE /users/:id. The body is optional and only carries
// the target account's password.
//
// @Summary      Delete a user by id
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true   "User id"
// @Param        body  body      deleteUserRequest  false  "Target account password"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /users/{id} [delete]
func (h *UserHandler) Delete(c echo.Context) (err error) {
	defer observe(string(domain.OpDeleteUser), &err)

	var req deleteUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	out, err := h.service.DeleteUserByID(c.Request().Context(), ports.DeleteUserInput{
		ID:       c.Param("id"),
		Token:    middleware.TokenFrom(c),
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: out.Message})
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// observe records the outcome of a handler in OperationsTotal.
func observe(operation string, errp *error) {
	metrics.OperationsTotal.WithLabelValues(operation, outcome(*errp)).Inc()
}

func outcome(err error) string {
	var he *echo.HTTPError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrBadRequest):
		return "bad_request"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrUserExists):
		return "conflict"
	case errors.As(err, &he) && he.Code < http.StatusInternalServerError:
		return "bad_request"
	default:
		return "error"
	}
}
