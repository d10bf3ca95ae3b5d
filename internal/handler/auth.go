package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/shopease-api/internal/middleware"
	"github.com/iliyamo/shopease-api/internal/model"
	"github.com/iliyamo/shopease-api/internal/service"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Auth *service.AuthService
}

func NewAuthHandler(a *service.AuthService) *AuthHandler {
	return &AuthHandler{Auth: a}
}

// ----- DTOs -----

type registerReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type profileReq struct {
	Name    *string `json:"name"`
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
}

type sessionResp struct {
	Message string   `json:"message"`
	Token   string   `json:"token"`
	User    userJSON `json:"user"`
}

type adminSessionResp struct {
	Message string    `json:"message"`
	Token   string    `json:"token"`
	Admin   adminJSON `json:"admin"`
}

// Register: create user and return a token immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return badBody(err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	sess, err := h.Auth.Register(ctx, req.Name, req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, sessionResp{
		Message: "User registered successfully",
		Token:   sess.Token.Token,
		User:    toUser(sess.User),
	})
}

// Login: verify credentials and return a fresh token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badBody(err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	sess, err := h.Auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sessionResp{
		Message: "Login successful",
		Token:   sess.Token.Token,
		User:    toUser(sess.User),
	})
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Auth.Me(ctx, uid)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"user": toProfile(u)})
}

// UpdateProfile changes the provided profile fields.
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	var req profileReq
	if err := c.Bind(&req); err != nil {
		return badBody(err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Auth.UpdateProfile(ctx, uid, model.ProfileUpdate{
		Name: req.Name, Email: req.Email, Phone: req.Phone, Address: req.Address,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Profile updated successfully", "user": toProfile(u)})
}

// AdminLogin authenticates an operator.
func (h *AuthHandler) AdminLogin(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badBody(err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	sess, err := h.Auth.AdminLogin(ctx, req.Email, req.Password)
	if err != nil {
		return err
	}
	c.Logger().Infof("admin login: %s", sess.Admin.Email)
	return c.JSON(http.StatusOK, adminSessionResp{
		Message: "Login successful",
		Token:   sess.Token.Token,
		Admin:   adminJSON{ID: sess.Admin.ID, Name: sess.Admin.Name, Email: sess.Admin.Email, Role: model.RoleAdmin},
	})
}

// currentUser returns the subject set by JWTAuth.
func currentUser(c echo.Context) (uint64, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "No token, authorization denied")
	}
	return id, nil
}
