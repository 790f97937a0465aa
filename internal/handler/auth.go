package handler

import (
	"html/template"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/crusade-registration/internal/model"
	"github.com/iliyamo/crusade-registration/internal/response"
	"github.com/iliyamo/crusade-registration/internal/service"
	"github.com/iliyamo/crusade-registration/internal/validation"
)

// AuthHandler serves /api/v1/auth.
type AuthHandler struct {
	Accounts *service.Accounts
	// AppScheme is the deep-link scheme of the mobile app.
	AppScheme string
	// EchoResetToken returns the reset token in the forgot-password
	// response.  Development only.
	EchoResetToken bool
}

func NewAuthHandler(accounts *service.Accounts, appScheme string, echoResetToken bool) *AuthHandler {
	return &AuthHandler{Accounts: accounts, AppScheme: appScheme, EchoResetToken: echoResetToken}
}

// ----- DTOs -----

type registerReq struct {
	FullName          string `json:"full_name" validate:"required,min=2" msg:"required=Full name is required;min=Full name must be at least 2 characters"`
	Email             string `json:"email" validate:"required,email" msg:"required=Email is required"`
	Password          string `json:"password" validate:"required,min=6" msg:"required=Password is required;min=Password must be at least 6 characters"`
	Phone             string `json:"phone" validate:"omitempty,phone"`
	Country           string `json:"country" validate:"required" msg:"required=Country is required"`
	City              string `json:"city"`
	Zone              string `json:"zone"`
	Church            string `json:"church"`
	Group             string `json:"group"`
	KingsChatUsername string `json:"kingschat_username"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email" msg:"required=Email is required"`
	Password string `json:"password" validate:"required" msg:"required=Password is required"`
}

type forgotReq struct {
	Email string `json:"email" validate:"required,email" msg:"required=Email is required"`
}

type resetReq struct {
	Token                string `json:"token" validate:"required" msg:"required=Reset token is required"`
	Password             string `json:"password" validate:"required,min=6" msg:"required=Password is required;min=Password must be at least 6 characters"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required,eqfield=Password" msg:"required=Password confirmation is required;eqfield=Passwords do not match"`
}

type kingsChatReq struct {
	AccessToken      string `json:"access_token"`
	AccessTokenCamel string `json:"accessToken"`
}

type sessionResp struct {
	User      model.PublicUser `json:"user"`
	Token     string           `json:"token"`
	ExpiresIn int64            `json:"expires_in"`
}

func sessionBody(s service.Session) sessionResp {
	return sessionResp{User: s.User.Public(), Token: s.Token, ExpiresIn: s.ExpiresIn}
}

const resetNotice = "If an account exists with this email, a reset link has been sent."

// Register creates an account and returns a token for it.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return fail(c, err, "Failed to register user")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	s, err := h.Accounts.Register(ctx, service.RegisterInput{
		FullName:          req.FullName,
		Email:             req.Email,
		Password:          req.Password,
		Phone:             req.Phone,
		Country:           req.Country,
		City:              req.City,
		Zone:              req.Zone,
		Church:            req.Church,
		Group:             req.Group,
		KingsChatUsername: req.KingsChatUsername,
	})
	if err != nil {
		return fail(c, err, "Failed to register user")
	}
	return response.Created(c, sessionBody(s), "Registration successful")
}

// Login exchanges credentials for a token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return fail(c, err, "Failed to login")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	s, err := h.Accounts.Login(ctx, req.Email, req.Password)
	if err != nil {
		return fail(c, err, "Failed to login")
	}
	return response.Success(c, sessionBody(s), "Login successful")
}

// ForgotPassword answers the same way whether or not the email is known.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotReq
	if err := bind(c, &req); err != nil {
		return fail(c, err, "Failed to process password reset request")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	token, err := h.Accounts.ForgotPassword(ctx, req.Email)
	if err != nil {
		return fail(c, err, "Failed to process password reset request")
	}
	data := echo.Map{"message": resetNotice}
	if h.EchoResetToken && token != "" {
		data["reset_token"] = token
	}
	return response.Success(c, data, "Password reset requested")
}

// ResetPassword consumes a reset token.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetReq
	if err := bind(c, &req); err != nil {
		return fail(c, err, "Failed to reset password")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Accounts.ResetPassword(ctx, req.Token, req.Password); err != nil {
		return fail(c, err, "Failed to reset password")
	}
	return response.Success(c, echo.Map{"message": "Password has been reset successfully"}, "Password reset successful")
}

// KingsChat signs in with a KingsChat access token.
func (h *AuthHandler) KingsChat(c echo.Context) error {
	var req kingsChatReq
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	token := req.AccessToken
	if token == "" {
		token = req.AccessTokenCamel
	}
	if token == "" {
		return response.Validation(c, validation.Errors{"access_token": "Access token is required"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	s, err := h.Accounts.SignInWithKingsChat(ctx, token)
	if err != nil {
		return fail(c, err, "Failed to authenticate with KingsChat")
	}
	return response.Success(c, sessionBody(s), "KingsChat authentication successful")
}

var callbackPage = template.Must(template.New("kingschat-callback").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Redirecting to Rhapsody Crusades App...</title>
  <style>
    body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Helvetica, Arial, sans-serif; display: flex; justify-content: center; align-items: center; min-height: 100vh; margin: 0; background-color: #f5f5f5; }
    .container { text-align: center; padding: 20px; }
    h1 { color: #333; font-size: 24px; }
    p { color: #666; margin: 20px 0; }
    a { display: inline-block; background-color: #007bff; color: white; padding: 12px 24px; text-decoration: none; border-radius: 8px; font-weight: 500; }
  </style>
</head>
<body>
  <div class="container">
    <h1>KingsChat Authentication Successful</h1>
    <p>Redirecting to the Rhapsody Crusades app...</p>
    <p>If you're not redirected automatically, tap the button below:</p>
    <a href="{{.Link}}">Open App</a>
  </div>
  <script>window.location.href = {{.Link}};</script>
</body>
</html>
`))

// KingsChatCallback bounces the browser back into the mobile app with the
// tokens KingsChat appended to the query.
func (h *AuthHandler) KingsChatCallback(c echo.Context) error {
	link := h.AppScheme + "://auth/callback"
	params := url.Values{}
	for _, k := range []string{"accessToken", "refreshToken"} {
		if v := c.QueryParam(k); v != "" {
			params.Set(k, v)
		}
	}
	if len(params) > 0 {
		link += "?" + params.Encode()
	}
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(http.StatusOK)
	// The scheme comes from configuration, so the link is trusted.
	return callbackPage.Execute(c.Response(), struct{ Link template.URL }{template.URL(link)})
}
