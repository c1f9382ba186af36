package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"clientbook/internal/auth"
	"clientbook/internal/config"
	"clientbook/internal/errors"
	"clientbook/internal/handler"
)

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	userHandler *handler.UserHandler,
	clientHandler *handler.ClientHandler,
) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))

	e.Validator = &CustomValidator{validator: validator.New()}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// Uploaded photos are served straight from the upload directory.
	e.Static("/"+cfg.UploadDir, cfg.UploadDir)

	guard := JWTGuard(cfg.JWTSecret)

	users := e.Group("/users")
	users.POST("", userHandler.Register)
	users.POST("/login", userHandler.Login)
	users.GET("", userHandler.List, guard)
	users.PUT("", userHandler.UpdateField, guard)
	users.DELETE("/:id", userHandler.Delete, guard)

	clientes := e.Group("/clientes", guard)
	clientes.GET("", clientHandler.List)
	clientes.GET("/:id", clientHandler.GetByID)
	clientes.POST("", clientHandler.Create)
	clientes.PUT("/:id", clientHandler.Update)
	clientes.DELETE("/:id", clientHandler.Delete)
}

// JWTGuard rejects requests without a valid bearer token and resolves the
// caller's user id into the echo context for downstream handlers.
func JWTGuard(secret string) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey:  []byte(secret),
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(auth.Claims)
		},
		SuccessHandler: func(c echo.Context) {
			token, ok := c.Get("user").(*jwt.Token)
			if !ok {
				return
			}
			if claims, ok := token.Claims.(*auth.Claims); ok {
				c.Set(auth.ContextUserIDKey, claims.UserID)
			}
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
				Error: "missing or invalid token",
			})
		},
	})
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
