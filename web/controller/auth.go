package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ytschitwan/portal/web/middleware"
	"github.com/ytschitwan/portal/web/service"
)

type AuthController struct {
	authService *service.AuthService
	access      Access
}

func NewAuthController(g *gin.RouterGroup, auth *service.AuthService, access Access, limit gin.HandlerFunc) *AuthController {
	a := &AuthController{authService: auth, access: access}
	a.initRouter(g, limit)
	return a
}

func (a *AuthController) initRouter(g *gin.RouterGroup, limit gin.HandlerFunc) {
	g = g.Group("/auth")
	g.POST("/register", limit, a.register)
	g.POST("/login", limit, a.login)
	g.GET("/me", a.access.token(a.me)...)
}

type registerForm struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginForm struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *AuthController) register(c *gin.Context) {
	var form registerForm
	if !bindJSON(c, &form) {
		return
	}
	token, user, err := a.authService.Register(c.Request.Context(), form.Name, form.Email, form.Password)
	if err != nil {
		jsonError(c, "User", err)
		return
	}
	jsonOk(c, http.StatusCreated, gin.H{
		"message": "User created successfully",
		"token":   token,
		"user":    user,
	})
}

func (a *AuthController) login(c *gin.Context) {
	var form loginForm
	if !bindJSON(c, &form) {
		return
	}
	token, user, err := a.authService.Login(c.Request.Context(), form.Email, form.Password)
	if err != nil {
		jsonError(c, "User", err)
		return
	}
	jsonOk(c, http.StatusOK, gin.H{"token": token, "user": user})
}

func (a *AuthController) me(c *gin.Context) {
	jsonOk(c, http.StatusOK, gin.H{"user": middleware.GetIdentity(c)})
}
