package handler

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/nextskill/course-commerce-api/internal/config"
	"github.com/nextskill/course-commerce-api/internal/dto"
)

// AdminHandler gates the admin surface behind a single static
// credential pair from the environment. Admins are not user accounts;
// the token it mints carries an admin claim no user token can have.
type AdminHandler struct {
	cfg       config.AdminConfig
	jwtSecret string
	jwtExpiry time.Duration
}

func NewAdminHandler(cfg config.AdminConfig, jwtSecret string, jwtExpiry time.Duration) *AdminHandler {
	return &AdminHandler{cfg: cfg, jwtSecret: jwtSecret, jwtExpiry: jwtExpiry}
}

func (h *AdminHandler) Login(c *gin.Context) {
	var req dto.AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if h.cfg.Username == "" || h.cfg.Password == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "admin login is not configured"})
		return
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.cfg.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.cfg.Password)) == 1
	if !userOK || !passOK {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "admin",
		"admin": true,
		"iat":   now.Unix(),
		"exp":   now.Add(h.jwtExpiry).Unix(),
	})
	signed, err := token.SignedString([]byte(h.jwtSecret))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, dto.AdminLoginResponse{Token: signed, Username: h.cfg.Username})
}
