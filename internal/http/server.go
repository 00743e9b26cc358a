package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func NewServer(addr string, engine *gin.Engine) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
