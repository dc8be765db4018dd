// Package status is a strictly read-only introspection HTTP surface for the
// primary: /healthz, /metrics, /nodes. It is NOT the "HTTP dashboard" spec
// §1 lists out of scope — it has no key read/write path and exists purely
// for operational visibility, the kind of endpoint the teacher wires
// alongside its actual API.
//
// Grounded on the teacher's cmd/server/main.go health-check route and
// internal/api/middleware.go's Logger/Recovery, adapted from the teacher's
// full read/write gin API (which this spec's wire protocol replaces) down
// to three GETs.
package status

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ringkv/internal/clusterstate"
	"ringkv/internal/metrics"
)

// Server is the read-only HTTP introspection surface.
type Server struct {
	router *gin.Engine
	addr   string
}

// New builds a Server bound to addr, backed by state for /nodes and reg for
// /metrics.
func New(addr string, state *clusterstate.State, reg *metrics.Registry) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(loggerMiddleware(), recoveryMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/nodes", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"active_nodes": state.Members()})
	})

	if reg != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg.Registerer(), promhttp.HandlerOpts{})))
	}

	return &Server{router: router, addr: addr}
}

// ListenAndServe blocks serving the introspection surface.
func (s *Server) ListenAndServe() error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

func loggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Printf("[status] %s %s | %d | %s",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

func recoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("[status] PANIC recovered: %v", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			}
		}()
		c.Next()
	}
}
