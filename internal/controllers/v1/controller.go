// Package v1 contains the handlers of the v1 API.
package v1

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/medianbudget/backend/internal/config"
	"github.com/medianbudget/backend/internal/httputil"
	"github.com/medianbudget/backend/internal/models"
	"github.com/medianbudget/backend/internal/session"
	"gorm.io/gorm"
)

// Controller holds everything the handlers need. It is built once at
// startup.
type Controller struct {
	DB         *gorm.DB
	Config     config.Config
	Machine    *session.Machine
	Terminator *session.Terminator
	Evaluator  *session.Evaluator
}

// New wires the session lifecycle components to the database. A nil
// notifier logs phase changes.
func New(db *gorm.DB, cfg config.Config, notifier session.Notifier) Controller {
	m := session.NewMachine(db, notifier)
	t := session.NewTerminator(m)

	return Controller{
		DB:         db,
		Config:     cfg,
		Machine:    m,
		Terminator: t,
		Evaluator:  session.NewEvaluator(t),
	}
}

// RegisterRoutes registers all v1 routes with the RouterGroup that is passed.
func (co Controller) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", Get)
	r.OPTIONS("", Options)

	co.RegisterSessionRoutes(r.Group("/sessions"))
	co.RegisterVoteRoutes(r.Group("/votes"))
	co.RegisterTerminationRoutes(r.Group("/termination"))
}

// requireAdmin aborts requests to privileged endpoints that do not carry
// the configured admin key. Without a configured key, privileged endpoints
// are disabled.
func (co Controller) requireAdmin(c *gin.Context) {
	key := c.GetHeader(httputil.HeaderAdminKey)
	if co.Config.AdminKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(co.Config.AdminKey)) != 1 {
		c.AbortWithStatusJSON(http.StatusForbidden, httpError{
			Error: errAdminKey.Error(),
		})
		return
	}

	c.Next()
}

type Response struct {
	Links Links `json:"links"` // Links for the v1 API
}

type Links struct {
	Sessions    string `json:"sessions" example:"https://example.com/api/v1/sessions"`       // URL of Session collection endpoint
	Votes       string `json:"votes" example:"https://example.com/api/v1/votes"`             // URL of the vote submission endpoint
	Termination string `json:"termination" example:"https://example.com/api/v1/termination"` // URL of the termination polling endpoint
}

// Get returns the link list for v1
//
//	@Summary		v1 API
//	@Description	Returns general information about the v1 API
//	@Tags			v1
//	@Success		200	{object}	Response
//	@Router			/v1 [get]
func Get(c *gin.Context) {
	url := c.GetString(string(models.ContextURL))

	c.JSON(http.StatusOK, Response{
		Links: Links{
			Sessions:    url + "/v1/sessions",
			Votes:       url + "/v1/votes",
			Termination: url + "/v1/termination",
		},
	})
}

// Options returns the allowed HTTP methods
//
//	@Summary		Allowed HTTP verbs
//	@Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
//	@Tags			v1
//	@Success		204
//	@Router			/v1 [options]
func Options(c *gin.Context) {
	httputil.OptionsGet(c)
}
