package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/docketry/docket/pkg/api"
)

var errTemplateIDRequired = errors.New("template ID is required")

func (s *Server) listTemplates(c *gin.Context) {
	templates := s.engine.Templates().List()
	c.JSON(http.StatusOK, api.TemplatesListResponse{
		Templates: templates,
		Count:     len(templates),
	})
}

func (s *Server) registerTemplate(c *gin.Context) {
	var tmpl api.Template
	if err := c.ShouldBindJSON(&tmpl); err != nil {
		respondError(c, fmt.Errorf("%w: %w", api.ErrValidation, err))
		return
	}

	if err := s.engine.Templates().Register(&tmpl); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, api.MessageResponse{
		Message: fmt.Sprintf("Template %s registered", tmpl.ID),
	})
}

func (s *Server) getTemplate(c *gin.Context) {
	id := api.TemplateID(c.Param("templateID"))
	if id == "" {
		respondError(c, fmt.Errorf("%w: %w",
			api.ErrValidation, errTemplateIDRequired))
		return
	}

	tmpl, err := s.engine.Templates().Get(api.SanitizeID(id))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tmpl)
}
