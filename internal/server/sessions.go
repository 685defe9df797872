package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kode4food/walkthrough/pkg/api"
)

func (s *Server) startSession(c *gin.Context) {
	var req api.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrInvalidJSON, err),
			Status: http.StatusBadRequest,
		})
		return
	}

	if req.Recipe == "" {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  "recipe is required",
			Status: http.StatusBadRequest,
		})
		return
	}

	sess, err := s.sessions.Start(c.Request.Context(), req.Recipe)
	if err != nil {
		s.fail(c, ErrStartSession, err)
		return
	}

	c.JSON(http.StatusCreated, sess)
}

func (s *Server) getSession(c *gin.Context) {
	id := api.SessionID(c.Param("sessionID"))

	sess, err := s.sessions.Get(c.Request.Context(), id)
	if err != nil {
		s.fail(c, ErrGetSession, err)
		return
	}

	c.JSON(http.StatusOK, sess)
}

func (s *Server) nextStep(c *gin.Context) {
	id := api.SessionID(c.Param("sessionID"))

	out, sess, err := s.sessions.Next(c.Request.Context(), id)
	if err != nil {
		s.fail(c, ErrAdvance, err)
		return
	}

	c.JSON(http.StatusOK, api.NextStepResponse{
		Outcome: out,
		Session: sess,
	})
}

func (s *Server) deleteSession(c *gin.Context) {
	id := api.SessionID(c.Param("sessionID"))

	if err := s.sessions.Delete(c.Request.Context(), id); err != nil {
		s.fail(c, ErrDeleteSession, err)
		return
	}

	c.JSON(http.StatusOK, api.MessageResponse{
		Message: "Session deleted",
	})
}
